package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const shippingDateLayout = "2006-01-02"

// PaymentMethod — способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodGatewayBalance PaymentMethod = "GATEWAY_BALANCE"
	PaymentMethodCreditCard     PaymentMethod = "CREDIT_CARD"
)

// Valid сообщает, что значение входит в перечень способов оплаты.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodGatewayBalance, PaymentMethodCreditCard:
		return true
	default:
		return false
	}
}

// ParsePaymentMethod разбирает строковое значение.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(raw)
	if !m.Valid() {
		return "", newValidationError("payment_method", fmt.Sprintf("unknown value %q", raw))
	}
	return m, nil
}

// Recipient — получатель доставки.
type Recipient struct {
	fullName FullName
	document Document
	phone    Phone
}

// NewRecipient требует все три поля.
func NewRecipient(fullName FullName, document Document, phone Phone) (Recipient, error) {
	switch {
	case fullName.IsZero():
		return Recipient{}, newValidationError("recipient.full_name", "is required")
	case document.IsZero():
		return Recipient{}, newValidationError("recipient.document", "is required")
	case phone.IsZero():
		return Recipient{}, newValidationError("recipient.phone", "is required")
	}
	return Recipient{fullName: fullName, document: document, phone: phone}, nil
}

func (r Recipient) FullName() FullName { return r.fullName }
func (r Recipient) Document() Document { return r.document }
func (r Recipient) Phone() Phone       { return r.phone }

type recipientJSON struct {
	FullName FullName `json:"full_name"`
	Document Document `json:"document"`
	Phone    Phone    `json:"phone"`
}

func (r Recipient) MarshalJSON() ([]byte, error) {
	return json.Marshal(recipientJSON{FullName: r.fullName, Document: r.document, Phone: r.phone})
}

func (r *Recipient) UnmarshalJSON(data []byte) error {
	var raw recipientJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewRecipient(raw.FullName, raw.Document, raw.Phone)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Billing — платёжные данные заказа.
type Billing struct {
	fullName FullName
	document Document
	phone    Phone
	email    Email
	address  Address
}

// NewBilling требует все поля.
func NewBilling(fullName FullName, document Document, phone Phone, email Email, address Address) (Billing, error) {
	switch {
	case fullName.IsZero():
		return Billing{}, newValidationError("billing.full_name", "is required")
	case document.IsZero():
		return Billing{}, newValidationError("billing.document", "is required")
	case phone.IsZero():
		return Billing{}, newValidationError("billing.phone", "is required")
	case email.IsZero():
		return Billing{}, newValidationError("billing.email", "is required")
	case address.IsZero():
		return Billing{}, newValidationError("billing.address", "is required")
	}
	return Billing{fullName: fullName, document: document, phone: phone, email: email, address: address}, nil
}

func (b Billing) FullName() FullName { return b.fullName }
func (b Billing) Document() Document { return b.document }
func (b Billing) Phone() Phone       { return b.phone }
func (b Billing) Email() Email       { return b.email }
func (b Billing) Address() Address   { return b.address }

type billingJSON struct {
	FullName FullName `json:"full_name"`
	Document Document `json:"document"`
	Phone    Phone    `json:"phone"`
	Email    Email    `json:"email"`
	Address  Address  `json:"address"`
}

func (b Billing) MarshalJSON() ([]byte, error) {
	return json.Marshal(billingJSON{
		FullName: b.fullName,
		Document: b.document,
		Phone:    b.phone,
		Email:    b.email,
		Address:  b.address,
	})
}

func (b *Billing) UnmarshalJSON(data []byte) error {
	var raw billingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewBilling(raw.FullName, raw.Document, raw.Phone, raw.Email, raw.Address)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Shipping — условия доставки: стоимость, ожидаемая дата, получатель и адрес.
type Shipping struct {
	cost         Money
	expectedDate time.Time
	recipient    Recipient
	address      Address
}

// NewShipping хранит ожидаемую дату как календарную дату в UTC.
// Проверка даты относительно текущего дня выполняется заказом.
func NewShipping(cost Money, expectedDate time.Time, recipient Recipient, address Address) (Shipping, error) {
	switch {
	case expectedDate.IsZero():
		return Shipping{}, newValidationError("shipping.expected_date", "is required")
	case recipient.fullName.IsZero():
		return Shipping{}, newValidationError("shipping.recipient", "is required")
	case address.IsZero():
		return Shipping{}, newValidationError("shipping.address", "is required")
	}
	return Shipping{cost: cost, expectedDate: dateOf(expectedDate), recipient: recipient, address: address}, nil
}

func (s Shipping) Cost() Money             { return s.cost }
func (s Shipping) ExpectedDate() time.Time { return s.expectedDate }
func (s Shipping) Recipient() Recipient    { return s.recipient }
func (s Shipping) Address() Address        { return s.address }

type shippingJSON struct {
	Cost         Money     `json:"cost"`
	ExpectedDate string    `json:"expected_date"`
	Recipient    Recipient `json:"recipient"`
	Address      Address   `json:"address"`
}

func (s Shipping) MarshalJSON() ([]byte, error) {
	return json.Marshal(shippingJSON{
		Cost:         s.cost,
		ExpectedDate: s.expectedDate.Format(shippingDateLayout),
		Recipient:    s.recipient,
		Address:      s.address,
	})
}

func (s *Shipping) UnmarshalJSON(data []byte) error {
	var raw shippingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(shippingDateLayout, raw.ExpectedDate)
	if err != nil {
		return newValidationError("shipping.expected_date", fmt.Sprintf("malformed date %q", raw.ExpectedDate))
	}
	parsed, err := NewShipping(raw.Cost, date, raw.Recipient, raw.Address)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
