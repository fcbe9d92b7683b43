package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	anonymousName     = "Anonymous"
	anonymousPhone    = "000-000-0000"
	anonymousDocument = "000-00-0000"
	anonymousDomain   = "@anonymous.com"
)

// Customer — агрегат клиента. Архивный клиент анонимизирован и не меняется.
type Customer struct {
	id                            CustomerID
	fullName                      FullName
	birthDate                     *BirthDate
	email                         Email
	phone                         Phone
	document                      Document
	promotionNotificationsAllowed bool
	archived                      bool
	registeredAt                  time.Time
	archivedAt                    *time.Time
	loyaltyPoints                 LoyaltyPoints
	version                       int64
}

// CustomerRegistration — данные для регистрации клиента.
type CustomerRegistration struct {
	FullName                      FullName
	BirthDate                     *BirthDate
	Email                         Email
	Phone                         Phone
	Document                      Document
	PromotionNotificationsAllowed bool
}

// RegisterCustomer создаёт нового клиента без бонусных баллов.
func RegisterCustomer(r CustomerRegistration) (*Customer, error) {
	switch {
	case r.FullName.IsZero():
		return nil, newValidationError("customer.full_name", "is required")
	case r.Email.IsZero():
		return nil, newValidationError("customer.email", "is required")
	case r.Phone.IsZero():
		return nil, newValidationError("customer.phone", "is required")
	case r.Document.IsZero():
		return nil, newValidationError("customer.document", "is required")
	}
	c := &Customer{
		id:                            NewCustomerID(),
		fullName:                      r.FullName,
		email:                         r.Email,
		phone:                         r.Phone,
		document:                      r.Document,
		promotionNotificationsAllowed: r.PromotionNotificationsAllowed,
		registeredAt:                  now(),
	}
	if r.BirthDate != nil {
		birthDate := *r.BirthDate
		c.birthDate = &birthDate
	}
	return c, nil
}

// RestoreCustomer восстанавливает клиента из хранилища.
func RestoreCustomer(s CustomerSnapshot) (*Customer, error) {
	switch {
	case s.ID.IsZero():
		return nil, newValidationError("customer.id", "is required")
	case s.FullName.IsZero():
		return nil, newValidationError("customer.full_name", "is required")
	case s.Email.IsZero():
		return nil, newValidationError("customer.email", "is required")
	case s.Phone.IsZero():
		return nil, newValidationError("customer.phone", "is required")
	case s.Document.IsZero():
		return nil, newValidationError("customer.document", "is required")
	case s.RegisteredAt.IsZero():
		return nil, newValidationError("customer.registered_at", "is required")
	case s.Archived && s.ArchivedAt == nil:
		return nil, newValidationError("customer.archived_at", "is required for archived customer")
	case s.Version < 0:
		return nil, newValidationError("customer.version", "must be non-negative")
	}
	c := &Customer{
		id:                            s.ID,
		fullName:                      s.FullName,
		email:                         s.Email,
		phone:                         s.Phone,
		document:                      s.Document,
		promotionNotificationsAllowed: s.PromotionNotificationsAllowed,
		archived:                      s.Archived,
		registeredAt:                  s.RegisteredAt,
		archivedAt:                    copyTime(s.ArchivedAt),
		loyaltyPoints:                 s.LoyaltyPoints,
		version:                       s.Version,
	}
	if s.BirthDate != nil {
		birthDate := *s.BirthDate
		c.birthDate = &birthDate
	}
	return c, nil
}

func (c *Customer) ID() CustomerID               { return c.id }
func (c *Customer) FullName() FullName           { return c.fullName }
func (c *Customer) Email() Email                 { return c.email }
func (c *Customer) Phone() Phone                 { return c.phone }
func (c *Customer) Document() Document           { return c.document }
func (c *Customer) IsArchived() bool             { return c.archived }
func (c *Customer) RegisteredAt() time.Time      { return c.registeredAt }
func (c *Customer) ArchivedAt() *time.Time       { return copyTime(c.archivedAt) }
func (c *Customer) LoyaltyPoints() LoyaltyPoints { return c.loyaltyPoints }
func (c *Customer) Version() int64               { return c.version }

// AdvanceVersion вызывается хранилищем после успешного сохранения.
func (c *Customer) AdvanceVersion() { c.version++ }

// BirthDate возвращает дату рождения или nil.
func (c *Customer) BirthDate() *BirthDate {
	if c.birthDate == nil {
		return nil
	}
	b := *c.birthDate
	return &b
}

func (c *Customer) IsPromotionNotificationsAllowed() bool { return c.promotionNotificationsAllowed }

// ChangeName меняет имя клиента.
func (c *Customer) ChangeName(fullName FullName) error {
	if err := c.verifyIfChangeable(); err != nil {
		return err
	}
	if fullName.IsZero() {
		return newValidationError("customer.full_name", "is required")
	}
	c.fullName = fullName
	return nil
}

// ChangeEmail меняет адрес почты.
func (c *Customer) ChangeEmail(email Email) error {
	if err := c.verifyIfChangeable(); err != nil {
		return err
	}
	if email.IsZero() {
		return newValidationError("customer.email", "is required")
	}
	c.email = email
	return nil
}

// ChangePhone меняет телефон.
func (c *Customer) ChangePhone(phone Phone) error {
	if err := c.verifyIfChangeable(); err != nil {
		return err
	}
	if phone.IsZero() {
		return newValidationError("customer.phone", "is required")
	}
	c.phone = phone
	return nil
}

func (c *Customer) EnablePromotionNotifications() error {
	if err := c.verifyIfChangeable(); err != nil {
		return err
	}
	c.promotionNotificationsAllowed = true
	return nil
}

func (c *Customer) DisablePromotionNotifications() error {
	if err := c.verifyIfChangeable(); err != nil {
		return err
	}
	c.promotionNotificationsAllowed = false
	return nil
}

// AddLoyaltyPoints начисляет бонусные баллы.
func (c *Customer) AddLoyaltyPoints(points LoyaltyPoints) error {
	if err := c.verifyIfChangeable(); err != nil {
		return err
	}
	c.loyaltyPoints = c.loyaltyPoints.Add(points)
	return nil
}

// Archive архивирует клиента и заменяет персональные данные заглушками.
func (c *Customer) Archive() error {
	if err := c.verifyIfChangeable(); err != nil {
		return err
	}
	name, err := NewFullName(anonymousName, anonymousName)
	if err != nil {
		return err
	}
	phone, err := NewPhone(anonymousPhone)
	if err != nil {
		return err
	}
	document, err := NewDocument(anonymousDocument)
	if err != nil {
		return err
	}
	email, err := NewEmail(uuid.NewString() + anonymousDomain)
	if err != nil {
		return err
	}

	c.archived = true
	c.archivedAt = timestamp()
	c.fullName = name
	c.phone = phone
	c.document = document
	c.email = email
	c.birthDate = nil
	c.promotionNotificationsAllowed = false
	return nil
}

// Snapshot возвращает данные клиента для хранилища.
func (c *Customer) Snapshot() CustomerSnapshot {
	return CustomerSnapshot{
		ID:                            c.id,
		FullName:                      c.fullName,
		BirthDate:                     c.BirthDate(),
		Email:                         c.email,
		Phone:                         c.phone,
		Document:                      c.document,
		PromotionNotificationsAllowed: c.promotionNotificationsAllowed,
		Archived:                      c.archived,
		RegisteredAt:                  c.registeredAt,
		ArchivedAt:                    copyTime(c.archivedAt),
		LoyaltyPoints:                 c.loyaltyPoints,
		Version:                       c.version,
	}
}

func (c *Customer) verifyIfChangeable() error {
	if c.archived {
		return &CustomerArchivedError{CustomerID: c.id}
	}
	return nil
}
