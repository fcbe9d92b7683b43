package domain

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
)

func requireNonBlank(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return newValidationError(field, "must not be blank")
	}
	return nil
}

// ProductName — непустое название товара.
type ProductName struct{ value string }

// NewProductName отклоняет пустые названия.
func NewProductName(value string) (ProductName, error) {
	if err := requireNonBlank("product_name", value); err != nil {
		return ProductName{}, err
	}
	return ProductName{value: value}, nil
}

func (n ProductName) String() string { return n.value }

// IsZero сообщает, что название не задано.
func (n ProductName) IsZero() bool { return n.value == "" }

func (n ProductName) MarshalText() ([]byte, error) { return []byte(n.value), nil }

func (n *ProductName) UnmarshalText(text []byte) error {
	parsed, err := NewProductName(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Email — адрес электронной почты без отображаемого имени.
type Email struct{ value string }

// NewEmail проверяет синтаксис адреса; домен должен содержать точку.
func NewEmail(value string) (Email, error) {
	if err := requireNonBlank("email", value); err != nil {
		return Email{}, err
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || addr.Name != "" {
		return Email{}, newValidationError("email", fmt.Sprintf("malformed address %q", value))
	}
	at := strings.LastIndex(value, "@")
	if domainPart := value[at+1:]; !strings.Contains(domainPart, ".") || strings.HasSuffix(domainPart, ".") {
		return Email{}, newValidationError("email", fmt.Sprintf("malformed domain in %q", value))
	}
	return Email{value: value}, nil
}

func (e Email) String() string { return e.value }

// IsZero сообщает, что адрес не задан.
func (e Email) IsZero() bool { return e.value == "" }

func (e Email) MarshalText() ([]byte, error) { return []byte(e.value), nil }

func (e *Email) UnmarshalText(text []byte) error {
	parsed, err := NewEmail(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Phone — непустой номер телефона.
type Phone struct{ value string }

// NewPhone отклоняет пустые значения.
func NewPhone(value string) (Phone, error) {
	if err := requireNonBlank("phone", value); err != nil {
		return Phone{}, err
	}
	return Phone{value: value}, nil
}

func (p Phone) String() string { return p.value }

// IsZero сообщает, что телефон не задан.
func (p Phone) IsZero() bool { return p.value == "" }

func (p Phone) MarshalText() ([]byte, error) { return []byte(p.value), nil }

func (p *Phone) UnmarshalText(text []byte) error {
	parsed, err := NewPhone(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Document — непустой номер документа.
type Document struct{ value string }

// NewDocument отклоняет пустые значения.
func NewDocument(value string) (Document, error) {
	if err := requireNonBlank("document", value); err != nil {
		return Document{}, err
	}
	return Document{value: value}, nil
}

func (d Document) String() string { return d.value }

// IsZero сообщает, что документ не задан.
func (d Document) IsZero() bool { return d.value == "" }

func (d Document) MarshalText() ([]byte, error) { return []byte(d.value), nil }

func (d *Document) UnmarshalText(text []byte) error {
	parsed, err := NewDocument(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FullName — имя и фамилия, оба непустые, без краевых пробелов.
type FullName struct {
	firstName string
	lastName  string
}

// NewFullName обрезает пробелы и отклоняет пустые части.
func NewFullName(firstName, lastName string) (FullName, error) {
	if err := requireNonBlank("first_name", firstName); err != nil {
		return FullName{}, err
	}
	if err := requireNonBlank("last_name", lastName); err != nil {
		return FullName{}, err
	}
	return FullName{firstName: strings.TrimSpace(firstName), lastName: strings.TrimSpace(lastName)}, nil
}

func (n FullName) FirstName() string { return n.firstName }
func (n FullName) LastName() string  { return n.lastName }

// IsZero сообщает, что имя не задано.
func (n FullName) IsZero() bool { return n.firstName == "" && n.lastName == "" }

func (n FullName) String() string { return n.firstName + " " + n.lastName }

type fullNameJSON struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (n FullName) MarshalJSON() ([]byte, error) {
	return json.Marshal(fullNameJSON{FirstName: n.firstName, LastName: n.lastName})
}

func (n *FullName) UnmarshalJSON(data []byte) error {
	var raw fullNameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return newValidationError("full_name", err.Error())
	}
	parsed, err := NewFullName(raw.FirstName, raw.LastName)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
