package domain

import (
	"encoding/json"
	"fmt"
)

const zipCodeLength = 5

// ZipCode — почтовый индекс ровно из пяти символов.
type ZipCode struct{ value string }

// NewZipCode отклоняет пустые значения и значения другой длины.
func NewZipCode(value string) (ZipCode, error) {
	if err := requireNonBlank("zip_code", value); err != nil {
		return ZipCode{}, err
	}
	if len(value) != zipCodeLength {
		return ZipCode{}, newValidationError("zip_code", fmt.Sprintf("must have %d characters, got %q", zipCodeLength, value))
	}
	return ZipCode{value: value}, nil
}

func (z ZipCode) String() string { return z.value }

// IsZero сообщает, что индекс не задан.
func (z ZipCode) IsZero() bool { return z.value == "" }

func (z ZipCode) MarshalText() ([]byte, error) { return []byte(z.value), nil }

func (z *ZipCode) UnmarshalText(text []byte) error {
	parsed, err := NewZipCode(string(text))
	if err != nil {
		return err
	}
	*z = parsed
	return nil
}

// Address — почтовый адрес. Complement необязателен.
type Address struct {
	street       string
	complement   string
	neighborhood string
	number       string
	city         string
	state        string
	zipCode      ZipCode
}

// AddressParams — входные данные для NewAddress.
type AddressParams struct {
	Street       string
	Complement   string
	Neighborhood string
	Number       string
	City         string
	State        string
	ZipCode      ZipCode
}

// NewAddress проверяет обязательные поля адреса.
func NewAddress(p AddressParams) (Address, error) {
	required := []struct{ field, value string }{
		{"street", p.Street},
		{"neighborhood", p.Neighborhood},
		{"city", p.City},
		{"number", p.Number},
		{"state", p.State},
	}
	for _, r := range required {
		if err := requireNonBlank(r.field, r.value); err != nil {
			return Address{}, err
		}
	}
	if p.ZipCode.IsZero() {
		return Address{}, newValidationError("zip_code", "is required")
	}
	return Address{
		street:       p.Street,
		complement:   p.Complement,
		neighborhood: p.Neighborhood,
		number:       p.Number,
		city:         p.City,
		state:        p.State,
		zipCode:      p.ZipCode,
	}, nil
}

func (a Address) Street() string       { return a.street }
func (a Address) Complement() string   { return a.complement }
func (a Address) Neighborhood() string { return a.neighborhood }
func (a Address) Number() string       { return a.number }
func (a Address) City() string         { return a.city }
func (a Address) State() string        { return a.state }
func (a Address) ZipCode() ZipCode     { return a.zipCode }

// IsZero сообщает, что адрес не задан.
func (a Address) IsZero() bool { return a == Address{} }

type addressJSON struct {
	Street       string  `json:"street"`
	Complement   string  `json:"complement,omitempty"`
	Neighborhood string  `json:"neighborhood"`
	Number       string  `json:"number"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ZipCode      ZipCode `json:"zip_code"`
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{
		Street:       a.street,
		Complement:   a.complement,
		Neighborhood: a.neighborhood,
		Number:       a.number,
		City:         a.city,
		State:        a.state,
		ZipCode:      a.zipCode,
	})
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var raw addressJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewAddress(AddressParams(raw))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
