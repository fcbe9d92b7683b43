package domain

import (
	"encoding/json"
	"fmt"
)

// Quantity — неотрицательное количество единиц товара.
type Quantity struct {
	value int
}

// ZeroQuantity — количество 0.
var ZeroQuantity = Quantity{}

// NewQuantity отклоняет отрицательные значения.
func NewQuantity(value int) (Quantity, error) {
	if value < 0 {
		return Quantity{}, newValidationError("quantity", fmt.Sprintf("must be non-negative, got %d", value))
	}
	return Quantity{value: value}, nil
}

// MustQuantity — NewQuantity для тестов и констант.
func MustQuantity(value int) Quantity {
	q, err := NewQuantity(value)
	if err != nil {
		panic(err)
	}
	return q
}

// Add складывает количества.
func (q Quantity) Add(other Quantity) Quantity { return Quantity{value: q.value + other.value} }

// Int возвращает числовое значение.
func (q Quantity) Int() int { return q.value }

// IsZero сообщает, что количество равно нулю.
func (q Quantity) IsZero() bool { return q.value == 0 }

func (q Quantity) String() string { return fmt.Sprintf("%d", q.value) }

func (q Quantity) MarshalJSON() ([]byte, error) { return json.Marshal(q.value) }

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var raw int
	if err := json.Unmarshal(data, &raw); err != nil {
		return newValidationError("quantity", err.Error())
	}
	parsed, err := NewQuantity(raw)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
