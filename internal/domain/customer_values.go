package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const birthDateLayout = "2006-01-02"

// LoyaltyPoints — неотрицательное число бонусных баллов.
type LoyaltyPoints struct{ value int }

// NewLoyaltyPoints отклоняет отрицательные значения.
func NewLoyaltyPoints(value int) (LoyaltyPoints, error) {
	if value < 0 {
		return LoyaltyPoints{}, newValidationError("loyalty_points", fmt.Sprintf("must be non-negative, got %d", value))
	}
	return LoyaltyPoints{value: value}, nil
}

// Add складывает баллы.
func (p LoyaltyPoints) Add(other LoyaltyPoints) LoyaltyPoints {
	return LoyaltyPoints{value: p.value + other.value}
}

func (p LoyaltyPoints) Int() int { return p.value }

func (p LoyaltyPoints) MarshalJSON() ([]byte, error) { return json.Marshal(p.value) }

func (p *LoyaltyPoints) UnmarshalJSON(data []byte) error {
	var raw int
	if err := json.Unmarshal(data, &raw); err != nil {
		return newValidationError("loyalty_points", err.Error())
	}
	parsed, err := NewLoyaltyPoints(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// BirthDate — календарная дата рождения, не позже сегодняшнего дня.
type BirthDate struct{ value time.Time }

// NewBirthDate отбрасывает время суток и отклоняет даты в будущем.
func NewBirthDate(value time.Time) (BirthDate, error) {
	if value.IsZero() {
		return BirthDate{}, newValidationError("birth_date", "is required")
	}
	date := dateOf(value)
	if date.After(today()) {
		return BirthDate{}, newValidationError("birth_date", "must not be in the future")
	}
	return BirthDate{value: date}, nil
}

// Time возвращает дату в UTC.
func (b BirthDate) Time() time.Time { return b.value }

// Age возвращает полное число лет на текущую дату.
func (b BirthDate) Age() int {
	current := today()
	age := current.Year() - b.value.Year()
	if !sameMonthDayOrLater(current, b.value) {
		age--
	}
	return age
}

func sameMonthDayOrLater(current, birth time.Time) bool {
	if current.Month() != birth.Month() {
		return current.Month() > birth.Month()
	}
	return current.Day() >= birth.Day()
}

func (b BirthDate) String() string { return b.value.Format(birthDateLayout) }

func (b BirthDate) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *BirthDate) UnmarshalText(text []byte) error {
	parsed, err := time.Parse(birthDateLayout, string(text))
	if err != nil {
		return newValidationError("birth_date", fmt.Sprintf("malformed date %q", string(text)))
	}
	date, err := NewBirthDate(parsed)
	if err != nil {
		return err
	}
	*b = date
	return nil
}
