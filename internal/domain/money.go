package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// moneyScale — число знаков после запятой у денежных сумм.
const moneyScale = 2

// Money — неотрицательная денежная сумма с двумя знаками после запятой.
// Округление банковское (half-even). Нулевое значение Money равно 0.00.
type Money struct {
	value decimal.Decimal
}

// ZeroMoney — сумма 0.00.
var ZeroMoney = Money{value: decimal.Zero.RoundBank(moneyScale)}

// NewMoney округляет значение до двух знаков и отклоняет отрицательные суммы.
func NewMoney(value decimal.Decimal) (Money, error) {
	rounded := value.RoundBank(moneyScale)
	if rounded.IsNegative() {
		return Money{}, newValidationError("money", fmt.Sprintf("must be non-negative, got %s", value.String()))
	}
	return Money{value: rounded}, nil
}

// ParseMoney разбирает десятичную строку, например "10.99".
func ParseMoney(raw string) (Money, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, newValidationError("money", fmt.Sprintf("malformed decimal %q", raw))
	}
	return NewMoney(value)
}

// MustMoney — ParseMoney для констант и тестов, паникует на ошибке.
func MustMoney(raw string) Money {
	m, err := ParseMoney(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// Multiply умножает сумму на количество; количество должно быть не меньше 1.
func (m Money) Multiply(q Quantity) (Money, error) {
	if q.Int() < 1 {
		return Money{}, newValidationError("quantity", fmt.Sprintf("multiplier must be at least 1, got %d", q.Int()))
	}
	return NewMoney(m.value.Mul(decimal.NewFromInt(int64(q.Int()))))
}

// Add складывает суммы; результат повторно округляется.
func (m Money) Add(other Money) Money {
	return Money{value: m.value.Add(other.value).RoundBank(moneyScale)}
}

// Divide делит сумму на другую сумму с округлением half-even.
func (m Money) Divide(other Money) (Money, error) {
	if other.value.IsZero() {
		return Money{}, newValidationError("money", "division by zero")
	}
	// QuoRem даёт точный остаток, поэтому частное округляется один раз.
	quotient, remainder := m.value.QuoRem(other.value, moneyScale)
	step := decimal.New(1, -moneyScale)
	switch remainder.Mul(decimal.NewFromInt(2)).Cmp(other.value.Mul(step)) {
	case 1:
		quotient = quotient.Add(step)
	case 0:
		if quotient.Shift(moneyScale).IntPart()%2 != 0 {
			quotient = quotient.Add(step)
		}
	}
	return NewMoney(quotient)
}

// Compare возвращает -1, 0 или 1.
func (m Money) Compare(other Money) int { return m.value.Cmp(other.value) }

// Equal сравнивает суммы по значению.
func (m Money) Equal(other Money) bool { return m.value.Equal(other.value) }

// IsZero сообщает, что сумма равна нулю.
func (m Money) IsZero() bool { return m.value.IsZero() }

// Decimal возвращает значение суммы.
func (m Money) Decimal() decimal.Decimal { return m.value }

// String форматирует сумму всегда с двумя знаками: "10.00".
func (m Money) String() string { return m.value.StringFixed(moneyScale) }

// MarshalJSON кодирует сумму строкой, чтобы не терять точность.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON принимает строку или число.
func (m *Money) UnmarshalJSON(data []byte) error {
	var value decimal.Decimal
	if err := value.UnmarshalJSON(data); err != nil {
		return newValidationError("money", err.Error())
	}
	parsed, err := NewMoney(value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value реализует driver.Valuer для колонок NUMERIC.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan реализует sql.Scanner.
func (m *Money) Scan(src any) error {
	var value decimal.Decimal
	if err := value.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	parsed, err := NewMoney(value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
