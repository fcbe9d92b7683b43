package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

func TestMoneyRoundsHalfEven(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10", "10.00"},
		{"10.0", "10.00"},
		{"2.345", "2.34"},
		{"2.355", "2.36"},
		{"0.005", "0.00"},
		{"0.015", "0.02"},
		{"99.999", "100.00"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			m, err := domain.ParseMoney(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.String() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, m.String())
			}
		})
	}
}

func TestMoneyRejectsNegative(t *testing.T) {
	_, err := domain.NewMoney(decimal.RequireFromString("-0.01"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := domain.ParseMoney("abc"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for malformed input, got %v", err)
	}
}

func TestMoneyEqualityIgnoresConstructionPath(t *testing.T) {
	a := domain.MustMoney("10")
	b := domain.MustMoney("10.00")
	c := domain.MustMoney("10.0")
	if !a.Equal(b) || !b.Equal(c) {
		t.Fatalf("expected %s, %s and %s to be equal", a, b, c)
	}
	if a.Compare(domain.MustMoney("10.01")) != -1 {
		t.Fatalf("expected 10.00 < 10.01")
	}
	var zero domain.Money
	if !zero.Equal(domain.ZeroMoney) || zero.String() != "0.00" {
		t.Fatalf("expected zero value money to equal 0.00, got %s", zero)
	}
}

func TestMoneyMultiply(t *testing.T) {
	cases := []struct {
		price string
		qty   int
		want  string
	}{
		{"100.00", 2, "200.00"},
		{"0.10", 3, "0.30"},
		{"19.99", 7, "139.93"},
		{"0", 5, "0.00"},
	}
	for _, tc := range cases {
		got, err := domain.MustMoney(tc.price).Multiply(domain.MustQuantity(tc.qty))
		if err != nil {
			t.Fatalf("multiply %s x %d: %v", tc.price, tc.qty, err)
		}
		want := decimal.RequireFromString(tc.price).Mul(decimal.NewFromInt(int64(tc.qty))).RoundBank(2)
		if !got.Decimal().Equal(want) || got.String() != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}

	if _, err := domain.MustMoney("10").Multiply(domain.ZeroQuantity); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected multiply by zero to fail, got %v", err)
	}
}

func TestMoneyDivide(t *testing.T) {
	got, err := domain.MustMoney("10").Divide(domain.MustMoney("3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "3.33" {
		t.Fatalf("expected 3.33, got %s", got)
	}

	testCases := []struct {
		dividend, divisor, want string
	}{
		{"50000000000.00", "9999999999999.99", "0.01"},
		{"0.05", "2", "0.02"},
		{"0.15", "2", "0.08"},
		{"1", "8", "0.12"},
		{"100", "7", "14.29"},
	}
	for _, tc := range testCases {
		got, err := domain.MustMoney(tc.dividend).Divide(domain.MustMoney(tc.divisor))
		if err != nil {
			t.Fatalf("%s / %s: %v", tc.dividend, tc.divisor, err)
		}
		if got.String() != tc.want {
			t.Errorf("%s / %s: expected %s, got %s", tc.dividend, tc.divisor, tc.want, got)
		}
	}

	if _, err := domain.MustMoney("10").Divide(domain.ZeroMoney); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected division by zero to fail, got %v", err)
	}
}

func TestMoneyEncoding(t *testing.T) {
	raw, err := json.Marshal(domain.MustMoney("12.5"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"12.50"` {
		t.Fatalf("expected \"12.50\", got %s", raw)
	}

	var decoded domain.Money
	if err := json.Unmarshal([]byte(`"7.125"`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.String() != "7.12" {
		t.Fatalf("expected 7.12, got %s", decoded)
	}
	if err := json.Unmarshal([]byte(`"-1"`), &decoded); err == nil {
		t.Fatalf("expected negative json money to fail")
	}

	var scanned domain.Money
	if err := scanned.Scan("42.10"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	value, err := scanned.Value()
	if err != nil || value != "42.10" {
		t.Fatalf("expected driver value 42.10, got %v (%v)", value, err)
	}
}

func TestQuantity(t *testing.T) {
	if _, err := domain.NewQuantity(-1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected negative quantity to fail, got %v", err)
	}
	q := domain.MustQuantity(2).Add(domain.MustQuantity(3))
	if q.Int() != 5 {
		t.Fatalf("expected 5, got %d", q.Int())
	}
	if !domain.ZeroQuantity.IsZero() {
		t.Fatalf("expected ZeroQuantity to be zero")
	}
}
