package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CanonicalScale is the number of fractional digits every supported currency uses.
const CanonicalScale = 2

// Money is an exact decimal amount. It never goes through float64 and
// exposes no division, so no precision is lost silently.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{d: decimal.Zero}

// ParseMoney parses a decimal string such as "350.00".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustMoney is ParseMoney for constants and tests. It panics on bad input.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromInt returns a whole-unit amount.
func NewMoneyFromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

func (m Money) Add(other Money) Money { return Money{d: m.d.Add(other.d)} }

func (m Money) Sub(other Money) Money { return Money{d: m.d.Sub(other.d)} }

// MulInt multiplies by an integer quantity (denomination x count).
func (m Money) MulInt(n int64) Money { return Money{d: m.d.Mul(decimal.NewFromInt(n))} }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(other Money) int { return m.d.Cmp(other.d) }

// Equal compares by value, so 350 equals 350.00.
func (m Money) Equal(other Money) bool { return m.d.Equal(other.d) }

func (m Money) LessThan(other Money) bool { return m.d.LessThan(other.d) }

func (m Money) GreaterThan(other Money) bool { return m.d.GreaterThan(other.d) }

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

// Scale returns the number of significant fractional digits, ignoring
// trailing zeros: 10.50 has scale 1, 10.505 has scale 3.
func (m Money) Scale() int {
	exp := m.d.Exponent()
	if exp >= 0 {
		return 0
	}
	s := strings.TrimRight(m.d.String(), "0")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// Decimal exposes the underlying value for storage drivers.
func (m Money) Decimal() decimal.Decimal { return m.d }

// String renders the amount at canonical scale.
func (m Money) String() string { return m.d.StringFixed(CanonicalScale) }

// MarshalJSON renders the amount as a JSON string to keep it exact.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.50" and 12.50.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = Zero
		return nil
	}
	s = strings.Trim(s, `"`)
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer for Money
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for Money
func (m *Money) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		return errors.New("cannot scan NULL into Money")
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	case int64:
		*m = NewMoneyFromInt(v)
		return nil
	case float64:
		// drivers that return NUMERIC as float lose nothing at our scale
		*m = Money{d: decimal.NewFromFloat(v)}
		return nil
	default:
		return fmt.Errorf("unsupported type %T for Money", value)
	}
}

func (m *Money) scanString(s string) error {
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
