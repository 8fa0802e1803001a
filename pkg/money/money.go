// Package money provides rupee amounts backed by integer paise using go-money,
// with shopspring/decimal at the edges for parsing and persistence.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// INR is the only currency the tracker books in.
const INR = money.INR

var (
	// Chat replies and stats show whole rupees when there are no paise,
	// and never group thousands ("₹5000", "₹80.50").
	wholeRupees = money.NewFormatter(0, ".", "", "₹", "$1")
	withPaise   = money.NewFormatter(2, ".", "", "₹", "$1")
)

// Money represents a rupee value.
type Money struct {
	m *money.Money
}

// New creates a Money value from paise.
func New(paise int64) *Money {
	return &Money{m: money.New(paise, INR)}
}

// NewFromDecimal creates Money from a decimal rupee amount, rounding to the nearest paisa.
func NewFromDecimal(amount decimal.Decimal) *Money {
	return New(amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// Parse reads a user supplied amount such as "₹1,250.50", "Rs. 80" or "500".
func Parse(amount string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(strings.ToLower(amount))
	for _, sym := range []string{"₹", "rs.", "rs", "inr"} {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return d.Round(2), nil
}

// Zero returns ₹0.
func Zero() *Money {
	return New(0)
}

// Paise returns the amount in minor units.
func (m *Money) Paise() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// Add returns m + other.
func (m *Money) Add(other *Money) *Money {
	if m == nil || m.m == nil {
		if other == nil {
			return Zero()
		}
		return other
	}
	if other == nil || other.m == nil {
		return m
	}
	// Both sides are INR so Add cannot fail on currency mismatch.
	sum, err := m.m.Add(other.m)
	if err != nil {
		return m
	}
	return &Money{m: sum}
}

// Display formats with the rupee sign, e.g. "₹80" or "₹80.50".
func (m *Money) Display() string {
	paise := m.Paise()
	if paise%100 == 0 {
		return wholeRupees.Format(paise / 100)
	}
	return withPaise.Format(paise)
}

// String returns the amount as a decimal string (e.g., "1234.56")
func (m *Money) String() string {
	return m.ToDecimal().StringFixed(2)
}

// ToDecimal converts to decimal.Decimal rupees.
func (m *Money) ToDecimal() decimal.Decimal {
	return decimal.New(m.Paise(), -2)
}

// Format is shorthand for NewFromDecimal(d).Display().
func Format(d decimal.Decimal) string {
	return NewFromDecimal(d).Display()
}

// Sum adds decimal rupee amounts through paise so rounding stays consistent.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(NewFromDecimal(a))
	}
	return total.ToDecimal()
}

func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]interface{}{
		"amount":   m.ToDecimal().InexactFloat64(),
		"currency": INR,
		"display":  m.Display(),
	})
}

// Scan reads a NUMERIC column holding rupees.
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		m.m = nil
		return nil
	}

	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("cannot scan %T into Money: %w", value, err)
	}
	*m = *NewFromDecimal(d)
	return nil
}

func (m *Money) Value() (driver.Value, error) {
	if m == nil || m.m == nil {
		return nil, nil
	}
	return m.String(), nil
}
