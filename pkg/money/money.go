// Package money formats decimal amounts for display using ISO-4217 currency
// rules. Arithmetic stays in shopspring/decimal; this package only converts to
// minor units at the edge.
package money

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	EUR = "EUR"
	USD = "USD"
	GBP = "GBP"
	CHF = "CHF"
	JPY = "JPY" // no minor units
)

// DefaultCurrency is used when a code is empty or unknown.
const DefaultCurrency = EUR

// Money is an amount in minor units bound to a currency.
type Money struct {
	m *money.Money
}

// Currency returns the canonical currency for code, falling back to DefaultCurrency.
func Currency(code string) *money.Currency {
	if c := money.GetCurrency(strings.ToUpper(strings.TrimSpace(code))); c != nil {
		return c
	}
	return money.GetCurrency(DefaultCurrency)
}

// NewFromDecimal rounds amount half away from zero to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, code string) *Money {
	c := Currency(code)
	cents := amount.Shift(int32(c.Fraction)).Round(0).IntPart()
	return &Money{m: money.New(cents, c.Code)}
}

// Amount returns the amount in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// CurrencyCode returns the ISO-4217 code.
func (m *Money) CurrencyCode() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// Display formats with symbol and grouping, e.g. "$1,234.56".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// ToDecimal converts back from minor units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.m.Currency().Fraction))
}

// String returns the plain decimal form with the currency's fraction digits.
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0"
	}
	return m.ToDecimal().StringFixed(int32(m.m.Currency().Fraction))
}

// Format is shorthand for NewFromDecimal(amount, code).Display().
func Format(amount decimal.Decimal, code string) string {
	return NewFromDecimal(amount, code).Display()
}

// FormatSigned prefixes non-negative amounts with "+" so deltas read as changes.
func FormatSigned(amount decimal.Decimal, code string) string {
	s := Format(amount, code)
	if !amount.IsNegative() {
		return "+" + s
	}
	return s
}
