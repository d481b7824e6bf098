// Package money formats and totals integer cent amounts. Statement imports keep
// every amount as signed cents; this package turns them back into text for
// previews, exports and logs.
package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
	JPY = "JPY" // no minor unit
	CAD = "CAD"
	MXN = "MXN"
)

var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money is an amount in minor units tagged with a currency.
type Money struct {
	m *money.Money
}

// New creates Money from cents (minor units) and a currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyCode)}
}

// NewFromDecimal creates Money from a major-unit decimal, rounding half away
// from zero to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	fraction := fractionOf(currencyCode)
	return New(amount.Shift(int32(fraction)).Round(0).IntPart(), currencyCode)
}

// Zero returns a zero amount in the given currency.
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

func (m *Money) IsZero() bool     { return m.Amount() == 0 }
func (m *Money) IsNegative() bool { return m.Amount() < 0 }

// Abs returns the absolute value.
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return nil
	}
	return &Money{m: m.m.Absolute()}
}

// Add returns m + other. Both must share a currency.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return nil, errors.New("cannot add nil money")
	}
	sum, err := m.m.Add(other.m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency(), other.Currency())
	}
	return &Money{m: sum}, nil
}

// Display returns the amount with currency symbol and grouping, e.g. "$1,234.56".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// String returns the plain decimal amount with the currency's minor digits, e.g. "-12.30".
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().StringFixed(int32(m.m.Currency().Fraction))
}

// ToDecimal converts to a major-unit decimal.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.m.Currency().Fraction))
}

func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]interface{}{
		"amount":   m.Amount(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}

// FormatCents renders cents as a fixed two-digit decimal without grouping:
// 123456 is "1234.56" and -5000 is "-50.00". Parsing the result back yields
// the same cents.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

var numberFormatter = money.NewFormatter(2, ".", ",", "", "1")

// FormatCentsNumber renders cents with thousands grouping and no symbol,
// e.g. "1,234.56".
func FormatCentsNumber(cents int64) string {
	return numberFormatter.Format(cents)
}

// FormatCentsCurrency renders cents in the display format of currencyCode.
// Unknown codes fall back to FormatCentsNumber followed by the code.
func FormatCentsCurrency(cents int64, currencyCode string) string {
	if money.GetCurrency(currencyCode) == nil {
		return FormatCentsNumber(cents) + " " + currencyCode
	}
	return New(cents, currencyCode).Display()
}

// SumCents totals a set of cent amounts split into inflow and outflow.
// outflow is returned as a non-positive number.
func SumCents(amounts []int64) (inflow, outflow int64) {
	for _, a := range amounts {
		if a >= 0 {
			inflow += a
		} else {
			outflow += a
		}
	}
	return inflow, outflow
}

func fractionOf(currencyCode string) int {
	if c := money.GetCurrency(currencyCode); c != nil {
		return c.Fraction
	}
	return 2
}
