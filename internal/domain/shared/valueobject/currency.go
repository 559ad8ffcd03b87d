package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency represents an ISO 4217 currency code
type Currency string

const (
	CNY Currency = "CNY"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	HKD Currency = "HKD"
)

// DefaultCurrency is used when an account is opened without an explicit currency
const DefaultCurrency = USD

// ParseCurrency validates code against the ISO 4217 table and returns its canonical form.
func ParseCurrency(code string) (Currency, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultCurrency, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("unknown currency %q: %w", code, err)
	}
	return Currency(unit.String()), nil
}

// Scale returns the standard number of minor-unit digits for the currency (2 for USD, 0 for JPY).
func (c Currency) Scale() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Format renders amount rounded to the currency scale, prefixed by the code
func (c Currency) Format(amount decimal.Decimal) string {
	return fmt.Sprintf("%s %s", c, amount.StringFixed(c.Scale()))
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}
