package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Monetary values are rounded half-up to two decimals at every computation
// stage, not only at output, so stored totals always match what buyers see.

// RoundMoney rounds half-up to two fractional digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatMoney renders a decimal with exactly two fractional digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ParseMoney parses a decimal string and rejects negative amounts.
func ParseMoney(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: parse %q: %w", value, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("money: %q is negative", value)
	}
	return RoundMoney(d), nil
}
