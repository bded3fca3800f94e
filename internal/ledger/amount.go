package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits kept for every amount.
const AmountScale = 4

// RoundAmount rounds d to AmountScale fractional digits using
// round-half-to-even.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(AmountScale)
}

// ParseAmount parses an optional amount field.
//
// An empty (or all-whitespace) field yields an invalid NullDecimal, meaning
// "absent". Anything else must be a plain decimal number.
func ParseAmount(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse amount %q: %w", raw, err)
	}

	return decimal.NewNullDecimal(d), nil
}

// FormatAmount renders d with exactly AmountScale fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}
