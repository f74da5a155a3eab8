package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// displayPrecision is the maximum number of decimal places shown for token amounts.
const displayPrecision = 6

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ConditionalFixed formats a decimal with at most `places` decimal places,
// stripping trailing zeros. A value that already fits in `places` decimals is
// rendered unchanged and never padded: ConditionalFixed(1.2, 6) is "1.2",
// ConditionalFixed(1.23456789, 6) is "1.234568".
func ConditionalFixed(d decimal.Decimal, places int32) string {
	rounded := d.Round(places)
	s := rounded.StringFixed(places)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// FormatAmount renders a token amount for display at the standard precision.
func FormatAmount(d decimal.Decimal) string {
	return ConditionalFixed(d, displayPrecision)
}

// FromRawUnits converts a raw on-chain integer amount into human units by
// dividing by 10^decimals.
func FromRawUnits(raw decimal.Decimal, decimals int) decimal.Decimal {
	return raw.Shift(int32(-decimals))
}

// ToRawUnits converts a human-unit amount back into raw on-chain units.
func ToRawUnits(human decimal.Decimal, decimals int) decimal.Decimal {
	return human.Shift(int32(decimals))
}
