package money

import "github.com/shopspring/decimal"

// Amounts are carried as arbitrary-precision decimals and normalized to two
// fractional digits (currency minor units) at every point of computation.

// Round2 rounds to two decimal places, half up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Zero is the canonical zero amount.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// Rate builds a decimal rate from a string such as "0.05". It panics on
// malformed literals and is intended for configuration defaults and tests.
func Rate(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// IsPositive reports whether the amount is strictly greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// GTE reports whether a covers b.
func GTE(a, b decimal.Decimal) bool {
	return a.GreaterThanOrEqual(b)
}
