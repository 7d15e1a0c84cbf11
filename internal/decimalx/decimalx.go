// Package decimalx collects the rounding-mode helpers used throughout the
// arbitrage core. All monetary, inventory, and price math in this codebase
// goes through decimal.Decimal; this package exists so every package rounds
// the same way instead of re-deriving rounding rules at each call site.
package decimalx

import "github.com/shopspring/decimal"

// Zero is the shared zero value, to avoid repeated decimal.NewFromInt(0).
var Zero = decimal.Zero

// BasisPoint is 1/10000 expressed as a decimal, used to convert bps fields.
var BasisPoint = decimal.New(1, -4)

// RoundDisplay rounds a human-facing value half-up to the given number of
// decimal places.
func RoundDisplay(d decimal.Decimal, places int32) decimal.Decimal {
	return d.RoundHalfAwayFromZero(places)
}

// RoundDownToAvailable rounds down (truncates) to the given number of
// decimal places. Used whenever sizing an amount against available funds,
// so a rewrite never rounds up into an amount the caller doesn't have.
func RoundDownToAvailable(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Truncate(places)
}

// RoundDownExactOutputBuffer rounds down to the token's base-unit precision
// after subtracting a headroom buffer, per the exact-output precision
// buffer rule (spec §4.2): round down to token decimals, clamp >= 0.
func RoundDownExactOutputBuffer(d decimal.Decimal, tokenDecimals int32) decimal.Decimal {
	truncated := d.Truncate(tokenDecimals)
	if truncated.IsNegative() {
		return decimal.Zero
	}
	return truncated
}

// BpsOf returns value * bps / 10000.
func BpsOf(value decimal.Decimal, bps decimal.Decimal) decimal.Decimal {
	return value.Mul(bps).Div(decimal.NewFromInt(10000))
}

// RatioBps returns numerator / denominator * 10000, or zero when the
// denominator is zero (matches EdgeResult.net_edge_bps's "0 when
// total_cost = 0" rule, spec §3).
func RatioBps(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.Div(denominator).Mul(decimal.NewFromInt(10000))
}

// IsPositiveFinite reports whether d is a valid, strictly-positive price or
// rate. decimal.Decimal cannot represent NaN/Inf, so "finite" reduces to
// "is a well-formed value", which the type already guarantees; this helper
// exists to make that invariant explicit and testable at call sites (Q1, R1).
func IsPositiveFinite(d decimal.Decimal) bool {
	return d.IsPositive()
}

// Clamp returns value bounded to [min, max].
func Clamp(value, min, max decimal.Decimal) decimal.Decimal {
	if value.LessThan(min) {
		return min
	}
	if value.GreaterThan(max) {
		return max
	}
	return value
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
