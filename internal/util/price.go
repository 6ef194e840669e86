// Package util provides common money rounding helpers.
package util

import "github.com/shopspring/decimal"

// Cent is the smallest money increment tracked by the game.
var Cent = decimal.New(1, -2)

// RoundToTick rounds x to the nearest tick increment.
// For example, with tick=0.05, 1.2345 becomes 1.25.
func RoundToTick(x, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return x
	}
	return x.Div(tick).Round(0).Mul(tick)
}

// RoundCents rounds a money amount to cents.
func RoundCents(x decimal.Decimal) decimal.Decimal {
	return RoundToTick(x, Cent)
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi decimal.Decimal) decimal.Decimal {
	if x.LessThan(lo) {
		return lo
	}
	if x.GreaterThan(hi) {
		return hi
	}
	return x
}
