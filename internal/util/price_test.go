package util

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		name     string
		x        string
		tick     string
		expected string
	}{
		{"basic rounding down", "1.2345", "0.01", "1.23"},
		{"tie rounds away from zero", "1.235", "0.01", "1.24"},
		{"negative tie rounds away from zero", "-1.235", "0.01", "-1.24"},
		{"negative basic rounding", "-1.2345", "0.01", "-1.23"},
		{"larger tick size", "1.27", "0.05", "1.25"},
		{"exact multiple", "1.25", "0.05", "1.25"},
		{"non-positive tick is a no-op", "1.2345", "0", "1.2345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundToTick(decimal.RequireFromString(tt.x), decimal.RequireFromString(tt.tick))
			if !result.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("RoundToTick(%v, %v) = %v, expected %v", tt.x, tt.tick, result, tt.expected)
			}
		})
	}
}

func TestRoundCents(t *testing.T) {
	got := RoundCents(decimal.NewFromFloat(10000).Mul(decimal.NewFromFloat(0.123456)))
	if !got.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("RoundCents = %v, expected 1234.56", got)
	}
}

func TestClamp(t *testing.T) {
	lo, hi := decimal.Zero, decimal.NewFromInt(100)
	tests := []struct {
		x, expected int64
	}{
		{-5, 0},
		{50, 50},
		{150, 100},
	}
	for _, tt := range tests {
		got := Clamp(decimal.NewFromInt(tt.x), lo, hi)
		if !got.Equal(decimal.NewFromInt(tt.expected)) {
			t.Errorf("Clamp(%d) = %v, expected %d", tt.x, got, tt.expected)
		}
	}
}
