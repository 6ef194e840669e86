package market

import (
	"math/rand"
)

// Range is an outcome interval in percent, e.g. {-50, 50}.
type Range struct {
	Min float64
	Max float64
}

// Outcome is one drawn trade result.
type Outcome struct {
	Factor     float64 // Base times Multiplier, as a fraction (0.2 == +20%)
	Base       float64
	Multiplier float64 // 1 when no special event fired
	Event      bool
}

// Source hands out outcomes one at a time.
type Source interface {
	Next() (Outcome, error)
}

// RandomSource draws uniform outcomes with optional special-event multipliers.
// Not safe for concurrent use; each session owns its own source.
type RandomSource struct {
	rng         *rand.Rand
	bounds      Range
	eventChance float64
	multipliers []float64
}

// NewRandomSource binds a source to a seeded generator and fixed draw parameters.
func NewRandomSource(rng *rand.Rand, r Range, eventChance float64, multipliers []float64) *RandomSource {
	return &RandomSource{
		rng:         rng,
		bounds:      r,
		eventChance: eventChance,
		multipliers: append([]float64(nil), multipliers...),
	}
}

// Next draws with the bound parameters.
func (s *RandomSource) Next() (Outcome, error) {
	return s.NextOutcome(s.bounds, s.eventChance, s.multipliers), nil
}

// NextOutcome draws a value uniformly in [r.Min, r.Max] percent and divides it
// by 100. With probability eventChance the value is multiplied by one of
// multipliers chosen uniformly; an empty list never triggers an event.
func (s *RandomSource) NextOutcome(r Range, eventChance float64, multipliers []float64) Outcome {
	base := (r.Min + s.rng.Float64()*(r.Max-r.Min)) / 100
	out := Outcome{Factor: base, Base: base, Multiplier: 1}

	if eventChance <= 0 || len(multipliers) == 0 {
		return out
	}
	if s.rng.Float64() < eventChance {
		out.Multiplier = multipliers[s.rng.Intn(len(multipliers))]
		out.Factor = base * out.Multiplier
		out.Event = true
	}
	return out
}
