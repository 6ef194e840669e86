package market

import (
	"errors"
	"fmt"
)

// ErrScriptExhausted is returned once every pre-decided outcome was consumed.
var ErrScriptExhausted = errors.New("scripted outcomes exhausted")

// ScriptedSource replays a fixed list of outcome factors in order.
type ScriptedSource struct {
	factors []float64
	pos     int
}

// NewScriptedSource copies factors (fractions, 0.2 == +20%).
func NewScriptedSource(factors []float64) *ScriptedSource {
	return &ScriptedSource{factors: append([]float64(nil), factors...)}
}

func (s *ScriptedSource) Next() (Outcome, error) {
	if s.pos >= len(s.factors) {
		return Outcome{}, fmt.Errorf("%w after %d rounds", ErrScriptExhausted, len(s.factors))
	}
	f := s.factors[s.pos]
	s.pos++
	return Outcome{Factor: f, Base: f, Multiplier: 1}, nil
}

// Remaining reports how many outcomes are left.
func (s *ScriptedSource) Remaining() int {
	return len(s.factors) - s.pos
}
