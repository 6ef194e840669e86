package market

import (
	"math/rand"

	"github.com/eddiefleurent/riskround/internal/util"
	"github.com/shopspring/decimal"
)

// PriceFeed moves a share price by a bounded random walk.
type PriceFeed struct {
	rng   *rand.Rand
	step  float64
	floor decimal.Decimal
}

// NewPriceFeed creates a feed whose moves are uniform in [-step, step].
func NewPriceFeed(rng *rand.Rand, step float64, floor decimal.Decimal) *PriceFeed {
	return &PriceFeed{rng: rng, step: step, floor: floor}
}

// Walk returns the next price after current. The result is rounded to cents
// and never drops below the floor.
func (f *PriceFeed) Walk(current decimal.Decimal) decimal.Decimal {
	move := (f.rng.Float64()*2 - 1) * f.step
	next := util.RoundCents(current.Add(decimal.NewFromFloat(move)))
	if next.LessThan(f.floor) {
		return f.floor
	}
	return next
}
