// Package strategy implements the bot risk policies.
package strategy

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/eddiefleurent/riskround/internal/util"
	"github.com/shopspring/decimal"
)

// ErrUnknownStrategy is returned by FromName for names with no bot policy.
var ErrUnknownStrategy = errors.New("unknown strategy")

var (
	half  = decimal.NewFromFloat(0.5)
	fifth = decimal.NewFromFloat(0.2)
	third = decimal.NewFromFloat(0.3)
)

// RoundContext carries what a policy may look at besides the participant.
type RoundContext struct {
	Round int
	Rand  *rand.Rand
}

// Policy decides how much a participant risks this round.
// Implementations return an amount in [0, p.Balance] rounded to cents.
type Policy interface {
	DecideRisk(p models.Participant, rc RoundContext) decimal.Decimal
	Name() models.StrategyKind
}

// FromName builds the policy for a bot strategy.
func FromName(kind models.StrategyKind, params models.BotParams) (Policy, error) {
	switch kind {
	case models.StrategyRandom:
		return &RandomPolicy{Floor: params.RandomFloor}, nil
	case models.StrategyGreedy, models.StrategyAggressive:
		return &FractionPolicy{Kind: kind, Pct: half}, nil
	case models.StrategyConservative:
		return &FractionPolicy{Kind: kind, Pct: decimal.NewFromFloat(params.ConservativePct), Cap: params.ConservativeCap}, nil
	case models.StrategyCautious:
		return &FractionPolicy{Kind: kind, Pct: decimal.NewFromFloat(params.CautiousPct), Cap: params.CautiousCap}, nil
	case models.StrategyBalanced:
		return &FractionPolicy{Kind: kind, Pct: fifth}, nil
	case models.StrategyDynamic:
		return &DynamicPolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownStrategy, kind)
	}
}

// RandomPolicy risks a uniform amount up to half the balance.
type RandomPolicy struct {
	Floor decimal.Decimal // lower bound, capped at half the balance
}

func (p *RandomPolicy) Name() models.StrategyKind { return models.StrategyRandom }

func (p *RandomPolicy) DecideRisk(part models.Participant, rc RoundContext) decimal.Decimal {
	hi := part.Balance.Mul(half)
	lo := decimal.Min(p.Floor, hi)
	span := hi.Sub(lo)
	amount := lo.Add(span.Mul(decimal.NewFromFloat(rc.Rand.Float64())))
	return bound(amount, part.Balance)
}

// FractionPolicy risks a fixed share of the balance, optionally capped.
// A zero Cap means uncapped.
type FractionPolicy struct {
	Kind models.StrategyKind
	Pct  decimal.Decimal
	Cap  decimal.Decimal
}

func (p *FractionPolicy) Name() models.StrategyKind { return p.Kind }

func (p *FractionPolicy) DecideRisk(part models.Participant, _ RoundContext) decimal.Decimal {
	amount := part.Balance.Mul(p.Pct)
	if p.Cap.IsPositive() {
		amount = decimal.Min(amount, p.Cap)
	}
	return bound(amount, part.Balance)
}

// DynamicPolicy flips a fair coin between 30% and 20% of the balance.
type DynamicPolicy struct{}

func (p *DynamicPolicy) Name() models.StrategyKind { return models.StrategyDynamic }

func (p *DynamicPolicy) DecideRisk(part models.Participant, rc RoundContext) decimal.Decimal {
	pct := fifth
	if rc.Rand.Intn(2) == 0 {
		pct = third
	}
	return bound(part.Balance.Mul(pct), part.Balance)
}

func bound(amount, balance decimal.Decimal) decimal.Decimal {
	return util.Clamp(util.RoundCents(amount), decimal.Zero, balance)
}
