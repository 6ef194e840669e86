package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GameMode selects between risk/outcome rounds and price-and-shares trading.
type GameMode string

const (
	ModeRounds GameMode = "rounds" // Players risk an amount each round against a drawn outcome
	ModeMarket GameMode = "market" // Player buys and sells shares at a random-walk price
)

// RiskInput controls how a human risk submission is interpreted.
type RiskInput string

const (
	RiskAmount  RiskInput = "amount"  // Absolute currency amount in [0, balance]
	RiskPercent RiskInput = "percent" // Percentage of current balance in [0, 100]
)

// BalanceRule selects how a settled round changes a participant's balance.
type BalanceRule string

const (
	// RuleReturn: profitLoss = risk * outcome; the risked amount is not spent.
	RuleReturn BalanceRule = "return"
	// RuleStake: profitLoss = risk * outcome - risk; the stake is spent and the return added back.
	RuleStake BalanceRule = "stake"
)

// OutcomeMode selects whether one outcome is shared by all participants in a round.
type OutcomeMode string

const (
	OutcomeShared         OutcomeMode = "shared"
	OutcomePerParticipant OutcomeMode = "per_participant"
)

// StrategyKind names a participant's risk policy.
type StrategyKind string

const (
	StrategyNone         StrategyKind = "none" // Human players
	StrategyRandom       StrategyKind = "random"
	StrategyGreedy       StrategyKind = "greedy"
	StrategyAggressive   StrategyKind = "aggressive"
	StrategyConservative StrategyKind = "conservative"
	StrategyCautious     StrategyKind = "cautious"
	StrategyBalanced     StrategyKind = "balanced"
	StrategyDynamic      StrategyKind = "dynamic"
)

// Valid returns true if the StrategyKind is a bot strategy
func (k StrategyKind) Valid() bool {
	switch k {
	case StrategyRandom, StrategyGreedy, StrategyAggressive, StrategyConservative,
		StrategyCautious, StrategyBalanced, StrategyDynamic:
		return true
	default:
		return false
	}
}

// MarketParams configures outcome draws and the price feed.
type MarketParams struct {
	OutcomeMode             OutcomeMode
	OutcomeRange            [2]float64 // percent, e.g. {-50, 50}
	SpecialEventChance      float64
	SpecialEventMultipliers []float64
	ScriptedOutcomes        []float64 // fractions, e.g. 0.2 == +20%
	Seed                    string
	StartPrice              decimal.Decimal
	PriceStep               float64
	MinPrice                decimal.Decimal
}

// BotParams configures the bot roster and the tunable strategy constants.
type BotParams struct {
	Count           int // 0 means one bot per listed strategy
	Strategies      []StrategyKind
	RandomFloor     decimal.Decimal
	ConservativePct float64
	ConservativeCap decimal.Decimal // zero means uncapped
	CautiousPct     float64
	CautiousCap     decimal.Decimal // zero means uncapped
}

// SessionConfig is everything needed to start one session.
type SessionConfig struct {
	Mode            GameMode
	InitialBalance  decimal.Decimal
	NumRounds       int
	Unbounded       bool
	HumanPlayer     bool
	PlayerName      string
	RiskInput       RiskInput
	BalanceRule     BalanceRule
	Market          MarketParams
	Bots            BotParams
	ProfitTarget    *decimal.Decimal
	LossTarget      *decimal.Decimal
	ProfitMilestone decimal.Decimal
	LossMilestone   decimal.Decimal
}

// DefaultSessionConfig mirrors the classic five-player special-event game.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Mode:           ModeRounds,
		InitialBalance: decimal.NewFromInt(100000),
		NumRounds:      10,
		HumanPlayer:    true,
		PlayerName:     "You",
		RiskInput:      RiskAmount,
		BalanceRule:    RuleReturn,
		Market: MarketParams{
			OutcomeMode:             OutcomeShared,
			OutcomeRange:            [2]float64{-50, 50},
			SpecialEventChance:      0.2,
			SpecialEventMultipliers: []float64{2, 0.5},
			StartPrice:              decimal.NewFromInt(100),
			PriceStep:               20,
			MinPrice:                decimal.NewFromInt(1),
		},
		Bots: BotParams{
			Strategies: []StrategyKind{
				StrategyRandom, StrategyGreedy, StrategyConservative, StrategyDynamic,
			},
			ConservativePct: 0.10,
			CautiousPct:     0.05,
			CautiousCap:     decimal.NewFromInt(5000),
		},
		ProfitMilestone: decimal.NewFromInt(10000),
		LossMilestone:   decimal.NewFromInt(-10000),
	}
}

// BotRoster returns one strategy per bot, cycling the configured list when
// Count exceeds it. Market sessions have no bots.
func (c SessionConfig) BotRoster() []StrategyKind {
	if c.Mode == ModeMarket || len(c.Bots.Strategies) == 0 {
		return nil
	}
	n := c.Bots.Count
	if n == 0 {
		n = len(c.Bots.Strategies)
	}
	roster := make([]StrategyKind, n)
	for i := range roster {
		roster[i] = c.Bots.Strategies[i%len(c.Bots.Strategies)]
	}
	return roster
}

// Validate checks the configuration; every failure wraps ErrInvalidConfig.
func (c SessionConfig) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	return nil
}

func (c SessionConfig) validate() error {
	if c.Mode != ModeRounds && c.Mode != ModeMarket {
		return fmt.Errorf("mode must be 'rounds' or 'market'")
	}
	if !c.InitialBalance.IsPositive() {
		return fmt.Errorf("initial balance must be > 0")
	}
	if c.Unbounded {
		if c.NumRounds != 0 {
			return fmt.Errorf("num rounds must be 0 when unbounded")
		}
	} else if c.NumRounds <= 0 {
		return fmt.Errorf("num rounds must be > 0 unless unbounded")
	}
	if c.RiskInput != RiskAmount && c.RiskInput != RiskPercent {
		return fmt.Errorf("risk input must be 'amount' or 'percent'")
	}
	if c.BalanceRule != RuleReturn && c.BalanceRule != RuleStake {
		return fmt.Errorf("balance rule must be 'return' or 'stake'")
	}

	if err := c.validateMarket(); err != nil {
		return err
	}

	switch c.Mode {
	case ModeMarket:
		if !c.HumanPlayer {
			return fmt.Errorf("market mode requires a human player")
		}
	case ModeRounds:
		if err := c.validateBots(); err != nil {
			return err
		}
	}

	if c.ProfitTarget != nil && c.ProfitTarget.IsNegative() {
		return fmt.Errorf("profit target must be >= 0")
	}
	if c.LossTarget != nil && c.LossTarget.IsPositive() {
		return fmt.Errorf("loss target must be <= 0")
	}
	if !c.ProfitMilestone.IsPositive() {
		return fmt.Errorf("profit milestone must be > 0")
	}
	if !c.LossMilestone.IsNegative() {
		return fmt.Errorf("loss milestone must be < 0")
	}
	return nil
}

func (c SessionConfig) validateMarket() error {
	m := c.Market
	if m.OutcomeMode != OutcomeShared && m.OutcomeMode != OutcomePerParticipant {
		return fmt.Errorf("outcome mode must be 'shared' or 'per_participant'")
	}
	if m.OutcomeRange[0] > m.OutcomeRange[1] {
		return fmt.Errorf("outcome range must be [min,max] with min <= max")
	}
	if m.SpecialEventChance < 0 || m.SpecialEventChance > 1 {
		return fmt.Errorf("special event chance must be between 0 and 1")
	}
	for _, mult := range m.SpecialEventMultipliers {
		if mult <= 0 {
			return fmt.Errorf("special event multipliers must be > 0")
		}
	}
	if len(m.ScriptedOutcomes) > 0 {
		if m.OutcomeMode != OutcomeShared {
			return fmt.Errorf("scripted outcomes require the shared outcome mode")
		}
		if c.Unbounded || c.NumRounds > len(m.ScriptedOutcomes) {
			return fmt.Errorf("scripted outcomes (%d) must cover every round", len(m.ScriptedOutcomes))
		}
	}
	if c.Mode == ModeMarket {
		if !m.MinPrice.IsPositive() {
			return fmt.Errorf("min price must be > 0")
		}
		if m.StartPrice.LessThan(m.MinPrice) {
			return fmt.Errorf("start price must be >= min price")
		}
		if m.PriceStep < 0 {
			return fmt.Errorf("price step must be >= 0")
		}
	}
	return nil
}

func (c SessionConfig) validateBots() error {
	b := c.Bots
	if b.Count < 0 {
		return fmt.Errorf("bot count must be >= 0")
	}
	if b.Count > 0 && len(b.Strategies) == 0 {
		return fmt.Errorf("bot strategies required when bot count > 0")
	}
	for _, k := range b.Strategies {
		if !k.Valid() {
			return fmt.Errorf("unknown bot strategy '%s'", k)
		}
	}
	if !c.HumanPlayer && len(c.BotRoster()) == 0 {
		return fmt.Errorf("bot roster must not be empty without a human player")
	}
	if b.ConservativePct <= 0 || b.ConservativePct > 1 {
		return fmt.Errorf("conservative pct must be in (0,1]")
	}
	if b.CautiousPct <= 0 || b.CautiousPct > 1 {
		return fmt.Errorf("cautious pct must be in (0,1]")
	}
	if b.RandomFloor.IsNegative() || b.ConservativeCap.IsNegative() || b.CautiousCap.IsNegative() {
		return fmt.Errorf("bot caps and floors must be >= 0")
	}
	return nil
}
