package engine

import (
	"fmt"

	"github.com/eddiefleurent/riskround/internal/market"
	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/eddiefleurent/riskround/internal/strategy"
	"github.com/eddiefleurent/riskround/internal/util"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SubmitHumanRisk records the human's decision for the open round and settles
// it. In percent mode amount is a percentage of the current balance.
func (g *Game) SubmitHumanRisk(amount decimal.Decimal) (models.RoundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var result models.RoundResult
	err := g.mutate(func(s *models.Session) error {
		if err := requireRounds(s); err != nil {
			return err
		}
		human := s.Human()
		if human == nil {
			return fmt.Errorf("%w: session %s has no human player", models.ErrUnsupportedMode, s.ID)
		}
		if s.GetCurrentState() != models.StateRoundInProgress {
			return fmt.Errorf("%w: round %d already has every decision", models.ErrInvalidTransition, s.CurrentRound)
		}

		risk, err := humanRisk(s.Config.RiskInput, amount, human.Balance)
		if err != nil {
			return err
		}
		s.PendingRisks[human.ID] = risk
		if !s.HasAllDecisions() {
			return fmt.Errorf("%w: round %d", models.ErrDecisionsPending, s.CurrentRound)
		}
		if err := s.TransitionState(models.StateRoundSettled, models.CondDecisionsCollected); err != nil {
			return err
		}

		result, err = g.settle(s)
		return err
	})
	return result, err
}

// AdvanceRound settles a round whose decisions are all in. With a human
// player the round is settled by SubmitHumanRisk, so this only returns
// ErrDecisionsPending while the human has not decided.
func (g *Game) AdvanceRound() (models.RoundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var result models.RoundResult
	err := g.mutate(func(s *models.Session) error {
		if err := requireRounds(s); err != nil {
			return err
		}
		if s.GetCurrentState() != models.StateRoundSettled {
			return fmt.Errorf("%w: round %d is waiting for the human player", models.ErrDecisionsPending, s.CurrentRound)
		}
		var err error
		result, err = g.settle(s)
		return err
	})
	return result, err
}

func requireRounds(s *models.Session) error {
	if s.IsOver() {
		return fmt.Errorf("%w: session %s", models.ErrGameOver, s.ID)
	}
	if s.Mode != models.ModeRounds {
		return fmt.Errorf("%w: %s session has no risk rounds", models.ErrUnsupportedMode, s.Mode)
	}
	if s.GetCurrentState() == models.StateSetup {
		return fmt.Errorf("%w: session %s not started", models.ErrInvalidTransition, s.ID)
	}
	return nil
}

// humanRisk converts and validates a human submission. Out-of-range input is
// rejected, never clamped.
func humanRisk(input models.RiskInput, amount, balance decimal.Decimal) (decimal.Decimal, error) {
	if input == models.RiskPercent {
		if amount.IsNegative() || amount.GreaterThan(hundred) {
			return decimal.Zero, fmt.Errorf("%w: %s%% is outside [0, 100]", models.ErrInvalidRisk, amount)
		}
		return util.Clamp(util.RoundCents(balance.Mul(amount).Div(hundred)), decimal.Zero, balance), nil
	}
	if amount.IsNegative() || amount.GreaterThan(balance) {
		return decimal.Zero, fmt.Errorf("%w: %s is outside [0, %s]", models.ErrInvalidRisk, amount, balance)
	}
	return util.RoundCents(amount), nil
}

// openRound collects bot decisions for s.CurrentRound. Once every participant
// has decided the round moves to round_settled.
func (g *Game) openRound(s *models.Session) error {
	if s.Mode != models.ModeRounds {
		return nil
	}
	s.PendingRisks = make(map[models.ParticipantID]decimal.Decimal, len(s.Participants))
	rc := strategy.RoundContext{Round: s.CurrentRound, Rand: g.rng}
	for _, p := range s.Participants {
		if policy, ok := g.policies[p.ID]; ok {
			s.PendingRisks[p.ID] = policy.DecideRisk(p, rc)
		}
	}
	if s.HasAllDecisions() {
		return s.TransitionState(models.StateRoundSettled, models.CondDecisionsCollected)
	}
	return nil
}

// settle draws the outcome(s), applies the balance rule, logs the round and
// moves on to the next round or game over.
func (g *Game) settle(s *models.Session) (models.RoundResult, error) {
	outcomes, err := g.drawOutcomes(s)
	if err != nil {
		return models.RoundResult{}, err
	}

	primary := outcomes[0]
	result := models.RoundResult{
		RoundIndex:               s.CurrentRound,
		PerParticipantRisk:       make(map[models.ParticipantID]decimal.Decimal, len(s.Participants)),
		PerParticipantProfitLoss: make(map[models.ParticipantID]decimal.Decimal, len(s.Participants)),
		PerParticipantOutcome:    make(map[models.ParticipantID]float64, len(s.Participants)),
		OutcomeFactor:            primary.Factor,
		EventMultiplier:          primary.Multiplier,
	}

	for i := range s.Participants {
		p := &s.Participants[i]
		risk := s.PendingRisks[p.ID]
		o := outcomes[i]
		pl := profitLoss(s.Config.BalanceRule, risk, o.Factor, p.Balance)
		p.Balance = p.Balance.Add(pl)

		result.PerParticipantRisk[p.ID] = risk
		result.PerParticipantProfitLoss[p.ID] = pl
		result.PerParticipantOutcome[p.ID] = o.Factor
	}

	traded := !s.PendingRisks[0].IsZero()
	result.NetProfitLoss = s.NetProfitLoss()
	result.Events = evaluate(s, result.RoundIndex, traded)

	s.History = append(s.History, models.HistoryPoint{Round: result.RoundIndex, NetProfitLoss: result.NetProfitLoss})
	s.Rounds = append(s.Rounds, result.Clone())
	s.PendingRisks = make(map[models.ParticipantID]decimal.Decimal)
	s.CurrentRound++

	if err := g.nextRound(s); err != nil {
		return models.RoundResult{}, err
	}
	return result, nil
}

// nextRound moves a settled session on to the next round or to game over.
func (g *Game) nextRound(s *models.Session) error {
	if s.RoundsExhausted() {
		return s.TransitionState(models.StateGameOver, models.CondRoundsExhausted)
	}
	if err := s.TransitionState(models.StateRoundInProgress, models.CondNextRound); err != nil {
		return err
	}
	return g.openRound(s)
}

// drawOutcomes returns one outcome per participant, all identical in the
// shared outcome mode.
func (g *Game) drawOutcomes(s *models.Session) ([]market.Outcome, error) {
	out := make([]market.Outcome, len(s.Participants))
	if s.Config.Market.OutcomeMode == models.OutcomePerParticipant {
		for i := range out {
			o, err := g.source.Next()
			if err != nil {
				return nil, fmt.Errorf("round %d: %w", s.CurrentRound, err)
			}
			out[i] = o
		}
		return out, nil
	}

	o, err := g.source.Next()
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", s.CurrentRound, err)
	}
	for i := range out {
		out[i] = o
	}
	return out, nil
}

// profitLoss applies the balance rule to one participant. A loss never takes
// the balance below zero.
func profitLoss(rule models.BalanceRule, risk decimal.Decimal, factor float64, balance decimal.Decimal) decimal.Decimal {
	pl := risk.Mul(decimal.NewFromFloat(factor))
	if rule == models.RuleStake {
		pl = pl.Sub(risk)
	}
	pl = util.RoundCents(pl)
	if balance.Add(pl).IsNegative() {
		return balance.Neg()
	}
	return pl
}
