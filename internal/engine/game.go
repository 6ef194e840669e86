// Package engine drives one simulation session through its state machine.
//
// A Game owns its Session exclusively. Every mutating call works on a deep copy
// and swaps it in only on success, so a rejected operation leaves balances,
// holdings, history and state exactly as they were.
package engine

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/eddiefleurent/riskround/internal/market"
	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/eddiefleurent/riskround/internal/strategy"
	"github.com/shopspring/decimal"
)

// Option customises a Game at construction.
type Option func(*Game)

// WithSource replaces the outcome source derived from the config.
func WithSource(src market.Source) Option {
	return func(g *Game) { g.source = src }
}

// WithRand replaces the generator used for bot decisions.
func WithRand(r *rand.Rand) Option {
	return func(g *Game) { g.rng = r }
}

// WithPriceFeed replaces the market-mode price feed.
func WithPriceFeed(f *market.PriceFeed) Option {
	return func(g *Game) { g.feed = f }
}

// Game is one running session. Safe for concurrent use.
type Game struct {
	mu       sync.Mutex
	session  *models.Session
	source   market.Source
	rng      *rand.Rand
	feed     *market.PriceFeed
	policies map[models.ParticipantID]strategy.Policy
	finished bool // final result handed out by Finish
}

// New validates cfg and builds a session in the setup state. The seed drives
// every random stream of the session unless overridden with options.
func New(id, seed string, cfg models.SessionConfig, opts ...Option) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := models.NewSession(id, seed, cfg)
	g := &Game{
		session:  s,
		policies: make(map[models.ParticipantID]strategy.Policy),
	}
	for _, p := range s.Participants {
		if p.Role != models.RoleBot {
			continue
		}
		policy, err := strategy.FromName(p.Strategy, cfg.Bots)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
		}
		g.policies[p.ID] = policy
	}

	for _, opt := range opts {
		opt(g)
	}

	// Independent streams so bot decisions never shift the outcome sequence.
	if g.rng == nil {
		g.rng = market.NewSeededRand(market.DeriveSeed(seed, 0))
	}
	if g.source == nil {
		if len(cfg.Market.ScriptedOutcomes) > 0 {
			g.source = market.NewScriptedSource(cfg.Market.ScriptedOutcomes)
		} else {
			g.source = market.NewRandomSource(
				market.NewSeededRand(market.DeriveSeed(seed, 1)),
				market.Range{Min: cfg.Market.OutcomeRange[0], Max: cfg.Market.OutcomeRange[1]},
				cfg.Market.SpecialEventChance,
				cfg.Market.SpecialEventMultipliers,
			)
		}
	}
	if g.feed == nil && cfg.Mode == models.ModeMarket {
		g.feed = market.NewPriceFeed(
			market.NewSeededRand(market.DeriveSeed(seed, 2)),
			cfg.Market.PriceStep,
			cfg.Market.MinPrice,
		)
	}
	return g, nil
}

// mutate runs fn against a copy of the session and commits it only on success.
// Callers must hold g.mu.
func (g *Game) mutate(fn func(s *models.Session) error) error {
	next := g.session.Clone()
	if err := fn(next); err != nil {
		return err
	}
	g.session = next
	return nil
}

// Start opens round one. Bots decide immediately; a bot-only session moves
// straight to round_settled.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.mutate(func(s *models.Session) error {
		if err := s.TransitionState(models.StateRoundInProgress, models.CondGameStarted); err != nil {
			return err
		}
		return g.openRound(s)
	})
}

// End finishes the session early. Ending twice returns ErrGameOver.
func (g *Game) End() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.mutate(func(s *models.Session) error {
		if s.IsOver() {
			return fmt.Errorf("%w: session %s already finished", models.ErrGameOver, s.ID)
		}
		return s.TransitionState(models.StateGameOver, models.CondSessionEnded)
	})
}

// Finish returns the final session snapshot the first time it is called on a
// game that is over. Every other call returns false, so concurrent callers
// record a finished session exactly once.
func (g *Game) Finish() (*models.Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finished || !g.session.IsOver() {
		return nil, false
	}
	g.finished = true
	return g.session.Clone(), true
}

// SetTargets replaces both one-shot targets; nil unsets one. The new targets
// are evaluated immediately and any crossed target is reported.
func (g *Game) SetTargets(profit, loss *decimal.Decimal) ([]models.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var events []models.Event
	err := g.mutate(func(s *models.Session) error {
		if s.IsOver() {
			return fmt.Errorf("%w: session %s", models.ErrGameOver, s.ID)
		}
		if profit != nil && profit.IsNegative() {
			return fmt.Errorf("%w: profit target must be >= 0", models.ErrInvalidConfig)
		}
		if loss != nil && loss.IsPositive() {
			return fmt.Errorf("%w: loss target must be <= 0", models.ErrInvalidConfig)
		}
		s.Targets = models.Targets{Profit: copyDecimal(profit), Loss: copyDecimal(loss)}
		events = evaluate(s, s.CurrentRound, false)
		return nil
	})
	return events, err
}

// ID returns the session id.
func (g *Game) ID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.ID
}

// State returns the current lifecycle state.
func (g *Game) State() models.GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.GetCurrentState()
}

// Snapshot returns a deep copy of the session for read-only use.
func (g *Game) Snapshot() *models.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.Clone()
}

// History returns (round, net P/L) points in order.
func (g *Game) History() []models.HistoryPoint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.session.History)
}

// Transactions returns the buy/sell log in order.
func (g *Game) Transactions() []models.TransactionRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.session.Transactions)
}

// Rounds returns every settled round.
func (g *Game) Rounds() []models.RoundResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.RoundResult, len(g.session.Rounds))
	for i, r := range g.session.Rounds {
		out[i] = r.Clone()
	}
	return out
}

// Achievements returns the unlocked achievements in a stable order.
func (g *Game) Achievements() []models.AchievementID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.AchievementList()
}

// Leaderboard ranks participants by value, highest first; ties go to the
// lower participant id.
func (g *Game) Leaderboard() []models.LeaderboardEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Rank(g.session)
}

// Rank builds the leaderboard for a session.
func Rank(s *models.Session) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(s.Participants))
	for _, p := range s.Participants {
		entries = append(entries, models.LeaderboardEntry{
			ParticipantID: p.ID,
			Name:          p.Name,
			Balance:       s.ParticipantValue(p),
		})
	}
	slices.SortFunc(entries, func(a, b models.LeaderboardEntry) int {
		if c := b.Balance.Cmp(a.Balance); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
