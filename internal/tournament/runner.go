// Package tournament plays batches of bot-only sessions in parallel and
// aggregates per-strategy results.
package tournament

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/eddiefleurent/riskround/internal/engine"
	"github.com/eddiefleurent/riskround/internal/market"
	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/eddiefleurent/riskround/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// StrategyResult aggregates every seat played by one strategy.
type StrategyResult struct {
	Strategy            models.StrategyKind `json:"strategy"`
	Seats               int                 `json:"seats"`
	Wins                int                 `json:"wins"`
	WinRate             float64             `json:"win_rate"`
	AverageFinalBalance decimal.Decimal     `json:"average_final_balance"`
	BestFinalBalance    decimal.Decimal     `json:"best_final_balance"`
	Bankruptcies        int                 `json:"bankruptcies"`
}

// Report is the outcome of one tournament run.
type Report struct {
	Sessions   int              `json:"sessions"`
	Seed       string           `json:"seed"`
	Strategies []StrategyResult `json:"strategies"` // most wins first
	Duration   time.Duration    `json:"duration"`
}

// Runner plays tournaments for a fixed session config.
type Runner struct {
	cfg     models.SessionConfig
	metrics *observability.Metrics
	logger  *logrus.Logger
}

// NewRunner validates cfg as a bot-only session config. The human seat is
// always dropped.
func NewRunner(cfg models.SessionConfig, metrics *observability.Metrics, logger *logrus.Logger) (*Runner, error) {
	cfg.HumanPlayer = false
	if cfg.Mode != models.ModeRounds {
		return nil, fmt.Errorf("%w: tournaments require rounds mode", models.ErrInvalidConfig)
	}
	if cfg.Unbounded {
		return nil, fmt.Errorf("%w: tournaments require a bounded round count", models.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{cfg: cfg, metrics: metrics, logger: logger}, nil
}

// Run plays sessions games with at most workers running at once. Session i is
// seeded with DeriveSeed(seed, i), so a report depends only on the seed and
// the config, not on the worker count.
func (r *Runner) Run(ctx context.Context, seed string, sessions, workers int) (*Report, error) {
	if sessions <= 0 {
		return nil, fmt.Errorf("sessions must be > 0")
	}
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()
	finals := make([][]models.Participant, sessions)
	winners := make([]models.ParticipantID, sessions)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < sessions; i++ {
		g.Go(func() error {
			participants, winner, err := r.play(ctx, fmt.Sprintf("tournament-%d", i), market.DeriveSeed(seed, i))
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			finals[i] = participants
			winners[i] = winner
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.WithError(err).Error("Tournament aborted")
		return nil, err
	}

	report := &Report{
		Sessions:   sessions,
		Seed:       seed,
		Strategies: aggregate(finals, winners),
		Duration:   time.Since(start),
	}
	r.metrics.RecordTournament(report.Duration.Seconds())
	r.logger.WithFields(logrus.Fields{
		"sessions": sessions,
		"workers":  workers,
		"duration": report.Duration,
	}).Info("Tournament complete")
	return report, nil
}

// play runs one session to game over and returns its final participants and
// the rank-1 participant.
func (r *Runner) play(ctx context.Context, id, seed string) ([]models.Participant, models.ParticipantID, error) {
	game, err := engine.New(id, seed, r.cfg)
	if err != nil {
		return nil, 0, err
	}
	if err := game.Start(); err != nil {
		return nil, 0, err
	}
	for game.State() != models.StateGameOver {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if _, err := game.AdvanceRound(); err != nil {
			return nil, 0, err
		}
	}

	board := game.Leaderboard()
	r.logger.WithFields(logrus.Fields{
		"session_id": id,
		"winner":     board[0].ParticipantID,
		"balance":    board[0].Balance.StringFixed(2),
	}).Debug("Tournament session finished")
	return game.Snapshot().Participants, board[0].ParticipantID, nil
}

func aggregate(finals [][]models.Participant, winners []models.ParticipantID) []StrategyResult {
	type acc struct {
		seats, wins, bankrupt int
		total, best           decimal.Decimal
	}
	byKind := make(map[models.StrategyKind]*acc)

	for i, participants := range finals {
		for _, p := range participants {
			a, ok := byKind[p.Strategy]
			if !ok {
				a = &acc{best: p.Balance}
				byKind[p.Strategy] = a
			}
			a.seats++
			a.total = a.total.Add(p.Balance)
			if p.Balance.GreaterThan(a.best) {
				a.best = p.Balance
			}
			if p.Balance.IsZero() {
				a.bankrupt++
			}
			if p.ID == winners[i] {
				a.wins++
			}
		}
	}

	results := make([]StrategyResult, 0, len(byKind))
	for kind, a := range byKind {
		results = append(results, StrategyResult{
			Strategy:            kind,
			Seats:               a.seats,
			Wins:                a.wins,
			WinRate:             float64(a.wins) / float64(len(finals)),
			AverageFinalBalance: a.total.Div(decimal.NewFromInt(int64(a.seats))).Round(2),
			BestFinalBalance:    a.best,
			Bankruptcies:        a.bankrupt,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Wins != results[j].Wins {
			return results[i].Wins > results[j].Wins
		}
		return results[i].Strategy < results[j].Strategy
	})
	return results
}
