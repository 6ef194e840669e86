// Package game is the session-keyed entry point used by presentation layers.
// It owns the registry of live sessions and adds logging and metrics around
// every engine call.
package game

import (
	"context"
	"time"

	"github.com/eddiefleurent/riskround/internal/engine"
	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/eddiefleurent/riskround/internal/observability"
	"github.com/eddiefleurent/riskround/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Service runs many independent sessions.
type Service struct {
	store   storage.Interface
	metrics *observability.Metrics
	logger  *logrus.Logger
	newID   func() string
}

// SessionSummary is a compact listing entry.
type SessionSummary struct {
	ID            string           `json:"id"`
	Mode          models.GameMode  `json:"mode"`
	State         models.GameState `json:"state"`
	Status        string           `json:"status"`
	CurrentRound  int              `json:"current_round"`
	TotalRounds   int              `json:"total_rounds"`
	Participants  int              `json:"participants"`
	NetProfitLoss decimal.Decimal  `json:"net_profit_loss"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewService creates a service. metrics may be nil.
func NewService(store storage.Interface, metrics *observability.Metrics, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		store:   store,
		metrics: metrics,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// StartSession validates cfg, starts round one and registers the session.
// An empty cfg.Market.Seed seeds the session from its id.
func (s *Service) StartSession(ctx context.Context, cfg models.SessionConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := s.newID()
	seed := cfg.Market.Seed
	if seed == "" {
		seed = id
	}

	g, err := engine.New(id, seed, cfg)
	if err != nil {
		return "", s.rejected("start_session", id, err)
	}
	if err := g.Start(); err != nil {
		return "", s.rejected("start_session", id, err)
	}
	if err := s.store.Put(g); err != nil {
		return "", s.rejected("start_session", id, err)
	}

	s.metrics.RecordSessionStarted(cfg.Mode)
	snap := g.Snapshot()
	s.logger.WithFields(logrus.Fields{
		"session_id":   id,
		"mode":         cfg.Mode,
		"participants": len(snap.Participants),
		"rounds":       cfg.NumRounds,
		"unbounded":    cfg.Unbounded,
	}).Info("Session started")
	return id, nil
}

// SubmitHumanRisk records the human decision and settles the round.
func (s *Service) SubmitHumanRisk(ctx context.Context, id string, amount decimal.Decimal) (models.RoundResult, error) {
	g, err := s.game(ctx, "submit_risk", id)
	if err != nil {
		return models.RoundResult{}, err
	}
	result, err := g.SubmitHumanRisk(amount)
	if err != nil {
		return models.RoundResult{}, s.rejected("submit_risk", id, err)
	}
	s.roundSettled(g, result)
	return result, nil
}

// AdvanceRound settles a round whose decisions are all collected.
func (s *Service) AdvanceRound(ctx context.Context, id string) (models.RoundResult, error) {
	g, err := s.game(ctx, "advance_round", id)
	if err != nil {
		return models.RoundResult{}, err
	}
	result, err := g.AdvanceRound()
	if err != nil {
		return models.RoundResult{}, s.rejected("advance_round", id, err)
	}
	s.roundSettled(g, result)
	return result, nil
}

// ExecuteBuy buys shares at the session's current price.
func (s *Service) ExecuteBuy(ctx context.Context, id string, quantity int64) (models.TransactionRecord, []models.Event, error) {
	return s.trade(ctx, id, models.ActionBuy, quantity)
}

// ExecuteSell sells shares at the session's current price.
func (s *Service) ExecuteSell(ctx context.Context, id string, quantity int64) (models.TransactionRecord, []models.Event, error) {
	return s.trade(ctx, id, models.ActionSell, quantity)
}

func (s *Service) trade(ctx context.Context, id string, action models.TradeAction, quantity int64) (models.TransactionRecord, []models.Event, error) {
	op := "execute_" + string(action)
	g, err := s.game(ctx, op, id)
	if err != nil {
		return models.TransactionRecord{}, nil, err
	}

	var (
		rec    models.TransactionRecord
		events []models.Event
	)
	if action == models.ActionBuy {
		rec, events, err = g.ExecuteBuy(quantity)
	} else {
		rec, events, err = g.ExecuteSell(quantity)
	}
	if err != nil {
		return models.TransactionRecord{}, nil, s.rejected(op, id, err)
	}

	s.metrics.RecordTrade(action, events)
	s.logger.WithFields(logrus.Fields{
		"session_id": id,
		"round":      rec.Round,
		"action":     action,
		"quantity":   quantity,
		"price":      rec.UnitPrice.String(),
	}).Info("Trade executed")
	s.logEvents(id, events)
	return rec, events, nil
}

// RefreshPrice moves the market price one step and closes the round.
func (s *Service) RefreshPrice(ctx context.Context, id string) (decimal.Decimal, []models.Event, error) {
	g, err := s.game(ctx, "refresh_price", id)
	if err != nil {
		return decimal.Zero, nil, err
	}
	price, events, err := g.RefreshPrice()
	if err != nil {
		return decimal.Zero, nil, s.rejected("refresh_price", id, err)
	}

	s.metrics.RecordPriceRefresh(events)
	s.logger.WithFields(logrus.Fields{
		"session_id": id,
		"price":      price.String(),
	}).Debug("Price refreshed")
	s.logEvents(id, events)
	s.finishIfOver(g, "rounds_exhausted")
	return price, events, nil
}

// SetTargets replaces the one-shot profit and loss targets; nil unsets one.
func (s *Service) SetTargets(ctx context.Context, id string, profit, loss *decimal.Decimal) ([]models.Event, error) {
	g, err := s.game(ctx, "set_targets", id)
	if err != nil {
		return nil, err
	}
	events, err := g.SetTargets(profit, loss)
	if err != nil {
		return nil, s.rejected("set_targets", id, err)
	}
	s.metrics.RecordEvents(events)
	s.logger.WithField("session_id", id).Info("Targets updated")
	s.logEvents(id, events)
	return events, nil
}

// EndSession finishes a session early. It stays readable until deleted.
func (s *Service) EndSession(ctx context.Context, id string) error {
	g, err := s.game(ctx, "end_session", id)
	if err != nil {
		return err
	}
	if err := g.End(); err != nil {
		return s.rejected("end_session", id, err)
	}
	s.finishIfOver(g, "session_ended")
	return nil
}

// DeleteSession discards a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return s.rejected("delete_session", id, err)
	}
	s.metrics.RecordSessionRemoved()
	s.logger.WithField("session_id", id).Info("Session deleted")
	return nil
}

// GetHistory returns (round, net P/L) points in order.
func (s *Service) GetHistory(id string) ([]models.HistoryPoint, error) {
	g, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return g.History(), nil
}

// GetLeaderboard ranks participants by balance descending, ties by id.
func (s *Service) GetLeaderboard(id string) ([]models.LeaderboardEntry, error) {
	g, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return g.Leaderboard(), nil
}

// GetAchievements returns the unlocked achievement set.
func (s *Service) GetAchievements(id string) ([]models.AchievementID, error) {
	g, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return g.Achievements(), nil
}

// GetTransactions returns the buy/sell log.
func (s *Service) GetTransactions(id string) ([]models.TransactionRecord, error) {
	g, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return g.Transactions(), nil
}

// GetRounds returns every settled round.
func (s *Service) GetRounds(id string) ([]models.RoundResult, error) {
	g, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return g.Rounds(), nil
}

// GetSession returns a deep copy of the session.
func (s *Service) GetSession(id string) (*models.Session, error) {
	g, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return g.Snapshot(), nil
}

// ListSessions summarises every registered session, ordered by id.
func (s *Service) ListSessions() []SessionSummary {
	ids := s.store.List()
	out := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		g, err := s.store.Get(id)
		if err != nil {
			// Deleted between List and Get.
			continue
		}
		snap := g.Snapshot()
		out = append(out, SessionSummary{
			ID:            snap.ID,
			Mode:          snap.Mode,
			State:         snap.GetCurrentState(),
			Status:        snap.StateMachine.GetStateDescription(),
			CurrentRound:  snap.CurrentRound,
			TotalRounds:   snap.TotalRounds,
			Participants:  len(snap.Participants),
			NetProfitLoss: snap.NetProfitLoss(),
			CreatedAt:     snap.CreatedAt,
		})
	}
	return out
}

// Statistics returns aggregate results of finished sessions.
func (s *Service) Statistics() *storage.Statistics {
	return s.store.GetStatistics()
}

func (s *Service) game(ctx context.Context, op, id string) (*engine.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := s.store.Get(id)
	if err != nil {
		return nil, s.rejected(op, id, err)
	}
	return g, nil
}

func (s *Service) rejected(op, id string, err error) error {
	s.metrics.RecordRejected(op, err)
	s.logger.WithFields(logrus.Fields{
		"session_id": id,
		"action":     op,
		"reason":     observability.Reason(err),
	}).WithError(err).Warn("Operation rejected")
	return err
}

func (s *Service) roundSettled(g *engine.Game, result models.RoundResult) {
	s.metrics.RecordRound(result.Events)
	s.logger.WithFields(logrus.Fields{
		"session_id":      g.ID(),
		"round":           result.RoundIndex,
		"outcome":         result.OutcomeFactor,
		"multiplier":      result.EventMultiplier,
		"net_profit_loss": result.NetProfitLoss.String(),
	}).Info("Round settled")
	s.logEvents(g.ID(), result.Events)
	s.finishIfOver(g, "rounds_exhausted")
}

func (s *Service) logEvents(id string, events []models.Event) {
	for _, e := range events {
		s.logger.WithFields(logrus.Fields{
			"session_id":      id,
			"round":           e.Round,
			"kind":            e.Kind,
			"achievement":     e.Achievement,
			"net_profit_loss": e.NetProfitLoss.String(),
		}).Info("Milestone reached")
	}
}

// finishIfOver records final results once per session, whichever call ends it.
func (s *Service) finishIfOver(g *engine.Game, reason string) {
	snap, ok := g.Finish()
	if !ok {
		return
	}
	net := snap.NetProfitLoss()
	s.store.RecordResult(net)
	s.metrics.RecordSessionFinished(reason, net.InexactFloat64())
	s.logger.WithFields(logrus.Fields{
		"session_id":      snap.ID,
		"reason":          reason,
		"rounds":          len(snap.History),
		"net_profit_loss": net.String(),
	}).Info("Session finished")
}
