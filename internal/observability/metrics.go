// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"errors"
	"net/http"

	"github.com/eddiefleurent/riskround/internal/market"
	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/eddiefleurent/riskround/internal/storage"
	"github.com/eddiefleurent/riskround/internal/strategy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsStarted  *prometheus.CounterVec
	SessionsFinished *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge

	// Gameplay metrics
	RoundsSettled      prometheus.Counter
	Trades             *prometheus.CounterVec
	PriceRefreshes     prometheus.Counter
	RejectedOps        *prometheus.CounterVec
	EventsFired        *prometheus.CounterVec
	FinalNetProfitLoss prometheus.Histogram

	// Tournament metrics
	TournamentDuration prometheus.Histogram
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "riskround"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SessionsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "started_total",
			Help:      "Total number of sessions started by game mode",
		}, []string{"mode"}),
		SessionsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "finished_total",
			Help:      "Total number of sessions that reached game over by reason",
		}, []string{"reason"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of sessions currently registered",
		}),

		RoundsSettled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "rounds_settled_total",
			Help:      "Total number of settled risk rounds",
		}),
		Trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "trades_total",
			Help:      "Total number of executed trades by action",
		}, []string{"action"}),
		PriceRefreshes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "price_refreshes_total",
			Help:      "Total number of market price refreshes",
		}),
		RejectedOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "rejected_operations_total",
			Help:      "Total number of rejected operations by operation and reason",
		}, []string{"operation", "reason"}),
		EventsFired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "events_fired_total",
			Help:      "Total number of target and achievement events by kind",
		}, []string{"kind"}),
		FinalNetProfitLoss: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "final_net_profit_loss",
			Help:      "Primary participant net P/L at game over",
			Buckets:   []float64{-50000, -10000, -1000, 0, 1000, 10000, 50000},
		}),

		TournamentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tournament",
			Name:      "duration_seconds",
			Help:      "Wall time of a tournament run in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordSessionStarted increments the started counter and the active gauge.
func (m *Metrics) RecordSessionStarted(mode models.GameMode) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(string(mode)).Inc()
	m.ActiveSessions.Inc()
}

// RecordSessionRemoved decrements the active gauge.
func (m *Metrics) RecordSessionRemoved() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// RecordSessionFinished records a session reaching game over.
func (m *Metrics) RecordSessionFinished(reason string, netProfitLoss float64) {
	if m == nil {
		return
	}
	m.SessionsFinished.WithLabelValues(reason).Inc()
	m.FinalNetProfitLoss.Observe(netProfitLoss)
}

// RecordRound records a settled round and its events.
func (m *Metrics) RecordRound(events []models.Event) {
	if m == nil {
		return
	}
	m.RoundsSettled.Inc()
	m.RecordEvents(events)
}

// RecordTrade records an executed trade and its events.
func (m *Metrics) RecordTrade(action models.TradeAction, events []models.Event) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(string(action)).Inc()
	m.RecordEvents(events)
}

// RecordPriceRefresh records a market price refresh and its events.
func (m *Metrics) RecordPriceRefresh(events []models.Event) {
	if m == nil {
		return
	}
	m.PriceRefreshes.Inc()
	m.RecordEvents(events)
}

// RecordEvents counts fired targets and achievements.
func (m *Metrics) RecordEvents(events []models.Event) {
	if m == nil {
		return
	}
	for _, e := range events {
		kind := string(e.Kind)
		if e.Achievement != "" {
			kind = string(e.Achievement)
		}
		m.EventsFired.WithLabelValues(kind).Inc()
	}
}

// RecordRejected counts a rejected operation, labelled by error class.
func (m *Metrics) RecordRejected(operation string, err error) {
	if m == nil {
		return
	}
	m.RejectedOps.WithLabelValues(operation, Reason(err)).Inc()
}

// RecordTournament records the duration of a tournament run.
func (m *Metrics) RecordTournament(seconds float64) {
	if m == nil {
		return
	}
	m.TournamentDuration.Observe(seconds)
}

// Reason maps an error to a low-cardinality label.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, models.ErrInvalidRisk):
		return "invalid_risk"
	case errors.Is(err, models.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, models.ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, models.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, models.ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, models.ErrGameOver):
		return "game_over"
	case errors.Is(err, models.ErrDecisionsPending):
		return "decisions_pending"
	case errors.Is(err, models.ErrUnsupportedMode):
		return "unsupported_mode"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, storage.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, market.ErrScriptExhausted):
		return "script_exhausted"
	case errors.Is(err, strategy.ErrUnknownStrategy):
		return "unknown_strategy"
	default:
		return "internal"
	}
}
