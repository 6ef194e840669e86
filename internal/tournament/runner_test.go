package tournament

import (
	"context"
	"errors"
	"testing"

	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/eddiefleurent/riskround/internal/observability"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func botConfig() models.SessionConfig {
	cfg := models.DefaultSessionConfig()
	cfg.NumRounds = 5
	return cfg
}

func TestNewRunner_RejectsUnplayableConfigs(t *testing.T) {
	logger, _ := logtest.NewNullLogger()

	unbounded := botConfig()
	unbounded.Unbounded = true
	unbounded.NumRounds = 0
	_, err := NewRunner(unbounded, nil, logger)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	marketMode := botConfig()
	marketMode.Mode = models.ModeMarket
	_, err = NewRunner(marketMode, nil, logger)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	noBots := botConfig()
	noBots.Bots.Strategies = nil
	_, err = NewRunner(noBots, nil, logger)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestRun_Aggregates(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	r, err := NewRunner(botConfig(), nil, logger)
	require.NoError(t, err)

	report, err := r.Run(context.Background(), "cup", 20, 4)
	require.NoError(t, err)

	assert.Equal(t, 20, report.Sessions)
	require.Len(t, report.Strategies, 4)

	wins := 0
	for _, res := range report.Strategies {
		assert.Equal(t, 20, res.Seats, "one seat per session for %s", res.Strategy)
		assert.False(t, res.AverageFinalBalance.IsNegative())
		assert.True(t, res.BestFinalBalance.GreaterThanOrEqual(res.AverageFinalBalance))
		assert.NotEqual(t, models.StrategyNone, res.Strategy, "human seat must be dropped")
		wins += res.Wins
	}
	assert.Equal(t, 20, wins, "exactly one winner per session")

	for i := 1; i < len(report.Strategies); i++ {
		assert.GreaterOrEqual(t, report.Strategies[i-1].Wins, report.Strategies[i].Wins)
	}
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	r, err := NewRunner(botConfig(), nil, logger)
	require.NoError(t, err)

	serial, err := r.Run(context.Background(), "repeat", 12, 1)
	require.NoError(t, err)
	parallel, err := r.Run(context.Background(), "repeat", 12, 6)
	require.NoError(t, err)

	require.Len(t, parallel.Strategies, len(serial.Strategies))
	for i := range serial.Strategies {
		a, b := serial.Strategies[i], parallel.Strategies[i]
		assert.Equal(t, a.Strategy, b.Strategy)
		assert.Equal(t, a.Wins, b.Wins)
		assert.True(t, a.AverageFinalBalance.Equal(b.AverageFinalBalance),
			"%s average %s vs %s", a.Strategy, a.AverageFinalBalance, b.AverageFinalBalance)
	}
}

func TestRun_ScriptedOutcomesFavourGreedy(t *testing.T) {
	cfg := botConfig()
	cfg.NumRounds = 3
	cfg.Market.ScriptedOutcomes = []float64{0.5, 0.5, 0.5}
	cfg.Bots.Strategies = []models.StrategyKind{models.StrategyGreedy, models.StrategyConservative}

	logger, _ := logtest.NewNullLogger()
	r, err := NewRunner(cfg, nil, logger)
	require.NoError(t, err)

	report, err := r.Run(context.Background(), "up-only", 3, 2)
	require.NoError(t, err)

	require.Len(t, report.Strategies, 2)
	greedy := report.Strategies[0]
	assert.Equal(t, models.StrategyGreedy, greedy.Strategy)
	assert.Equal(t, 3, greedy.Wins)
	assert.InDelta(t, 1.0, greedy.WinRate, 1e-9)
	// 100000 * 1.25^3
	assert.True(t, greedy.AverageFinalBalance.Equal(decimal.RequireFromString("195312.5")),
		"got %s", greedy.AverageFinalBalance)
}

func TestRun_CancelledContext(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r, err := NewRunner(botConfig(), nil, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Run(ctx, "cancelled", 5, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Tournament aborted", hook.LastEntry().Message)
}

func TestRun_RecordsDuration(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	m := observability.NewMetrics("")
	r, err := NewRunner(botConfig(), m, logger)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "timed", 2, 1)
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var samples uint64
	for _, fam := range families {
		if fam.GetName() == "riskround_tournament_duration_seconds" {
			samples = fam.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(1), samples)
}

func TestRun_RejectsZeroSessions(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	r, err := NewRunner(botConfig(), nil, logger)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), "none", 0, 1)
	assert.Error(t, err)
}
