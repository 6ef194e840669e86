package engine

import (
	"testing"

	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfitTarget_FiresOnceOnCrossingRound(t *testing.T) {
	cfg := humanOnly(4)
	target := d("10000")
	cfg.ProfitTarget = &target
	g := started(t, cfg, WithSource(factors(t, 0.1, 0.1, 0.5, 0.1)))

	r1, err := g.SubmitHumanRisk(d("90000"))
	require.NoError(t, err)
	assert.True(t, r1.NetProfitLoss.Equal(d("9000")))
	assert.Zero(t, countEvents(r1.Events, models.EventProfitTarget, ""))

	r2, err := g.SubmitHumanRisk(d("20000"))
	require.NoError(t, err)
	assert.True(t, r2.NetProfitLoss.Equal(d("11000")))
	assert.Equal(t, 1, countEvents(r2.Events, models.EventProfitTarget, ""))
	assert.Equal(t, 1, countEvents(r2.Events, models.EventAchievement, models.AchievementProfitMilestone))
	assert.Nil(t, g.Snapshot().Targets.Profit, "target must be unset after firing")

	// Drop below and climb back above the old target.
	r3, err := g.SubmitHumanRisk(d("0"))
	require.NoError(t, err)
	assert.Empty(t, r3.Events)

	r4, err := g.SubmitHumanRisk(d("10000"))
	require.NoError(t, err)
	assert.True(t, r4.NetProfitLoss.Equal(d("12000")))
	assert.Zero(t, countEvents(r4.Events, models.EventProfitTarget, ""))
	assert.True(t, g.Snapshot().IsOver())
}

func TestLossTargetAndMilestone(t *testing.T) {
	cfg := humanOnly(2)
	loss := d("-5000")
	cfg.LossTarget = &loss
	g := started(t, cfg, WithSource(factors(t, -0.5, -0.5)))

	r, err := g.SubmitHumanRisk(d("30000"))
	require.NoError(t, err)
	assert.True(t, r.NetProfitLoss.Equal(d("-15000")))
	assert.Equal(t, 1, countEvents(r.Events, models.EventLossTarget, ""))
	assert.Equal(t, 1, countEvents(r.Events, models.EventAchievement, models.AchievementLossMilestone))

	r, err = g.SubmitHumanRisk(d("10000"))
	require.NoError(t, err)
	assert.Zero(t, countEvents(r.Events, models.EventLossTarget, ""))
	assert.Zero(t, countEvents(r.Events, models.EventAchievement, models.AchievementLossMilestone))
	assert.Equal(t, []models.AchievementID{models.AchievementFirstTrade, models.AchievementLossMilestone}, g.Achievements())
}

func TestFirstTrade_FiresExactlyOnce(t *testing.T) {
	cfg := botOnly(0, models.StrategyGreedy)
	cfg.Unbounded = true
	fs := make([]float64, 1001)
	g := started(t, cfg, WithSource(factors(t, fs...)))

	fired := 0
	for i := 0; i < 1001; i++ {
		r, err := g.AdvanceRound()
		require.NoError(t, err)
		n := countEvents(r.Events, models.EventAchievement, models.AchievementFirstTrade)
		if n > 0 {
			assert.Equal(t, 1, r.RoundIndex, "first_trade must fire on the first round")
		}
		fired += n
	}
	assert.Equal(t, 1, fired)
	assert.Equal(t, []models.AchievementID{models.AchievementFirstTrade}, g.Achievements())
	assert.False(t, g.Snapshot().IsOver(), "unbounded sessions never run out of rounds")
}

func TestFirstTrade_NotOnZeroRisk(t *testing.T) {
	g := started(t, humanOnly(3), WithSource(factors(t, 0.1, 0.1)))

	r, err := g.SubmitHumanRisk(decimal.Zero)
	require.NoError(t, err)
	assert.Empty(t, r.Events)
	assert.Empty(t, g.Achievements())

	r, err = g.SubmitHumanRisk(d("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(r.Events, models.EventAchievement, models.AchievementFirstTrade))
}

func TestSetTargets(t *testing.T) {
	g := started(t, humanOnly(3), WithSource(factors(t, 0.1)))

	neg := d("-1")
	_, err := g.SetTargets(&neg, nil)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
	pos := d("1")
	_, err = g.SetTargets(nil, &pos)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	profit := d("500")
	events, err := g.SetTargets(&profit, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
	require.NotNil(t, g.Snapshot().Targets.Profit)

	r, err := g.SubmitHumanRisk(d("10000"))
	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(r.Events, models.EventProfitTarget, ""))

	// A target already crossed fires as soon as it is set.
	again := d("100")
	events, err = g.SetTargets(&again, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(events, models.EventProfitTarget, ""))
	assert.Nil(t, g.Snapshot().Targets.Profit)
}
