package engine

import (
	"testing"

	"github.com/eddiefleurent/riskround/internal/market"
	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marketConfig(rounds int) models.SessionConfig {
	cfg := models.DefaultSessionConfig()
	cfg.Mode = models.ModeMarket
	cfg.NumRounds = rounds
	cfg.Bots = models.BotParams{}
	return cfg
}

func TestExecuteBuyAndSell(t *testing.T) {
	g := started(t, marketConfig(5))

	rec, events, err := g.ExecuteBuy(10)
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, rec.Action)
	assert.True(t, rec.UnitPrice.Equal(d("100")))
	assert.True(t, rec.TotalValue.Equal(d("-1000")))
	assert.Equal(t, 1, countEvents(events, models.EventAchievement, models.AchievementFirstTrade))

	rec, events, err = g.ExecuteSell(4)
	require.NoError(t, err)
	assert.True(t, rec.TotalValue.Equal(d("400")))
	assert.Empty(t, events)

	snap := g.Snapshot()
	assert.Equal(t, int64(6), snap.SharesOwned)
	assert.True(t, snap.CashBalance().Equal(d("99400")))
	assert.Len(t, g.Transactions(), 2)
	assert.Len(t, g.History(), 2)
}

func TestTradeRejections(t *testing.T) {
	g := started(t, marketConfig(5))
	before := g.Snapshot()

	_, _, err := g.ExecuteBuy(1001)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	_, _, err = g.ExecuteSell(1)
	assert.ErrorIs(t, err, models.ErrInsufficientShares)
	_, _, err = g.ExecuteBuy(0)
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)
	_, _, err = g.ExecuteSell(-3)
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)

	after := g.Snapshot()
	assert.True(t, after.CashBalance().Equal(before.CashBalance()))
	assert.Equal(t, before.SharesOwned, after.SharesOwned)
	assert.Empty(t, after.Transactions)
	assert.Empty(t, after.History)
	assert.Empty(t, g.Achievements())

	// Spending every cent is allowed.
	_, _, err = g.ExecuteBuy(1000)
	require.NoError(t, err)
	assert.True(t, g.Snapshot().CashBalance().IsZero())
}

func TestRefreshPrice_EndsBoundedSession(t *testing.T) {
	feed := market.NewPriceFeed(market.NewSeededRand("walk"), 20, decimal.NewFromInt(1))
	g := started(t, marketConfig(3), WithPriceFeed(feed))

	_, _, err := g.ExecuteBuy(100)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		price, _, err := g.RefreshPrice()
		require.NoError(t, err)
		assert.True(t, price.GreaterThanOrEqual(decimal.NewFromInt(1)))
		snap := g.Snapshot()
		assert.True(t, snap.Price.Equal(price))
		assert.Equal(t, i, snap.RefreshCount)
	}

	snap := g.Snapshot()
	assert.True(t, snap.IsOver())
	assert.Len(t, snap.History, 4)
	assert.True(t, snap.History[3].NetProfitLoss.Equal(snap.NetProfitLoss()))

	_, _, err = g.RefreshPrice()
	assert.ErrorIs(t, err, models.ErrGameOver)
	_, _, err = g.ExecuteSell(1)
	assert.ErrorIs(t, err, models.ErrGameOver)
}

func TestRefreshPrice_NetProfitMarksShares(t *testing.T) {
	g := started(t, marketConfig(10))
	_, _, err := g.ExecuteBuy(500)
	require.NoError(t, err)

	price, _, err := g.RefreshPrice()
	require.NoError(t, err)

	want := price.Sub(d("100")).Mul(decimal.NewFromInt(500))
	assert.True(t, g.Snapshot().NetProfitLoss().Equal(want), "net %s want %s", g.Snapshot().NetProfitLoss(), want)
}

func TestTradeBeforeStart(t *testing.T) {
	g, err := New("idle", "seed", marketConfig(2))
	require.NoError(t, err)
	_, _, err = g.ExecuteBuy(1)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}
