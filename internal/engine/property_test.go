package engine

import (
	"testing"

	"github.com/eddiefleurent/riskround/internal/market"
	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func TestProperty_BalancesNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rounds := rapid.IntRange(1, 30).Draw(t, "rounds")
		fs := rapid.SliceOfN(rapid.Float64Range(-3, 3), rounds, rounds).Draw(t, "factors")

		cfg := models.DefaultSessionConfig()
		cfg.NumRounds = rounds
		cfg.BalanceRule = rapid.SampledFrom([]models.BalanceRule{models.RuleReturn, models.RuleStake}).Draw(t, "rule")
		cfg.RiskInput = models.RiskPercent
		cfg.Bots.Strategies = []models.StrategyKind{
			models.StrategyRandom, models.StrategyGreedy, models.StrategyCautious, models.StrategyDynamic,
		}

		g, err := New("prop", rapid.String().Draw(t, "seed"), cfg, WithSource(market.NewScriptedSource(fs)))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := g.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}

		for i := 0; i < rounds; i++ {
			pct := rapid.IntRange(-20, 120).Draw(t, "pct")
			before := g.Snapshot()
			_, err := g.SubmitHumanRisk(decimal.NewFromInt(int64(pct)))
			after := g.Snapshot()

			if pct < 0 || pct > 100 {
				if err == nil {
					t.Fatalf("percent %d accepted", pct)
				}
				if len(after.History) != len(before.History) || !after.CashBalance().Equal(before.CashBalance()) {
					t.Fatalf("rejected risk mutated the session")
				}
				continue
			}
			if err != nil {
				t.Fatalf("round %d: %v", i+1, err)
			}
			if err := after.CheckInvariants(); err != nil {
				t.Fatalf("round %d: %v", i+1, err)
			}
		}
	})
}

func TestProperty_BuySellRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := marketConfig(50)
		g, err := New("trip", rapid.String().Draw(t, "seed"), cfg)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := g.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}

		refreshes := rapid.IntRange(0, 10).Draw(t, "refreshes")
		for i := 0; i < refreshes; i++ {
			if _, _, err := g.RefreshPrice(); err != nil {
				t.Fatalf("refresh: %v", err)
			}
		}

		before := g.Snapshot()
		maxQty := before.CashBalance().Div(before.Price).IntPart()
		if maxQty < 1 {
			t.Skip("price above cash")
		}
		qty := rapid.Int64Range(1, maxQty).Draw(t, "qty")

		if _, _, err := g.ExecuteBuy(qty); err != nil {
			t.Fatalf("buy %d: %v", qty, err)
		}
		if _, _, err := g.ExecuteSell(qty); err != nil {
			t.Fatalf("sell %d: %v", qty, err)
		}

		after := g.Snapshot()
		if !after.CashBalance().Equal(before.CashBalance()) {
			t.Fatalf("cash %s != %s after round trip", after.CashBalance(), before.CashBalance())
		}
		if after.SharesOwned != before.SharesOwned {
			t.Fatalf("shares %d != %d after round trip", after.SharesOwned, before.SharesOwned)
		}
	})
}
