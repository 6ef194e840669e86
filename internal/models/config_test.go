package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSessionConfig_DefaultIsValid(t *testing.T) {
	if err := DefaultSessionConfig().Validate(); err != nil {
		t.Fatalf("Default config should be valid, got %v", err)
	}
}

func TestSessionConfig_Validate(t *testing.T) {
	neg := decimal.NewFromInt(-5)
	pos := decimal.NewFromInt(5)

	tests := []struct {
		name    string
		mutate  func(c *SessionConfig)
		wantErr string
	}{
		{"zero initial balance", func(c *SessionConfig) { c.InitialBalance = decimal.Zero }, "initial balance must be > 0"},
		{"negative initial balance", func(c *SessionConfig) { c.InitialBalance = neg }, "initial balance must be > 0"},
		{"zero rounds", func(c *SessionConfig) { c.NumRounds = 0 }, "num rounds must be > 0"},
		{"unbounded with rounds", func(c *SessionConfig) { c.Unbounded = true }, "num rounds must be 0 when unbounded"},
		{"unknown mode", func(c *SessionConfig) { c.Mode = "arcade" }, "mode must be"},
		{"unknown risk input", func(c *SessionConfig) { c.RiskInput = "shares" }, "risk input must be"},
		{"unknown balance rule", func(c *SessionConfig) { c.BalanceRule = "double" }, "balance rule must be"},
		{"inverted range", func(c *SessionConfig) { c.Market.OutcomeRange = [2]float64{10, -10} }, "outcome range"},
		{"chance above one", func(c *SessionConfig) { c.Market.SpecialEventChance = 1.5 }, "special event chance"},
		{"zero multiplier", func(c *SessionConfig) { c.Market.SpecialEventMultipliers = []float64{0} }, "multipliers must be > 0"},
		{"empty roster without human", func(c *SessionConfig) {
			c.HumanPlayer = false
			c.Bots.Strategies = nil
		}, "bot roster must not be empty"},
		{"count without strategies", func(c *SessionConfig) {
			c.Bots.Count = 2
			c.Bots.Strategies = nil
		}, "bot strategies required"},
		{"unknown strategy", func(c *SessionConfig) { c.Bots.Strategies = []StrategyKind{"yolo"} }, "unknown bot strategy"},
		{"market without human", func(c *SessionConfig) {
			c.Mode = ModeMarket
			c.HumanPlayer = false
		}, "market mode requires a human player"},
		{"market start below floor", func(c *SessionConfig) {
			c.Mode = ModeMarket
			c.Market.StartPrice = decimal.NewFromFloat(0.5)
		}, "start price must be >= min price"},
		{"scripted too short", func(c *SessionConfig) { c.Market.ScriptedOutcomes = []float64{0.1, -0.1} }, "must cover every round"},
		{"scripted per participant", func(c *SessionConfig) {
			c.Market.ScriptedOutcomes = make([]float64, 10)
			c.Market.OutcomeMode = OutcomePerParticipant
		}, "scripted outcomes require the shared outcome mode"},
		{"negative profit target", func(c *SessionConfig) { c.ProfitTarget = &neg }, "profit target must be >= 0"},
		{"positive loss target", func(c *SessionConfig) { c.LossTarget = &pos }, "loss target must be <= 0"},
		{"conservative pct zero", func(c *SessionConfig) { c.Bots.ConservativePct = 0 }, "conservative pct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSessionConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error message to contain '%s', got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestSessionConfig_ValidVariants(t *testing.T) {
	t.Run("unbounded bot-only", func(t *testing.T) {
		cfg := DefaultSessionConfig()
		cfg.HumanPlayer = false
		cfg.Unbounded = true
		cfg.NumRounds = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected valid config, got %v", err)
		}
	})

	t.Run("scripted pre-decided results", func(t *testing.T) {
		cfg := DefaultSessionConfig()
		cfg.Market.ScriptedOutcomes = []float64{0.05, -0.03, 0.10, -0.07}
		cfg.NumRounds = 4
		cfg.RiskInput = RiskPercent
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected valid config, got %v", err)
		}
	})

	t.Run("market mode", func(t *testing.T) {
		cfg := DefaultSessionConfig()
		cfg.Mode = ModeMarket
		cfg.Bots = BotParams{}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected valid config, got %v", err)
		}
	})
}
