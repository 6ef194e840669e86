// Package config provides configuration management for the game server and
// the tournament runner.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v3"
)

// Defaults applied by normalize when a field is left unset
const (
	defaultLogLevel        = "info"
	defaultPort            = 8080
	defaultStartPrice      = 100.0
	defaultPriceStep       = 20.0
	defaultMinPrice        = 1.0
	defaultConservativePct = 0.10
	defaultCautiousPct     = 0.05
	defaultCautiousCap     = 5000.0
	defaultMilestone       = 10000.0
	defaultSessions        = 100
	defaultWorkers         = 4
)

// Config represents the complete application configuration.
type Config struct {
	Environment  EnvironmentConfig  `yaml:"environment"`
	Server       ServerConfig       `yaml:"server"`
	Game         GameConfig         `yaml:"game"`
	Market       MarketConfig       `yaml:"market"`
	Bots         BotsConfig         `yaml:"bots"`
	Targets      TargetsConfig      `yaml:"targets"`
	Achievements AchievementsConfig `yaml:"achievements"`
	Tournament   TournamentConfig   `yaml:"tournament"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// ServerConfig defines the HTTP adapter settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"` // empty disables auth
}

// GameConfig defines the session rules.
type GameConfig struct {
	Mode           string  `yaml:"mode"` // rounds | market
	InitialBalance float64 `yaml:"initial_balance"`
	NumRounds      int     `yaml:"num_rounds"`
	Unbounded      bool    `yaml:"unbounded"`
	HumanPlayer    *bool   `yaml:"human_player"` // defaults to true
	PlayerName     string  `yaml:"player_name"`
	RiskInput      string  `yaml:"risk_input"`   // amount | percent
	BalanceRule    string  `yaml:"balance_rule"` // return | stake
}

// MarketConfig defines outcome draws and the price feed.
type MarketConfig struct {
	OutcomeMode             string    `yaml:"outcome_mode"`  // shared | per_participant
	OutcomeRange            []float64 `yaml:"outcome_range"` // [min,max] percent
	SpecialEventChance      float64   `yaml:"special_event_chance"`
	SpecialEventMultipliers []float64 `yaml:"special_event_multipliers"`
	ScriptedOutcomes        []float64 `yaml:"scripted_outcomes"`
	Seed                    string    `yaml:"seed"`
	StartPrice              float64   `yaml:"start_price"`
	PriceStep               float64   `yaml:"price_step"`
	MinPrice                float64   `yaml:"min_price"`
}

// BotsConfig defines the bot roster and strategy constants.
type BotsConfig struct {
	Count           int      `yaml:"count"`
	Strategies      []string `yaml:"strategies"`
	RandomFloor     float64  `yaml:"random_floor"`
	ConservativePct float64  `yaml:"conservative_pct"`
	ConservativeCap float64  `yaml:"conservative_cap"`
	CautiousPct     float64  `yaml:"cautious_pct"`
	CautiousCap     *float64 `yaml:"cautious_cap"` // nil defaults to 5000, 0 means uncapped
}

// TargetsConfig defines the optional one-shot net P/L targets.
type TargetsConfig struct {
	Profit *float64 `yaml:"profit"`
	Loss   *float64 `yaml:"loss"`
}

// AchievementsConfig defines milestone thresholds.
type AchievementsConfig struct {
	ProfitMilestone float64 `yaml:"profit_milestone"`
	LossMilestone   float64 `yaml:"loss_milestone"`
}

// TournamentConfig defines batch simulation settings.
type TournamentConfig struct {
	Sessions int `yaml:"sessions"`
	Workers  int `yaml:"workers"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate normalises defaults, then checks that all values are valid and
// consistent.
func (c *Config) Validate() error {
	c.normalize()

	if _, err := logrus.ParseLevel(c.Environment.LogLevel); err != nil {
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Game.InitialBalance <= 0 {
		return fmt.Errorf("game.initial_balance must be > 0")
	}
	if c.Game.Unbounded && c.Game.NumRounds != 0 {
		return fmt.Errorf("game.num_rounds must be 0 when game.unbounded is set")
	}
	if !c.Game.Unbounded && c.Game.NumRounds <= 0 {
		return fmt.Errorf("game.num_rounds must be > 0 unless game.unbounded is set")
	}

	if len(c.Market.OutcomeRange) != 2 || c.Market.OutcomeRange[0] > c.Market.OutcomeRange[1] {
		return fmt.Errorf("market.outcome_range must be [min,max] with min <= max")
	}
	if c.Market.SpecialEventChance < 0 || c.Market.SpecialEventChance > 1 {
		return fmt.Errorf("market.special_event_chance must be between 0 and 1")
	}
	if c.Market.SpecialEventChance > 0 && len(c.Market.SpecialEventMultipliers) == 0 {
		return fmt.Errorf("market.special_event_multipliers required when market.special_event_chance > 0")
	}

	for _, s := range c.Bots.Strategies {
		if !models.StrategyKind(s).Valid() {
			return fmt.Errorf("bots.strategies: unknown strategy '%s'", s)
		}
	}

	if c.Targets.Profit != nil && *c.Targets.Profit < 0 {
		return fmt.Errorf("targets.profit must be >= 0")
	}
	if c.Targets.Loss != nil && *c.Targets.Loss > 0 {
		return fmt.Errorf("targets.loss must be <= 0")
	}

	if c.Tournament.Sessions <= 0 {
		return fmt.Errorf("tournament.sessions must be > 0")
	}
	if c.Tournament.Workers <= 0 {
		return fmt.Errorf("tournament.workers must be > 0")
	}

	// Cross-field rules live on the session config
	if err := c.SessionConfig().Validate(); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	return nil
}

// normalize sets default values for unset fields
func (c *Config) normalize() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = defaultLogLevel
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Game.Mode == "" {
		c.Game.Mode = string(models.ModeRounds)
	}
	if c.Game.HumanPlayer == nil {
		human := true
		c.Game.HumanPlayer = &human
	}
	if c.Game.PlayerName == "" {
		c.Game.PlayerName = "You"
	}
	if c.Game.RiskInput == "" {
		c.Game.RiskInput = string(models.RiskAmount)
	}
	if c.Game.BalanceRule == "" {
		c.Game.BalanceRule = string(models.RuleReturn)
	}
	if c.Market.OutcomeMode == "" {
		c.Market.OutcomeMode = string(models.OutcomeShared)
	}
	if len(c.Market.OutcomeRange) == 0 {
		c.Market.OutcomeRange = []float64{-50, 50}
	}
	if c.Market.StartPrice == 0 {
		c.Market.StartPrice = defaultStartPrice
	}
	if c.Market.PriceStep == 0 {
		c.Market.PriceStep = defaultPriceStep
	}
	if c.Market.MinPrice == 0 {
		c.Market.MinPrice = defaultMinPrice
	}
	if c.Bots.ConservativePct == 0 {
		c.Bots.ConservativePct = defaultConservativePct
	}
	if c.Bots.CautiousPct == 0 {
		c.Bots.CautiousPct = defaultCautiousPct
	}
	if c.Bots.CautiousCap == nil {
		limit := defaultCautiousCap
		c.Bots.CautiousCap = &limit
	}
	if c.Achievements.ProfitMilestone == 0 {
		c.Achievements.ProfitMilestone = defaultMilestone
	}
	if c.Achievements.LossMilestone == 0 {
		c.Achievements.LossMilestone = -defaultMilestone
	}
	if c.Tournament.Sessions == 0 {
		c.Tournament.Sessions = defaultSessions
	}
	if c.Tournament.Workers == 0 {
		c.Tournament.Workers = defaultWorkers
	}
}

// SessionConfig converts the file settings into an engine session config.
func (c *Config) SessionConfig() models.SessionConfig {
	human := c.Game.HumanPlayer == nil || *c.Game.HumanPlayer

	var outcomeRange [2]float64
	copy(outcomeRange[:], c.Market.OutcomeRange)

	strategies := make([]models.StrategyKind, len(c.Bots.Strategies))
	for i, s := range c.Bots.Strategies {
		strategies[i] = models.StrategyKind(s)
	}

	return models.SessionConfig{
		Mode:           models.GameMode(c.Game.Mode),
		InitialBalance: decimal.NewFromFloat(c.Game.InitialBalance),
		NumRounds:      c.Game.NumRounds,
		Unbounded:      c.Game.Unbounded,
		HumanPlayer:    human,
		PlayerName:     c.Game.PlayerName,
		RiskInput:      models.RiskInput(c.Game.RiskInput),
		BalanceRule:    models.BalanceRule(c.Game.BalanceRule),
		Market: models.MarketParams{
			OutcomeMode:             models.OutcomeMode(c.Market.OutcomeMode),
			OutcomeRange:            outcomeRange,
			SpecialEventChance:      c.Market.SpecialEventChance,
			SpecialEventMultipliers: append([]float64(nil), c.Market.SpecialEventMultipliers...),
			ScriptedOutcomes:        append([]float64(nil), c.Market.ScriptedOutcomes...),
			Seed:                    c.Market.Seed,
			StartPrice:              decimal.NewFromFloat(c.Market.StartPrice),
			PriceStep:               c.Market.PriceStep,
			MinPrice:                decimal.NewFromFloat(c.Market.MinPrice),
		},
		Bots: models.BotParams{
			Count:           c.Bots.Count,
			Strategies:      strategies,
			RandomFloor:     decimal.NewFromFloat(c.Bots.RandomFloor),
			ConservativePct: c.Bots.ConservativePct,
			ConservativeCap: decimal.NewFromFloat(c.Bots.ConservativeCap),
			CautiousPct:     c.Bots.CautiousPct,
			CautiousCap:     floatOrZero(c.Bots.CautiousCap),
		},
		ProfitTarget:    floatPtrToDecimal(c.Targets.Profit),
		LossTarget:      floatPtrToDecimal(c.Targets.Loss),
		ProfitMilestone: decimal.NewFromFloat(c.Achievements.ProfitMilestone),
		LossMilestone:   decimal.NewFromFloat(c.Achievements.LossMilestone),
	}
}

// LogLevel returns the parsed log level, falling back to info.
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Environment.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// floatOrZero treats an unset cap as uncapped; normalize fills in the default first.
func floatOrZero(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}

func floatPtrToDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
