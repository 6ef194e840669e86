package models

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParticipantID orders participants; the human, when present, is always P0.
type ParticipantID int

// String renders the id as P0, P1, ...
func (id ParticipantID) String() string {
	return "P" + strconv.Itoa(int(id))
}

// MarshalText keeps map keys readable in JSON ("P0" instead of "0").
func (id ParticipantID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the P-prefixed form.
func (id *ParticipantID) UnmarshalText(text []byte) error {
	n, err := strconv.Atoi(strings.TrimPrefix(string(text), "P"))
	if err != nil || n < 0 {
		return fmt.Errorf("invalid participant id %q", string(text))
	}
	*id = ParticipantID(n)
	return nil
}

// Role distinguishes externally driven players from bots.
type Role string

const (
	RoleHuman Role = "human"
	RoleBot   Role = "bot"
)

// Participant is a human or bot actor with an independent balance.
type Participant struct {
	ID       ParticipantID   `json:"id"`
	Name     string          `json:"name"`
	Role     Role            `json:"role"`
	Strategy StrategyKind    `json:"strategy"`
	Balance  decimal.Decimal `json:"balance"`
}

// TradeAction is the side of a market-mode transaction.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// TransactionRecord is one executed buy or sell. Immutable once appended.
type TransactionRecord struct {
	Action     TradeAction     `json:"action"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalValue decimal.Decimal `json:"total_value"` // negative for buys
	Round      int             `json:"round"`
}

// AchievementID identifies a one-shot milestone.
type AchievementID string

const (
	AchievementFirstTrade      AchievementID = "first_trade"
	AchievementProfitMilestone AchievementID = "profit_milestone"
	AchievementLossMilestone   AchievementID = "loss_milestone"
)

// EventKind classifies notifications raised after a mutating operation.
type EventKind string

const (
	EventProfitTarget EventKind = "profit_target_reached"
	EventLossTarget   EventKind = "loss_target_hit"
	EventAchievement  EventKind = "achievement_unlocked"
)

// Event reports a target or achievement crossed by the latest operation.
type Event struct {
	Kind          EventKind       `json:"kind"`
	Achievement   AchievementID   `json:"achievement,omitempty"`
	Threshold     decimal.Decimal `json:"threshold"`
	NetProfitLoss decimal.Decimal `json:"net_profit_loss"`
	Round         int             `json:"round"`
}

// RoundResult is created once per settled round.
type RoundResult struct {
	RoundIndex               int                               `json:"round_index"`
	PerParticipantRisk       map[ParticipantID]decimal.Decimal `json:"per_participant_risk"`
	PerParticipantProfitLoss map[ParticipantID]decimal.Decimal `json:"per_participant_profit_loss"`
	PerParticipantOutcome    map[ParticipantID]float64         `json:"per_participant_outcome"`
	OutcomeFactor            float64                           `json:"outcome_factor"`
	EventMultiplier          float64                           `json:"event_multiplier"`
	NetProfitLoss            decimal.Decimal                   `json:"net_profit_loss"`
	Events                   []Event                           `json:"events,omitempty"`
}

// HistoryPoint is the primary participant's net P/L after a round or trade.
type HistoryPoint struct {
	Round         int             `json:"round"`
	NetProfitLoss decimal.Decimal `json:"net_profit_loss"`
}

// Targets are nullable one-shot thresholds; nil means unset.
type Targets struct {
	Profit *decimal.Decimal `json:"profit,omitempty"`
	Loss   *decimal.Decimal `json:"loss,omitempty"`
}

// LeaderboardEntry is one ranked participant.
type LeaderboardEntry struct {
	Rank          int             `json:"rank"`
	ParticipantID ParticipantID   `json:"participant_id"`
	Name          string          `json:"name"`
	Balance       decimal.Decimal `json:"balance"`
}

// Session holds all mutable data for one play session.
type Session struct {
	StateMachine   *StateMachine                     `json:"-"`     // Runtime only
	State          GameState                         `json:"state"` // Canonical state
	ID             string                            `json:"id"`
	Seed           string                            `json:"seed"`
	Mode           GameMode                          `json:"mode"`
	Config         SessionConfig                     `json:"-"`
	Participants   []Participant                     `json:"participants"`
	InitialBalance decimal.Decimal                   `json:"initial_balance"`
	SharesOwned    int64                             `json:"shares_owned"`
	Price          decimal.Decimal                   `json:"price"`
	RefreshCount   int                               `json:"refresh_count"`
	CurrentRound   int                               `json:"current_round"`
	TotalRounds    int                               `json:"total_rounds"` // 0 when unbounded
	Unbounded      bool                              `json:"unbounded"`
	History        []HistoryPoint                    `json:"history"`
	Transactions   []TransactionRecord               `json:"transactions"`
	Rounds         []RoundResult                     `json:"rounds"`
	PendingRisks   map[ParticipantID]decimal.Decimal `json:"pending_risks"`
	Targets        Targets                           `json:"targets"`
	Achievements   map[AchievementID]bool            `json:"achievements"`
	CreatedAt      time.Time                         `json:"created_at"`
}

// NewSession builds the roster and initial balances from a validated config.
func NewSession(id, seed string, cfg SessionConfig) *Session {
	s := &Session{
		StateMachine:   NewStateMachine(),
		State:          StateSetup,
		ID:             id,
		Seed:           seed,
		Mode:           cfg.Mode,
		Config:         cfg,
		InitialBalance: cfg.InitialBalance,
		CurrentRound:   1,
		TotalRounds:    cfg.NumRounds,
		Unbounded:      cfg.Unbounded,
		History:        make([]HistoryPoint, 0),
		Transactions:   make([]TransactionRecord, 0),
		Rounds:         make([]RoundResult, 0),
		PendingRisks:   make(map[ParticipantID]decimal.Decimal),
		Targets:        Targets{Profit: cloneDecimal(cfg.ProfitTarget), Loss: cloneDecimal(cfg.LossTarget)},
		Achievements:   make(map[AchievementID]bool),
		CreatedAt:      time.Now().UTC(),
	}
	if cfg.Mode == ModeMarket {
		s.Price = cfg.Market.StartPrice
	}

	if cfg.HumanPlayer {
		name := cfg.PlayerName
		if name == "" {
			name = "You"
		}
		s.Participants = append(s.Participants, Participant{
			Name:     name,
			Role:     RoleHuman,
			Strategy: StrategyNone,
			Balance:  cfg.InitialBalance,
		})
	}
	for i, kind := range cfg.BotRoster() {
		s.Participants = append(s.Participants, Participant{
			Name:     fmt.Sprintf("Bot %d (%s)", i+1, kind),
			Role:     RoleBot,
			Strategy: kind,
			Balance:  cfg.InitialBalance,
		})
	}
	for i := range s.Participants {
		s.Participants[i].ID = ParticipantID(i)
	}
	return s
}

// TransitionState moves the session to a new state
func (s *Session) TransitionState(to GameState, condition string) error {
	if err := s.ensureMachine().Transition(to, condition); err != nil {
		return fmt.Errorf("session %s state transition failed: %w", s.ID, err)
	}
	s.State = to
	return nil
}

// GetCurrentState returns the canonical state
func (s *Session) GetCurrentState() GameState {
	return s.State
}

// IsOver reports whether the session reached game over
func (s *Session) IsOver() bool {
	return s.State == StateGameOver
}

func (s *Session) ensureMachine() *StateMachine {
	if s.StateMachine == nil {
		s.StateMachine = NewStateMachine()
	}
	return s.StateMachine
}

// Primary returns the participant whose net P/L drives targets and achievements.
func (s *Session) Primary() *Participant {
	if len(s.Participants) == 0 {
		return nil
	}
	return &s.Participants[0]
}

// Human returns the human participant, or nil in bot-only sessions.
func (s *Session) Human() *Participant {
	if p := s.Primary(); p != nil && p.Role == RoleHuman {
		return p
	}
	return nil
}

// CashBalance is the primary participant's cash.
func (s *Session) CashBalance() decimal.Decimal {
	if p := s.Primary(); p != nil {
		return p.Balance
	}
	return decimal.Zero
}

// PortfolioValue is cash plus shares marked at the current price.
func (s *Session) PortfolioValue() decimal.Decimal {
	return s.CashBalance().Add(s.Price.Mul(decimal.NewFromInt(s.SharesOwned)))
}

// NetProfitLoss is portfolio value relative to the initial balance.
func (s *Session) NetProfitLoss() decimal.Decimal {
	return s.PortfolioValue().Sub(s.InitialBalance)
}

// ParticipantValue is the amount a participant is ranked by.
func (s *Session) ParticipantValue(p Participant) decimal.Decimal {
	if p.ID == 0 && s.Mode == ModeMarket {
		return s.PortfolioValue()
	}
	return p.Balance
}

// HasAllDecisions reports whether every participant has a pending risk.
func (s *Session) HasAllDecisions() bool {
	for _, p := range s.Participants {
		if _, ok := s.PendingRisks[p.ID]; !ok {
			return false
		}
	}
	return true
}

// RoundsExhausted reports whether the round counter passed the configured total.
func (s *Session) RoundsExhausted() bool {
	return !s.Unbounded && s.CurrentRound > s.TotalRounds
}

// HasAchievement reports set membership.
func (s *Session) HasAchievement(id AchievementID) bool {
	return s.Achievements[id]
}

// AchievementList returns the achievement set in a stable order.
func (s *Session) AchievementList() []AchievementID {
	list := slices.Collect(maps.Keys(s.Achievements))
	slices.Sort(list)
	return list
}

// CheckInvariants validates balances, holdings and state consistency.
func (s *Session) CheckInvariants() error {
	for _, p := range s.Participants {
		if p.Balance.IsNegative() {
			return fmt.Errorf("participant %s balance %s is negative", p.ID, p.Balance)
		}
	}
	if s.SharesOwned < 0 {
		return fmt.Errorf("shares owned %d is negative", s.SharesOwned)
	}
	if s.StateMachine != nil {
		if s.StateMachine.GetCurrentState() != s.State {
			return fmt.Errorf("state %s does not match machine state %s", s.State, s.StateMachine.GetCurrentState())
		}
		if err := s.StateMachine.ValidateStateConsistency(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand to readers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.StateMachine = s.StateMachine.Copy()
	c.Participants = slices.Clone(s.Participants)
	c.History = slices.Clone(s.History)
	c.Transactions = slices.Clone(s.Transactions)
	c.Rounds = make([]RoundResult, len(s.Rounds))
	for i, r := range s.Rounds {
		c.Rounds[i] = r.Clone()
	}
	c.PendingRisks = maps.Clone(s.PendingRisks)
	c.Achievements = maps.Clone(s.Achievements)
	c.Targets = Targets{Profit: cloneDecimal(s.Targets.Profit), Loss: cloneDecimal(s.Targets.Loss)}
	c.Config.Market.SpecialEventMultipliers = slices.Clone(s.Config.Market.SpecialEventMultipliers)
	c.Config.Market.ScriptedOutcomes = slices.Clone(s.Config.Market.ScriptedOutcomes)
	c.Config.Bots.Strategies = slices.Clone(s.Config.Bots.Strategies)
	return &c
}

// Clone returns a deep copy of the round result.
func (r RoundResult) Clone() RoundResult {
	c := r
	c.PerParticipantRisk = maps.Clone(r.PerParticipantRisk)
	c.PerParticipantProfitLoss = maps.Clone(r.PerParticipantProfitLoss)
	c.PerParticipantOutcome = maps.Clone(r.PerParticipantOutcome)
	c.Events = slices.Clone(r.Events)
	return c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
