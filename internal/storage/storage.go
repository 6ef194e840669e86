package storage

import (
	"fmt"
	"slices"
	"sync"

	"github.com/eddiefleurent/riskround/internal/engine"
	"github.com/shopspring/decimal"
)

// MemoryStorage is a map of live games guarded by a RWMutex.
type MemoryStorage struct {
	mu    sync.RWMutex
	games map[string]*engine.Game
	stats *Statistics
}

// Statistics aggregates the primary participant's final net P/L over every
// finished session.
type Statistics struct {
	TotalSessions int             `json:"total_sessions"`
	Wins          int             `json:"wins"`
	Losses        int             `json:"losses"`
	WinRate       float64         `json:"win_rate"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	AverageWin    decimal.Decimal `json:"average_win"`
	AverageLoss   decimal.Decimal `json:"average_loss"`
	PeakPnL       decimal.Decimal `json:"peak_pnl"`     // highest cumulative P&L, starting from 0
	MaxDrawdown   decimal.Decimal `json:"max_drawdown"` // largest peak-to-trough fall of cumulative P&L
	CurrentStreak int             `json:"current_streak"`
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		games: make(map[string]*engine.Game),
		stats: &Statistics{},
	}
}

func (s *MemoryStorage) Put(g *engine.Game) error {
	id := g.ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[id]; ok {
		return fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	s.games[id] = g
	return nil
}

func (s *MemoryStorage) Get(id string) (*engine.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return g, nil
}

func (s *MemoryStorage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.games, id)
	return nil
}

// List returns the registered ids in sorted order.
func (s *MemoryStorage) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

func (s *MemoryStorage) RecordResult(pnl decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.record(pnl)
}

// GetStatistics returns a copy of the aggregate statistics.
func (s *MemoryStorage) GetStatistics() *Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := *s.stats
	return &c
}

func (stats *Statistics) record(pnl decimal.Decimal) {
	stats.TotalSessions++
	stats.TotalPnL = stats.TotalPnL.Add(pnl)

	if pnl.IsPositive() {
		stats.Wins++
		if stats.CurrentStreak >= 0 {
			stats.CurrentStreak++
		} else {
			stats.CurrentStreak = 1
		}

		// Update average win
		totalWins := stats.AverageWin.Mul(decimal.NewFromInt(int64(stats.Wins - 1))).Add(pnl)
		stats.AverageWin = totalWins.Div(decimal.NewFromInt(int64(stats.Wins))).Round(2)
	} else {
		stats.Losses++
		if stats.CurrentStreak <= 0 {
			stats.CurrentStreak--
		} else {
			stats.CurrentStreak = -1
		}

		// Update average loss
		totalLosses := stats.AverageLoss.Mul(decimal.NewFromInt(int64(stats.Losses - 1))).Add(pnl)
		stats.AverageLoss = totalLosses.Div(decimal.NewFromInt(int64(stats.Losses))).Round(2)
	}

	stats.WinRate = float64(stats.Wins) / float64(stats.TotalSessions)

	if stats.TotalPnL.GreaterThan(stats.PeakPnL) {
		stats.PeakPnL = stats.TotalPnL
	}
	if dd := stats.PeakPnL.Sub(stats.TotalPnL); dd.GreaterThan(stats.MaxDrawdown) {
		stats.MaxDrawdown = dd
	}
}
