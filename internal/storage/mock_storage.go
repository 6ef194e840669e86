package storage

import (
	"fmt"

	"github.com/eddiefleurent/riskround/internal/engine"
	"github.com/shopspring/decimal"
)

// MockStorage implements Interface for testing, with injectable errors and
// call counters. Not safe for concurrent use.
type MockStorage struct {
	putError     error
	getError     error
	games        map[string]*engine.Game
	order        []string
	statistics   *Statistics
	results      []decimal.Decimal
	putCallCount int
	getCallCount int
}

// NewMockStorage creates a new mock storage for testing
func NewMockStorage() *MockStorage {
	return &MockStorage{
		games:      make(map[string]*engine.Game),
		statistics: &Statistics{},
	}
}

func (m *MockStorage) Put(g *engine.Game) error {
	m.putCallCount++
	if m.putError != nil {
		return m.putError
	}
	id := g.ID()
	if _, ok := m.games[id]; ok {
		return fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	m.games[id] = g
	m.order = append(m.order, id)
	return nil
}

func (m *MockStorage) Get(id string) (*engine.Game, error) {
	m.getCallCount++
	if m.getError != nil {
		return nil, m.getError
	}
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return g, nil
}

func (m *MockStorage) Delete(id string) error {
	if _, ok := m.games[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.games, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns ids in insertion order.
func (m *MockStorage) List() []string {
	return append([]string(nil), m.order...)
}

func (m *MockStorage) Len() int {
	return len(m.games)
}

func (m *MockStorage) RecordResult(pnl decimal.Decimal) {
	m.results = append(m.results, pnl)
	m.statistics.record(pnl)
}

func (m *MockStorage) GetStatistics() *Statistics {
	return m.statistics
}

// Mock control methods for testing
func (m *MockStorage) SetPutError(err error) {
	m.putError = err
}

func (m *MockStorage) SetGetError(err error) {
	m.getError = err
}

func (m *MockStorage) GetPutCallCount() int {
	return m.putCallCount
}

func (m *MockStorage) GetGetCallCount() int {
	return m.getCallCount
}

// RecordedResults returns every result passed to RecordResult.
func (m *MockStorage) RecordedResults() []decimal.Decimal {
	return m.results
}

// Ensure MockStorage implements Interface
var _ Interface = (*MockStorage)(nil)
