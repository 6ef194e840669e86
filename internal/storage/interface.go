// Package storage keeps the live sessions of a process in memory.
package storage

import (
	"github.com/eddiefleurent/riskround/internal/engine"
	"github.com/shopspring/decimal"
)

// Interface defines the contract for the session registry.
//
// Implementations must be safe for concurrent use. Each stored Game guards its
// own session, so the registry only serialises access to the id index.
type Interface interface {
	// Session management
	Put(g *engine.Game) error
	Get(id string) (*engine.Game, error)
	Delete(id string) error
	List() []string
	Len() int

	// Finished-session analytics
	RecordResult(netProfitLoss decimal.Decimal)
	GetStatistics() *Statistics
}

// NewStorage creates the default in-memory registry.
func NewStorage() Interface {
	return NewMemoryStorage()
}

// Ensure MemoryStorage implements Interface
var _ Interface = (*MemoryStorage)(nil)
