package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/eddiefleurent/riskround/internal/engine"
	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/shopspring/decimal"
)

func newGame(t *testing.T, id string) *engine.Game {
	t.Helper()
	g, err := engine.New(id, "seed-"+id, models.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	return g
}

// TestInterface tests the storage interface with both implementations
func TestInterface(t *testing.T) {
	t.Run("MockStorage", func(t *testing.T) {
		testInterface(t, NewMockStorage())
	})

	t.Run("MemoryStorage", func(t *testing.T) {
		testInterface(t, NewStorage())
	})
}

// testInterface runs common tests on any storage implementation
func testInterface(t *testing.T, storage Interface) {
	if storage.Len() != 0 {
		t.Error("Expected empty registry initially")
	}

	_, err := storage.Get("missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	g := newGame(t, "sess-a")
	if err := storage.Put(g); err != nil {
		t.Fatalf("Failed to put session: %v", err)
	}
	if err := storage.Put(g); !errors.Is(err, ErrSessionExists) {
		t.Errorf("Expected ErrSessionExists on duplicate put, got %v", err)
	}
	if err := storage.Put(newGame(t, "sess-b")); err != nil {
		t.Fatalf("Failed to put second session: %v", err)
	}

	got, err := storage.Get("sess-a")
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if got != g {
		t.Error("Expected the same game instance back")
	}

	ids := storage.List()
	if len(ids) != 2 || ids[0] != "sess-a" || ids[1] != "sess-b" {
		t.Errorf("Unexpected session list: %v", ids)
	}

	if err := storage.Delete("sess-a"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if err := storage.Delete("sess-a"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
	if storage.Len() != 1 {
		t.Errorf("Expected 1 session after delete, got %d", storage.Len())
	}

	storage.RecordResult(decimal.NewFromInt(1500))
	stats := storage.GetStatistics()
	if stats.TotalSessions != 1 || stats.Wins != 1 {
		t.Errorf("Expected 1 winning session, got %+v", stats)
	}
	if !stats.TotalPnL.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected total P&L 1500, got %s", stats.TotalPnL)
	}
}

func TestStatistics_Streaks(t *testing.T) {
	storage := NewMemoryStorage()
	for _, pnl := range []int64{1000, 3000, -500, -1500, -200} {
		storage.RecordResult(decimal.NewFromInt(pnl))
	}

	stats := storage.GetStatistics()
	if stats.TotalSessions != 5 || stats.Wins != 2 || stats.Losses != 3 {
		t.Errorf("Unexpected counts: %+v", stats)
	}
	if stats.CurrentStreak != -3 {
		t.Errorf("Expected losing streak of 3, got %d", stats.CurrentStreak)
	}
	if !stats.AverageWin.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Expected average win 2000, got %s", stats.AverageWin)
	}
	if !stats.AverageLoss.Equal(decimal.NewFromInt(-733).Sub(decimal.RequireFromString("0.33"))) {
		t.Errorf("Expected average loss -733.33, got %s", stats.AverageLoss)
	}
	// Cumulative 1000, 4000, 3500, 2000, 1800: peak 4000, trough 1800.
	if !stats.PeakPnL.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("Expected peak P&L 4000, got %s", stats.PeakPnL)
	}
	if !stats.MaxDrawdown.Equal(decimal.NewFromInt(2200)) {
		t.Errorf("Expected max drawdown 2200, got %s", stats.MaxDrawdown)
	}
	if stats.WinRate != 0.4 {
		t.Errorf("Expected win rate 0.4, got %f", stats.WinRate)
	}

	// Returned statistics are a copy.
	stats.TotalSessions = 99
	if storage.GetStatistics().TotalSessions != 5 {
		t.Error("GetStatistics leaked internal state")
	}
}

func TestStatistics_DrawdownFromStart(t *testing.T) {
	storage := NewMemoryStorage()
	for _, pnl := range []int64{-500, 300, -1000, 2000} {
		storage.RecordResult(decimal.NewFromInt(pnl))
	}

	// Cumulative -500, -200, -1200, 800 against an initial peak of 0.
	stats := storage.GetStatistics()
	if !stats.MaxDrawdown.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("Expected max drawdown 1200, got %s", stats.MaxDrawdown)
	}
	if !stats.PeakPnL.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Expected peak P&L 800, got %s", stats.PeakPnL)
	}
}

func TestMemoryStorage_ConcurrentAccess(t *testing.T) {
	storage := NewMemoryStorage()
	games := make([]*engine.Game, 50)
	for i := range games {
		games[i] = newGame(t, fmt.Sprintf("sess-%02d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%02d", i)
			if err := storage.Put(games[i]); err != nil {
				t.Errorf("put %s: %v", id, err)
				return
			}
			if _, err := storage.Get(id); err != nil {
				t.Errorf("get %s: %v", id, err)
			}
			_ = storage.List()
			storage.RecordResult(decimal.NewFromInt(int64(i)))
		}(i)
	}
	wg.Wait()

	if storage.Len() != 50 {
		t.Errorf("Expected 50 sessions, got %d", storage.Len())
	}
	if storage.GetStatistics().TotalSessions != 50 {
		t.Errorf("Expected 50 recorded results, got %d", storage.GetStatistics().TotalSessions)
	}
}

func TestMockStorageSpecificFeatures(t *testing.T) {
	mock := NewMockStorage()
	injected := errors.New("registry unavailable")

	mock.SetPutError(injected)
	if err := mock.Put(newGame(t, "x")); !errors.Is(err, injected) {
		t.Errorf("Expected injected put error, got %v", err)
	}
	mock.SetPutError(nil)
	if err := mock.Put(newGame(t, "x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mock.SetGetError(injected)
	if _, err := mock.Get("x"); !errors.Is(err, injected) {
		t.Errorf("Expected injected get error, got %v", err)
	}

	if mock.GetPutCallCount() != 2 || mock.GetGetCallCount() != 1 {
		t.Errorf("Unexpected call counts put=%d get=%d", mock.GetPutCallCount(), mock.GetGetCallCount())
	}

	mock.RecordResult(decimal.NewFromInt(-10))
	if len(mock.RecordedResults()) != 1 {
		t.Error("Expected recorded result")
	}
}
