package engine

import (
	"fmt"

	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/shopspring/decimal"
)

// ExecuteBuy buys quantity shares at the current price.
func (g *Game) ExecuteBuy(quantity int64) (models.TransactionRecord, []models.Event, error) {
	return g.trade(models.ActionBuy, quantity)
}

// ExecuteSell sells quantity shares at the current price.
func (g *Game) ExecuteSell(quantity int64) (models.TransactionRecord, []models.Event, error) {
	return g.trade(models.ActionSell, quantity)
}

func (g *Game) trade(action models.TradeAction, quantity int64) (models.TransactionRecord, []models.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var (
		rec    models.TransactionRecord
		events []models.Event
	)
	err := g.mutate(func(s *models.Session) error {
		if err := requireMarket(s); err != nil {
			return err
		}
		if quantity <= 0 {
			return fmt.Errorf("%w: %d", models.ErrInvalidQuantity, quantity)
		}

		cash := s.Primary()
		value := s.Price.Mul(decimal.NewFromInt(quantity))
		switch action {
		case models.ActionBuy:
			if value.GreaterThan(cash.Balance) {
				return fmt.Errorf("%w: %d shares cost %s, cash is %s",
					models.ErrInsufficientFunds, quantity, value, cash.Balance)
			}
			cash.Balance = cash.Balance.Sub(value)
			s.SharesOwned += quantity
			value = value.Neg()
		case models.ActionSell:
			if quantity > s.SharesOwned {
				return fmt.Errorf("%w: selling %d, holding %d",
					models.ErrInsufficientShares, quantity, s.SharesOwned)
			}
			cash.Balance = cash.Balance.Add(value)
			s.SharesOwned -= quantity
		}

		rec = models.TransactionRecord{
			Action:     action,
			Quantity:   quantity,
			UnitPrice:  s.Price,
			TotalValue: value,
			Round:      s.CurrentRound,
		}
		s.Transactions = append(s.Transactions, rec)
		s.History = append(s.History, models.HistoryPoint{Round: s.CurrentRound, NetProfitLoss: s.NetProfitLoss()})
		events = evaluate(s, s.CurrentRound, true)
		return nil
	})
	return rec, events, err
}

// RefreshPrice moves the price one random-walk step. Each refresh closes a
// round; a bounded session ends after its last one.
func (g *Game) RefreshPrice() (decimal.Decimal, []models.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var (
		price  decimal.Decimal
		events []models.Event
	)
	err := g.mutate(func(s *models.Session) error {
		if err := requireMarket(s); err != nil {
			return err
		}
		if err := s.TransitionState(models.StateRoundSettled, models.CondPriceRefreshed); err != nil {
			return err
		}

		s.Price = g.feed.Walk(s.Price)
		s.RefreshCount++
		s.History = append(s.History, models.HistoryPoint{Round: s.CurrentRound, NetProfitLoss: s.NetProfitLoss()})
		events = evaluate(s, s.CurrentRound, false)
		s.CurrentRound++
		price = s.Price
		return g.nextRound(s)
	})
	return price, events, err
}

func requireMarket(s *models.Session) error {
	if s.IsOver() {
		return fmt.Errorf("%w: session %s", models.ErrGameOver, s.ID)
	}
	if s.Mode != models.ModeMarket {
		return fmt.Errorf("%w: %s session has no market", models.ErrUnsupportedMode, s.Mode)
	}
	if s.GetCurrentState() != models.StateRoundInProgress {
		return fmt.Errorf("%w: session %s not started", models.ErrInvalidTransition, s.ID)
	}
	return nil
}
