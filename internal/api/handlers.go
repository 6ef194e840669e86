package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

var errBadRequest = errors.New("bad request")

// startSessionRequest overrides the server defaults; omitted fields keep them.
type startSessionRequest struct {
	Mode         *models.GameMode      `json:"mode"`
	NumRounds    *int                  `json:"num_rounds"`
	Unbounded    *bool                 `json:"unbounded"`
	HumanPlayer  *bool                 `json:"human_player"`
	PlayerName   *string               `json:"player_name"`
	RiskInput    *models.RiskInput     `json:"risk_input"`
	BalanceRule  *models.BalanceRule   `json:"balance_rule"`
	Balance      *decimal.Decimal      `json:"initial_balance"`
	BotCount     *int                  `json:"bot_count"`
	Strategies   []models.StrategyKind `json:"strategies"`
	Seed         *string               `json:"seed"`
	ProfitTarget *decimal.Decimal      `json:"profit_target"`
	LossTarget   *decimal.Decimal      `json:"loss_target"`
	OutcomeMode  *models.OutcomeMode   `json:"outcome_mode"`
}

func (req startSessionRequest) apply(cfg models.SessionConfig) models.SessionConfig {
	if req.Mode != nil {
		cfg.Mode = *req.Mode
	}
	if req.NumRounds != nil {
		cfg.NumRounds = *req.NumRounds
	}
	if req.Unbounded != nil {
		cfg.Unbounded = *req.Unbounded
	}
	if req.HumanPlayer != nil {
		cfg.HumanPlayer = *req.HumanPlayer
	}
	if req.PlayerName != nil {
		cfg.PlayerName = *req.PlayerName
	}
	if req.RiskInput != nil {
		cfg.RiskInput = *req.RiskInput
	}
	if req.BalanceRule != nil {
		cfg.BalanceRule = *req.BalanceRule
	}
	if req.Balance != nil {
		cfg.InitialBalance = *req.Balance
	}
	if req.BotCount != nil {
		cfg.Bots.Count = *req.BotCount
	}
	if len(req.Strategies) > 0 {
		cfg.Bots.Strategies = req.Strategies
	}
	if req.Seed != nil {
		cfg.Market.Seed = *req.Seed
	}
	if req.ProfitTarget != nil {
		cfg.ProfitTarget = req.ProfitTarget
	}
	if req.LossTarget != nil {
		cfg.LossTarget = req.LossTarget
	}
	if req.OutcomeMode != nil {
		cfg.Market.OutcomeMode = *req.OutcomeMode
	}
	return cfg
}

type riskRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type tradeRequest struct {
	Quantity int64 `json:"quantity"`
}

type targetsRequest struct {
	Profit *decimal.Decimal `json:"profit"`
	Loss   *decimal.Decimal `json:"loss"`
}

type tradeResponse struct {
	Transaction models.TransactionRecord `json:"transaction"`
	Events      []models.Event           `json:"events"`
}

type refreshResponse struct {
	Price  decimal.Decimal `json:"price"`
	Events []models.Event  `json:"events"`
}

// decodeRequired is decode for endpoints where an empty body is never a
// valid request.
func decodeRequired(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return fmt.Errorf("%w: request body required", errBadRequest)
	}
	return decode(r, v)
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Statistics())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.ListSessions())
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	id, err := s.service.StartSession(r.Context(), req.apply(s.defaults))
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := s.service.GetSession(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.EndSession(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleGetLeaderboard(w, r)
}

func (s *Server) handleSubmitRisk(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if err := decodeRequired(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Amount == nil {
		s.writeError(w, fmt.Errorf("%w: amount is required", errBadRequest))
		return
	}
	result, err := s.service.SubmitHumanRisk(r.Context(), chi.URLParam(r, "id"), *req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdvanceRound(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.AdvanceRound(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrade(action models.TradeAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tradeRequest
		if err := decodeRequired(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		id := chi.URLParam(r, "id")
		var (
			rec    models.TransactionRecord
			events []models.Event
			err    error
		)
		if action == models.ActionBuy {
			rec, events, err = s.service.ExecuteBuy(r.Context(), id, req.Quantity)
		} else {
			rec, events, err = s.service.ExecuteSell(r.Context(), id, req.Quantity)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, tradeResponse{Transaction: rec, Events: events})
	}
}

func (s *Server) handleRefreshPrice(w http.ResponseWriter, r *http.Request) {
	price, events, err := s.service.RefreshPrice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, refreshResponse{Price: price, Events: events})
}

func (s *Server) handleSetTargets(w http.ResponseWriter, r *http.Request) {
	var req targetsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	events, err := s.service.SetTargets(r.Context(), chi.URLParam(r, "id"), req.Profit, req.Loss)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.GetHistory(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.GetLeaderboard(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := s.service.GetAchievements(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, achievements)
}

func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.service.GetTransactions(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.service.GetRounds(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rounds)
}
