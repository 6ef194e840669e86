// Package api exposes the game service as a JSON HTTP adapter.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eddiefleurent/riskround/internal/game"
	"github.com/eddiefleurent/riskround/internal/models"
	"github.com/eddiefleurent/riskround/internal/observability"
	"github.com/eddiefleurent/riskround/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router    *chi.Mux
	server    *http.Server
	service   *game.Service
	metrics   *observability.Metrics
	defaults  models.SessionConfig
	logger    *logrus.Logger
	port      int
	authToken string
}

type Config struct {
	Port      int
	AuthToken string
}

// NewServer wires the routes. defaults is the base config that session
// creation requests override field by field.
func NewServer(cfg Config, service *game.Service, metrics *observability.Metrics, defaults models.SessionConfig, logger *logrus.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		service:   service,
		metrics:   metrics,
		defaults:  defaults,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleGetStats)
		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleStartSession)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/end", s.handleEndSession)

			r.Post("/risk", s.handleSubmitRisk)
			r.Post("/advance", s.handleAdvanceRound)
			r.Post("/buy", s.handleTrade(models.ActionBuy))
			r.Post("/sell", s.handleTrade(models.ActionSell))
			r.Post("/refresh", s.handleRefreshPrice)
			r.Put("/targets", s.handleSetTargets)

			r.Get("/history", s.handleGetHistory)
			r.Get("/leaderboard", s.handleGetLeaderboard)
			r.Get("/achievements", s.handleGetAchievements)
			r.Get("/transactions", s.handleGetTransactions)
			r.Get("/rounds", s.handleGetRounds)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting game server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Reason: observability.Reason(err)})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidRisk),
		errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrInvalidConfig),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrGameOver),
		errors.Is(err, models.ErrDecisionsPending),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrUnsupportedMode):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
