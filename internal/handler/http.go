package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/service"
	"github.com/daily-meme-quiz/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var errHistoryDisabled = errors.New("run history is not enabled")

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunHistory lists archived runs for a player
type RunHistory interface {
	GetPlayerRuns(ctx context.Context, playerID string, limit int) ([]domain.RunResult, error)
}

// Handler provides HTTP handlers for the daily quiz API
type Handler struct {
	daily       *service.DailyService
	rounds      *service.RoundService
	leaderboard *service.LeaderboardService
	history     RunHistory
	pinger      Pinger
	hub         *websocket.Hub
	app         config.AppConfig
	now         func() time.Time
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	daily *service.DailyService,
	rounds *service.RoundService,
	leaderboard *service.LeaderboardService,
	pinger Pinger,
	hub *websocket.Hub,
	app config.AppConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		daily:       daily,
		rounds:      rounds,
		leaderboard: leaderboard,
		pinger:      pinger,
		hub:         hub,
		app:         app,
		now:         time.Now,
		logger:      logger,
	}
}

// SetHistory enables the player history endpoint
func (h *Handler) SetHistory(history RunHistory) {
	h.history = history
}

// SetClock replaces the time source used to resolve today's date
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/daily", h.GetDaily)

		r.Post("/round/start", h.StartRound)
		r.Post("/round/answer", h.AnswerRound)
		r.Post("/run/new", h.NewRun)

		r.Get("/leaderboard", h.GetLeaderboard)
		r.Get("/players/{playerID}/runs", h.GetPlayerRuns)

		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID, X-User-Id, X-Username")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeServiceError maps engine errors onto HTTP statuses. Anything outside
// the caller-facing taxonomy is logged and hidden behind a generic 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case domain.IsValidationError(err):
		h.writeError(w, http.StatusBadRequest, err)
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case domain.IsForbiddenError(err):
		h.writeError(w, http.StatusForbidden, err)
	case domain.IsConflictError(err):
		h.writeError(w, http.StatusConflict, err)
	default:
		h.logger.Error("failed to "+op, "error", err, "configuration", domain.IsConfigurationError(err))
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck reports ready only while the store answers
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    map[string]string{"status": "unavailable"},
			Error:   "store unreachable",
		})
		return
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}
