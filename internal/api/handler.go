// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custom_errors "congress-data-sync/internal/errors"
	"congress-data-sync/internal/model"
	"congress-data-sync/internal/store"
	"congress-data-sync/internal/syncer"
)

// SyncService is the orchestrator capability the API triggers and reads.
type SyncService interface {
	Sync(ctx context.Context, req syncer.Request) (*model.OrchestratorResult, error)
	GetSyncStats(ctx context.Context, hours int) (*model.SyncStats, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	sync   SyncService
	db     store.Store
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(sync SyncService, db store.Store, logger *slog.Logger) http.Handler {
	h := &Handler{
		sync:   sync,
		db:     db,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute)) // sync runs are long

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/sync", h.triggerSync)
		r.Get("/sync/stats", h.getSyncStats)
		r.Get("/sync/jobs", h.getSyncJobs)
		r.Get("/changes", h.getUnnotifiedChanges)
		r.Post("/changes/notified", h.markChangesNotified)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// triggerSync runs an orchestrated sync synchronously and returns its result.
// POST /v1/sync {"strategy": "incremental", "resources": ["bills"], "limit": 100}
func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	var req syncer.Request
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if !validStrategy(req.Strategy) {
		respondWithError(w, http.StatusBadRequest, "Invalid 'strategy'. Must be one of incremental, full, stale, priority.")
		return
	}

	result, err := h.sync.Sync(r.Context(), req)
	if err != nil {
		var inProgress *custom_errors.ErrSyncInProgress
		if errors.As(err, &inProgress) {
			respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Sync trigger failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// getSyncStats reports run statistics for the admin surface.
// GET /v1/sync/stats?hours=N
func (h *Handler) getSyncStats(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if s := r.URL.Query().Get("hours"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed <= 0 || parsed > 24*30 {
			respondWithError(w, http.StatusBadRequest, "Invalid 'hours' parameter. Must be an integer between 1 and 720.")
			return
		}
		hours = parsed
	}

	stats, err := h.sync.GetSyncStats(r.Context(), hours)
	if err != nil {
		h.logger.Error("Failed to get sync stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// getSyncJobs lists recent sync runs, newest first.
// GET /v1/sync/jobs?limit=N
func (h *Handler) getSyncJobs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed <= 0 || parsed > 500 {
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 500.")
			return
		}
		limit = parsed
	}

	jobs, err := h.db.ListJobs(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list sync jobs", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, jobs)
}

// getUnnotifiedChanges lists change-log entries awaiting notification.
// GET /v1/changes?limit=N
func (h *Handler) getUnnotifiedChanges(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed <= 0 || parsed > 1000 {
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 1000.")
			return
		}
		limit = parsed
	}

	entries, err := h.db.ListUnnotifiedChanges(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list changes", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// markChangesNotified flags consumed change entries.
// POST /v1/changes/notified {"ids": [1,2,3]}
func (h *Handler) markChangesNotified(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		respondWithError(w, http.StatusBadRequest, "Body must contain a non-empty 'ids' array")
		return
	}

	if err := h.db.MarkChangesNotified(r.Context(), req.IDs); err != nil {
		h.logger.Error("Failed to mark changes notified", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"marked": len(req.IDs)})
}

func validStrategy(s model.Strategy) bool {
	switch s {
	case "", model.StrategyIncremental, model.StrategyFull, model.StrategyStale, model.StrategyPriority:
		return true
	default:
		return false
	}
}
