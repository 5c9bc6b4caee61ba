package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
)

// RunStore is the read side of the run repository used by the handler.
type RunStore interface {
	LatestRun(ctx context.Context) (*entities.ScoringRun, error)
}

// RunHandler serves stored run summaries to the dashboard.
type RunHandler struct {
	summaries providers.SummaryStore
	runs      RunStore
}

// NewRunHandler creates a run handler. Either source may be nil; the cache
// is consulted first.
func NewRunHandler(summaries providers.SummaryStore, runs RunStore) *RunHandler {
	return &RunHandler{summaries: summaries, runs: runs}
}

// GetLatestRun handles GET /api/runs/latest
func (h *RunHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.summaries != nil {
		summary, err := h.summaries.Latest(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("run summary cache unavailable, falling back to run store")
		} else if summary != nil {
			respondWithSummary(w, summary.Payload)
			return
		}
	}

	if h.runs != nil {
		run, err := h.runs.LatestRun(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to load latest run")
			respondWithError(w, http.StatusInternalServerError, "failed to load latest run")
			return
		}
		if run != nil {
			respondWithSummary(w, run.Summary)
			return
		}
	}

	respondWithError(w, http.StatusNotFound, "no stored runs")
}

// GetRun handles GET /api/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "run id is required")
		return
	}
	if h.summaries == nil {
		respondWithError(w, http.StatusNotFound, "run summaries are not cached")
		return
	}

	summary, err := h.summaries.Get(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("run_id", id).Msg("failed to load run summary")
		respondWithError(w, http.StatusBadGateway, "run summary cache unavailable")
		return
	}
	if summary == nil {
		respondWithError(w, http.StatusNotFound, "run not found")
		return
	}
	respondWithSummary(w, summary.Payload)
}

// respondWithSummary writes a stored summary document unchanged.
func respondWithSummary(w http.ResponseWriter, payload json.RawMessage) {
	if !json.Valid(payload) {
		respondWithError(w, http.StatusInternalServerError, "stored run summary is corrupt")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
