package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
)

type stubSummaryStore struct {
	byID   map[string]*providers.RunSummary
	latest *providers.RunSummary
	err    error
}

func (s *stubSummaryStore) Put(ctx context.Context, summary *providers.RunSummary) error { return nil }

func (s *stubSummaryStore) Get(ctx context.Context, id string) (*providers.RunSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byID[id], nil
}

func (s *stubSummaryStore) Latest(ctx context.Context) (*providers.RunSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.latest, nil
}

type stubRunStore struct {
	run *entities.ScoringRun
	err error
}

func (s *stubRunStore) LatestRun(ctx context.Context) (*entities.ScoringRun, error) {
	return s.run, s.err
}

func serve(h http.HandlerFunc, pattern, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetLatestRun_FromCache(t *testing.T) {
	store := &stubSummaryStore{latest: &providers.RunSummary{RunID: "r1", Payload: json.RawMessage(`{"run_id":"r1"}`)}}
	h := NewRunHandler(store, &stubRunStore{run: &entities.ScoringRun{Summary: json.RawMessage(`{"run_id":"db"}`)}})

	rec := serve(h.GetLatestRun, "GET /api/runs/latest", "/api/runs/latest")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"run_id":"r1"}`, rec.Body.String())
}

func TestGetLatestRun_FallsBackToRunStore(t *testing.T) {
	tests := []struct {
		name  string
		cache *stubSummaryStore
	}{
		{"cache miss", &stubSummaryStore{}},
		{"cache error", &stubSummaryStore{err: errors.New("connection refused")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRunHandler(tt.cache, &stubRunStore{run: &entities.ScoringRun{Summary: json.RawMessage(`{"run_id":"db"}`)}})

			rec := serve(h.GetLatestRun, "GET /api/runs/latest", "/api/runs/latest")

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"run_id":"db"}`, rec.Body.String())
		})
	}
}

func TestGetLatestRun_NotFoundAndErrors(t *testing.T) {
	rec := serve(NewRunHandler(nil, nil).GetLatestRun, "GET /api/runs/latest", "/api/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h := NewRunHandler(nil, &stubRunStore{err: errors.New("db down")})
	rec = serve(h.GetLatestRun, "GET /api/runs/latest", "/api/runs/latest")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed to load latest run", body["error"])
}

func TestGetRun(t *testing.T) {
	store := &stubSummaryStore{byID: map[string]*providers.RunSummary{
		"r1":      {RunID: "r1", Payload: json.RawMessage(`{"run_id":"r1"}`)},
		"corrupt": {RunID: "corrupt", Payload: json.RawMessage(`{"run_id":`)},
	}}
	h := NewRunHandler(store, nil)

	rec := serve(h.GetRun, "GET /api/runs/{id}", "/api/runs/r1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"run_id":"r1"}`, rec.Body.String())

	rec = serve(h.GetRun, "GET /api/runs/{id}", "/api/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h.GetRun, "GET /api/runs/{id}", "/api/runs/corrupt")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(NewRunHandler(&stubSummaryStore{err: errors.New("timeout")}, nil).GetRun, "GET /api/runs/{id}", "/api/runs/r1")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
