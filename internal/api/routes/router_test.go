package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/api/handlers"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/observability"
)

type memoryStore struct {
	runs map[string]*providers.RunSummary
	last *providers.RunSummary
}

func (m *memoryStore) Put(ctx context.Context, s *providers.RunSummary) error {
	m.runs[s.RunID] = s
	m.last = s
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id string) (*providers.RunSummary, error) {
	return m.runs[id], nil
}

func (m *memoryStore) Latest(ctx context.Context) (*providers.RunSummary, error) {
	return m.last, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := &memoryStore{runs: map[string]*providers.RunSummary{}}
	require.NoError(t, store.Put(context.Background(), &providers.RunSummary{
		RunID:   "r1",
		Payload: json.RawMessage(`{"run_id":"r1","scope":"holdout"}`),
	}))

	metrics, err := observability.InitMetrics()
	require.NoError(t, err)
	return NewRouter(handlers.NewRunHandler(store, nil), nil, metrics, []string{"*"}).SetupRoutes()
}

func TestRoutes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/runs/latest", http.StatusOK},
		{http.MethodGet, "/api/runs/r1", http.StatusOK},
		{http.MethodGet, "/api/runs/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/runs/stream/stats", http.StatusNotFound},
		{http.MethodPost, "/api/runs/latest", http.StatusMethodNotAllowed},
		{http.MethodOptions, "/api/runs/latest", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("Origin", "https://dash.example")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestLatestRunBody(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"run_id":"r1","scope":"holdout"}`, rec.Body.String())
}

type closedBus struct{}

func (closedBus) Subscribe(ctx context.Context) (<-chan *providers.RunEvent, error) {
	ch := make(chan *providers.RunEvent)
	close(ch)
	return ch, nil
}

func (closedBus) SubscriberCount() int { return 0 }

func (closedBus) Close() error { return nil }

func TestStreamRoutesThroughMiddleware(t *testing.T) {
	metrics, err := observability.InitMetrics()
	require.NoError(t, err)
	store := &memoryStore{runs: map[string]*providers.RunSummary{}}
	router := NewRouter(handlers.NewRunHandler(store, nil), handlers.NewStreamHandler(closedBus{}), metrics, []string{"*"}).SetupRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/stream", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: connected")
	assert.Contains(t, rec.Body.String(), "event: closed")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/stream/stats", nil))
	assert.JSONEq(t, `{"connected_clients":0}`, rec.Body.String())
}
