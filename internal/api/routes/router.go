package routes

import (
	"net/http"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/api/handlers"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/api/middleware"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux            *http.ServeMux
	runHandler     *handlers.RunHandler
	streamHandler  *handlers.StreamHandler
	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router. streamHandler may be nil when no event
// bus is configured.
func NewRouter(runHandler *handlers.RunHandler, streamHandler *handlers.StreamHandler, metrics *observability.Metrics, allowedOrigins []string) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		runHandler:     runHandler,
		streamHandler:  streamHandler,
		metrics:        metrics,
		allowedOrigins: allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	r.mux.HandleFunc("GET /api/runs/latest", r.runHandler.GetLatestRun)
	r.mux.HandleFunc("GET /api/runs/{id}", r.runHandler.GetRun)

	if r.streamHandler != nil {
		r.mux.HandleFunc("GET /api/runs/stream", r.streamHandler.StreamRuns)
		r.mux.HandleFunc("GET /api/runs/stream/stats", r.streamHandler.GetStats)
	}

	// CORS is outermost so error responses also carry CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)
	return handler
}
