package providers

import (
	"context"
	"encoding/json"
	"time"
)

// RunSummary is the cached view of a finished run. Payload holds the full
// JSON report.
type RunSummary struct {
	RunID     string          `json:"run_id"`
	Scope     string          `json:"scope"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// SummaryStore defines the interface for caching run summaries.
type SummaryStore interface {
	// Put stores the summary as the latest run and announces it.
	Put(ctx context.Context, summary *RunSummary) error

	// Get returns the summary of one run.
	Get(ctx context.Context, runID string) (*RunSummary, error)

	// Latest returns the most recent summary.
	Latest(ctx context.Context) (*RunSummary, error)
}

// Cache keys and channels used for run summaries.
const (
	RunKeyPrefix    = "readmission:run:"
	LatestRunKey    = "readmission:run:latest"
	RunEventChannel = "readmission:runs"
)

// RunKey returns the cache key of one run.
func RunKey(runID string) string {
	return RunKeyPrefix + runID
}
