package entities

import (
	"encoding/json"
	"time"
)

// ScoringRun is the persisted record of one end-to-end pipeline run.
type ScoringRun struct {
	ID           string          `json:"id" db:"id"`
	Scope        string          `json:"scope" db:"scope"`
	Seed         uint64          `json:"seed" db:"seed"`
	Threshold    float64         `json:"threshold" db:"threshold"`
	InputRows    int             `json:"input_rows" db:"input_rows"`
	PreparedRows int             `json:"prepared_rows" db:"prepared_rows"`
	ScoredRows   int             `json:"scored_rows" db:"scored_rows"`
	Positives    int             `json:"positives" db:"positives"`
	AUC          *float64        `json:"auc,omitempty" db:"auc"`
	LowUpper     float64         `json:"low_upper" db:"low_upper"`
	MediumUpper  float64         `json:"medium_upper" db:"medium_upper"`
	Summary      json.RawMessage `json:"summary" db:"summary"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
