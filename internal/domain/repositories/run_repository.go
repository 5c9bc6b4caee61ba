package repositories

import (
	"context"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
)

// RunRepository defines the interface for scoring run persistence.
type RunRepository interface {
	// EnsureSchema creates the run tables if they do not exist.
	EnsureSchema(ctx context.Context) error

	// SaveRun stores the run and its scored encounters atomically.
	SaveRun(ctx context.Context, run *entities.ScoringRun, scored []entities.ScoredEncounter) error

	// LatestRun returns the most recently created run.
	LatestRun(ctx context.Context) (*entities.ScoringRun, error)
}
