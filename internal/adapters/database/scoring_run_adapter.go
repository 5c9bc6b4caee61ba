package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/repositories"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/clients/postgres"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

const (
	runsTable       = "scoring_runs"
	encountersTable = "scored_encounters"

	// encounterBatchSize bounds the number of rows per INSERT statement.
	encounterBatchSize = 1000
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS scoring_runs (
		id            UUID PRIMARY KEY,
		scope         TEXT NOT NULL,
		seed          NUMERIC(20, 0) NOT NULL,
		threshold     DOUBLE PRECISION NOT NULL,
		input_rows    INTEGER NOT NULL,
		prepared_rows INTEGER NOT NULL,
		scored_rows   INTEGER NOT NULL,
		positives     INTEGER NOT NULL,
		auc           DOUBLE PRECISION,
		low_upper     DOUBLE PRECISION NOT NULL,
		medium_upper  DOUBLE PRECISION NOT NULL,
		summary       JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scored_encounters (
		run_id       UUID NOT NULL REFERENCES scoring_runs (id) ON DELETE CASCADE,
		encounter_id TEXT NOT NULL,
		patient_nbr  TEXT,
		probability  DOUBLE PRECISION NOT NULL,
		tier         TEXT NOT NULL,
		label        SMALLINT NOT NULL,
		PRIMARY KEY (run_id, encounter_id)
	)`,
	`CREATE INDEX IF NOT EXISTS scoring_runs_created_at_idx ON scoring_runs (created_at DESC)`,
}

var runColumns = []interface{}{
	"id", "scope", "seed", "threshold", "input_rows", "prepared_rows", "scored_rows",
	"positives", "auc", "low_upper", "medium_upper", "summary", "created_at",
}

// ScoringRunAdapter implements scoring run persistence in Postgres.
type ScoringRunAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewScoringRunAdapter creates a new scoring run adapter.
func NewScoringRunAdapter(client *postgres.Client) repositories.RunRepository {
	return &ScoringRunAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// EnsureSchema creates the run tables if they are absent.
func (a *ScoringRunAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := a.client.DB().ExecContext(ctx, stmt); err != nil {
			return apperrors.NewInternalError("failed to create scoring run schema", err)
		}
	}
	return nil
}

// SaveRun inserts the run row and its scored encounters in one transaction.
func (a *ScoringRunAdapter) SaveRun(ctx context.Context, run *entities.ScoringRun, scored []entities.ScoredEncounter) (err error) {
	if run == nil {
		return apperrors.NewInternalError("scoring run is nil", fmt.Errorf("scoring run is nil"))
	}

	runQuery, _, err := a.db.Insert(runsTable).Rows(runRecord(run)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build scoring run insert query", err)
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, apperrors.NewInternalError("failed to rollback transaction", rbErr))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, runQuery); err != nil {
		return apperrors.NewInternalError("failed to insert scoring run", err)
	}

	for start := 0; start < len(scored); start += encounterBatchSize {
		end := min(start+encounterBatchSize, len(scored))
		records := make([]interface{}, 0, end-start)
		for _, s := range scored[start:end] {
			records = append(records, encounterRecord(run.ID, s))
		}

		query, _, buildErr := a.db.Insert(encountersTable).Rows(records...).ToSQL()
		if buildErr != nil {
			err = apperrors.NewInternalError("failed to build scored encounter insert query", buildErr)
			return err
		}
		if _, err = tx.ExecContext(ctx, query); err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("failed to insert scored encounters %d-%d", start, end), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit scoring run", err)
	}
	return nil
}

// LatestRun returns the most recently created run, or nil when none has
// been stored.
func (a *ScoringRunAdapter) LatestRun(ctx context.Context) (*entities.ScoringRun, error) {
	query, _, err := a.db.From(runsTable).
		Select(runColumns...).
		Order(goqu.C("created_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build latest run query", err)
	}

	var (
		run     entities.ScoringRun
		auc     sql.NullFloat64
		summary []byte
	)
	err = a.client.DB().QueryRowContext(ctx, query).Scan(
		&run.ID, &run.Scope, &run.Seed, &run.Threshold, &run.InputRows, &run.PreparedRows,
		&run.ScoredRows, &run.Positives, &auc, &run.LowUpper, &run.MediumUpper, &summary, &run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load latest scoring run", err)
	}

	if auc.Valid {
		v := auc.Float64
		run.AUC = &v
	}
	run.Summary = summary
	return &run, nil
}

func runRecord(run *entities.ScoringRun) goqu.Record {
	auc := sql.NullFloat64{}
	if run.AUC != nil {
		auc = sql.NullFloat64{Float64: *run.AUC, Valid: true}
	}
	summary := string(run.Summary)
	if summary == "" {
		summary = "{}"
	}

	return goqu.Record{
		"id":            run.ID,
		"scope":         run.Scope,
		"seed":          strconv.FormatUint(run.Seed, 10),
		"threshold":     run.Threshold,
		"input_rows":    run.InputRows,
		"prepared_rows": run.PreparedRows,
		"scored_rows":   run.ScoredRows,
		"positives":     run.Positives,
		"auc":           auc,
		"low_upper":     run.LowUpper,
		"medium_upper":  run.MediumUpper,
		"summary":       summary,
		"created_at":    run.CreatedAt,
	}
}

func encounterRecord(runID string, s entities.ScoredEncounter) goqu.Record {
	return goqu.Record{
		"run_id":       runID,
		"encounter_id": s.EncounterID,
		"patient_nbr":  sql.NullString{String: s.PatientNbr, Valid: s.PatientNbr != ""},
		"probability":  s.Probability,
		"tier":         string(s.Tier),
		"label":        s.Readmitted30d,
	}
}
