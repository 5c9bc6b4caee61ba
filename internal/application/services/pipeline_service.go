package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/repositories"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/evaluation"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/observability"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/model"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/report"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/tiering"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/config"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// Pipeline stage names used for spans, metrics and log fields.
const (
	StagePrepare  = "prepare"
	StageEvaluate = "evaluate"
	StageScore    = "score"
	StageCapture  = "capture"
	StagePublish  = "publish"
)

// PipelineService orchestrates preparation, scoring, tiering and capture
// analysis of an encounter table.
type PipelineService struct {
	cfg       *config.Config
	estimator model.Estimator
	runs      repositories.RunRepository
	summaries providers.SummaryStore
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string
}

// Option configures a PipelineService.
type Option func(*PipelineService)

// WithEstimator replaces the default logistic regression.
func WithEstimator(est model.Estimator) Option {
	return func(s *PipelineService) { s.estimator = est }
}

// WithRunRepository stores every published run.
func WithRunRepository(repo repositories.RunRepository) Option {
	return func(s *PipelineService) { s.runs = repo }
}

// WithSummaryStore caches every published run summary.
func WithSummaryStore(store providers.SummaryStore) Option {
	return func(s *PipelineService) { s.summaries = store }
}

// WithMetrics records row counts and stage durations.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *PipelineService) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *PipelineService) { s.now = now }
}

// NewPipelineService creates a pipeline service for a validated config.
func NewPipelineService(cfg *config.Config, opts ...Option) *PipelineService {
	s := &PipelineService{
		cfg:       cfg,
		estimator: model.NewLogisticRegression(cfg.Model.C, cfg.Model.MaxIterations),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema returns the encounter schema described by the data config.
func (s *PipelineService) Schema() entities.Schema {
	d := s.cfg.Data
	return entities.Schema{
		IDColumn:      d.IDColumn,
		PatientColumn: d.PatientColumn,
		TargetColumn:  d.TargetColumn,
		Categorical:   d.Categorical,
		Numeric:       d.Numeric,
	}
}

// Fractions returns the configured review fractions, or the defaults when
// none are configured.
func (s *PipelineService) Fractions() []float64 {
	if len(s.cfg.Capture.Fractions) == 0 {
		return evaluation.DefaultFractions
	}
	return s.cfg.Capture.Fractions
}

// Prepare turns a raw table into a prepared table.
func (s *PipelineService) Prepare(ctx context.Context, raw *dataset.RawTable) (*dataset.Table, *dataset.PrepareReport, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline."+StagePrepare)
	defer span.End()
	defer s.timeStage(ctx, StagePrepare)()

	d := s.cfg.Data
	t, rep, err := dataset.Prepare(raw, dataset.PrepareOptions{
		Schema:          s.Schema(),
		OutcomeColumn:   d.OutcomeColumn,
		PositiveOutcome: d.PositiveOutcome,
		MissingSentinel: d.MissingSentinel,
		KnownOutcomes:   dataset.DefaultKnownOutcomes,
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, nil, err
	}

	logger := observability.LoggerFromContext(ctx)
	logger.Info().
		Int("input_rows", rep.InputRows).
		Int("prepared_rows", rep.PreparedRows).
		Int("positives", rep.Positives).
		Int("unique_patients", rep.UniquePatients).
		Msg("prepared encounter table")
	if rep.DroppedRows > 0 {
		logger.Warn().Int("dropped_rows", rep.DroppedRows).Interface("missing_by_column", rep.MissingByColumn).Msg("dropped incomplete rows")
	}
	if failures := total(rep.CoercionFailures); failures > 0 {
		logger.Warn().Int("coercion_failures", failures).Interface("by_column", rep.CoercionFailures).Msg("unparseable numeric values treated as missing")
	}
	if rep.UnknownOutcomes > 0 {
		logger.Warn().Int("unknown_outcomes", rep.UnknownOutcomes).Msg("unrecognised outcome values counted as not readmitted")
	}
	observability.RecordRows(ctx, s.metrics, StagePrepare, rep.InputRows, rep.DroppedRows)

	return t, rep, nil
}

// Evaluate fits on the stratified training split and reports metrics on
// the held-out split.
func (s *PipelineService) Evaluate(ctx context.Context, t *dataset.Table) (*evaluation.HoldoutSummary, *model.FittedPipeline, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline."+StageEvaluate)
	defer span.End()
	defer s.timeStage(ctx, StageEvaluate)()

	if err := requireRows(t); err != nil {
		observability.RecordError(span, err)
		return nil, nil, err
	}

	m := s.cfg.Model
	summary, pipeline, err := evaluation.NewRunner(s.estimator, m.Threshold, m.TestFraction, m.Seed).Run(ctx, t)
	if err != nil {
		observability.RecordError(span, err)
		return nil, nil, err
	}

	e := observability.LoggerFromContext(ctx).Info().
		Int("train_rows", summary.TrainRows).
		Int("test_rows", summary.TestRows).
		Int("test_positives", summary.TestPositives)
	if auc, ok := summary.AUC.Value(); ok {
		e = e.Float64("auc", auc)
	}
	e.Msg("held-out evaluation complete")

	return summary, pipeline, nil
}

// requireRows rejects a table with no complete encounters, which happens
// when preparation drops every row.
func requireRows(t *dataset.Table) error {
	if t == nil || t.Len() == 0 {
		return apperrors.NewInputError("no complete encounters to model: every row was dropped during preparation", nil)
	}
	return nil
}

// ScoreResult is the outcome of the score stage.
type ScoreResult struct {
	Scope string
	// Rows are the scored encounters in table order. In holdout scope they
	// are the held-out rows only.
	Rows    []entities.ScoredEncounter
	Holdout *evaluation.HoldoutSummary
	Scoring *report.Scoring
}

// Score produces probabilities and risk tiers according to model.scope.
// In holdout scope the model is fitted on the training split and only the
// held-out rows are scored; in_sample fits and scores the full table.
func (s *PipelineService) Score(ctx context.Context, t *dataset.Table) (*ScoreResult, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}

	scope := s.cfg.Model.Scope
	if scope == "" {
		scope = config.ScopeHoldout
	}

	var (
		scored  *dataset.Table
		probs   []float64
		holdout *evaluation.HoldoutSummary
	)
	switch scope {
	case config.ScopeHoldout:
		summary, _, err := s.Evaluate(ctx, t)
		if err != nil {
			return nil, err
		}
		holdout = summary
		scored = t.Subset(summary.TestIndex)
		probs = summary.TestProbabilities
	case config.ScopeInSample:
		pipeline, err := model.FitPipeline(t, s.estimator, s.cfg.Model.Threshold)
		if err != nil {
			return nil, err
		}
		if probs, err = pipeline.Score(t); err != nil {
			return nil, err
		}
		scored = t
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown model scope %q", scope))
	}

	ctx, span := observability.StartSpan(ctx, "pipeline."+StageScore)
	defer span.End()
	defer s.timeStage(ctx, StageScore)()

	result, err := tierScored(scored, probs)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	result.Scope = scope
	result.Holdout = holdout

	logger := observability.LoggerFromContext(ctx)
	for _, tier := range result.Scoring.Tiers {
		logger.Info().Str("scope", scope).Str("tier", string(tier.Tier)).Int("count", tier.Count).Int("positives", tier.Positives).Msg("risk tier")
	}
	observability.RecordRows(ctx, s.metrics, StageScore, len(result.Rows), 0)

	return result, nil
}

func tierScored(t *dataset.Table, probs []float64) (*ScoreResult, error) {
	if t.Len() == 0 {
		return nil, apperrors.NewUsageError("no rows to score")
	}
	labels := t.Labels()
	tiers, err := tiering.Assign(probs)
	if err != nil {
		return nil, err
	}
	summaries, err := tiering.Summarize(probs, labels, tiers)
	if err != nil {
		return nil, err
	}
	lowUpper, mediumUpper, err := tiering.Boundaries(probs)
	if err != nil {
		return nil, err
	}
	auc, err := evaluation.AUC(labels, probs)
	if err != nil {
		return nil, err
	}

	rows := make([]entities.ScoredEncounter, t.Len())
	for i, enc := range t.Rows {
		rows[i] = entities.ScoredEncounter{Encounter: enc, Probability: probs[i], Tier: tiers[i]}
	}

	return &ScoreResult{
		Rows: rows,
		Scoring: &report.Scoring{
			Rows:        t.Len(),
			Positives:   t.Positives(),
			BaseRate:    evaluation.Fraction(t.Positives(), t.Len(), evaluation.ErrZeroDenominator),
			AUC:         auc,
			LowUpper:    lowUpper,
			MediumUpper: mediumUpper,
			Tiers:       summaries,
		},
	}, nil
}

// Capture computes capture rates of the scored rows for each fraction.
func (s *PipelineService) Capture(ctx context.Context, rows []entities.ScoredEncounter, fractions []float64) ([]evaluation.CaptureResult, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline."+StageCapture)
	defer span.End()
	defer s.timeStage(ctx, StageCapture)()

	probs := make([]float64, len(rows))
	labels := make([]int, len(rows))
	for i, r := range rows {
		probs[i] = r.Probability
		labels[i] = r.Readmitted30d
	}

	analyzer, err := evaluation.NewCaptureAnalyzer(probs, labels)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	results, err := analyzer.CaptureRates(fractions)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	logger := observability.LoggerFromContext(ctx)
	for _, r := range results {
		e := logger.Info().Float64("fraction", r.Fraction).Int("reviewed", r.Reviewed).Int("captured", r.PositivesCaptured)
		logRatio(e, "capture_rate", r.CaptureRate).Msg("capture rate")
	}
	return results, nil
}

// RunResult is the outcome of an end-to-end run.
type RunResult struct {
	ID        string
	CreatedAt time.Time
	Prepared  *dataset.Table
	Scored    []entities.ScoredEncounter
	Summary   *report.Summary
}

// Run prepares raw, scores it according to model.scope and computes the
// capture rates of the scored rows.
func (s *PipelineService) Run(ctx context.Context, raw *dataset.RawTable) (*RunResult, error) {
	id := s.newID()
	logger := observability.LoggerFromContext(ctx).With().Str("run_id", id).Logger()
	ctx = logger.WithContext(ctx)

	ctx, span := observability.StartSpan(ctx, "pipeline.run")
	defer span.End()

	res, err := s.run(ctx, id, raw)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return res, nil
}

func (s *PipelineService) run(ctx context.Context, id string, raw *dataset.RawTable) (*RunResult, error) {
	prepared, prep, err := s.Prepare(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	scored, err := s.Score(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	capture, err := s.Capture(ctx, scored.Rows, s.Fractions())
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	createdAt := s.now()
	return &RunResult{
		ID:        id,
		CreatedAt: createdAt,
		Prepared:  prepared,
		Scored:    scored.Rows,
		Summary: &report.Summary{
			RunID:       id,
			Scope:       scored.Scope,
			GeneratedAt: createdAt,
			Preparation: prep,
			Holdout:     scored.Holdout,
			Scoring:     scored.Scoring,
			Capture:     capture,
		},
	}, nil
}

// Publish stores the run in the configured run repository and summary
// store. Both sinks are attempted; their errors are joined.
func (s *PipelineService) Publish(ctx context.Context, res *RunResult) error {
	if s.runs == nil && s.summaries == nil {
		return nil
	}
	if res == nil || res.Summary == nil {
		return apperrors.NewUsageError("nothing to publish")
	}

	ctx, span := observability.StartSpan(ctx, "pipeline."+StagePublish)
	defer span.End()
	defer s.timeStage(ctx, StagePublish)()

	payload, err := json.Marshal(res.Summary)
	if err != nil {
		return apperrors.NewInternalError("failed to encode run summary", err)
	}

	var errs []error
	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, s.scoringRun(res, payload), res.Scored); err != nil {
			errs = append(errs, fmt.Errorf("save run: %w", err))
		}
	}
	if s.summaries != nil {
		summary := &providers.RunSummary{
			RunID:     res.ID,
			Scope:     res.Summary.Scope,
			CreatedAt: res.CreatedAt,
			Payload:   payload,
		}
		if err := s.summaries.Put(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("cache summary: %w", err))
		}
	}

	err = errors.Join(errs...)
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	observability.LoggerFromContext(ctx).Info().Str("run_id", res.ID).Int("scored_rows", len(res.Scored)).Msg("published run")
	return nil
}

func (s *PipelineService) scoringRun(res *RunResult, payload []byte) *entities.ScoringRun {
	sum := res.Summary
	run := &entities.ScoringRun{
		ID:        res.ID,
		Scope:     sum.Scope,
		Seed:      s.cfg.Model.Seed,
		Threshold: s.cfg.Model.Threshold,
		Summary:   payload,
		CreatedAt: res.CreatedAt,
	}
	if sum.Preparation != nil {
		run.InputRows = sum.Preparation.InputRows
		run.PreparedRows = sum.Preparation.PreparedRows
	}
	if sc := sum.Scoring; sc != nil {
		run.ScoredRows = sc.Rows
		run.Positives = sc.Positives
		run.LowUpper = sc.LowUpper
		run.MediumUpper = sc.MediumUpper
		if v, ok := sc.AUC.Value(); ok {
			run.AUC = &v
		}
	}
	return run
}

func (s *PipelineService) timeStage(ctx context.Context, stage string) func() {
	start := time.Now()
	return func() {
		observability.RecordStage(ctx, s.metrics, stage, time.Since(start))
	}
}

func logRatio(e *zerolog.Event, key string, r evaluation.Ratio) *zerolog.Event {
	if v, ok := r.Value(); ok {
		return e.Float64(key, v)
	}
	return e.Str(key, "undefined")
}

func total(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
