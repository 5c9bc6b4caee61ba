package evaluation

import (
	"context"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/model"
)

// Runner evaluates an estimator on a stratified held-out split.
type Runner struct {
	estimator    model.Estimator
	threshold    float64
	testFraction float64
	seed         uint64
}

func NewRunner(est model.Estimator, threshold, testFraction float64, seed uint64) *Runner {
	return &Runner{
		estimator:    est,
		threshold:    threshold,
		testFraction: testFraction,
		seed:         seed,
	}
}

// Run splits t, fits a pipeline on the training rows only and evaluates it
// on the held-out rows. The fitted pipeline is returned alongside the
// summary so held-out scores can be reused for tiering and capture.
func (r *Runner) Run(ctx context.Context, t *dataset.Table) (*HoldoutSummary, *model.FittedPipeline, error) {
	trainIdx, testIdx, err := model.StratifiedSplit(t.Labels(), r.testFraction, r.seed)
	if err != nil {
		return nil, nil, err
	}
	train, test := t.Subset(trainIdx), t.Subset(testIdx)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	pipeline, err := model.FitPipeline(train, r.estimator, r.threshold)
	if err != nil {
		return nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	probs, err := pipeline.Score(test)
	if err != nil {
		return nil, nil, err
	}

	labels := test.Labels()
	auc, err := AUC(labels, probs)
	if err != nil {
		return nil, nil, err
	}
	cm, err := NewConfusionMatrix(labels, pipeline.Decide(probs))
	if err != nil {
		return nil, nil, err
	}

	summary := &HoldoutSummary{
		Seed:              r.seed,
		TestFraction:      r.testFraction,
		Threshold:         r.threshold,
		TrainRows:         train.Len(),
		TestRows:          test.Len(),
		TrainPositives:    train.Positives(),
		TestPositives:     test.Positives(),
		BaseRate:          Fraction(t.Positives(), t.Len(), ErrZeroDenominator),
		AUC:               auc,
		Confusion:         cm,
		Report:            NewClassificationReport(cm),
		TrainIndex:        trainIdx,
		TestIndex:         testIdx,
		TestProbabilities: probs,
	}
	return summary, pipeline, nil
}
