package model

import (
	"fmt"
	"math"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/features"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// DefaultThreshold is the probability at or above which a record is
// classified as a 30-day readmission.
const DefaultThreshold = 0.5

// FittedPipeline bundles a fitted encoder, a fitted predictor and the
// decision threshold. It is immutable and safe for concurrent scoring.
type FittedPipeline struct {
	encoder   *features.Encoder
	predictor Predictor
	threshold float64
}

// FitPipeline fits the encoder on t, encodes t and trains est on the
// encoded matrix and the table's labels.
func FitPipeline(t *dataset.Table, est Estimator, threshold float64) (*FittedPipeline, error) {
	if !(threshold > 0 && threshold < 1) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("threshold must be in (0,1), got %v", threshold))
	}
	if est == nil {
		return nil, apperrors.NewUsageError("estimator is required")
	}

	enc, err := features.Fit(t)
	if err != nil {
		return nil, err
	}
	X, err := enc.Transform(t)
	if err != nil {
		return nil, err
	}
	pred, err := est.Fit(X, t.Labels())
	if err != nil {
		return nil, err
	}

	return &FittedPipeline{encoder: enc, predictor: pred, threshold: threshold}, nil
}

// Score returns one probability per row of t, in row order.
func (p *FittedPipeline) Score(t *dataset.Table) ([]float64, error) {
	if p == nil || p.predictor == nil {
		return nil, apperrors.NewUsageError("pipeline used before fit")
	}
	X, err := p.encoder.Transform(t)
	if err != nil {
		return nil, err
	}
	probs, err := p.predictor.PredictProbability(X)
	if err != nil {
		return nil, err
	}
	if len(probs) != len(X) {
		return nil, apperrors.NewInternalError(fmt.Sprintf("predictor returned %d probabilities for %d rows", len(probs), len(X)), nil)
	}
	for i, v := range probs {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, apperrors.NewInternalError(fmt.Sprintf("predictor returned probability %v for row %d", v, i), nil)
		}
	}
	return probs, nil
}

// Decide applies the threshold: 1 when the probability is at or above it.
func (p *FittedPipeline) Decide(probs []float64) []int {
	out := make([]int, len(probs))
	for i, v := range probs {
		if v >= p.threshold {
			out[i] = 1
		}
	}
	return out
}

// Threshold returns the decision threshold.
func (p *FittedPipeline) Threshold() float64 { return p.threshold }

// Encoder returns the fitted feature encoder.
func (p *FittedPipeline) Encoder() *features.Encoder { return p.encoder }

// Predictor returns the fitted predictor.
func (p *FittedPipeline) Predictor() Predictor { return p.predictor }
