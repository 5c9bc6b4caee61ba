// Package model holds the binary risk estimator, the stratified
// train/test partitioning and the fitted scoring pipeline.
package model

import (
	"fmt"
	"math"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// Estimator trains a binary probabilistic classifier.
type Estimator interface {
	// Fit trains on the feature matrix X and the aligned 0/1 labels y. The
	// returned Predictor is independent of later changes to X and y.
	Fit(X [][]float64, y []int) (Predictor, error)
}

// Predictor estimates the probability that the binary target is 1.
type Predictor interface {
	// PredictProbability returns one probability in [0,1] per row of X.
	PredictProbability(X [][]float64) ([]float64, error)
}

// ErrSingleClass is returned when the training labels hold only one class.
var ErrSingleClass = apperrors.NewUsageError("training labels contain a single class")

// validateTraining enforces the fit preconditions: aligned non-empty
// inputs, rectangular finite features and strictly binary labels with both
// classes present.
func validateTraining(X [][]float64, y []int) error {
	if len(X) != len(y) {
		return apperrors.NewUsageError(fmt.Sprintf("feature matrix has %d rows, label vector has %d", len(X), len(y)))
	}
	if len(X) == 0 {
		return apperrors.NewUsageError("cannot fit on zero rows")
	}
	if err := validateMatrix(X, len(X[0])); err != nil {
		return err
	}

	var counts [2]int
	for i, v := range y {
		if v != 0 && v != 1 {
			return apperrors.NewUsageError(fmt.Sprintf("label vector is not binary: row %d has %d", i, v))
		}
		counts[v]++
	}
	if counts[0] == 0 || counts[1] == 0 {
		return ErrSingleClass
	}
	return nil
}

func validateMatrix(X [][]float64, width int) error {
	for i, row := range X {
		if len(row) != width {
			return apperrors.NewUsageError(fmt.Sprintf("row %d has %d features, expected %d", i, len(row), width))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return apperrors.NewUsageError(fmt.Sprintf("row %d feature %d is not finite", i, j))
			}
		}
	}
	return nil
}
