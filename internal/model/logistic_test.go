package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

func TestLogisticRegression_LearnsDirection(t *testing.T) {
	X := [][]float64{{-2}, {-1}, {-0.5}, {0.5}, {1}, {2}}
	y := []int{0, 0, 1, 0, 1, 1}

	pred, err := NewLogisticRegression(1, 1000).Fit(X, y)
	require.NoError(t, err)

	m, ok := pred.(*LogisticModel)
	require.True(t, ok)
	assert.Greater(t, m.Coefficients()[0], 0.0)
	assert.NotEmpty(t, m.Status())

	probs, err := pred.PredictProbability(X)
	require.NoError(t, err)
	require.Len(t, probs, len(X))
	for i := range probs {
		assert.True(t, probs[i] > 0 && probs[i] < 1)
		if i > 0 {
			assert.Greater(t, probs[i], probs[i-1])
		}
	}
}

func TestLogisticRegression_UninformativeFeatureGivesBaseRate(t *testing.T) {
	X := [][]float64{{0}, {0}, {0}, {0}, {0}, {0}, {0}, {0}}
	y := []int{1, 0, 0, 0, 1, 0, 0, 0}

	pred, err := NewLogisticRegression(1, 1000).Fit(X, y)
	require.NoError(t, err)

	m := pred.(*LogisticModel)
	assert.InDelta(t, 0.0, m.Coefficients()[0], 1e-9)
	assert.InDelta(t, math.Log(0.25/0.75), m.Intercept(), 1e-3)

	probs, err := pred.PredictProbability([][]float64{{0}})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, probs[0], 1e-4)
}

func TestLogisticRegression_Deterministic(t *testing.T) {
	X := [][]float64{{1, 0}, {0, 1}, {1, 1}, {0, 0}, {2, 1}, {1, 3}}
	y := []int{1, 0, 1, 0, 1, 0}

	a, err := NewLogisticRegression(1, 1000).Fit(X, y)
	require.NoError(t, err)
	b, err := NewLogisticRegression(1, 1000).Fit(X, y)
	require.NoError(t, err)

	pa, _ := a.PredictProbability(X)
	pb, _ := b.PredictProbability(X)
	assert.Equal(t, pa, pb)
}

func TestLogisticRegression_Defaults(t *testing.T) {
	lr := NewLogisticRegression(0, -1)
	assert.Equal(t, DefaultC, lr.C)
	assert.Equal(t, DefaultMaxIterations, lr.MaxIterations)
	assert.Equal(t, DefaultGradientThreshold, lr.GradientThreshold)
}

func TestLogisticRegression_FitPreconditions(t *testing.T) {
	tests := []struct {
		name string
		X    [][]float64
		y    []int
	}{
		{"length mismatch", [][]float64{{1}, {2}}, []int{1}},
		{"empty", nil, nil},
		{"ragged", [][]float64{{1, 2}, {3}}, []int{0, 1}},
		{"non-binary", [][]float64{{1}, {2}}, []int{0, 2}},
		{"not finite", [][]float64{{1}, {math.NaN()}}, []int{0, 1}},
		{"single class", [][]float64{{1}, {2}}, []int{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogisticRegression(1, 100).Fit(tt.X, tt.y)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUsage))
		})
	}

	_, err := NewLogisticRegression(1, 100).Fit([][]float64{{1}, {2}}, []int{0, 0})
	assert.True(t, errors.Is(err, ErrSingleClass))
}

func TestLogisticModel_PredictPreconditions(t *testing.T) {
	pred, err := NewLogisticRegression(1, 100).Fit([][]float64{{1, 0}, {0, 1}}, []int{1, 0})
	require.NoError(t, err)

	_, err = pred.PredictProbability([][]float64{{1}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUsage))

	var unfitted *LogisticModel
	_, err = unfitted.PredictProbability([][]float64{{1}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUsage))
}

func TestSigmoidAndSoftplusAreStable(t *testing.T) {
	assert.Equal(t, 1.0, sigmoid(1000))
	assert.Equal(t, 0.0, sigmoid(-1000))
	assert.InDelta(t, 0.5, sigmoid(0), 1e-15)
	assert.InDelta(t, 1000.0, softplus(1000), 1e-9)
	assert.InDelta(t, 0.0, softplus(-1000), 1e-12)
	assert.InDelta(t, math.Log(2), softplus(0), 1e-15)
}
