package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

const (
	// DefaultC is the default inverse L2 regularisation strength.
	DefaultC = 1.0

	// DefaultMaxIterations bounds the number of L-BFGS major iterations.
	DefaultMaxIterations = 1000

	// DefaultGradientThreshold stops the optimiser once the infinity norm of
	// the per-row averaged gradient falls below it.
	DefaultGradientThreshold = 1e-6
)

// LogisticRegression is an L2-penalised logistic regression estimator. The
// objective is C * sum(log-loss) + ||w||^2 / 2 with an unpenalised
// intercept, minimised with L-BFGS.
type LogisticRegression struct {
	C                 float64
	MaxIterations     int
	GradientThreshold float64
}

// NewLogisticRegression returns an estimator with the given settings,
// falling back to the defaults for non-positive values.
func NewLogisticRegression(c float64, maxIterations int) *LogisticRegression {
	lr := &LogisticRegression{C: c, MaxIterations: maxIterations, GradientThreshold: DefaultGradientThreshold}
	if lr.C <= 0 {
		lr.C = DefaultC
	}
	if lr.MaxIterations <= 0 {
		lr.MaxIterations = DefaultMaxIterations
	}
	return lr
}

// Fit implements Estimator.
func (lr *LogisticRegression) Fit(X [][]float64, y []int) (Predictor, error) {
	if err := validateTraining(X, y); err != nil {
		return nil, err
	}

	c := lr.C
	if c <= 0 {
		c = DefaultC
	}
	threshold := lr.GradientThreshold
	if threshold <= 0 {
		threshold = DefaultGradientThreshold
	}
	iterations := lr.MaxIterations
	if iterations <= 0 {
		iterations = DefaultMaxIterations
	}

	n := float64(len(X))
	d := len(X[0])
	labels := make([]float64, len(y))
	for i, v := range y {
		labels[i] = float64(v)
	}

	// Parameters are laid out as [w_0 .. w_{d-1}, b]. The objective is
	// divided by n so the gradient threshold does not depend on table size.
	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			w, b := theta[:d], theta[d]
			loss := 0.0
			for i, row := range X {
				z := floats.Dot(w, row) + b
				loss += softplus(z) - labels[i]*z
			}
			return (c*loss + 0.5*floats.Dot(w, w)) / n
		},
		Grad: func(grad, theta []float64) {
			w, b := theta[:d], theta[d]
			for k := range grad {
				grad[k] = 0
			}
			gw := grad[:d]
			for i, row := range X {
				r := sigmoid(floats.Dot(w, row)+b) - labels[i]
				floats.AddScaled(gw, r, row)
				grad[d] += r
			}
			floats.Scale(c, grad)
			floats.Add(gw, w)
			floats.Scale(1/n, grad)
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: threshold,
		MajorIterations:   iterations,
	}

	result, err := optimize.Minimize(problem, make([]float64, d+1), settings, &optimize.LBFGS{})
	if result == nil || !allFinite(result.X) {
		return nil, apperrors.NewInternalError("logistic regression did not produce finite coefficients", err)
	}

	m := &LogisticModel{
		coef:       append([]float64(nil), result.X[:d]...),
		intercept:  result.X[d],
		iterations: result.Stats.MajorIterations,
		status:     result.Status.String(),
	}
	if err != nil {
		// Line searches can fail once the iterate can no longer be improved;
		// the best location found so far is still a usable fit.
		m.status = fmt.Sprintf("%s (%v)", m.status, err)
	}
	return m, nil
}

// LogisticModel is a fitted logistic regression. It is immutable.
type LogisticModel struct {
	coef       []float64
	intercept  float64
	iterations int
	status     string
}

// PredictProbability implements Predictor.
func (m *LogisticModel) PredictProbability(X [][]float64) ([]float64, error) {
	if m == nil || m.coef == nil {
		return nil, apperrors.NewUsageError("model used before fit")
	}
	if err := validateMatrix(X, len(m.coef)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = sigmoid(floats.Dot(m.coef, row) + m.intercept)
	}
	return out, nil
}

// Coefficients returns a copy of the feature weights.
func (m *LogisticModel) Coefficients() []float64 {
	return append([]float64(nil), m.coef...)
}

// Intercept returns the fitted bias term.
func (m *LogisticModel) Intercept() float64 {
	return m.intercept
}

// Iterations returns the number of optimiser major iterations used.
func (m *LogisticModel) Iterations() int {
	return m.iterations
}

// Status describes why the optimiser stopped.
func (m *LogisticModel) Status() string {
	return m.status
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
