package evaluation

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// DefaultFractions are the review-capacity fractions reported by default.
var DefaultFractions = []float64{0.10, 0.15, 0.20}

// CaptureAnalyzer answers "if only the top fraction of records by predicted
// risk are reviewed, what share of the actual readmissions is caught".
// Records are ranked by probability descending; equal probabilities keep
// their original order.
type CaptureAnalyzer struct {
	// cumulative[k] is the number of positives among the top k records.
	cumulative []int
}

// NewCaptureAnalyzer ranks the records once so that any number of
// fractions can be evaluated against the same ordering.
func NewCaptureAnalyzer(probs []float64, labels []int) (*CaptureAnalyzer, error) {
	if err := checkAligned(labels, probs); err != nil {
		return nil, err
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	cumulative := make([]int, len(order)+1)
	for k, i := range order {
		cumulative[k+1] = cumulative[k] + labels[i]
	}
	return &CaptureAnalyzer{cumulative: cumulative}, nil
}

// Total is the number of ranked records.
func (a *CaptureAnalyzer) Total() int {
	return len(a.cumulative) - 1
}

// TotalPositives is the number of positive records.
func (a *CaptureAnalyzer) TotalPositives() int {
	return a.cumulative[len(a.cumulative)-1]
}

// CaptureRate evaluates a review group made of the top floor(N*fraction)
// records. The capture rate is undefined (ErrNoPositives) when there are no
// positives at all and the within-group rate is undefined
// (ErrEmptyReviewGroup) when the group is empty.
func (a *CaptureAnalyzer) CaptureRate(fraction float64) (CaptureResult, error) {
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return CaptureResult{}, apperrors.NewValidationError(fmt.Sprintf("review fraction must be in [0,1], got %v", fraction))
	}

	n := a.Total()
	reviewed := int(math.Floor(float64(n) * fraction))
	captured := a.cumulative[reviewed]
	total := a.TotalPositives()

	return CaptureResult{
		Fraction:          fraction,
		Reviewed:          reviewed,
		PositivesCaptured: captured,
		TotalRecords:      n,
		TotalPositives:    total,
		CaptureRate:       Fraction(captured, total, ErrNoPositives),
		WithinGroupRate:   Fraction(captured, reviewed, ErrEmptyReviewGroup),
	}, nil
}

// CaptureRates evaluates each fraction in order.
func (a *CaptureAnalyzer) CaptureRates(fractions []float64) ([]CaptureResult, error) {
	out := make([]CaptureResult, 0, len(fractions))
	for _, f := range fractions {
		res, err := a.CaptureRate(f)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
