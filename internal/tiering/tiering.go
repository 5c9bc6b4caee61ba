// Package tiering splits a scored population into Low, Medium and High
// risk tertiles.
package tiering

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// Assign ranks records by probability ascending, keeping the original order
// among equal probabilities, and gives rank r of N the tier floor(3r/N).
// Tier sizes therefore differ by at most one and tiers are only meaningful
// relative to the population passed in.
func Assign(probs []float64) ([]entities.RiskTier, error) {
	if err := validate(probs); err != nil {
		return nil, err
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] < probs[order[b]]
	})

	tiers := entities.RiskTiers()
	n := len(probs)
	out := make([]entities.RiskTier, n)
	for r, i := range order {
		out[i] = tiers[3*r/n]
	}
	return out, nil
}

// Summary describes one tier of a scored population.
type Summary struct {
	Tier            entities.RiskTier `json:"tier"`
	Count           int               `json:"count"`
	Positives       int               `json:"positives"`
	PositiveRate    *float64          `json:"positive_rate"`
	MeanProbability *float64          `json:"mean_probability"`
	MinProbability  *float64          `json:"min_probability"`
	MaxProbability  *float64          `json:"max_probability"`
}

// Summarize aggregates counts, readmissions and score ranges per tier. The
// result always lists Low, Medium and High in that order; statistics of an
// empty tier are nil.
func Summarize(probs []float64, labels []int, tiers []entities.RiskTier) ([]Summary, error) {
	if len(probs) != len(labels) || len(probs) != len(tiers) {
		return nil, apperrors.NewUsageError(fmt.Sprintf(
			"misaligned inputs: %d probabilities, %d labels, %d tiers", len(probs), len(labels), len(tiers)))
	}
	if err := validate(probs); err != nil {
		return nil, err
	}

	members := make([][]float64, 3)
	out := make([]Summary, 3)
	for k, tier := range entities.RiskTiers() {
		out[k].Tier = tier
	}
	for i, tier := range tiers {
		k := tier.Rank()
		if k < 0 {
			return nil, apperrors.NewUsageError(fmt.Sprintf("row %d has unknown tier %q", i, tier))
		}
		members[k] = append(members[k], probs[i])
		out[k].Count++
		out[k].Positives += labels[i]
	}

	for k := range out {
		if out[k].Count == 0 {
			continue
		}
		s := members[k]
		rate := float64(out[k].Positives) / float64(out[k].Count)
		mean := stat.Mean(s, nil)
		lo, hi := s[0], s[0]
		for _, v := range s[1:] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		out[k].PositiveRate = &rate
		out[k].MeanProbability = &mean
		out[k].MinProbability = &lo
		out[k].MaxProbability = &hi
	}
	return out, nil
}

// Boundaries returns the 1/3 and 2/3 empirical quantiles of probs, the
// score cut points between Low/Medium and Medium/High.
func Boundaries(probs []float64) (lowUpper, mediumUpper float64, err error) {
	if len(probs) == 0 {
		return 0, 0, apperrors.NewUsageError("cannot compute tier boundaries of an empty population")
	}
	if err := validate(probs); err != nil {
		return 0, 0, err
	}
	sorted := append([]float64(nil), probs...)
	sort.Float64s(sorted)
	return stat.Quantile(1.0/3, stat.Empirical, sorted, nil), stat.Quantile(2.0/3, stat.Empirical, sorted, nil), nil
}

func validate(probs []float64) error {
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return apperrors.NewValidationError(fmt.Sprintf("probability %v at row %d is outside [0,1]", p, i))
		}
	}
	return nil
}
