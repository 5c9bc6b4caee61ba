package model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// StratifiedSplit partitions row indices into train and test sets so that
// each class contributes round(testFraction * classSize) rows to the test
// set. A class with at least two rows keeps at least one row on each side.
// The same labels, fraction and seed always give the same partition; both
// index lists are returned in ascending order.
func StratifiedSplit(labels []int, testFraction float64, seed uint64) (train, test []int, err error) {
	if !(testFraction > 0 && testFraction < 1) {
		return nil, nil, apperrors.NewValidationError(fmt.Sprintf("test fraction must be in (0,1), got %v", testFraction))
	}

	var byClass [2][]int
	for i, v := range labels {
		if v != 0 && v != 1 {
			return nil, nil, apperrors.NewUsageError(fmt.Sprintf("label vector is not binary: row %d has %d", i, v))
		}
		byClass[v] = append(byClass[v], i)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for _, idx := range byClass {
		n := len(idx)
		k := int(math.Round(testFraction * float64(n)))
		if n >= 2 {
			k = max(1, min(k, n-1))
		} else {
			k = 0
		}
		rng.Shuffle(n, func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		test = append(test, idx[:k]...)
		train = append(train, idx[k:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
