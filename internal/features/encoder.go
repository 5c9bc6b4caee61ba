// Package features turns prepared encounter tables into fixed-width numeric
// feature matrices.
package features

import (
	"fmt"
	"sort"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// ErrNotFitted is returned when an Encoder is used before Fit.
var ErrNotFitted = apperrors.NewUsageError("encoder used before fit")

// Encoder one-hot encodes categorical attributes over the values observed at
// fit time and passes numeric attributes through after the indicator
// columns. A fitted Encoder is immutable.
type Encoder struct {
	schema  entities.Schema
	vocab   [][]string
	index   []map[string]int
	offsets []int
	width   int
}

// Fit learns the sorted distinct values of every categorical attribute.
func Fit(t *dataset.Table) (*Encoder, error) {
	if t.Len() == 0 {
		return nil, apperrors.NewUsageError("cannot fit encoder on an empty table")
	}

	s := t.Schema
	e := &Encoder{
		schema:  s,
		vocab:   make([][]string, len(s.Categorical)),
		index:   make([]map[string]int, len(s.Categorical)),
		offsets: make([]int, len(s.Categorical)),
	}

	offset := 0
	for j := range s.Categorical {
		seen := make(map[string]struct{})
		for _, r := range t.Rows {
			seen[r.Categories[j]] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)

		idx := make(map[string]int, len(values))
		for k, v := range values {
			idx[v] = k
		}
		e.vocab[j] = values
		e.index[j] = idx
		e.offsets[j] = offset
		offset += len(values)
	}
	e.width = offset + len(s.Numeric)

	return e, nil
}

// Width is the length of every encoded feature vector.
func (e *Encoder) Width() int {
	return e.width
}

// FeatureNames returns the encoded column names, "<attribute>_<value>" for
// indicator columns followed by the numeric attribute names.
func (e *Encoder) FeatureNames() []string {
	names := make([]string, 0, e.width)
	for j, attr := range e.schema.Categorical {
		for _, v := range e.vocab[j] {
			names = append(names, attr+"_"+v)
		}
	}
	return append(names, e.schema.Numeric...)
}

// Categories returns the values learned for a categorical attribute.
func (e *Encoder) Categories(attr string) []string {
	for j, a := range e.schema.Categorical {
		if a == attr {
			return append([]string(nil), e.vocab[j]...)
		}
	}
	return nil
}

// Transform encodes every row of t. A value never seen during Fit yields an
// all-zero indicator block for its attribute.
func (e *Encoder) Transform(t *dataset.Table) ([][]float64, error) {
	if e == nil || e.index == nil {
		return nil, ErrNotFitted
	}
	if len(t.Schema.Categorical) != len(e.schema.Categorical) || len(t.Schema.Numeric) != len(e.schema.Numeric) {
		return nil, apperrors.NewUsageError(fmt.Sprintf(
			"table schema has %d categorical and %d numeric columns, encoder expects %d and %d",
			len(t.Schema.Categorical), len(t.Schema.Numeric), len(e.schema.Categorical), len(e.schema.Numeric)))
	}

	numOffset := e.width - len(e.schema.Numeric)
	out := make([][]float64, t.Len())
	for i, r := range t.Rows {
		row := make([]float64, e.width)
		for j, v := range r.Categories {
			if k, ok := e.index[j][v]; ok {
				row[e.offsets[j]+k] = 1
			}
		}
		copy(row[numOffset:], r.Numerics)
		out[i] = row
	}
	return out, nil
}
