// Package dataset loads encounter tables, prepares them for modelling and
// persists the prepared and scored tables.
package dataset

import (
	"fmt"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// Table is an in-memory prepared encounter table. Every row has complete
// attributes and a binary target.
type Table struct {
	Schema entities.Schema
	Rows   []entities.Encounter
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Labels returns the binary target column.
func (t *Table) Labels() []int {
	labels := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		labels[i] = r.Readmitted30d
	}
	return labels
}

// Positives returns the number of rows whose target is 1.
func (t *Table) Positives() int {
	n := 0
	for _, r := range t.Rows {
		n += r.Readmitted30d
	}
	return n
}

// CategoricalColumn returns the values of the named categorical attribute.
func (t *Table) CategoricalColumn(name string) ([]string, error) {
	j := indexOf(t.Schema.Categorical, name)
	if j < 0 {
		return nil, apperrors.NewUsageError(fmt.Sprintf("unknown categorical column %q", name))
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Categories[j]
	}
	return out, nil
}

// NumericColumn returns the values of the named numeric attribute.
func (t *Table) NumericColumn(name string) ([]float64, error) {
	j := indexOf(t.Schema.Numeric, name)
	if j < 0 {
		return nil, apperrors.NewUsageError(fmt.Sprintf("unknown numeric column %q", name))
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Numerics[j]
	}
	return out, nil
}

// Subset returns a table holding the rows at idx, in the given order.
// Rows are shared with the receiver and must not be mutated.
func (t *Table) Subset(idx []int) *Table {
	rows := make([]entities.Encounter, len(idx))
	for i, k := range idx {
		rows[i] = t.Rows[k]
	}
	return &Table{Schema: t.Schema, Rows: rows}
}

// UniquePatients counts distinct patient identifiers.
func (t *Table) UniquePatients() int {
	seen := make(map[string]struct{}, len(t.Rows))
	for _, r := range t.Rows {
		seen[r.PatientNbr] = struct{}{}
	}
	return len(seen)
}

func indexOf(list []string, name string) int {
	for i, v := range list {
		if v == name {
			return i
		}
	}
	return -1
}
