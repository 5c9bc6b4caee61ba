package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
)

// PrepareOptions controls how a raw table becomes a prepared table.
type PrepareOptions struct {
	Schema          entities.Schema
	OutcomeColumn   string
	PositiveOutcome string
	MissingSentinel string
	// KnownOutcomes lists the outcome values that are not reported as
	// unknown. Unknown outcomes still map to a target of 0.
	KnownOutcomes []string
}

// DefaultKnownOutcomes are the three readmission outcomes of the source data.
var DefaultKnownOutcomes = []string{"<30", ">30", "NO"}

// PrepareReport holds population-level counts from one preparation pass.
type PrepareReport struct {
	InputRows        int            `json:"input_rows"`
	PreparedRows     int            `json:"prepared_rows"`
	DroppedRows      int            `json:"dropped_rows"`
	InputPositives   int            `json:"input_positives"`
	Positives        int            `json:"positives"`
	UniquePatients   int            `json:"unique_patients"`
	UnknownOutcomes  int            `json:"unknown_outcomes"`
	MissingByColumn  map[string]int `json:"missing_by_column"`
	CoercionFailures map[string]int `json:"coercion_failures"`
}

// InputPositiveRate is the target rate before incomplete rows are dropped.
func (r *PrepareReport) InputPositiveRate() float64 {
	if r.InputRows == 0 {
		return 0
	}
	return float64(r.InputPositives) / float64(r.InputRows)
}

// PositiveRate is the target rate of the prepared table.
func (r *PrepareReport) PositiveRate() float64 {
	if r.PreparedRows == 0 {
		return 0
	}
	return float64(r.Positives) / float64(r.PreparedRows)
}

// Prepare normalises missing markers, derives the binary target, restricts
// the table to the schema, coerces numeric attributes and drops every row
// with a missing selected attribute. Unparseable or non-finite numbers are
// treated as missing and counted in the report.
func Prepare(raw *RawTable, opts PrepareOptions) (*Table, *PrepareReport, error) {
	s := opts.Schema

	required := append([]string{s.IDColumn, opts.OutcomeColumn}, s.Categorical...)
	if s.PatientColumn != "" {
		required = append(required, s.PatientColumn)
	}
	required = append(required, s.Numeric...)
	if err := raw.Require(required...); err != nil {
		return nil, nil, err
	}

	known := opts.KnownOutcomes
	if known == nil {
		known = DefaultKnownOutcomes
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}

	idCol := raw.Column(s.IDColumn)
	patientCol := raw.Column(s.PatientColumn)
	outcomeCol := raw.Column(opts.OutcomeColumn)
	catCols := make([]int, len(s.Categorical))
	for j, c := range s.Categorical {
		catCols[j] = raw.Column(c)
	}
	numCols := make([]int, len(s.Numeric))
	for j, c := range s.Numeric {
		numCols[j] = raw.Column(c)
	}

	report := &PrepareReport{
		InputRows:        raw.Len(),
		MissingByColumn:  make(map[string]int),
		CoercionFailures: make(map[string]int),
	}
	isMissing := func(v string) bool {
		v = strings.TrimSpace(v)
		return v == "" || v == opts.MissingSentinel
	}

	table := &Table{Schema: s}
	for _, rec := range raw.Rows {
		outcome := strings.TrimSpace(rec[outcomeCol])
		target := 0
		if outcome == opts.PositiveOutcome {
			target = 1
		}
		if _, ok := knownSet[outcome]; !ok {
			report.UnknownOutcomes++
		}
		report.InputPositives += target

		complete := true

		id := strings.TrimSpace(rec[idCol])
		if isMissing(id) {
			report.MissingByColumn[s.IDColumn]++
			complete = false
		}
		patient := ""
		if patientCol >= 0 {
			patient = strings.TrimSpace(rec[patientCol])
			if isMissing(patient) {
				report.MissingByColumn[s.PatientColumn]++
				complete = false
			}
		}

		cats := make([]string, len(catCols))
		for j, c := range catCols {
			v := strings.TrimSpace(rec[c])
			if isMissing(v) {
				report.MissingByColumn[s.Categorical[j]]++
				complete = false
			}
			cats[j] = v
		}

		nums := make([]float64, len(numCols))
		for j, c := range numCols {
			v := strings.TrimSpace(rec[c])
			if isMissing(v) {
				report.MissingByColumn[s.Numeric[j]]++
				complete = false
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				report.CoercionFailures[s.Numeric[j]]++
				report.MissingByColumn[s.Numeric[j]]++
				complete = false
				continue
			}
			nums[j] = f
		}

		if !complete {
			report.DroppedRows++
			continue
		}

		table.Rows = append(table.Rows, entities.Encounter{
			EncounterID:   id,
			PatientNbr:    patient,
			Categories:    cats,
			Numerics:      nums,
			Readmitted30d: target,
		})
	}

	report.PreparedRows = table.Len()
	report.Positives = table.Positives()
	report.UniquePatients = table.UniquePatients()

	return table, report, nil
}
