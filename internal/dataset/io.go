package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// Columns appended to the prepared table by the score stage.
const (
	ProbabilityColumn = "predicted_probability"
	TierColumn        = "risk_tier"
)

// WritePrepared writes the prepared table with numbers in parsed form.
func WritePrepared(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Schema.Columns()); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := cw.Write(encounterRecord(t.Schema, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScored writes the prepared columns followed by the probability and
// tier columns.
func WriteScored(w io.Writer, schema entities.Schema, rows []entities.ScoredEncounter) error {
	cw := csv.NewWriter(w)
	header := append(schema.Columns(), ProbabilityColumn, TierColumn)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := encounterRecord(schema, r.Encounter)
		rec = append(rec, formatFloat(r.Probability), string(r.Tier))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func encounterRecord(s entities.Schema, r entities.Encounter) []string {
	rec := make([]string, 0, 3+len(r.Categories)+len(r.Numerics))
	rec = append(rec, r.EncounterID)
	if s.PatientColumn != "" {
		rec = append(rec, r.PatientNbr)
	}
	rec = append(rec, r.Categories...)
	for _, v := range r.Numerics {
		rec = append(rec, formatFloat(v))
	}
	rec = append(rec, strconv.Itoa(r.Readmitted30d))
	return rec
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadPrepared reads a table written by WritePrepared. Unlike Prepare it is
// strict: any missing or malformed value is an input error.
func ReadPrepared(r io.Reader, schema entities.Schema) (*Table, error) {
	raw, err := ReadRaw(r)
	if err != nil {
		return nil, err
	}
	if err := raw.Require(schema.Columns()...); err != nil {
		return nil, err
	}

	table := &Table{Schema: schema, Rows: make([]entities.Encounter, 0, raw.Len())}
	for i, rec := range raw.Rows {
		enc, err := parseEncounter(raw, schema, rec)
		if err != nil {
			return nil, apperrors.NewInputError(fmt.Sprintf("prepared row %d", i+1), err)
		}
		table.Rows = append(table.Rows, enc)
	}
	return table, nil
}

// ReadPreparedFile opens path and reads it with ReadPrepared.
func ReadPreparedFile(path string, schema entities.Schema) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputError("open prepared table", err)
	}
	defer f.Close()
	return ReadPrepared(bufio.NewReader(f), schema)
}

// ReadScoredFile opens path and reads it with ReadScored.
func ReadScoredFile(path string, schema entities.Schema) ([]entities.ScoredEncounter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputError("open scored table", err)
	}
	defer f.Close()
	return ReadScored(bufio.NewReader(f), schema)
}

// ReadScored reads a table written by WriteScored.
func ReadScored(r io.Reader, schema entities.Schema) ([]entities.ScoredEncounter, error) {
	raw, err := ReadRaw(r)
	if err != nil {
		return nil, err
	}
	if err := raw.Require(append(schema.Columns(), ProbabilityColumn, TierColumn)...); err != nil {
		return nil, err
	}
	probCol := raw.Column(ProbabilityColumn)
	tierCol := raw.Column(TierColumn)

	out := make([]entities.ScoredEncounter, 0, raw.Len())
	for i, rec := range raw.Rows {
		enc, err := parseEncounter(raw, schema, rec)
		if err != nil {
			return nil, apperrors.NewInputError(fmt.Sprintf("scored row %d", i+1), err)
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(rec[probCol]), 64)
		if err != nil || math.IsNaN(p) || p < 0 || p > 1 {
			return nil, apperrors.NewInputError(fmt.Sprintf("scored row %d: probability %q not in [0,1]", i+1, rec[probCol]), nil)
		}
		tier := entities.RiskTier(strings.TrimSpace(rec[tierCol]))
		if !tier.IsValid() {
			return nil, apperrors.NewInputError(fmt.Sprintf("scored row %d: invalid tier %q", i+1, rec[tierCol]), nil)
		}
		out = append(out, entities.ScoredEncounter{Encounter: enc, Probability: p, Tier: tier})
	}
	return out, nil
}

func parseEncounter(raw *RawTable, s entities.Schema, rec []string) (entities.Encounter, error) {
	enc := entities.Encounter{
		EncounterID: strings.TrimSpace(rec[raw.Column(s.IDColumn)]),
		Categories:  make([]string, len(s.Categorical)),
		Numerics:    make([]float64, len(s.Numeric)),
	}
	if enc.EncounterID == "" {
		return enc, fmt.Errorf("empty %s", s.IDColumn)
	}
	if s.PatientColumn != "" {
		enc.PatientNbr = strings.TrimSpace(rec[raw.Column(s.PatientColumn)])
	}
	for j, c := range s.Categorical {
		v := strings.TrimSpace(rec[raw.Column(c)])
		if v == "" {
			return enc, fmt.Errorf("empty %s", c)
		}
		enc.Categories[j] = v
	}
	for j, c := range s.Numeric {
		v := strings.TrimSpace(rec[raw.Column(c)])
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return enc, fmt.Errorf("%s: %q is not a number", c, v)
		}
		enc.Numerics[j] = f
	}
	switch strings.TrimSpace(rec[raw.Column(s.TargetColumn)]) {
	case "0":
		enc.Readmitted30d = 0
	case "1":
		enc.Readmitted30d = 1
	default:
		return enc, fmt.Errorf("%s must be 0 or 1, got %q", s.TargetColumn, rec[raw.Column(s.TargetColumn)])
	}
	return enc, nil
}

// WriteFileAtomic writes path through a temporary file in the same
// directory and renames it into place, so a failed write never leaves a
// partial file behind.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
