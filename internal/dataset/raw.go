package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// RawTable is a delimited file held as strings, keyed by header name.
type RawTable struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadRaw reads a CSV table with a header row. Ragged rows and duplicate
// header names are input errors.
func ReadRaw(r io.Reader) (*RawTable, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewInputError("input table is empty", nil)
	}
	if err != nil {
		return nil, apperrors.NewInputError("read header", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		if _, dup := index[h]; dup {
			return nil, apperrors.NewInputError(fmt.Sprintf("duplicate column %q", h), nil)
		}
		index[h] = i
	}

	var rows [][]string
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewInputError(fmt.Sprintf("line %d", line), err)
		}
		rows = append(rows, record)
	}

	return &RawTable{Header: header, Rows: rows, index: index}, nil
}

// ReadRawFile opens path and reads it with ReadRaw.
func ReadRawFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputError("open input table", err)
	}
	defer f.Close()
	return ReadRaw(f)
}

// Require checks that every named column is present.
func (t *RawTable) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewInputError(fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}

// Column returns the position of a header name, or -1.
func (t *RawTable) Column(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	return len(t.Rows)
}
