package dataset

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

func preparedFixture(t *testing.T) *Table {
	t.Helper()
	raw, err := ReadRaw(strings.NewReader(rawCSV))
	require.NoError(t, err)
	table, _, err := Prepare(raw, testOptions())
	require.NoError(t, err)
	return table
}

func TestWritePrepared_ReadBack(t *testing.T) {
	table := preparedFixture(t)

	var buf bytes.Buffer
	require.NoError(t, WritePrepared(&buf, table))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "encounter_id,patient_nbr,race,gender,age,insulin,diabetesMed,time_in_hospital,num_lab_procedures,readmitted_30d_flag", lines[0])
	assert.Equal(t, "4,100,Caucasian,Female,[70-80),Down,Yes,7,12,1", lines[2])

	back, err := ReadPrepared(&buf, testSchema())
	require.NoError(t, err)
	assert.Equal(t, table.Rows, back.Rows)
}

func TestReadPrepared_Strict(t *testing.T) {
	header := "encounter_id,patient_nbr,race,gender,age,insulin,diabetesMed,time_in_hospital,num_lab_procedures,readmitted_30d_flag\n"

	_, err := ReadPrepared(strings.NewReader(header+"1,2,A,F,[0-10),No,No,x,1,0\n"), testSchema())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInput))

	_, err = ReadPrepared(strings.NewReader(header+"1,2,A,F,[0-10),No,No,1,1,2\n"), testSchema())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInput))

	_, err = ReadPrepared(strings.NewReader("encounter_id,race\n1,A\n"), testSchema())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInput))
}

func TestReadPrepared_MatchesColumnsByName(t *testing.T) {
	grouped := "encounter_id,patient_nbr,race,gender,age,insulin,diabetesMed,time_in_hospital,num_lab_procedures,readmitted_30d_flag\n" +
		"7,70,Asian,Male,[50-60),Up,Yes,3,41,1\n"
	original := "encounter_id,patient_nbr,race,gender,age,time_in_hospital,num_lab_procedures,insulin,diabetesMed,readmitted_30d_flag\n" +
		"7,70,Asian,Male,[50-60),3,41,Up,Yes,1\n"

	a, err := ReadPrepared(strings.NewReader(grouped), testSchema())
	require.NoError(t, err)
	b, err := ReadPrepared(strings.NewReader(original), testSchema())
	require.NoError(t, err)
	assert.Equal(t, a.Rows, b.Rows)
	assert.Equal(t, []string{"Asian", "Male", "[50-60)", "Up", "Yes"}, b.Rows[0].Categories)
	assert.Equal(t, []float64{3, 41}, b.Rows[0].Numerics)
}

func TestWriteScored_ReadBack(t *testing.T) {
	table := preparedFixture(t)
	scored := []entities.ScoredEncounter{
		{Encounter: table.Rows[0], Probability: 0.125, Tier: entities.RiskTierLow},
		{Encounter: table.Rows[1], Probability: 0.75, Tier: entities.RiskTierHigh},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteScored(&buf, table.Schema, scored))
	assert.True(t, strings.HasPrefix(buf.String(), "encounter_id,"))
	assert.Contains(t, buf.String(), ",predicted_probability,risk_tier\n")

	back, err := ReadScored(&buf, table.Schema)
	require.NoError(t, err)
	assert.Equal(t, scored, back)
}

func TestReadScored_RejectsBadTierAndProbability(t *testing.T) {
	header := "encounter_id,patient_nbr,race,gender,age,insulin,diabetesMed,time_in_hospital,num_lab_procedures,readmitted_30d_flag,predicted_probability,risk_tier\n"

	_, err := ReadScored(strings.NewReader(header+"1,2,A,F,[0-10),No,No,1,1,0,1.5,Low\n"), testSchema())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInput))

	_, err = ReadScored(strings.NewReader(header+"1,2,A,F,[0-10),No,No,1,1,0,0.5,Severe\n"), testSchema())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInput))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processed", "features.csv")

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("ok\n"))
		return err
	})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(data))

	failed := filepath.Join(dir, "processed", "scored.csv")
	err = WriteFileAtomic(failed, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("boom")
	})
	require.Error(t, err)
	_, statErr := os.Stat(failed)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(filepath.Join(dir, "processed"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
