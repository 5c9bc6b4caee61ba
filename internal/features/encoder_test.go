package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

func schema() entities.Schema {
	return entities.Schema{
		IDColumn:     "encounter_id",
		TargetColumn: "readmitted_30d_flag",
		Categorical:  []string{"race", "gender"},
		Numeric:      []string{"time_in_hospital", "num_medications"},
	}
}

func row(id, race, gender string, tih, meds float64) entities.Encounter {
	return entities.Encounter{
		EncounterID: id,
		Categories:  []string{race, gender},
		Numerics:    []float64{tih, meds},
	}
}

func trainTable() *dataset.Table {
	return &dataset.Table{Schema: schema(), Rows: []entities.Encounter{
		row("1", "Caucasian", "Female", 3, 10),
		row("2", "AfricanAmerican", "Male", 5, 12),
		row("3", "Caucasian", "Male", 1, 7),
	}}
}

func TestFit_VocabularyAndWidth(t *testing.T) {
	enc, err := Fit(trainTable())
	require.NoError(t, err)

	assert.Equal(t, 6, enc.Width())
	assert.Equal(t, []string{"AfricanAmerican", "Caucasian"}, enc.Categories("race"))
	assert.Equal(t, []string{
		"race_AfricanAmerican", "race_Caucasian",
		"gender_Female", "gender_Male",
		"time_in_hospital", "num_medications",
	}, enc.FeatureNames())
	assert.Nil(t, enc.Categories("age"))
}

func TestTransform_OneHotAndPassthrough(t *testing.T) {
	enc, err := Fit(trainTable())
	require.NoError(t, err)

	X, err := enc.Transform(trainTable())
	require.NoError(t, err)

	assert.Equal(t, [][]float64{
		{0, 1, 1, 0, 3, 10},
		{1, 0, 0, 1, 5, 12},
		{0, 1, 0, 1, 1, 7},
	}, X)
}

func TestTransform_Deterministic(t *testing.T) {
	table := trainTable()
	enc, err := Fit(table)
	require.NoError(t, err)

	first, err := enc.Transform(table)
	require.NoError(t, err)
	second, err := enc.Transform(table)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, r := range second {
		assert.Len(t, r, enc.Width())
	}
}

func TestTransform_UnseenCategoryIsZeroBlock(t *testing.T) {
	enc, err := Fit(trainTable())
	require.NoError(t, err)

	scoring := &dataset.Table{Schema: schema(), Rows: []entities.Encounter{
		row("9", "Asian", "Unknown/Invalid", 2, 4),
	}}
	X, err := enc.Transform(scoring)
	require.NoError(t, err)

	require.Len(t, X, 1)
	assert.Equal(t, []float64{0, 0, 0, 0, 2, 4}, X[0])
	assert.Len(t, X[0], enc.Width())
}

func TestTransform_BeforeFit(t *testing.T) {
	var enc Encoder
	_, err := enc.Transform(trainTable())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFitted))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUsage))

	var nilEnc *Encoder
	_, err = nilEnc.Transform(trainTable())
	assert.True(t, errors.Is(err, ErrNotFitted))
}

func TestTransform_SchemaMismatch(t *testing.T) {
	enc, err := Fit(trainTable())
	require.NoError(t, err)

	other := &dataset.Table{Schema: entities.Schema{Categorical: []string{"race"}}}
	_, err = enc.Transform(other)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUsage))
}

func TestFit_EmptyTable(t *testing.T) {
	_, err := Fit(&dataset.Table{Schema: schema()})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUsage))
}
