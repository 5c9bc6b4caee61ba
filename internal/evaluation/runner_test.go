package evaluation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/entities"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/model"
)

// insulinTable has 200 rows and 60 positives, 50 of them on insulin "Up".
func insulinTable() *dataset.Table {
	t := &dataset.Table{Schema: entities.Schema{
		IDColumn:     "encounter_id",
		TargetColumn: "readmitted_30d_flag",
		Categorical:  []string{"insulin"},
		Numeric:      []string{"number_inpatient"},
	}}
	for i := 0; i < 200; i++ {
		insulin, label := "No", 0
		if i%2 == 0 {
			insulin = "Up"
			if i%4 == 0 {
				label = 1
			}
		} else if i%20 == 1 {
			label = 1
		}
		t.Rows = append(t.Rows, entities.Encounter{
			EncounterID:   fmt.Sprint(i),
			Categories:    []string{insulin},
			Numerics:      []float64{float64(i % 3)},
			Readmitted30d: label,
		})
	}
	return t
}

func TestRunner_Run(t *testing.T) {
	table := insulinTable()
	runner := NewRunner(model.NewLogisticRegression(1, 1000), 0.5, 0.2, 42)

	summary, pipeline, err := runner.Run(context.Background(), table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pipeline == nil {
		t.Fatal("expected a fitted pipeline")
	}

	if summary.TestRows != 40 || summary.TrainRows != 160 {
		t.Errorf("expected 160/40 split, got %d/%d", summary.TrainRows, summary.TestRows)
	}
	if summary.TestPositives != 12 || summary.TrainPositives != 48 {
		t.Errorf("expected 48/12 positives, got %d/%d", summary.TrainPositives, summary.TestPositives)
	}
	if v := mustValue(t, summary.BaseRate); !almostEqual(v, float64(table.Positives())/float64(table.Len())) {
		t.Errorf("expected base rate over all %d rows, got %f", table.Len(), v)
	}
	if v := mustValue(t, summary.AUC); v <= 0.5 || v > 1 {
		t.Errorf("expected AUC above chance, got %f", v)
	}
	if summary.Confusion.Total() != summary.TestRows {
		t.Errorf("confusion matrix covers %d rows, expected %d", summary.Confusion.Total(), summary.TestRows)
	}
	if summary.Report.Negative.Support+summary.Report.Positive.Support != summary.TestRows {
		t.Errorf("report supports do not add up to %d", summary.TestRows)
	}
	if len(summary.TestProbabilities) != len(summary.TestIndex) {
		t.Errorf("probabilities not aligned with held-out rows")
	}
	if len(summary.TrainIndex)+len(summary.TestIndex) != table.Len() {
		t.Errorf("split does not cover the table")
	}
}

func TestRunner_Reproducible(t *testing.T) {
	table := insulinTable()

	a, _, err := NewRunner(model.NewLogisticRegression(1, 1000), 0.5, 0.2, 42).Run(context.Background(), table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _, err := NewRunner(model.NewLogisticRegression(1, 1000), 0.5, 0.2, 42).Run(context.Background(), table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AUC.String() != b.AUC.String() || a.Confusion != b.Confusion {
		t.Errorf("runs with the same seed differ: %s/%s %v/%v", a.AUC, b.AUC, a.Confusion, b.Confusion)
	}
}

func TestRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewRunner(model.NewLogisticRegression(1, 10), 0.5, 0.2, 42).Run(ctx, insulinTable())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunner_BaseRateCoversAllRows(t *testing.T) {
	// 7 positives and 3 negatives split 1+1 into the held-out set, so the
	// held-out rate (0.5) differs from the table rate (0.7).
	table := &dataset.Table{Schema: entities.Schema{
		IDColumn:     "encounter_id",
		TargetColumn: "readmitted_30d_flag",
		Categorical:  []string{"insulin"},
		Numeric:      []string{"number_inpatient"},
	}}
	for i := 0; i < 10; i++ {
		label := 0
		if i < 7 {
			label = 1
		}
		table.Rows = append(table.Rows, entities.Encounter{
			EncounterID:   fmt.Sprint(i),
			Categories:    []string{"No"},
			Numerics:      []float64{float64(i)},
			Readmitted30d: label,
		})
	}

	summary, _, err := NewRunner(model.NewLogisticRegression(1, 200), 0.5, 0.2, 42).Run(context.Background(), table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TestRows != 2 || summary.TestPositives != 1 {
		t.Fatalf("expected a 1+1 held-out split, got %d rows with %d positives", summary.TestRows, summary.TestPositives)
	}
	if v := mustValue(t, summary.BaseRate); !almostEqual(v, 0.7) {
		t.Errorf("expected base rate 0.7 over all rows, got %f", v)
	}
}
