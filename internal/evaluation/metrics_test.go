package evaluation

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

const floatTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func mustValue(t *testing.T, r Ratio) float64 {
	t.Helper()
	v, ok := r.Value()
	if !ok {
		t.Fatalf("expected a defined ratio, got undefined (%v)", r.Err())
	}
	return v
}

// --- AUC tests ---

func TestAUC_KnownExample(t *testing.T) {
	got, err := AUC([]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := mustValue(t, got); !almostEqual(v, 0.75) {
		t.Errorf("expected 0.75, got %f", v)
	}
}

func TestAUC_PerfectAndInvertedRanking(t *testing.T) {
	labels := []int{1, 1, 0, 0}

	perfect, err := AUC(labels, []float64{0.9, 0.8, 0.2, 0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := mustValue(t, perfect); !almostEqual(v, 1.0) {
		t.Errorf("expected 1.0, got %f", v)
	}

	inverted, err := AUC(labels, []float64{0.1, 0.2, 0.8, 0.9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := mustValue(t, inverted); !almostEqual(v, 0.0) {
		t.Errorf("expected 0.0, got %f", v)
	}
}

func TestAUC_AllTiedScores(t *testing.T) {
	got, err := AUC([]int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// ties count as half a concordant pair
	if v := mustValue(t, got); !almostEqual(v, 0.5) {
		t.Errorf("expected 0.5, got %f", v)
	}
}

func TestAUC_DoesNotReorderInput(t *testing.T) {
	probs := []float64{0.9, 0.1, 0.5}
	if _, err := AUC([]int{1, 0, 1}, probs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probs[0] != 0.9 || probs[1] != 0.1 || probs[2] != 0.5 {
		t.Errorf("input probabilities were modified: %v", probs)
	}
}

func TestAUC_SingleClassIsUndefined(t *testing.T) {
	got, err := AUC([]int{0, 0, 0}, []float64{0.2, 0.4, 0.6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Defined() {
		t.Fatalf("expected undefined AUC, got %s", got)
	}
	if !errors.Is(got.Err(), ErrUndefinedAUC) {
		t.Errorf("expected ErrUndefinedAUC, got %v", got.Err())
	}
}

func TestAUC_InvalidInput(t *testing.T) {
	_, err := AUC([]int{0, 1}, []float64{0.2})
	if !apperrors.IsType(err, apperrors.ErrorTypeUsage) {
		t.Errorf("expected usage error for length mismatch, got %v", err)
	}

	_, err = AUC([]int{0, 1}, []float64{0.2, 1.5})
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("expected validation error for out-of-range probability, got %v", err)
	}

	_, err = AUC([]int{0, 1}, []float64{0.2, math.NaN()})
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("expected validation error for NaN probability, got %v", err)
	}
}

// --- Confusion matrix and classification report tests ---

func TestNewConfusionMatrix(t *testing.T) {
	cm, err := NewConfusionMatrix([]int{0, 0, 1, 1, 1, 0}, []int{0, 1, 1, 0, 1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [2][2]int{{2, 1}, {1, 2}}
	if cm.Matrix() != want {
		t.Errorf("expected %v, got %v", want, cm.Matrix())
	}
	if cm.Total() != 6 {
		t.Errorf("expected total 6, got %d", cm.Total())
	}

	if _, err := NewConfusionMatrix([]int{0}, []int{0, 1}); !apperrors.IsType(err, apperrors.ErrorTypeUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
	if _, err := NewConfusionMatrix([]int{2}, []int{0}); !apperrors.IsType(err, apperrors.ErrorTypeUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestNewClassificationReport(t *testing.T) {
	r := NewClassificationReport(ConfusionMatrix{TN: 50, FP: 10, FN: 5, TP: 35})

	checks := []struct {
		name string
		got  Ratio
		want float64
	}{
		{"positive precision", r.Positive.Precision, 35.0 / 45.0},
		{"positive recall", r.Positive.Recall, 35.0 / 40.0},
		{"positive f1", r.Positive.F1, 70.0 / 85.0},
		{"negative precision", r.Negative.Precision, 50.0 / 55.0},
		{"negative recall", r.Negative.Recall, 50.0 / 60.0},
		{"negative f1", r.Negative.F1, 100.0 / 115.0},
		{"accuracy", r.Accuracy, 0.85},
		{"macro recall", r.MacroAvg.Recall, (50.0/60.0 + 35.0/40.0) / 2},
		{"weighted recall", r.WeightedAvg.Recall, 0.85},
		{"weighted precision", r.WeightedAvg.Precision, (60*(50.0/55.0) + 40*(35.0/45.0)) / 100},
	}
	for _, c := range checks {
		if v := mustValue(t, c.got); !almostEqual(v, c.want) {
			t.Errorf("%s: expected %f, got %f", c.name, c.want, v)
		}
	}

	if r.Positive.Support != 40 || r.Negative.Support != 60 || r.MacroAvg.Support != 100 {
		t.Errorf("unexpected supports: %d/%d/%d", r.Negative.Support, r.Positive.Support, r.MacroAvg.Support)
	}
}

func TestNewClassificationReport_NoPredictedPositives(t *testing.T) {
	r := NewClassificationReport(ConfusionMatrix{TN: 90, FN: 10})

	if r.Positive.Precision.Defined() {
		t.Errorf("expected undefined positive precision, got %s", r.Positive.Precision)
	}
	if v := mustValue(t, r.Positive.Recall); !almostEqual(v, 0) {
		t.Errorf("expected positive recall 0, got %f", v)
	}
	if v := mustValue(t, r.Positive.F1); !almostEqual(v, 0) {
		t.Errorf("expected positive f1 0, got %f", v)
	}
	if r.MacroAvg.Precision.Defined() {
		t.Errorf("expected undefined macro precision, got %s", r.MacroAvg.Precision)
	}
}

// --- Ratio tests ---

func TestRatio_UndefinedIsNotZero(t *testing.T) {
	u := Fraction(3, 0, ErrNoPositives)
	if u.Defined() {
		t.Fatal("expected undefined ratio")
	}
	if u.String() != "undefined" {
		t.Errorf("expected 'undefined', got %q", u.String())
	}
	if !errors.Is(u.Err(), ErrNoPositives) {
		t.Errorf("expected ErrNoPositives, got %v", u.Err())
	}

	out, err := json.Marshal(struct {
		A Ratio `json:"a"`
		B Ratio `json:"b"`
	}{A: u, B: Fraction(1, 4, nil)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"a":null,"b":0.25}` {
		t.Errorf("unexpected JSON %s", out)
	}

	var back struct {
		A Ratio `json:"a"`
		B Ratio `json:"b"`
	}
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.A.Defined() || mustValue(t, back.B) != 0.25 {
		t.Errorf("unexpected decode: %+v", back)
	}
	if Fraction(1, 4, nil).Err() != nil {
		t.Error("defined ratio must have no error")
	}
}
