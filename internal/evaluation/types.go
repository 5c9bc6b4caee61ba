package evaluation

import (
	"bytes"
	"encoding/json"
	"strconv"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

var (
	// ErrNoPositives marks a capture rate over a population with no positive records.
	ErrNoPositives = apperrors.NewUndefinedError("no positive records, capture rate is undefined")

	// ErrEmptyReviewGroup marks a within-group rate over an empty review group.
	ErrEmptyReviewGroup = apperrors.NewUndefinedError("review group is empty, within-group rate is undefined")

	// ErrUndefinedAUC marks an AUC over labels missing one of the two classes.
	ErrUndefinedAUC = apperrors.NewUndefinedError("AUC needs both classes present")

	// ErrZeroDenominator marks any other ratio whose denominator is zero.
	ErrZeroDenominator = apperrors.NewUndefinedError("zero denominator")
)

// Ratio is a statistic that may be undefined. An undefined Ratio is never
// reported as 0: it prints as "undefined" and marshals to JSON null.
type Ratio struct {
	value   float64
	defined bool
	reason  error
}

// DefinedRatio wraps a computed value.
func DefinedRatio(v float64) Ratio {
	return Ratio{value: v, defined: true}
}

// UndefinedRatio records why a value could not be computed.
func UndefinedRatio(reason error) Ratio {
	return Ratio{reason: reason}
}

// Fraction returns num/den, or an undefined Ratio carrying reason when den is 0.
func Fraction(num, den int, reason error) Ratio {
	if den == 0 {
		return UndefinedRatio(reason)
	}
	return DefinedRatio(float64(num) / float64(den))
}

// Value returns the value and whether it is defined.
func (r Ratio) Value() (float64, bool) {
	return r.value, r.defined
}

// Defined reports whether the ratio has a value.
func (r Ratio) Defined() bool {
	return r.defined
}

// Err returns the reason an undefined ratio has no value, nil otherwise.
func (r Ratio) Err() error {
	if r.defined {
		return nil
	}
	if r.reason == nil {
		return ErrZeroDenominator
	}
	return r.reason
}

// Format renders the value with the given number of decimals.
func (r Ratio) Format(decimals int) string {
	if !r.defined {
		return "undefined"
	}
	return strconv.FormatFloat(r.value, 'f', decimals, 64)
}

// String renders the value with four decimals.
func (r Ratio) String() string {
	return r.Format(4)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = UndefinedRatio(nil)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = DefinedRatio(v)
	return nil
}

// ConfusionMatrix counts thresholded predictions against labels, laid out
// as [[TN FP] [FN TP]].
type ConfusionMatrix struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

// ClassMetrics holds precision, recall and F1 for one class, or the
// average over classes.
type ClassMetrics struct {
	Precision Ratio `json:"precision"`
	Recall    Ratio `json:"recall"`
	F1        Ratio `json:"f1"`
	Support   int   `json:"support"`
}

// ClassificationReport summarises a confusion matrix per class.
type ClassificationReport struct {
	Negative    ClassMetrics `json:"negative"`
	Positive    ClassMetrics `json:"positive"`
	Accuracy    Ratio        `json:"accuracy"`
	MacroAvg    ClassMetrics `json:"macro_avg"`
	WeightedAvg ClassMetrics `json:"weighted_avg"`
}

// CaptureResult is the capture-rate outcome for one review fraction.
type CaptureResult struct {
	Fraction          float64 `json:"fraction"`
	Reviewed          int     `json:"reviewed"`
	PositivesCaptured int     `json:"positives_captured"`
	TotalRecords      int     `json:"total_records"`
	TotalPositives    int     `json:"total_positives"`
	CaptureRate       Ratio   `json:"capture_rate"`
	WithinGroupRate   Ratio   `json:"within_group_rate"`
}

// HoldoutSummary holds the held-out evaluation of a pipeline fitted on the
// stratified training split.
type HoldoutSummary struct {
	Seed           uint64               `json:"seed"`
	TestFraction   float64              `json:"test_fraction"`
	Threshold      float64              `json:"threshold"`
	TrainRows      int                  `json:"train_rows"`
	TestRows       int                  `json:"test_rows"`
	TrainPositives int                  `json:"train_positives"`
	TestPositives  int                  `json:"test_positives"`
	BaseRate       Ratio                `json:"base_rate"` // over every evaluated row, not just the held-out split
	AUC            Ratio                `json:"auc"`
	Confusion      ConfusionMatrix      `json:"confusion_matrix"`
	Report         ClassificationReport `json:"classification_report"`

	// TrainIndex and TestIndex are row positions in the evaluated table;
	// TestProbabilities is aligned with TestIndex.
	TrainIndex        []int     `json:"-"`
	TestIndex         []int     `json:"-"`
	TestProbabilities []float64 `json:"-"`
}
