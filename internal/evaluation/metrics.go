package evaluation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// AUC computes the area under the ROC curve of probs against the binary
// labels. Tied scores contribute half a concordant pair. The result is
// undefined (ErrUndefinedAUC) when either class is absent.
func AUC(labels []int, probs []float64) (Ratio, error) {
	if err := checkAligned(labels, probs); err != nil {
		return Ratio{}, err
	}

	y := make([]float64, len(probs))
	classes := make([]bool, len(labels))
	var positives int
	for i := range labels {
		y[i] = probs[i]
		classes[i] = labels[i] == 1
		positives += labels[i]
	}
	if positives == 0 || positives == len(labels) {
		return UndefinedRatio(ErrUndefinedAUC), nil
	}

	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return DefinedRatio(integrate.Trapezoidal(fpr, tpr)), nil
}

// NewConfusionMatrix tallies predictions against labels.
func NewConfusionMatrix(labels, preds []int) (ConfusionMatrix, error) {
	if len(labels) != len(preds) {
		return ConfusionMatrix{}, apperrors.NewUsageError(fmt.Sprintf("%d labels but %d predictions", len(labels), len(preds)))
	}
	var cm ConfusionMatrix
	for i := range labels {
		switch {
		case labels[i] == 1 && preds[i] == 1:
			cm.TP++
		case labels[i] == 1 && preds[i] == 0:
			cm.FN++
		case labels[i] == 0 && preds[i] == 1:
			cm.FP++
		case labels[i] == 0 && preds[i] == 0:
			cm.TN++
		default:
			return ConfusionMatrix{}, apperrors.NewUsageError(fmt.Sprintf("row %d is not binary: label %d, prediction %d", i, labels[i], preds[i]))
		}
	}
	return cm, nil
}

// Total is the number of tallied records.
func (c ConfusionMatrix) Total() int {
	return c.TN + c.FP + c.FN + c.TP
}

// Matrix returns [[TN FP] [FN TP]].
func (c ConfusionMatrix) Matrix() [2][2]int {
	return [2][2]int{{c.TN, c.FP}, {c.FN, c.TP}}
}

// NewClassificationReport derives per-class precision, recall, F1 and
// support plus accuracy and macro/weighted averages. Any zero denominator
// leaves the affected figure undefined.
func NewClassificationReport(c ConfusionMatrix) ClassificationReport {
	// The negative class is scored by swapping the roles of the two classes.
	neg := classMetrics(c.TN, c.FN, c.FP)
	pos := classMetrics(c.TP, c.FP, c.FN)
	total := c.Total()

	return ClassificationReport{
		Negative:    neg,
		Positive:    pos,
		Accuracy:    Fraction(c.TP+c.TN, total, ErrZeroDenominator),
		MacroAvg:    average(neg, pos, 1, 1, total),
		WeightedAvg: average(neg, pos, float64(neg.Support), float64(pos.Support), total),
	}
}

func classMetrics(tp, fp, fn int) ClassMetrics {
	return ClassMetrics{
		Precision: Fraction(tp, tp+fp, ErrZeroDenominator),
		Recall:    Fraction(tp, tp+fn, ErrZeroDenominator),
		F1:        Fraction(2*tp, 2*tp+fp+fn, ErrZeroDenominator),
		Support:   tp + fn,
	}
}

func average(a, b ClassMetrics, wa, wb float64, support int) ClassMetrics {
	mean := func(x, y Ratio) Ratio {
		xv, xok := x.Value()
		yv, yok := y.Value()
		if !xok || !yok || wa+wb == 0 {
			return UndefinedRatio(ErrZeroDenominator)
		}
		return DefinedRatio((wa*xv + wb*yv) / (wa + wb))
	}
	return ClassMetrics{
		Precision: mean(a.Precision, b.Precision),
		Recall:    mean(a.Recall, b.Recall),
		F1:        mean(a.F1, b.F1),
		Support:   support,
	}
}

func checkAligned(labels []int, probs []float64) error {
	if len(labels) != len(probs) {
		return apperrors.NewUsageError(fmt.Sprintf("%d labels but %d probabilities", len(labels), len(probs)))
	}
	for i := range labels {
		if labels[i] != 0 && labels[i] != 1 {
			return apperrors.NewUsageError(fmt.Sprintf("label vector is not binary: row %d has %d", i, labels[i]))
		}
		if p := probs[i]; math.IsNaN(p) || p < 0 || p > 1 {
			return apperrors.NewValidationError(fmt.Sprintf("probability %v at row %d is outside [0,1]", p, i))
		}
	}
	return nil
}
