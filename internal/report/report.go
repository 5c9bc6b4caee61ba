// Package report renders pipeline summaries as plain text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/evaluation"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/tiering"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/config"
)

// Summary is the document produced by a pipeline run. Sections that a
// command did not compute are nil and are left out of both renderings.
type Summary struct {
	RunID       string                     `json:"run_id,omitempty"`
	Scope       string                     `json:"scope,omitempty"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Preparation *dataset.PrepareReport     `json:"preparation,omitempty"`
	Holdout     *evaluation.HoldoutSummary `json:"holdout,omitempty"`
	Scoring     *Scoring                   `json:"scoring,omitempty"`
	Capture     []evaluation.CaptureResult `json:"capture,omitempty"`
}

// Scoring describes the population that was tiered.
type Scoring struct {
	Rows        int               `json:"rows"`
	Positives   int               `json:"positives"`
	BaseRate    evaluation.Ratio  `json:"base_rate"`
	AUC         evaluation.Ratio  `json:"auc"`
	LowUpper    float64           `json:"low_upper"`
	MediumUpper float64           `json:"medium_upper"`
	Tiers       []tiering.Summary `json:"tiers"`
}

// Optimistic reports whether the scores were produced by a model fitted
// on the same rows, which inflates tier and capture figures.
func (s *Summary) Optimistic() bool {
	return s.Scope == config.ScopeInSample
}

// WriteJSON writes s as indented JSON.
func WriteJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteText writes the human-readable report.
func WriteText(w io.Writer, s *Summary) error {
	p := &printer{w: w}

	p.line("Readmission risk report")
	if s.RunID != "" {
		p.line("run:   %s", s.RunID)
	}
	if s.Scope != "" {
		p.line("scope: %s", s.Scope)
	}
	if s.Optimistic() {
		p.line("note:  scores are in-sample (model fitted on the scored rows); tier and capture figures are optimistic")
	}

	if s.Preparation != nil {
		writePreparation(p, s.Preparation)
	}
	if s.Holdout != nil {
		writeHoldout(p, s.Holdout)
	}
	if s.Scoring != nil {
		writeScoring(p, s.Scoring)
	}
	if s.Capture != nil {
		writeCapture(p, s.Capture)
	}
	return p.err
}

func writePreparation(p *printer, r *dataset.PrepareReport) {
	p.section("Preparation")
	tw := p.table()
	p.row(tw, "rows before cleaning", count(r.InputRows))
	p.row(tw, "rows after cleaning", count(r.PreparedRows))
	p.row(tw, "dropped rows", count(r.DroppedRows))
	p.row(tw, "unique patients", count(r.UniquePatients))
	p.row(tw, "readmission rate before cleaning", rate(r.InputPositives, r.InputRows))
	p.row(tw, "readmission rate after cleaning", rate(r.Positives, r.PreparedRows))
	if r.UnknownOutcomes > 0 {
		p.row(tw, "unrecognised outcomes (counted as not readmitted)", count(r.UnknownOutcomes))
	}
	p.flush(tw)

	writeColumnCounts(p, "missing values by column", r.MissingByColumn)
	writeColumnCounts(p, "unparseable numeric values by column", r.CoercionFailures)
}

func writeColumnCounts(p *printer, title string, counts map[string]int) {
	cols := make([]string, 0, len(counts))
	for c, n := range counts {
		if n > 0 {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return
	}
	sort.Strings(cols)

	p.line("")
	p.line("%s:", title)
	tw := p.table()
	for _, c := range cols {
		p.row(tw, "  "+c, count(counts[c]))
	}
	p.flush(tw)
}

func writeHoldout(p *printer, h *evaluation.HoldoutSummary) {
	p.section("Held-out evaluation")
	tw := p.table()
	p.row(tw, "training rows", fmt.Sprintf("%s (%s readmitted)", count(h.TrainRows), count(h.TrainPositives)))
	p.row(tw, "held-out rows", fmt.Sprintf("%s (%s readmitted)", count(h.TestRows), count(h.TestPositives)))
	p.row(tw, "split", fmt.Sprintf("stratified, test fraction %s, seed %d", strconv.FormatFloat(h.TestFraction, 'f', -1, 64), h.Seed))
	p.row(tw, "base readmission rate (all rows)", h.BaseRate.String())
	p.row(tw, "ROC AUC", h.AUC.String())
	p.row(tw, "decision threshold", strconv.FormatFloat(h.Threshold, 'f', -1, 64))
	p.flush(tw)

	p.line("")
	p.line("confusion matrix (rows actual, columns predicted):")
	tw = p.table()
	p.row(tw, "", "0", "1")
	p.row(tw, "0", count(h.Confusion.TN), count(h.Confusion.FP))
	p.row(tw, "1", count(h.Confusion.FN), count(h.Confusion.TP))
	p.flush(tw)

	p.line("")
	p.line("classification report:")
	r := h.Report
	tw = p.table()
	p.row(tw, "", "precision", "recall", "f1-score", "support")
	classRow := func(name string, m evaluation.ClassMetrics) {
		p.row(tw, name, m.Precision.String(), m.Recall.String(), m.F1.String(), count(m.Support))
	}
	classRow("0", r.Negative)
	classRow("1", r.Positive)
	p.row(tw, "accuracy", "", "", r.Accuracy.String(), count(r.MacroAvg.Support))
	classRow("macro avg", r.MacroAvg)
	classRow("weighted avg", r.WeightedAvg)
	p.flush(tw)
}

func writeScoring(p *printer, s *Scoring) {
	p.section("Risk tiers")
	tw := p.table()
	p.row(tw, "scored rows", count(s.Rows))
	p.row(tw, "readmission rate", s.BaseRate.String())
	p.row(tw, "ROC AUC", s.AUC.String())
	p.row(tw, "tier cut points", fmt.Sprintf("Low <= %.4f < Medium <= %.4f < High", s.LowUpper, s.MediumUpper))
	p.flush(tw)

	p.line("")
	tw = p.table()
	p.row(tw, "tier", "count", "share", "readmitted", "rate", "mean p", "min p", "max p")
	for _, t := range s.Tiers {
		p.row(tw, string(t.Tier), count(t.Count), rate(t.Count, s.Rows), count(t.Positives),
			optional(t.PositiveRate), optional(t.MeanProbability), optional(t.MinProbability), optional(t.MaxProbability))
	}
	p.flush(tw)
}

func writeCapture(p *printer, results []evaluation.CaptureResult) {
	p.section("Capture rate")
	if len(results) == 0 {
		p.line("no review fractions requested")
		return
	}
	tw := p.table()
	p.row(tw, "total patients", count(results[0].TotalRecords))
	p.row(tw, "total readmissions", count(results[0].TotalPositives))
	p.flush(tw)

	p.line("")
	tw = p.table()
	p.row(tw, "top", "reviewed", "readmissions caught", "capture rate", "readmission rate in group")
	for _, r := range results {
		p.row(tw, fmt.Sprintf("%.4g%%", r.Fraction*100), count(r.Reviewed), count(r.PositivesCaptured),
			r.CaptureRate.String(), r.WithinGroupRate.String())
	}
	p.flush(tw)
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func rate(num, den int) string {
	return evaluation.Fraction(num, den, evaluation.ErrZeroDenominator).String()
}

func optional(v *float64) string {
	if v == nil {
		return "undefined"
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

// printer keeps the first write error so rendering code can stay linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) section(title string) {
	p.line("")
	p.line("== %s ==", title)
}

func (p *printer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
}

func (p *printer) row(tw *tabwriter.Writer, cells ...string) {
	if p.err != nil {
		return
	}
	for i, c := range cells {
		if i > 0 {
			if _, p.err = io.WriteString(tw, "\t"); p.err != nil {
				return
			}
		}
		if _, p.err = io.WriteString(tw, c); p.err != nil {
			return
		}
	}
	_, p.err = io.WriteString(tw, "\n")
}

func (p *printer) flush(tw *tabwriter.Writer) {
	if p.err != nil {
		return
	}
	p.err = tw.Flush()
}
