package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/report"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score encounters and assign Low/Medium/High risk tiers",
	Long: "score fits the model and writes the scored table. With model.scope=holdout\n" +
		"only the held-out rows are scored; in_sample scores every row with a model\n" +
		"fitted on those same rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		svc := newService()

		table, err := dataset.ReadPreparedFile(pathOr(input, app.cfg.Data.PreparedPath), svc.Schema())
		if err != nil {
			return err
		}
		res, err := svc.Score(cmd.Context(), table)
		if err != nil {
			return err
		}
		if err := dataset.WriteFileAtomic(pathOr(output, app.cfg.Data.ScoredPath), func(w io.Writer) error {
			return dataset.WriteScored(w, svc.Schema(), res.Rows)
		}); err != nil {
			return err
		}

		return printSummary(cmd, &report.Summary{
			Scope:       res.Scope,
			GeneratedAt: now(),
			Holdout:     res.Holdout,
			Scoring:     res.Scoring,
		})
	},
}

func init() {
	scoreCmd.Flags().String("input", "", "Prepared CSV (defaults to data.prepared_path)")
	scoreCmd.Flags().String("output", "", "Scored CSV to write (defaults to data.scored_path)")
	addModelFlags(scoreCmd, true)
}
