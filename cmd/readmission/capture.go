package main

import (
	"github.com/spf13/cobra"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/report"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Report the share of readmissions caught by reviewing the top-risk fraction",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		svc := newService()

		rows, err := dataset.ReadScoredFile(pathOr(input, app.cfg.Data.ScoredPath), svc.Schema())
		if err != nil {
			return err
		}
		results, err := svc.Capture(cmd.Context(), rows, svc.Fractions())
		if err != nil {
			return err
		}

		return printSummary(cmd, &report.Summary{GeneratedAt: now(), Capture: results})
	},
}

func init() {
	captureCmd.Flags().String("input", "", "Scored CSV (defaults to data.scored_path)")
	addFractionsFlag(captureCmd)
}
