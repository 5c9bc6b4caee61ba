package main

import (
	"github.com/spf13/cobra"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/report"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Fit on a stratified training split and report held-out metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		svc := newService()

		table, err := dataset.ReadPreparedFile(pathOr(input, app.cfg.Data.PreparedPath), svc.Schema())
		if err != nil {
			return err
		}
		summary, _, err := svc.Evaluate(cmd.Context(), table)
		if err != nil {
			return err
		}

		return printSummary(cmd, &report.Summary{GeneratedAt: now(), Holdout: summary})
	},
}

func init() {
	evaluateCmd.Flags().String("input", "", "Prepared CSV (defaults to data.prepared_path)")
	addModelFlags(evaluateCmd, false)
}
