package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/report"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Clean a raw encounter file into the prepared feature table",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		input = pathOr(input, app.cfg.Data.RawPath)
		output = pathOr(output, app.cfg.Data.PreparedPath)

		raw, err := dataset.ReadRawFile(input)
		if err != nil {
			return err
		}

		svc := newService()
		table, rep, err := svc.Prepare(cmd.Context(), raw)
		if err != nil {
			return err
		}
		if err := dataset.WriteFileAtomic(output, func(w io.Writer) error {
			return dataset.WritePrepared(w, table)
		}); err != nil {
			return err
		}

		return printSummary(cmd, &report.Summary{GeneratedAt: now(), Preparation: rep})
	},
}

func init() {
	prepareCmd.Flags().String("input", "", "Raw encounter CSV (defaults to data.raw_path)")
	prepareCmd.Flags().String("output", "", "Prepared CSV to write (defaults to data.prepared_path)")
}
