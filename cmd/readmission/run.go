package main

import (
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/application/services"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/dataset"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage end to end and publish the run",
	Long: "run prepares the raw file, scores it according to model.scope, computes\n" +
		"capture rates and writes the prepared and scored tables. When\n" +
		"database.enabled or redis.enabled is set the run is also stored.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		input, _ := flags.GetString("input")
		preparedOut, _ := flags.GetString("prepared-output")
		scoredOut, _ := flags.GetString("scored-output")
		noPublish, _ := flags.GetBool("no-publish")
		cfg := app.cfg

		raw, err := dataset.ReadRawFile(pathOr(input, cfg.Data.RawPath))
		if err != nil {
			return err
		}

		var opts []services.Option
		if !noPublish {
			s, err := openSinks(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := s.Close(); err != nil {
					log.Warn().Err(err).Msg("failed to close sinks")
				}
			}()
			opts = append(opts, services.WithRunRepository(s.runs), services.WithSummaryStore(s.summaries))
		}
		svc := newService(opts...)

		res, err := svc.Run(ctx, raw)
		if err != nil {
			return err
		}

		if err := dataset.WriteFileAtomic(pathOr(preparedOut, cfg.Data.PreparedPath), func(w io.Writer) error {
			return dataset.WritePrepared(w, res.Prepared)
		}); err != nil {
			return err
		}
		if err := dataset.WriteFileAtomic(pathOr(scoredOut, cfg.Data.ScoredPath), func(w io.Writer) error {
			return dataset.WriteScored(w, svc.Schema(), res.Scored)
		}); err != nil {
			return err
		}

		if err := printSummary(cmd, res.Summary); err != nil {
			return err
		}
		return svc.Publish(ctx, res)
	},
}

func init() {
	runCmd.Flags().String("input", "", "Raw encounter CSV (defaults to data.raw_path)")
	runCmd.Flags().String("prepared-output", "", "Prepared CSV to write (defaults to data.prepared_path)")
	runCmd.Flags().String("scored-output", "", "Scored CSV to write (defaults to data.scored_path)")
	runCmd.Flags().Bool("no-publish", false, "Skip the database and cache sinks even when enabled")
	addModelFlags(runCmd, true)
	addFractionsFlag(runCmd)
}
