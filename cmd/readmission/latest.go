package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/report"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

var latestCmd = &cobra.Command{
	Use:   "latest [run-id]",
	Short: "Show the latest stored run, or the run with the given id",
	Long: "latest reads the run summary from the Redis cache when redis.enabled is\n" +
		"set and falls back to the Postgres run store for the latest run.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := app.cfg
		if !cfg.Redis.Enabled && !cfg.Database.Enabled {
			return apperrors.NewValidationError("enable redis or database to read stored runs")
		}

		s, err := openSinks(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := s.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close sinks")
			}
		}()

		var payload []byte
		if s.summaries != nil {
			if len(args) == 1 {
				cached, err := s.summaries.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if cached != nil {
					payload = cached.Payload
				}
			} else {
				cached, err := s.summaries.Latest(ctx)
				if err != nil {
					return err
				}
				if cached != nil {
					payload = cached.Payload
				}
			}
		}
		if payload == nil && s.runs != nil && len(args) == 0 {
			run, err := s.runs.LatestRun(ctx)
			if err != nil {
				return err
			}
			if run != nil {
				payload = run.Summary
			}
		}
		if payload == nil {
			if len(args) == 1 {
				return apperrors.NewInputError(fmt.Sprintf("run %s not found", args[0]), nil)
			}
			return apperrors.NewInputError("no stored runs", nil)
		}

		if jsonOut {
			var buf bytes.Buffer
			if err := json.Indent(&buf, payload, "", "  "); err != nil {
				return apperrors.NewInternalError("stored run summary is not valid JSON", err)
			}
			buf.WriteByte('\n')
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}

		var summary report.Summary
		if err := json.Unmarshal(payload, &summary); err != nil {
			return apperrors.NewInternalError("stored run summary is not valid JSON", err)
		}
		return report.WriteText(cmd.OutOrStdout(), &summary)
	},
}
