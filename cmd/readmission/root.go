package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/application/services"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/observability"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/report"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/config"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/secrets"
)

var (
	cfgPath  string
	jsonOut  bool
	logLevel string

	app *appState
)

// appState is built once per invocation by the root pre-run hook.
type appState struct {
	cfg      *config.Config
	metrics  *observability.Metrics
	shutdown func(context.Context) error
}

var rootCmd = &cobra.Command{
	Use:   "readmission",
	Short: "30-day readmission risk scoring pipeline",
	Long: "readmission prepares hospital encounter data, estimates the probability of a\n" +
		"readmission within 30 days, groups encounters into Low/Medium/High risk tiers\n" +
		"and reports how many readmissions a limited review capacity would catch.",
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to a config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides app.log_level)")

	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	vault, err := secrets.Apply(cmd.Context(), secrets.VaultSourceFromEnv())
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := observability.InitLogger(cfg.OTEL.ServiceName, cfg.App.Env, cfg.App.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if vault.Enabled {
		log.Info().Str("path", vault.Path).Strs("loaded", vault.Loaded).Int("skipped", len(vault.Skipped)).Msg("Applied Vault secrets")
	}

	shutdown, err := observability.Setup(cmd.Context(), cfg.OTEL)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	if cfg.OTEL.Enabled {
		observability.EnableLogExport()
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	app = &appState{cfg: cfg, metrics: metrics, shutdown: shutdown}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if app == nil || app.shutdown == nil {
		return nil
	}
	return app.shutdown(context.WithoutCancel(cmd.Context()))
}

// applyFlags copies explicitly set command-line flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.App.LogLevel = logLevel
	}

	var err error
	if flags.Changed("threshold") {
		if cfg.Model.Threshold, err = flags.GetFloat64("threshold"); err != nil {
			return err
		}
	}
	if flags.Changed("test-fraction") {
		if cfg.Model.TestFraction, err = flags.GetFloat64("test-fraction"); err != nil {
			return err
		}
	}
	if flags.Changed("seed") {
		if cfg.Model.Seed, err = flags.GetUint64("seed"); err != nil {
			return err
		}
	}
	if flags.Changed("scope") {
		if cfg.Model.Scope, err = flags.GetString("scope"); err != nil {
			return err
		}
	}
	if flags.Changed("fractions") {
		if cfg.Capture.Fractions, err = flags.GetFloat64Slice("fractions"); err != nil {
			return err
		}
	}
	return nil
}

func addModelFlags(cmd *cobra.Command, withScope bool) {
	cmd.Flags().Float64("threshold", 0, "Decision threshold in (0,1) (overrides model.threshold)")
	cmd.Flags().Float64("test-fraction", 0, "Held-out fraction in (0,1) (overrides model.test_fraction)")
	cmd.Flags().Uint64("seed", 0, "Split seed (overrides model.seed)")
	if withScope {
		cmd.Flags().String("scope", "", `Scoring scope, "holdout" or "in_sample" (overrides model.scope)`)
	}
}

func addFractionsFlag(cmd *cobra.Command) {
	cmd.Flags().Float64Slice("fractions", nil, "Review fractions in [0,1], e.g. 0.1,0.15,0.2 (overrides capture.fractions)")
}

func newService(opts ...services.Option) *services.PipelineService {
	opts = append([]services.Option{services.WithMetrics(app.metrics)}, opts...)
	return services.NewPipelineService(app.cfg, opts...)
}

func printSummary(cmd *cobra.Command, s *report.Summary) error {
	if jsonOut {
		return report.WriteJSON(cmd.OutOrStdout(), s)
	}
	return report.WriteText(cmd.OutOrStdout(), s)
}

func pathOr(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func now() time.Time {
	return time.Now().UTC()
}
