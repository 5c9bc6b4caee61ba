package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/api/handlers"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/api/routes"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored run summaries over HTTP for the dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.cfg
		if !cfg.Database.Enabled && !cfg.Redis.Enabled {
			return apperrors.NewValidationError("serve needs database.enabled or redis.enabled")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openSinks(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := s.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close stores")
			}
		}()

		runHandler := handlers.NewRunHandler(s.summaries, s.runs)
		var streamHandler *handlers.StreamHandler
		if s.events != nil {
			streamHandler = handlers.NewStreamHandler(s.events)
		}
		router := routes.NewRouter(runHandler, streamHandler, app.metrics, cfg.Server.AllowedOrigins)

		server := &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      router.SetupRoutes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			log.Info().Str("addr", server.Addr).Msg("Starting dashboard API")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return apperrors.NewExternalError("http server", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info().Msg("Shutting down dashboard API")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return apperrors.NewInternalError("server forced to shutdown", err)
		}
		log.Info().Msg("Dashboard API stopped")
		return nil
	},
}
