package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("readmission failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto process exit codes.
func exitCode(err error) int {
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeInput):
		return 2
	case apperrors.IsType(err, apperrors.ErrorTypeUsage):
		return 3
	case apperrors.IsType(err, apperrors.ErrorTypeValidation):
		return 4
	case apperrors.IsType(err, apperrors.ErrorTypeUndefined):
		return 5
	default:
		return 1
	}
}
