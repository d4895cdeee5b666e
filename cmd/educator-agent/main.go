// Package main is the entry point for the educator-agent binary.
// It plans lessons, writes speaker notes and sanitizes JSON documents.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/polisai/educator-agent/pkg/config"
	"github.com/polisai/educator-agent/pkg/domain"
	"github.com/polisai/educator-agent/pkg/logging"
	"github.com/polisai/educator-agent/pkg/telemetry"
)

// app carries state shared by every subcommand once the root has loaded config.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	logger     *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for educator-agent.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "educator-agent",
		Short: "Privacy-preserving lesson planning assistant",
		Long: `Generates curriculum plans, speaker notes and open educational resource
suggestions. Every piece of generated text passes through the content sanitizer,
which redacts personal data and masks profanity.

Example:
  educator-agent plan --grade "8th Grade" --subject "Environmental Science" --notes --oer 5`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newPlanCmd(a), newSanitizeCmd(a), newSchemaCmd())
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = logging.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logging)
	slog.SetDefault(a.logger)
	return nil
}

// writeJSON pretty-prints v followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errorResponse maps err to the machine-readable error document.
func errorResponse(err error, runID string) domain.ErrorResponse {
	resp := domain.ErrorResponse{Code: "INTERNAL", Message: err.Error(), RunID: runID}
	var de *domain.DomainError
	if errors.As(err, &de) {
		resp.Code = de.Code
	}
	return resp
}

// startTelemetry installs the OpenTelemetry providers and returns a function that
// flushes them. Setup failures only disable telemetry.
func (a *app) startTelemetry(ctx context.Context) func() {
	shutdown, err := telemetry.SetupProvider(ctx, a.cfg.Telemetry)
	if err != nil {
		a.logger.Warn("telemetry disabled", "error", err)
		return func() {}
	}
	return func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			a.logger.Warn("failed to flush telemetry", "error", err)
		}
	}
}
