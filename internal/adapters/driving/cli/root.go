// Package cli implements the docqa command line.
//
// Commands are package-level cobra commands registered on rootCmd in init.
// Services are injected once by main through SetServices.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services groups the driving ports the commands use.
type Services struct {
	Documents driving.DocumentService
	Ingestion driving.IngestionService
	Chat      driving.ChatService
	Settings  driving.SettingsService
	Workers   driving.IngestionWorkers
}

var (
	documentService  driving.DocumentService
	ingestionService driving.IngestionService
	chatService      driving.ChatService
	settingsService  driving.SettingsService
	ingestionWorkers driving.IngestionWorkers
)

// verbose enables debug logging for any command.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa turns uploaded documents into per-document vector indexes and
answers questions about them with a local or hosted language model.

Upload a file with 'docqa ingest', open a chat with 'docqa chat start',
or run the HTTP API with 'docqa serve'.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the services used by all commands.
func SetServices(s Services) {
	documentService = s.Documents
	ingestionService = s.Ingestion
	chatService = s.Chat
	settingsService = s.Settings
	ingestionWorkers = s.Workers
}

// SetVersion sets the version reported by 'docqa version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// startWorkers launches the ingestion workers and returns a stop function.
func startWorkers(ctx context.Context) (func(), error) {
	if ingestionWorkers == nil {
		return nil, errors.New("ingestion workers not configured")
	}
	if err := ingestionWorkers.Start(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := ingestionWorkers.Stop(); err != nil {
			logger.Warn("stopping ingestion workers: %v", err)
		}
	}, nil
}

// commandContext returns the command's context, falling back to Background
// when the command runs without one (as in tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
