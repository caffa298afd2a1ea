package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/api"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// shutdownTimeout bounds how long serve waits for open requests on exit.
const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API together with the ingestion workers.

Documents left pending or processing by an earlier run are scheduled again
on startup. The listen address defaults to server.addr from the settings.

Examples:
  docqa serve
  docqa serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if documentService == nil || chatService == nil {
		return errors.New("document and chat services not configured")
	}

	ctx := commandContext(cmd)
	stop, err := startWorkers(ctx)
	if err != nil {
		return err
	}
	defer stop()

	recoverPending(ctx)

	server := api.NewServer(listenAddr(), documentService, chatService)
	if err := server.Start(); err != nil {
		return err
	}
	cmd.Printf("docqa API listening on %s\n", server.Addr())

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-server.Errors():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("api shutdown: %v", err)
	}

	if serveErr != nil {
		return fmt.Errorf("api server: %w", serveErr)
	}
	return nil
}

// listenAddr resolves the flag, then settings, then the default address.
func listenAddr() string {
	if serveAddr != "" {
		return serveAddr
	}
	if settingsService != nil {
		if settings, _ := settingsService.Get(); settings != nil && settings.Server.Addr != "" { //nolint:errcheck // validation warnings do not affect the address
			return settings.Server.Addr
		}
	}
	return domain.DefaultServerAddr
}

// recoverPending schedules documents an earlier run left unfinished.
func recoverPending(ctx context.Context) {
	if ingestionService == nil {
		return
	}
	n, err := ingestionService.Recover(ctx)
	if err != nil {
		logger.Error(err, "recovering pending documents")
		return
	}
	if n > 0 {
		logger.Info("recovered %d pending document(s)", n)
	}
}
