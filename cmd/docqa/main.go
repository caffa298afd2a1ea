// Command docqa uploads documents, indexes them and answers questions about
// them over a CLI, an HTTP API, a terminal UI and MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/queue"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := services.LoadEnvFile(".env"); err != nil {
		logger.Warn("%v", err)
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening config: %v\n", err)
		return 1
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if settings == nil {
		fmt.Fprintf(os.Stderr, "Error: loading settings: %v\n", err)
		return 1
	}
	if err != nil {
		logger.Warn("settings: %v", err)
	}

	store, err := sqlite.NewStore(settings.Storage.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening database: %v\n", err)
		return 1
	}
	defer store.Close()

	registry := normalisers.Defaults()
	pool := queue.New(queue.Config{
		Workers:   settings.Ingestion.Workers,
		QueueSize: settings.Ingestion.QueueSize,
	})

	svc := cli.Services{
		Settings:  settingsService,
		Documents: services.NewDocumentService(store.DocumentStore(), registry, pool, settings.Storage.UploadDir),
	}

	// Without a configured provider only settings and document commands work.
	if aiServices, err := ai.Init(ctx, settings); err != nil {
		logger.Debug("ai services unavailable: %v", err)
	} else {
		defer aiServices.Close()
		for _, w := range aiServices.Warnings {
			logger.Warn("%s", w)
		}
		wireAI(&svc, settings, store, registry, pool, aiServices)
	}

	cli.SetVersion(version)
	cli.SetServices(svc)

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

func wireAI(
	svc *cli.Services,
	settings *domain.AppSettings,
	store *sqlite.Store,
	registry *normalisers.Registry,
	pool *queue.Pool,
	aiServices *ai.InitResult,
) {
	splitter := chunker.New(
		chunker.WithChunkSize(settings.Chunking.ChunkSize),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)

	ingestion := services.NewIngestionService(
		store.DocumentStore(),
		splitter,
		aiServices.EmbeddingService,
		aiServices.VectorIndex,
		registry,
		pool,
		settings.Ingestion.Timeout,
	)
	rag := services.NewRAGOrchestrator(
		aiServices.VectorIndex,
		aiServices.EmbeddingService,
		aiServices.LLMService,
		settings.Retrieval.TopK,
		settings.LLM.Timeout,
	)
	recorder := services.NewConversationRecorder(store.ChatStore())

	svc.Ingestion = ingestion
	svc.Workers = pool.Workers(ingestion)
	svc.Chat = services.NewChatService(store.DocumentStore(), store.ChatStore(), rag, recorder)
}
