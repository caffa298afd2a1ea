package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentService accepts uploads and exposes their ingestion state.
type DocumentService interface {
	// Upload extracts the file's text, records a pending document and
	// schedules ingestion. It returns without waiting for the index.
	Upload(ctx context.Context, fileName string, content []byte) (*domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)
}

// IngestionService runs the chunk, embed, index and persist pipeline.
type IngestionService interface {
	// Ingest processes one task to a terminal state (ready or failed).
	Ingest(ctx context.Context, task domain.IngestTask) error

	// Recover re-enqueues documents left pending or processing.
	// Returns the number of documents scheduled.
	Recover(ctx context.Context) (int, error)
}
