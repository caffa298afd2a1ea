package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService turns extracted document text into a persisted index.
type IngestionService struct {
	docStore driven.DocumentStore
	splitter driven.TextSplitter
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	registry driven.NormaliserRegistry
	queue    driven.TaskQueue
	timeout  time.Duration
	now      func() time.Time
}

// NewIngestionService creates an ingestion service.
// The registry and queue are only used by Recover and may be nil otherwise.
// A zero timeout means tasks inherit the caller's deadline only.
func NewIngestionService(
	docStore driven.DocumentStore,
	splitter driven.TextSplitter,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	registry driven.NormaliserRegistry,
	queue driven.TaskQueue,
	timeout time.Duration,
) *IngestionService {
	return &IngestionService{
		docStore: docStore,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		registry: registry,
		queue:    queue,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Ingest runs chunk, embed, build and persist for one document and leaves it
// ready or failed. Ready documents are left untouched.
func (s *IngestionService) Ingest(ctx context.Context, task domain.IngestTask) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	doc, err := s.docStore.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", task.DocumentID, err)
	}
	if doc.Status == domain.StatusReady {
		logger.Debug("ingest: document %s already ready, skipping", doc.ID)
		return nil
	}

	doc.Status = domain.StatusProcessing
	doc.Error = ""
	doc.UpdatedAt = s.now()
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("mark document %s processing: %w", doc.ID, err)
	}
	logger.Info("ingest: document %s processing", doc.ID)

	location, err := s.build(ctx, doc, task.Text)
	if err != nil {
		s.fail(ctx, doc, err)
		return fmt.Errorf("ingest document %s: %w", doc.ID, err)
	}

	doc.Status = domain.StatusReady
	doc.IndexLocation = location
	doc.UpdatedAt = s.now()
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		s.fail(ctx, doc, err)
		return fmt.Errorf("mark document %s ready: %w", doc.ID, err)
	}
	logger.Info("ingest: document %s ready at %s", doc.ID, location)
	return nil
}

// build returns the location of the persisted index.
func (s *IngestionService) build(ctx context.Context, doc *domain.Document, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: document has no text", domain.ErrInvalidInput)
	}

	parts, err := s.splitter.Split(text)
	if err != nil {
		return "", fmt.Errorf("chunk: %w", err)
	}
	logger.Debug("ingest: document %s split into %d chunks", doc.ID, len(parts))

	vectors, err := s.embedder.EmbedBatch(ctx, parts)
	if err != nil {
		return "", fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(parts) {
		return "", fmt.Errorf("%w: %d vectors for %d chunks", domain.ErrEmbeddingService, len(vectors), len(parts))
	}

	chunks := make([]domain.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = domain.Chunk{Position: i, Content: part, Embedding: vectors[i]}
	}

	handle, err := s.index.Build(chunks)
	if err != nil {
		return "", fmt.Errorf("build index: %w", err)
	}

	location := s.index.Location(doc.ID)
	if err := s.index.Persist(ctx, handle, location); err != nil {
		return "", fmt.Errorf("persist index: %w", err)
	}
	return location, nil
}

// fail records the error on the document. The save ignores the task
// deadline so a timed out ingest still reaches the failed state.
func (s *IngestionService) fail(ctx context.Context, doc *domain.Document, cause error) {
	logger.Error(cause, "ingest: document %s failed", doc.ID)

	doc.Status = domain.StatusFailed
	doc.Error = cause.Error()
	doc.IndexLocation = ""
	doc.UpdatedAt = s.now()
	if err := s.docStore.SaveDocument(context.WithoutCancel(ctx), doc); err != nil {
		logger.Error(err, "ingest: could not mark document %s failed", doc.ID)
	}
}

// Recover re-extracts and re-enqueues documents stranded in pending or
// processing. Documents whose upload can no longer be read are failed.
func (s *IngestionService) Recover(ctx context.Context) (int, error) {
	if s.registry == nil || s.queue == nil {
		return 0, errors.New("recover: normaliser registry and task queue are required")
	}

	docs, err := s.docStore.ListDocumentsByStatus(ctx, domain.StatusPending, domain.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("list stranded documents: %w", err)
	}

	scheduled := 0
	for i := range docs {
		doc := &docs[i]

		content, err := os.ReadFile(doc.FilePath)
		if err != nil {
			s.fail(ctx, doc, fmt.Errorf("%w: read upload: %w", domain.ErrExtraction, err))
			continue
		}
		text, err := s.registry.Normalise(ctx, &domain.RawDocument{FileName: doc.FileName, Content: content})
		if err != nil {
			s.fail(ctx, doc, err)
			continue
		}

		if err := s.queue.Enqueue(ctx, domain.IngestTask{DocumentID: doc.ID, Text: text}); err != nil {
			return scheduled, fmt.Errorf("enqueue document %s: %w", doc.ID, err)
		}
		scheduled++
	}

	if scheduled > 0 {
		logger.Info("ingest: recovered %d stranded documents", scheduled)
	}
	return scheduled, nil
}
