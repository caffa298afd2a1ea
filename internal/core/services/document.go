package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService accepts uploads and hands them to the ingestion queue.
type DocumentService struct {
	docStore  driven.DocumentStore
	registry  driven.NormaliserRegistry
	queue     driven.TaskQueue
	uploadDir string
	now       func() time.Time
}

// NewDocumentService creates a new document service. Uploads are kept
// under uploadDir so that stranded documents can be re-extracted.
func NewDocumentService(
	docStore driven.DocumentStore,
	registry driven.NormaliserRegistry,
	queue driven.TaskQueue,
	uploadDir string,
) *DocumentService {
	return &DocumentService{
		docStore:  docStore,
		registry:  registry,
		queue:     queue,
		uploadDir: uploadDir,
		now:       time.Now,
	}
}

// Upload extracts text, stores the file and schedules ingestion.
func (s *DocumentService) Upload(ctx context.Context, fileName string, content []byte) (*domain.Document, error) {
	name := filepath.Base(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: file %s is empty", domain.ErrInvalidInput, name)
	}
	if !s.registry.Supports(name) {
		return nil, fmt.Errorf("%w: %s (supported: %s)", domain.ErrUnsupportedFormat, name,
			strings.Join(s.registry.SupportedExtensions(), ", "))
	}

	text, err := s.registry.Normalise(ctx, &domain.RawDocument{FileName: name, Content: content})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text could be extracted from %s", domain.ErrInvalidInput, name)
	}

	id := uuid.NewString()
	path, err := s.store(id, name, content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc := &domain.Document{
		ID:         id,
		FileName:   name,
		FilePath:   path,
		Status:     domain.StatusPending,
		UploadedAt: now,
		UpdatedAt:  now,
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		_ = os.RemoveAll(filepath.Dir(path))
		return nil, fmt.Errorf("save document: %w", err)
	}

	if err := s.queue.Enqueue(ctx, domain.IngestTask{DocumentID: id, Text: text}); err != nil {
		doc.Status = domain.StatusFailed
		doc.Error = err.Error()
		doc.UpdatedAt = s.now()
		if saveErr := s.docStore.SaveDocument(context.WithoutCancel(ctx), doc); saveErr != nil {
			logger.Error(saveErr, "documents: could not mark %s failed", id)
		}
		return nil, fmt.Errorf("schedule ingestion: %w", err)
	}

	logger.Info("documents: %s uploaded as %s", name, id)
	return doc, nil
}

// store writes the upload to <uploadDir>/<id>/<name>.
func (s *DocumentService) store(id, name string, content []byte) (string, error) {
	dir := filepath.Join(s.uploadDir, id)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	return s.docStore.GetDocument(ctx, documentID)
}

// List returns all documents, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}
