package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentStore persists document records.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// SaveDocument stores or updates a document. The write is atomic.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ListDocumentsByStatus returns documents in any of the given states.
	ListDocumentsByStatus(ctx context.Context, statuses ...domain.DocumentStatus) ([]domain.Document, error)
}

// ChatStore persists chat sessions and their turns.
type ChatStore interface {
	// SaveSession stores or updates a session.
	SaveSession(ctx context.Context, session *domain.ChatSession) error

	// GetSession retrieves a session by ID without its turns.
	// Returns domain.ErrNotFound if it does not exist.
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)

	// ListSessions returns sessions ordered by start time.
	ListSessions(ctx context.Context, activeOnly bool) ([]domain.ChatSession, error)

	// AppendTurn inserts a turn and bumps the session's last-interaction
	// time in a single transaction.
	AppendTurn(ctx context.Context, turn *domain.Turn) error

	// GetTurns returns a session's turns in insertion order.
	GetTurns(ctx context.Context, sessionID string) ([]domain.Turn, error)
}
