package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ChatService runs question answering sessions over ready documents.
type ChatService interface {
	// Start opens an active session against a ready document.
	Start(ctx context.Context, documentID string) (*domain.ChatSession, error)

	// Message answers a query within a session. The turn is recorded only
	// once the returned stream has been fully drained.
	Message(ctx context.Context, sessionID, query string) (AnswerStream, error)

	// History returns an active session with its turns.
	History(ctx context.Context, sessionID string) (*domain.ChatSession, error)

	// HistoryAll returns every active session with its turns.
	HistoryAll(ctx context.Context) ([]domain.ChatSession, error)

	// Deactivate hides a session from all further reads.
	Deactivate(ctx context.Context, sessionID string) error
}

// AnswerStream is a lazy, finite, non-restartable sequence of answer tokens.
// Consumers that stop before the end must call Close.
type AnswerStream interface {
	// Next advances to the next token.
	Next() bool

	// Token returns the current token.
	Token() string

	// Answer returns the concatenated tokens and true once the stream has
	// been fully drained.
	Answer() (string, bool)

	// Err returns the upstream error that was degraded into the sentinel
	// token, if any.
	Err() error

	// Close stops the stream early and releases the model connection.
	Close() error
}
