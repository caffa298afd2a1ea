package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// ConversationRecorder appends completed question and answer pairs to a
// session's history.
type ConversationRecorder struct {
	chats driven.ChatStore
	now   func() time.Time
}

// NewConversationRecorder creates a recorder backed by the chat store.
func NewConversationRecorder(chats driven.ChatStore) *ConversationRecorder {
	return &ConversationRecorder{chats: chats, now: time.Now}
}

// Record stores a turn and moves the session's last interaction time to the
// turn's creation time.
func (r *ConversationRecorder) Record(ctx context.Context, session *domain.ChatSession, query, answer string) (*domain.Turn, error) {
	if session == nil || session.ID == "" {
		return nil, fmt.Errorf("%w: session is required", domain.ErrInvalidInput)
	}

	turn := &domain.Turn{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Query:     query,
		Answer:    answer,
		CreatedAt: r.now(),
	}
	if err := r.chats.AppendTurn(ctx, turn); err != nil {
		return nil, fmt.Errorf("record turn for session %s: %w", session.ID, err)
	}

	session.LastInteractedAt = turn.CreatedAt
	return turn, nil
}
