package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ChatStore implements the interface.
var _ driven.ChatStore = (*ChatStore)(nil)

// ChatStore is an in-memory implementation of driven.ChatStore.
type ChatStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.ChatSession
	turns    map[string][]domain.Turn
}

// NewChatStore creates a new in-memory chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		sessions: make(map[string]domain.ChatSession),
		turns:    make(map[string][]domain.Turn),
	}
}

// SaveSession stores or updates a session. Turns on the value are ignored.
func (s *ChatStore) SaveSession(_ context.Context, session *domain.ChatSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	stored.Turns = nil
	s.sessions[session.ID] = stored
	return nil
}

// GetSession retrieves a session by ID without its turns.
func (s *ChatStore) GetSession(_ context.Context, id string) (*domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return &session, nil
}

// ListSessions returns sessions ordered by start time.
func (s *ChatStore) ListSessions(_ context.Context, activeOnly bool) ([]domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []domain.ChatSession
	for _, session := range s.sessions {
		if activeOnly && !session.Active {
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].StartedAt.Before(sessions[j].StartedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// AppendTurn inserts a turn and bumps the session's last-interaction time.
func (s *ChatStore) AppendTurn(_ context.Context, turn *domain.Turn) error {
	if turn == nil || turn.ID == "" || turn.SessionID == "" {
		return fmt.Errorf("%w: turn id and session id are required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[turn.SessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", turn.SessionID, domain.ErrNotFound)
	}
	session.LastInteractedAt = turn.CreatedAt
	s.sessions[turn.SessionID] = session
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], *turn)
	return nil
}

// GetTurns returns a session's turns in insertion order.
func (s *ChatStore) GetTurns(_ context.Context, sessionID string) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[sessionID]
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}
