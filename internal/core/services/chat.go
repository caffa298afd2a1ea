package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService manages chat sessions bound to a single document.
type ChatService struct {
	docStore driven.DocumentStore
	chats    driven.ChatStore
	rag      *RAGOrchestrator
	recorder *ConversationRecorder
	now      func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(
	docStore driven.DocumentStore,
	chats driven.ChatStore,
	rag *RAGOrchestrator,
	recorder *ConversationRecorder,
) *ChatService {
	return &ChatService{
		docStore: docStore,
		chats:    chats,
		rag:      rag,
		recorder: recorder,
		now:      time.Now,
	}
}

// Start opens a session on a ready document.
func (s *ChatService) Start(ctx context.Context, documentID string) (*domain.ChatSession, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Ready() {
		return nil, fmt.Errorf("%w: document %s is %s", domain.ErrNotReady, doc.ID, doc.Status)
	}

	now := s.now()
	session := &domain.ChatSession{
		ID:               uuid.NewString(),
		DocumentID:       doc.ID,
		Active:           true,
		StartedAt:        now,
		LastInteractedAt: now,
	}
	if err := s.chats.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	logger.Info("chat: session %s started on document %s", session.ID, doc.ID)
	return session, nil
}

// Message answers query within a session. The turn is recorded when the
// returned stream has been drained.
func (s *ChatService) Message(ctx context.Context, sessionID, query string) (driving.AnswerStream, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	session, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	doc, err := s.docStore.GetDocument(ctx, session.DocumentID)
	if err != nil {
		return nil, err
	}

	stream, err := s.rag.Answer(ctx, doc, query)
	if err != nil {
		return nil, err
	}

	stream.OnComplete(func(answer string) {
		if _, err := s.recorder.Record(context.WithoutCancel(ctx), session, query, answer); err != nil {
			logger.Error(err, "chat: could not record turn for session %s", session.ID)
		}
	})
	return stream, nil
}

// History returns an active session with its turns.
func (s *ChatService) History(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	session, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.withTurns(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// HistoryAll returns every active session with its turns.
func (s *ChatService) HistoryAll(ctx context.Context) ([]domain.ChatSession, error) {
	sessions, err := s.chats.ListSessions(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for i := range sessions {
		if err := s.withTurns(ctx, &sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// Deactivate marks a session inactive.
func (s *ChatService) Deactivate(ctx context.Context, sessionID string) error {
	session, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Active = false
	if err := s.chats.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("deactivate session %s: %w", session.ID, err)
	}
	logger.Info("chat: session %s deactivated", session.ID)
	return nil
}

// activeSession loads a session, reporting inactive ones as not found.
func (s *ChatService) activeSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: chat id is required", domain.ErrInvalidInput)
	}
	session, err := s.chats.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return session, nil
}

func (s *ChatService) withTurns(ctx context.Context, session *domain.ChatSession) error {
	turns, err := s.chats.GetTurns(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("load turns for session %s: %w", session.ID, err)
	}
	session.Turns = turns
	return nil
}
