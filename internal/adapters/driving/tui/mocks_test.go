package tui

import (
	"context"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// MockChatService is a mock implementation of driving.ChatService.
type MockChatService struct {
	Session    *domain.ChatSession
	Tokens     []string
	StreamErr  error
	MessageErr error
	HistoryErr error
	Asked      []string
}

func (m *MockChatService) Start(_ context.Context, documentID string) (*domain.ChatSession, error) {
	return &domain.ChatSession{ID: "chat-1", DocumentID: documentID, Active: true}, nil
}

func (m *MockChatService) Message(_ context.Context, _ string, query string) (driving.AnswerStream, error) {
	if m.MessageErr != nil {
		return nil, m.MessageErr
	}
	m.Asked = append(m.Asked, query)
	return &MockStream{tokens: m.Tokens, pos: -1, err: m.StreamErr}, nil
}

func (m *MockChatService) History(_ context.Context, _ string) (*domain.ChatSession, error) {
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	return m.Session, nil
}

func (m *MockChatService) HistoryAll(_ context.Context) ([]domain.ChatSession, error) {
	return nil, nil
}

func (m *MockChatService) Deactivate(_ context.Context, _ string) error {
	return nil
}

// MockStream yields fixed tokens.
type MockStream struct {
	mu     sync.Mutex
	tokens []string
	pos    int
	err    error
	closed bool
}

func (s *MockStream) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos >= len(s.tokens) {
		return false
	}
	s.pos++
	return s.pos < len(s.tokens)
}

func (s *MockStream) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[s.pos]
}

func (s *MockStream) Answer() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos < len(s.tokens) {
		return "", false
	}
	var out string
	for _, tok := range s.tokens {
		out += tok
	}
	return out, true
}

func (s *MockStream) Err() error { return s.err }

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// MockDocumentService resolves one document.
type MockDocumentService struct {
	Document *domain.Document
}

func (m *MockDocumentService) Upload(_ context.Context, _ string, _ []byte) (*domain.Document, error) {
	return nil, domain.ErrInvalidInput
}

func (m *MockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	if m.Document == nil {
		return nil, domain.ErrNotFound
	}
	return m.Document, nil
}

func (m *MockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return nil, nil
}

// Ensure mocks implement interfaces
var (
	_ driving.ChatService     = (*MockChatService)(nil)
	_ driving.AnswerStream    = (*MockStream)(nil)
	_ driving.DocumentService = (*MockDocumentService)(nil)
)
