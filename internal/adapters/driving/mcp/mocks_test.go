package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	err       error
}

func (m *mockDocumentService) Upload(_ context.Context, _ string, _ []byte) (*domain.Document, error) {
	return nil, m.err
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].ID == id {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	session *domain.ChatSession
	tokens  []string
	err     error
	asked   []string
	streams []*mockStream
}

func (m *mockChatService) Start(_ context.Context, documentID string) (*domain.ChatSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	if documentID == "" {
		return nil, domain.ErrInvalidInput
	}
	return &domain.ChatSession{ID: "chat-1", DocumentID: documentID, Active: true, StartedAt: testTime}, nil
}

func (m *mockChatService) Message(_ context.Context, sessionID, query string) (driving.AnswerStream, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.asked = append(m.asked, sessionID+":"+query)
	stream := &mockStream{tokens: m.tokens, pos: -1}
	m.streams = append(m.streams, stream)
	return stream, nil
}

func (m *mockChatService) History(_ context.Context, sessionID string) (*domain.ChatSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.session == nil || m.session.ID != sessionID {
		return nil, domain.ErrNotFound
	}
	return m.session, nil
}

func (m *mockChatService) HistoryAll(_ context.Context) ([]domain.ChatSession, error) {
	if m.session == nil {
		return nil, m.err
	}
	return []domain.ChatSession{*m.session}, m.err
}

func (m *mockChatService) Deactivate(_ context.Context, _ string) error {
	return m.err
}

type mockStream struct {
	tokens []string
	pos    int
	closed bool
}

func (s *mockStream) Next() bool {
	if s.closed || s.pos >= len(s.tokens) {
		return false
	}
	s.pos++
	return s.pos < len(s.tokens)
}

func (s *mockStream) Token() string { return s.tokens[s.pos] }

func (s *mockStream) Answer() (string, bool) {
	if s.pos < len(s.tokens) {
		return "", false
	}
	var out string
	for _, tok := range s.tokens {
		out += tok
	}
	return out, true
}

func (s *mockStream) Err() error { return nil }

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}

// Ensure mocks implement interfaces
var (
	_ driving.DocumentService = (*mockDocumentService)(nil)
	_ driving.ChatService     = (*mockChatService)(nil)
	_ driving.AnswerStream    = (*mockStream)(nil)
)
