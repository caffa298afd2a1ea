package api

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeDocuments struct {
	mu       sync.Mutex
	docs     map[string]*domain.Document
	uploaded []string
	err      error
}

func newFakeDocuments(docs ...*domain.Document) *fakeDocuments {
	f := &fakeDocuments{docs: make(map[string]*domain.Document)}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocuments) Upload(_ context.Context, fileName string, content []byte) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, fileName+":"+string(content))
	doc := &domain.Document{ID: "doc-new", FileName: fileName, Status: domain.StatusPending, UploadedAt: testTime}
	f.docs[doc.ID] = doc
	return doc, nil
}

func (f *fakeDocuments) Get(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocuments) List(context.Context) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Document, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out, nil
}

type fakeChat struct {
	mu          sync.Mutex
	sessions    map[string]*domain.ChatSession
	tokens      []string
	messageErr  error
	streams     []*fakeStream
	startedWith []string

	// hold, when set, pauses every stream after its first token until it
	// is closed or the message context ends.
	hold chan struct{}
}

func newFakeChat(sessions ...*domain.ChatSession) *fakeChat {
	f := &fakeChat{sessions: make(map[string]*domain.ChatSession), tokens: []string{"Grass ", "is ", "green."}}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeChat) Start(_ context.Context, documentID string) (*domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startedWith = append(f.startedWith, documentID)
	if documentID == "pending" {
		return nil, domain.ErrNotReady
	}
	s := &domain.ChatSession{ID: "chat-new", DocumentID: documentID, Active: true, StartedAt: testTime}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeChat) Message(ctx context.Context, sessionID, _ string) (driving.AnswerStream, error) {
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; !ok || !s.Active {
		return nil, domain.ErrNotFound
	}
	stream := &fakeStream{ctx: ctx, hold: f.hold, tokens: f.tokens, pos: -1}
	f.streams = append(f.streams, stream)
	return stream, nil
}

func (f *fakeChat) History(_ context.Context, sessionID string) (*domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || !s.Active {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeChat) HistoryAll(context.Context) ([]domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatSession
	for _, s := range f.sessions {
		if s.Active {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeChat) Deactivate(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || !s.Active {
		return domain.ErrNotFound
	}
	s.Active = false
	return nil
}

type fakeStream struct {
	mu        sync.Mutex
	ctx       context.Context
	hold      chan struct{}
	tokens    []string
	pos       int
	done      bool
	closed    bool
	cancelled bool
}

func (s *fakeStream) Next() bool {
	if s.atHold() {
		select {
		case <-s.hold:
		case <-s.ctx.Done():
			s.mu.Lock()
			s.cancelled = true
			s.mu.Unlock()
			return false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.done {
		return false
	}
	s.pos++
	if s.pos >= len(s.tokens) {
		s.done = true
		return false
	}
	return true
}

func (s *fakeStream) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[s.pos]
}

func (s *fakeStream) Answer() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out string
	for i := 0; i < len(s.tokens) && i <= s.pos; i++ {
		out += s.tokens[i]
	}
	return out, s.done
}

func (s *fakeStream) Err() error { return nil }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) atHold() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hold != nil && !s.closed && !s.done && s.pos == 0
}

func (s *fakeStream) wasCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *fakeStream) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Ensure mocks implement interfaces
var (
	_ driving.DocumentService = (*fakeDocuments)(nil)
	_ driving.ChatService     = (*fakeChat)(nil)
	_ driving.AnswerStream    = (*fakeStream)(nil)
)
