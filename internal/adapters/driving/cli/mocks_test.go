package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// mockDocumentService returns documents from a map. Get walks through
// statuses[id] on each call before settling on the stored document.
type mockDocumentService struct {
	mu       sync.Mutex
	docs     map[string]*domain.Document
	statuses map[string][]domain.DocumentStatus
	uploaded []string
	err      error
}

func newMockDocumentService(docs ...*domain.Document) *mockDocumentService {
	m := &mockDocumentService{
		docs:     make(map[string]*domain.Document),
		statuses: make(map[string][]domain.DocumentStatus),
	}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

func (m *mockDocumentService) Upload(_ context.Context, fileName string, _ []byte) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if strings.HasSuffix(fileName, ".png") {
		return nil, fmt.Errorf("%w: .png", domain.ErrUnsupportedFormat)
	}
	doc := &domain.Document{
		ID:         fmt.Sprintf("doc-%d", len(m.uploaded)+1),
		FileName:   fileName,
		Status:     domain.StatusPending,
		UploadedAt: testTime,
	}
	m.uploaded = append(m.uploaded, fileName)
	m.docs[doc.ID] = doc
	return doc, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	out := *doc
	if queued := m.statuses[id]; len(queued) > 0 {
		out.Status = queued[0]
		m.statuses[id] = queued[1:]
	}
	return &out, nil
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	docs := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, *d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

type mockIngestionService struct {
	recovered int
	err       error
	calls     int
}

func (m *mockIngestionService) Ingest(_ context.Context, _ domain.IngestTask) error {
	return nil
}

func (m *mockIngestionService) Recover(_ context.Context) (int, error) {
	m.calls++
	return m.recovered, m.err
}

type mockWorkers struct {
	mu       sync.Mutex
	started  int
	stopped  int
	startErr error
}

func (m *mockWorkers) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.started++
	return nil
}

func (m *mockWorkers) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
	return nil
}

// mockChatService keeps sessions in a map and answers with fixed tokens.
type mockChatService struct {
	sessions    map[string]*domain.ChatSession
	tokens      []string
	err         error
	deactivated []string
	asked       []string
}

func newMockChatService() *mockChatService {
	return &mockChatService{
		sessions: map[string]*domain.ChatSession{
			"chat-1": {
				ID:         "chat-1",
				DocumentID: "doc-1",
				Active:     true,
				StartedAt:  testTime,
				Turns: []domain.Turn{
					{ID: "t1", SessionID: "chat-1", Query: "What colour is the sky?", Answer: "Blue."},
				},
			},
		},
		tokens: []string{"Grass ", "is ", "green."},
	}
}

func (m *mockChatService) Start(_ context.Context, documentID string) (*domain.ChatSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	if documentID != "doc-1" {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotReady)
	}
	session := &domain.ChatSession{ID: "chat-2", DocumentID: documentID, Active: true, StartedAt: testTime}
	m.sessions[session.ID] = session
	return session, nil
}

func (m *mockChatService) Message(_ context.Context, sessionID, query string) (driving.AnswerStream, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	m.asked = append(m.asked, query)
	return &mockStream{tokens: m.tokens, pos: -1}, nil
}

func (m *mockChatService) History(_ context.Context, sessionID string) (*domain.ChatSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return session, nil
}

func (m *mockChatService) HistoryAll(_ context.Context) ([]domain.ChatSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.ChatSession
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockChatService) Deactivate(_ context.Context, sessionID string) error {
	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	delete(m.sessions, sessionID)
	m.deactivated = append(m.deactivated, sessionID)
	return nil
}

type mockStream struct {
	tokens []string
	pos    int
	closed bool
	err    error
}

func (s *mockStream) Next() bool {
	if s.closed || s.pos+1 >= len(s.tokens) {
		return false
	}
	s.pos++
	return true
}

func (s *mockStream) Token() string {
	if s.pos < 0 || s.pos >= len(s.tokens) {
		return ""
	}
	return s.tokens[s.pos]
}

func (s *mockStream) Answer() (string, bool) {
	if s.closed || s.pos+1 < len(s.tokens) {
		return "", false
	}
	return strings.Join(s.tokens, ""), true
}

func (s *mockStream) Err() error { return s.err }

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}

// mockSettingsService stores raw values and serves fixed settings.
type mockSettingsService struct {
	settings domain.AppSettings
	values   map[string]string
	getErr   error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		values:   make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, m.getErr
}

func (m *mockSettingsService) Set(key, value string) error {
	for _, k := range m.Keys() {
		if k == key {
			m.values[key] = value
			return nil
		}
	}
	return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
}

func (m *mockSettingsService) Keys() []string {
	return []string{"embedding.api_key", "embedding.model", "embedding.provider", "llm.api_key", "llm.model", "llm.provider", "server.addr"}
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	documents *mockDocumentService
	ingestion *mockIngestionService
	chat      *mockChatService
	settings  *mockSettingsService
	workers   *mockWorkers
}

// setupTestServices installs fresh mocks and returns them with a cleanup
// that restores the previous services and resets command flags.
func setupTestServices() (*testServices, func()) {
	prev := Services{
		Documents: documentService,
		Ingestion: ingestionService,
		Chat:      chatService,
		Settings:  settingsService,
		Workers:   ingestionWorkers,
	}

	ts := &testServices{
		documents: newMockDocumentService(&domain.Document{
			ID:            "doc-1",
			FileName:      "grass.txt",
			Status:        domain.StatusReady,
			IndexLocation: "/tmp/indexes/doc-1",
			UploadedAt:    testTime,
		}),
		ingestion: &mockIngestionService{},
		chat:      newMockChatService(),
		settings:  newMockSettingsService(),
		workers:   &mockWorkers{},
	}
	SetServices(Services{
		Documents: ts.documents,
		Ingestion: ts.ingestion,
		Chat:      ts.chat,
		Settings:  ts.settings,
		Workers:   ts.workers,
	})

	return ts, func() {
		SetServices(prev)
		ingestWait = false
		watchExisting = false
		serveAddr = ""
		verbose = false
	}
}
