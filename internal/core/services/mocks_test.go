package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// keywordEmbedder maps text onto a tiny fixed vocabulary so similarity is
// predictable in tests.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

var vocabulary = []string{"blue", "green", "red", "sky", "grass"}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}

	lower := strings.ToLower(text)
	vec := make([]float32, len(vocabulary)+1)
	for i, word := range vocabulary {
		vec[i] = float32(strings.Count(lower, word))
	}
	vec[len(vocabulary)] = 0.1
	return vec, nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *keywordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *keywordEmbedder) ModelName() string          { return "keyword" }
func (e *keywordEmbedder) Ping(context.Context) error { return nil }
func (e *keywordEmbedder) Close() error               { return nil }

// scriptedLLM replays fixed tokens, optionally failing to open or failing
// after the tokens.
type scriptedLLM struct {
	mu      sync.Mutex
	tokens  []string
	openErr error
	midErr  error
	prompts []string
	streams []*scriptedStream
}

func (l *scriptedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return strings.Join(l.tokens, ""), nil
}

func (l *scriptedLLM) GenerateStream(ctx context.Context, prompt string, _ driven.GenerateOptions) (driven.TokenStream, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if l.openErr != nil {
		return nil, l.openErr
	}
	s := &scriptedStream{ctx: ctx, tokens: l.tokens, err: l.midErr, pos: -1}
	l.streams = append(l.streams, s)
	return s, nil
}

func (l *scriptedLLM) lastPrompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.prompts) == 0 {
		return ""
	}
	return l.prompts[len(l.prompts)-1]
}

func (l *scriptedLLM) ModelName() string          { return "scripted" }
func (l *scriptedLLM) Ping(context.Context) error { return nil }
func (l *scriptedLLM) Close() error               { return nil }

type scriptedStream struct {
	ctx    context.Context
	tokens []string
	err    error
	pos    int
	closed bool
	failed error
}

func (s *scriptedStream) Next() bool {
	if s.closed || s.failed != nil {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.failed = err
		return false
	}
	s.pos++
	if s.pos < len(s.tokens) {
		return true
	}
	if s.err != nil {
		s.failed = s.err
	}
	return false
}

func (s *scriptedStream) Token() string { return s.tokens[s.pos] }
func (s *scriptedStream) Err() error    { return s.failed }
func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

// recordingQueue captures tasks instead of running them.
type recordingQueue struct {
	mu    sync.Mutex
	tasks []domain.IngestTask
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, task domain.IngestTask) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) Tasks() []domain.IngestTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.IngestTask(nil), q.tasks...)
}

// failingDocStore wraps a store and fails saves of a given status.
type failingDocStore struct {
	driven.DocumentStore
	failOn domain.DocumentStatus
}

func (s *failingDocStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc.Status == s.failOn {
		return errors.New("disk full")
	}
	return s.DocumentStore.SaveDocument(ctx, doc)
}

// Ensure mocks implement interfaces
var (
	_ driven.EmbeddingService = (*keywordEmbedder)(nil)
	_ driven.LLMService       = (*scriptedLLM)(nil)
	_ driven.TaskQueue        = (*recordingQueue)(nil)
)
