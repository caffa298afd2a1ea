package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// fixture wires every service over in-memory stores and a temp index dir.
type fixture struct {
	docs      *memory.DocumentStore
	chats     *memory.ChatStore
	index     *flat.Index
	embedder  *keywordEmbedder
	llm       *scriptedLLM
	queue     *recordingQueue
	ingestion *IngestionService
	documents *DocumentService
	rag       *RAGOrchestrator
	chat      *ChatService
	uploadDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		docs:      memory.NewDocumentStore(),
		chats:     memory.NewChatStore(),
		index:     flat.New(t.TempDir()),
		embedder:  &keywordEmbedder{},
		llm:       &scriptedLLM{tokens: []string{"Grass ", "is ", "green."}},
		queue:     &recordingQueue{},
		uploadDir: t.TempDir(),
	}
	registry := normalisers.Defaults()
	f.ingestion = NewIngestionService(f.docs, chunker.New(), f.embedder, f.index, registry, f.queue, time.Minute)
	f.documents = NewDocumentService(f.docs, registry, f.queue, f.uploadDir)
	f.rag = NewRAGOrchestrator(f.index, f.embedder, f.llm, domain.DefaultTopK, time.Minute)
	f.chat = NewChatService(f.docs, f.chats, f.rag, NewConversationRecorder(f.chats))
	return f
}

// readyDocument uploads text and runs its ingestion task synchronously.
func (f *fixture) readyDocument(t *testing.T, text string) *domain.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := f.documents.Upload(ctx, "notes.txt", []byte(text))
	require.NoError(t, err)

	tasks := f.queue.Tasks()
	require.NoError(t, f.ingestion.Ingest(ctx, tasks[len(tasks)-1]))

	doc, err = f.docs.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReady, doc.Status)
	return doc
}

// drain reads a stream to the end and returns the yielded tokens.
func drain(t *testing.T, stream interface {
	Next() bool
	Token() string
}) []string {
	t.Helper()
	var tokens []string
	for stream.Next() {
		tokens = append(tokens, stream.Token())
	}
	return tokens
}
