package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// promptTemplate is filled with the retrieved context and the user query.
const promptTemplate = "You are a helpful assistant. Use the context below to answer the user's question.\n\n" +
	"Context:\n%s\n\nUser Question:\n%s\n\nAnswer:"

// BuildPrompt renders the generation prompt. Chunk texts are joined best
// first, separated by a blank line.
func BuildPrompt(chunks []domain.RetrievedChunk, query string) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return fmt.Sprintf(promptTemplate, strings.Join(texts, "\n\n"), query)
}

// RAGOrchestrator answers a query against one document's index.
type RAGOrchestrator struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	llm      driven.LLMService
	topK     int
	timeout  time.Duration
	opts     driven.GenerateOptions
}

// NewRAGOrchestrator creates an orchestrator. topK falls back to
// domain.DefaultTopK when not positive; a zero timeout disables the
// generation deadline.
func NewRAGOrchestrator(
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	topK int,
	timeout time.Duration,
) *RAGOrchestrator {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return &RAGOrchestrator{
		index:    index,
		embedder: embedder,
		llm:      llm,
		topK:     topK,
		timeout:  timeout,
	}
}

// Retrieve returns the chunks of doc most similar to query, best first.
func (o *RAGOrchestrator) Retrieve(ctx context.Context, doc *domain.Document, query string) ([]domain.RetrievedChunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is required", domain.ErrInvalidInput)
	}
	if !doc.Ready() {
		return nil, fmt.Errorf("%w: document %s is %s", domain.ErrNotReady, doc.ID, doc.Status)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	handle, err := o.index.Load(ctx, doc.IndexLocation)
	if err != nil {
		return nil, fmt.Errorf("load index for %s: %w", doc.ID, err)
	}

	vector, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := handle.Search(vector, o.topK)
	if err != nil {
		return nil, fmt.Errorf("search index for %s: %w", doc.ID, err)
	}
	logger.Debug("rag: retrieved %d chunks from %s", len(chunks), doc.ID)
	return chunks, nil
}

// Answer retrieves context for query and starts a streamed generation.
// Failing to open the generation stream is not an error here: the returned
// stream yields the failure sentinel instead.
func (o *RAGOrchestrator) Answer(ctx context.Context, doc *domain.Document, query string) (*AnswerStream, error) {
	chunks, err := o.Retrieve(ctx, doc, query)
	if err != nil {
		return nil, err
	}
	prompt := BuildPrompt(chunks, query)

	genCtx, cancel := ctx, context.CancelFunc(func() {})
	if o.timeout > 0 {
		genCtx, cancel = context.WithTimeout(ctx, o.timeout)
	}

	upstream, err := o.llm.GenerateStream(genCtx, prompt, o.opts)
	if err != nil {
		logger.Warn("rag: opening generation stream for %s failed: %v", doc.ID, err)
		return newAnswerStream(ctx, nil, err, cancel), nil
	}
	return newAnswerStream(ctx, upstream, nil, cancel), nil
}
