// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService streams text generation from a language model backend.
//
// Implementations may include:
//   - Ollama (local models, /api/generate)
//   - OpenAI and compatible servers (/chat/completions)
type LLMService interface {
	// Generate produces a full completion for a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream starts a streamed completion. The returned stream must
	// be closed by the caller. Opening failures wrap domain.ErrGenerationService.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (TokenStream, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// TokenStream is a pull-based sequence of generated text fragments.
//
//	for stream.Next() {
//		fmt.Print(stream.Token())
//	}
//	if err := stream.Err(); err != nil { ... }
type TokenStream interface {
	// Next advances to the next token. It returns false at the end of the
	// stream or on error.
	Next() bool

	// Token returns the current token. Valid after Next returns true.
	Token() string

	// Err returns the error that stopped the stream, if any.
	Err() error

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}
