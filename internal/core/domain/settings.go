package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a model-serving backend for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI API or any server speaking its protocol.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string
}

// StorageSettings holds on-disk locations.
type StorageSettings struct {
	// DataDir holds the metadata database.
	DataDir string

	// IndexDir holds one persisted vector index per document.
	IndexDir string

	// UploadDir holds the uploaded source files.
	UploadDir string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Timeout bounds each embedding request.
	Timeout time.Duration

	// RequestsPerSecond throttles calls to the provider. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Timeout bounds a whole generation stream.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings controls how document text is split.
type ChunkingSettings struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// Overlap is the number of characters shared by neighbouring chunks.
	Overlap int
}

// RetrievalSettings controls context assembly.
type RetrievalSettings struct {
	// TopK is how many chunks are retrieved per question.
	TopK int
}

// IngestionSettings controls the background worker pool.
type IngestionSettings struct {
	// Workers is the number of concurrent ingestion goroutines.
	Workers int

	// QueueSize is the task buffer capacity.
	QueueSize int

	// Timeout bounds a single document ingestion.
	Timeout time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Server    ServerSettings
	Storage   StorageSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Ingestion IngestionSettings
}

// Validate checks settings for values the pipeline cannot run with.
func (s *AppSettings) Validate() error {
	if s.Chunking.ChunkSize <= 0 || s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.ChunkSize {
		return fmt.Errorf("%w: chunk size %d with overlap %d", ErrInvalidInput, s.Chunking.ChunkSize, s.Chunking.Overlap)
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidInput)
	}
	if s.Ingestion.Workers <= 0 {
		return fmt.Errorf("%w: ingestion workers must be positive", ErrInvalidInput)
	}
	if !s.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured", ErrInvalidInput, s.Embedding.Provider)
	}
	if !s.LLM.IsConfigured() {
		return fmt.Errorf("%w: llm provider %q is not configured", ErrInvalidInput, s.LLM.Provider)
	}
	return nil
}

// Default values shared by the settings service and the adapters.
const (
	DefaultChunkSize       = 500
	DefaultChunkOverlap    = 100
	DefaultTopK            = 5
	DefaultServerAddr      = ":8000"
	DefaultEmbedTimeout    = 30 * time.Second
	DefaultLLMTimeout      = 60 * time.Second
	DefaultIngestWorkers   = 2
	DefaultIngestQueueSize = 64
	DefaultIngestTimeout   = 10 * time.Minute
)

// DefaultAppSettings returns settings that work against a local Ollama.
// Storage directories are left empty; the settings service resolves them
// relative to the data directory.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Server: ServerSettings{Addr: DefaultServerAddr},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
			Timeout:  DefaultEmbedTimeout,
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
			Timeout:  DefaultLLMTimeout,
		},
		Chunking: ChunkingSettings{
			ChunkSize: DefaultChunkSize,
			Overlap:   DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{TopK: DefaultTopK},
		Ingestion: IngestionSettings{
			Workers:   DefaultIngestWorkers,
			QueueSize: DefaultIngestQueueSize,
			Timeout:   DefaultIngestTimeout,
		},
	}
}

// AllProviders returns providers that support both embeddings and generation.
func AllProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}
