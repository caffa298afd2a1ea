package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Covers missing documents, inactive or missing sessions, and absent index blobs.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyInput indicates an index build was attempted with no chunks.
	ErrEmptyInput = errors.New("empty input")

	// ErrNotReady indicates a chat was attempted against a document
	// whose index has not been built.
	ErrNotReady = errors.New("document not ready")

	// ErrCorrupt indicates a persisted index could not be decoded.
	ErrCorrupt = errors.New("corrupt index")

	// Model Serving Errors.

	// ErrEmbeddingService indicates the embedding backend failed or timed out.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService indicates the language model backend failed or timed out.
	ErrGenerationService = errors.New("generation service error")

	// Extraction Errors.

	// ErrUnsupportedFormat indicates no normaliser handles the file extension.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtraction indicates a normaliser could not read the file.
	ErrExtraction = errors.New("text extraction failed")

	// ErrQueueClosed indicates the ingestion queue is not accepting tasks.
	ErrQueueClosed = errors.New("ingestion queue closed")
)
