package domain

import "time"

// DocumentStatus tracks a document through the ingestion state machine.
type DocumentStatus string

// Ingestion states. A document moves pending -> processing -> ready|failed.
const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once ingestion can no longer change the status.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document represents an uploaded file and the state of its semantic index.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// FileName is the original name of the uploaded file.
	FileName string

	// FilePath is where the uploaded bytes are stored.
	FilePath string

	// IndexLocation is where the persisted vector index lives.
	// Empty until the document is ready.
	IndexLocation string

	// Status is the ingestion state.
	Status DocumentStatus

	// Error holds the failure detail when Status is StatusFailed.
	Error string

	// UploadedAt is when the document was received.
	UploadedAt time.Time

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}

// Ready reports whether the document can be chatted against.
func (d *Document) Ready() bool {
	return d.Status == StatusReady && d.IndexLocation != ""
}

// Chunk is a contiguous span of a document's text.
// Chunks only exist during ingestion and as entries inside a vector index.
type Chunk struct {
	// Position is the ordinal position within the document.
	Position int

	// Content is the text of this chunk.
	Content string

	// Embedding is the vector representation of Content.
	Embedding []float32
}

// RetrievedChunk is a search hit from a vector index.
type RetrievedChunk struct {
	// Position is the chunk's ordinal position within the document.
	Position int

	// Content is the chunk text.
	Content string

	// Score is the cosine similarity to the query (higher is closer).
	Score float64
}

// IngestTask is the unit of work handed to the ingestion queue.
type IngestTask struct {
	DocumentID string
	Text       string
}
