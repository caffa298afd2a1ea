package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorIndex builds and persists one nearest-neighbour index per document.
type VectorIndex interface {
	// Build constructs a searchable index in memory.
	// Returns domain.ErrEmptyInput when chunks is empty.
	Build(chunks []domain.Chunk) (IndexHandle, error)

	// Persist writes the index to location atomically: either the complete
	// index lands or the previous contents of location stay untouched.
	Persist(ctx context.Context, handle IndexHandle, location string) error

	// Load reads an index back from location.
	// Returns domain.ErrNotFound when nothing is persisted there and
	// domain.ErrCorrupt when the blob cannot be decoded.
	Load(ctx context.Context, location string) (IndexHandle, error)

	// Location returns the storage location for a document's index.
	Location(documentID string) string
}

// IndexHandle is a loaded, read-only index. Safe for concurrent searches.
type IndexHandle interface {
	// Search returns up to k chunks ordered best-first by cosine similarity.
	// Returns domain.ErrInvalidInput when k <= 0.
	Search(query []float32, k int) ([]domain.RetrievedChunk, error)

	// Len returns the number of indexed chunks.
	Len() int

	// Dimensions returns the vector size.
	Dimensions() int
}
