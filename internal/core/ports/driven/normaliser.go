package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Normaliser extracts plain text from one family of file formats.
type Normaliser interface {
	// SupportedExtensions returns the lower-case extensions (with dot) handled.
	SupportedExtensions() []string

	// Normalise returns the trimmed text content of the file.
	// Reader failures wrap domain.ErrExtraction.
	Normalise(ctx context.Context, raw *domain.RawDocument) (string, error)
}

// TextSplitter splits document text into overlapping chunks.
type TextSplitter interface {
	// Split returns ordered, non-empty chunks.
	// Returns domain.ErrInvalidInput for empty text.
	Split(text string) ([]string, error)
}
