package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for an upload
// by file extension.
type NormaliserRegistry interface {
	// Normalise extracts text using the normaliser registered for the
	// file's extension. Returns domain.ErrUnsupportedFormat when none is.
	Normalise(ctx context.Context, raw *domain.RawDocument) (string, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// Supports reports whether the file name has a registered extension.
	Supports(fileName string) bool

	// SupportedExtensions returns all extensions that can be normalised.
	SupportedExtensions() []string
}
