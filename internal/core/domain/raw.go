package domain

import (
	"path/filepath"
	"strings"
)

// RawDocument represents the uploaded bytes before text extraction.
type RawDocument struct {
	// FileName is the original file name; its extension selects the normaliser.
	FileName string

	// Content is the raw bytes.
	Content []byte
}

// Extension returns the lower-cased file extension including the dot.
func (r *RawDocument) Extension() string {
	return strings.ToLower(filepath.Ext(r.FileName))
}
