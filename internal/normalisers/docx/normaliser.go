// Package docx extracts text from Office Open XML word processing files.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const documentPart = "word/document.xml"

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".docx"}
}

// Normalise returns the text of the main document part with one line per
// paragraph, including paragraphs inside tables.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return "", fmt.Errorf("%w: not a docx archive: %w", domain.ErrExtraction, err)
	}

	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: opening %s: %w", domain.ErrExtraction, documentPart, err)
		}
		defer rc.Close()

		text, err := extractText(rc)
		if err != nil {
			return "", fmt.Errorf("%w: parsing %s: %w", domain.ErrExtraction, documentPart, err)
		}
		return text, nil
	}

	return "", fmt.Errorf("%w: %s missing", domain.ErrExtraction, documentPart)
}

// extractText walks the WordprocessingML token stream. Text lives in <w:t>
// elements; <w:tab/> and <w:br/> are rendered as whitespace and every
// closing <w:p> ends a line.
func extractText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var out strings.Builder
	var line strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte('\t')
			case "br", "cr":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					if out.Len() > 0 {
						out.WriteByte('\n')
					}
					out.WriteString(s)
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}

	return strings.TrimSpace(out.String()), nil
}
