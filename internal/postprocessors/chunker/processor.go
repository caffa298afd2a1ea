// Package chunker provides an overlapping, separator-aware text splitter.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.TextSplitter = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// separators are tried in order when choosing where a chunk ends.
var separators = []string{"\n\n", "\n", " "}

// Processor splits document text into overlapping chunks.
// Sizes are measured in runes, not bytes.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// Invalid sizes are reported by Split, not corrected here.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Validate checks that the configured sizes can produce chunks.
func (p *Processor) Validate() error {
	if p.chunkSize <= 0 || p.overlap < 0 {
		return fmt.Errorf("%w: chunk size %d and overlap %d must be positive",
			domain.ErrInvalidInput, p.chunkSize, p.overlap)
	}
	if p.chunkSize <= p.overlap {
		return fmt.Errorf("%w: chunk size %d must exceed overlap %d",
			domain.ErrInvalidInput, p.chunkSize, p.overlap)
	}
	return nil
}

// Split returns the ordered chunks of text. Every chunk is non-empty and at
// most chunkSize runes; neighbours share at most overlap runes.
func (p *Processor) Split(text string) ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrInvalidInput)
	}

	runes := []rune(text)
	spans := p.spans(runes)
	chunks := make([]string, len(spans))
	for i, s := range spans {
		chunks[i] = string(runes[s.start:s.end])
	}
	return chunks, nil
}

// Process splits text into positioned chunks ready for embedding.
func (p *Processor) Process(_ context.Context, text string) ([]domain.Chunk, error) {
	parts, err := p.Split(text)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = domain.Chunk{
			Position: i,
			Content:  part,
		}
	}
	return chunks, nil
}

type span struct {
	start, end int
}

// spans computes chunk boundaries over runes.
func (p *Processor) spans(runes []rune) []span {
	n := len(runes)
	if n <= p.chunkSize {
		return []span{{0, n}}
	}

	estimated := (n / (p.chunkSize - p.overlap)) + 1
	out := make([]span, 0, estimated)

	start := 0
	for start < n {
		end := start + p.chunkSize
		if end >= n {
			out = append(out, span{start, n})
			break
		}
		end = p.cutPoint(runes, start, end)
		out = append(out, span{start, end})
		start = p.nextStart(runes, start, end)
	}
	return out
}

// cutPoint picks where the chunk starting at start should end, preferring
// the latest separator so that the next chunk still makes progress.
func (p *Processor) cutPoint(runes []rune, start, limit int) int {
	lowest := start + p.overlap + 1
	for _, sep := range separators {
		sr := []rune(sep)
		for c := limit; c >= lowest && c-len(sr) >= start; c-- {
			if hasSuffixAt(runes, c, sr) {
				return c
			}
		}
	}
	return limit
}

// nextStart backs up by overlap from end, then moves forward to the first
// word boundary inside the overlap window when there is one.
func (p *Processor) nextStart(runes []rune, start, end int) int {
	lo := end - p.overlap
	if lo <= start {
		lo = start + 1
	}
	for j := lo; j < end; j++ {
		if unicode.IsSpace(runes[j-1]) && !unicode.IsSpace(runes[j]) {
			return j
		}
	}
	return lo
}

func hasSuffixAt(runes []rune, at int, suffix []rune) bool {
	if at-len(suffix) < 0 || at > len(runes) {
		return false
	}
	for i, r := range suffix {
		if runes[at-len(suffix)+i] != r {
			return false
		}
	}
	return true
}
