package openai

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var _ driven.TokenStream = (*tokenStream)(nil)

const maxLineSize = 1 << 20

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// tokenStream reads a server-sent event stream of chatCompletionChunk
// payloads terminated by "data: [DONE]".
type tokenStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	token   string
	err     error
	done    bool

	closed    atomic.Bool
	closeOnce sync.Once
}

func newTokenStream(body io.ReadCloser) *tokenStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &tokenStream{body: body, scanner: scanner}
}

func (s *tokenStream) Next() bool {
	if s.done || s.err != nil || s.closed.Load() {
		return false
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		// Blank lines separate events; comments, event names and ids carry no text.
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := bytes.TrimSpace(line[len(dataPrefix):])
		if bytes.Equal(payload, doneMarker) {
			s.done = true
			return false
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			s.err = fmt.Errorf("%w: decode stream: %w", domain.ErrGenerationService, err)
			return false
		}
		if chunk.Error != nil {
			s.err = fmt.Errorf("%w: openai: %s", domain.ErrGenerationService, chunk.Error.Message)
			return false
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		s.token = chunk.Choices[0].Delta.Content
		return true
	}

	if s.closed.Load() {
		return false
	}
	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("%w: read stream: %w", domain.ErrGenerationService, err)
	} else {
		s.err = fmt.Errorf("%w: stream ended before [DONE]", domain.ErrGenerationService)
	}
	return false
}

func (s *tokenStream) Token() string {
	return s.token
}

func (s *tokenStream) Err() error {
	return s.err
}

func (s *tokenStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.body.Close()
	})
	return err
}
