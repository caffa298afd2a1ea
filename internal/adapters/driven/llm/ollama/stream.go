package ollama

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

// tokenStream reads newline-delimited generateResponse objects.
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
		if len(line) == 0 {
			continue
		}

		var chunk generateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.err = fmt.Errorf("%w: decode stream: %w", domain.ErrGenerationService, err)
			return false
		}
		if chunk.Error != "" {
			s.err = fmt.Errorf("%w: ollama: %s", domain.ErrGenerationService, chunk.Error)
			return false
		}
		if chunk.Done {
			s.done = true
			if chunk.Response == "" {
				return false
			}
		} else if chunk.Response == "" {
			continue
		}

		s.token = chunk.Response
		return true
	}

	if s.closed.Load() {
		return false
	}
	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("%w: read stream: %w", domain.ErrGenerationService, err)
	} else {
		s.err = fmt.Errorf("%w: stream ended before completion", domain.ErrGenerationService)
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
