package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// FailureToken is yielded once in place of the rest of an answer whose
// generation stream broke.
const FailureToken = "[ERROR: LLM stream failed]"

// Ensure AnswerStream implements the interface.
var _ driving.AnswerStream = (*AnswerStream)(nil)

const (
	stateStreaming int32 = iota
	stateFailing
	stateDone
	stateCancelled
)

// AnswerStream relays generated tokens and accumulates the answer.
// Next, Token and Answer belong to one consumer goroutine; Close may be
// called from any goroutine.
type AnswerStream struct {
	ctx      context.Context
	upstream driven.TokenStream
	openErr  error
	cancel   context.CancelFunc

	state   atomic.Int32
	release sync.Once

	token      string
	answer     strings.Builder
	err        error
	onComplete func(answer string)
}

func newAnswerStream(
	ctx context.Context,
	upstream driven.TokenStream,
	openErr error,
	cancel context.CancelFunc,
) *AnswerStream {
	return &AnswerStream{
		ctx:      ctx,
		upstream: upstream,
		openErr:  openErr,
		cancel:   cancel,
	}
}

// OnComplete registers fn to run once, with the full answer, when the stream
// is drained to its end. It never runs for a closed or cancelled stream.
func (s *AnswerStream) OnComplete(fn func(answer string)) {
	s.onComplete = fn
}

// Next advances to the next token.
func (s *AnswerStream) Next() bool {
	switch s.state.Load() {
	case stateDone, stateCancelled:
		return false
	case stateFailing:
		return s.complete(stateFailing)
	}

	if s.ctx.Err() != nil {
		s.abort()
		return false
	}

	if s.upstream != nil {
		for s.upstream.Next() {
			token := s.upstream.Token()
			if token == "" {
				continue
			}
			if s.state.Load() != stateStreaming {
				return false
			}
			s.emit(token)
			return true
		}
	}

	if s.state.Load() == stateCancelled || s.ctx.Err() != nil {
		s.abort()
		return false
	}

	err := s.openErr
	if s.upstream != nil {
		err = s.upstream.Err()
	}
	if err == nil {
		return s.complete(stateStreaming)
	}

	if !s.state.CompareAndSwap(stateStreaming, stateFailing) {
		return false
	}
	logger.Warn("chat: generation stream failed: %v", err)
	s.err = err
	s.emit(FailureToken)
	return true
}

func (s *AnswerStream) emit(token string) {
	s.token = token
	s.answer.WriteString(token)
}

func (s *AnswerStream) complete(from int32) bool {
	if !s.state.CompareAndSwap(from, stateDone) {
		return false
	}
	s.token = ""
	s.close()
	if s.onComplete != nil {
		s.onComplete(s.answer.String())
	}
	return false
}

func (s *AnswerStream) abort() {
	for {
		st := s.state.Load()
		if st == stateDone || st == stateCancelled {
			break
		}
		if s.state.CompareAndSwap(st, stateCancelled) {
			break
		}
	}
	s.close()
}

func (s *AnswerStream) close() {
	s.release.Do(func() {
		if s.upstream != nil {
			if err := s.upstream.Close(); err != nil {
				logger.Debug("chat: closing generation stream: %v", err)
			}
		}
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Token returns the current token.
func (s *AnswerStream) Token() string {
	return s.token
}

// Answer returns the tokens yielded so far and whether the stream was
// drained to its end.
func (s *AnswerStream) Answer() (string, bool) {
	return s.answer.String(), s.state.Load() == stateDone
}

// Err returns the generation error replaced by FailureToken, if any.
func (s *AnswerStream) Err() error {
	return s.err
}

// Close stops the stream. Closing a drained stream has no effect.
func (s *AnswerStream) Close() error {
	s.abort()
	return nil
}
