// Package messages defines Bubbletea message types for the chat TUI.
// Stream messages carry the stream they came from so that tokens of an
// abandoned answer can be told apart from the current one.
package messages

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// HistoryLoaded carries the session's earlier turns.
type HistoryLoaded struct {
	Session *domain.ChatSession
	Err     error
}

// DocumentLoaded carries the document the session is about.
type DocumentLoaded struct {
	Document *domain.Document
}

// StreamOpened is sent once the service accepted a question.
type StreamOpened struct {
	Stream driving.AnswerStream
	Err    error
}

// TokenReceived carries the next token of the answer.
type TokenReceived struct {
	Stream driving.AnswerStream
	Token  string
}

// AnswerCompleted is sent when the stream has been fully drained.
// Err is set when the model failed mid-answer.
type AnswerCompleted struct {
	Stream driving.AnswerStream
	Answer string
	Err    error
}

// AnswerCancelled is sent when the stream stopped before its end.
type AnswerCancelled struct {
	Stream driving.AnswerStream
}
