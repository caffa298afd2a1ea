package tui

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("tui: chat service is required")

// ErrMissingSession is returned when no chat session id is given.
var ErrMissingSession = errors.New("tui: chat session id is required")
