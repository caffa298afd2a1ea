// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants list uploaded documents and ask questions about them.
package mcp

import "errors"

var (
	// ErrMissingDocumentService is returned when the document service is not provided.
	ErrMissingDocumentService = errors.New("mcp: document service is required")

	// ErrMissingChatService is returned when the chat service is not provided.
	ErrMissingChatService = errors.New("mcp: chat service is required")
)
