package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentOutput describes one uploaded document.
type DocumentOutput struct {
	DocumentID string    `json:"document_id"`
	FileName   string    `json:"file_name"`
	Status     string    `json:"status"`
	Ready      bool      `json:"ready"`
	Error      string    `json:"error,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentInput identifies one document.
type DocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document id returned on upload"`
}

// StartChatOutput is the output schema for the start_chat tool.
type StartChatOutput struct {
	ChatID string `json:"chat_id"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	ChatID   string `json:"chat_id" jsonschema:"the chat session id from start_chat"`
	Question string `json:"question" jsonschema:"the question to answer from the document"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer string `json:"answer"`
}

// ChatInput identifies one chat session.
type ChatInput struct {
	ChatID string `json:"chat_id" jsonschema:"the chat session id"`
}

// TurnOutput is one question and answer pair.
type TurnOutput struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatHistoryOutput is the output schema for the chat_history tool.
type ChatHistoryOutput struct {
	ChatID     string       `json:"chat_id"`
	DocumentID string       `json:"document_id"`
	Turns      []TurnOutput `json:"turns"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded documents and whether they are ready for questions",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Show the ingestion status of one document",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "start_chat",
		Description: "Open a chat session over a ready document",
	}, s.handleStartChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question in a chat session and get the answer grounded in the document",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat_history",
		Description: "Show the questions and answers of a chat session",
	}, s.handleChatHistory)
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Documents.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = documentOutput(&docs[i])
	}
	return nil, output, nil
}

func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	id := strings.TrimSpace(input.DocumentID)
	if id == "" {
		return nil, DocumentOutput{}, fmt.Errorf("%w: document_id is required", domain.ErrInvalidInput)
	}
	doc, err := s.ports.Documents.Get(ctx, id)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, documentOutput(doc), nil
}

func (s *Server) handleStartChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, StartChatOutput, error) {
	session, err := s.ports.Chat.Start(ctx, strings.TrimSpace(input.DocumentID))
	if err != nil {
		return nil, StartChatOutput{}, err
	}
	return nil, StartChatOutput{ChatID: session.ID}, nil
}

// handleAsk drains the answer stream so the turn is recorded.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	stream, err := s.ports.Chat.Message(ctx, strings.TrimSpace(input.ChatID), strings.TrimSpace(input.Question))
	if err != nil {
		return nil, AskOutput{}, err
	}
	defer stream.Close()

	for stream.Next() {
		_ = stream.Token()
	}
	answer, ok := stream.Answer()
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, AskOutput{}, err
		}
		return nil, AskOutput{}, fmt.Errorf("%w: answer stream ended early", domain.ErrGenerationService)
	}
	return nil, AskOutput{Answer: answer}, nil
}

func (s *Server) handleChatHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatHistoryOutput, error) {
	session, err := s.ports.Chat.History(ctx, strings.TrimSpace(input.ChatID))
	if err != nil {
		return nil, ChatHistoryOutput{}, err
	}
	return nil, historyOutput(session), nil
}

func documentOutput(doc *domain.Document) DocumentOutput {
	return DocumentOutput{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Status:     doc.Status.String(),
		Ready:      doc.Ready(),
		Error:      doc.Error,
		UploadedAt: doc.UploadedAt,
	}
}

func historyOutput(session *domain.ChatSession) ChatHistoryOutput {
	turns := make([]TurnOutput, len(session.Turns))
	for i, turn := range session.Turns {
		turns[i] = TurnOutput{Question: turn.Query, Answer: turn.Answer, CreatedAt: turn.CreatedAt}
	}
	return ChatHistoryOutput{ChatID: session.ID, DocumentID: session.DocumentID, Turns: turns}
}
