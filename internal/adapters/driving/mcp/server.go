package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// ServerName identifies docqa to MCP clients.
	ServerName = "docqa"

	// ServerTitle is the human readable name shown by MCP clients.
	ServerTitle = "docqa document chat"

	// Version is reported to clients during initialisation.
	Version = "0.1.0"

	// Instructions tells the calling model how the tools fit together.
	Instructions = "Answers questions about uploaded documents. " +
		"Call list_documents to find a ready document, start_chat to open a chat on it, " +
		"then ask with the chat_id. Answers only use text retrieved from that document. " +
		"chat_history returns earlier turns; docqa://documents and docqa://chats/{id} expose the same data as resources."

	shutdownTimeout = 5 * time.Second
)

// Server exposes document listing and document chat as MCP tools and
// resources. It holds no state of its own; every call goes to Ports.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer wires the tools and resources onto an MCP server. Ports must
// carry both the document and chat services.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: ServerName, Title: ServerTitle, Version: Version},
			&mcp.ServerOptions{Instructions: Instructions},
		),
	}
	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves a single client on stdin/stdout until ctx ends or the client
// goes away.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr. Cancelling ctx shuts
// the listener down and RunHTTP returns nil.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr: addr,
		Handler: mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return s.server
		}, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}
