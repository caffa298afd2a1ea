// Package api serves the document and chat HTTP API.
//
// Every JSON response is wrapped in an envelope. Application errors are
// reported with HTTP 200 and a code; only a wrong method yields 405.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Server hosts the API on a TCP listener.
type Server struct {
	mu        sync.Mutex
	addr      string
	documents driving.DocumentService
	chat      driving.ChatService
	server    *http.Server
	listener  net.Listener
	errChan   chan error
}

// NewServer creates a server for addr (host:port; ":0" picks a free port).
func NewServer(addr string, documents driving.DocumentService, chat driving.ChatService) *Server {
	return &Server{
		addr:      addr,
		documents: documents,
		chat:      chat,
		errChan:   make(chan error, 1),
	}
}

// Handler returns the routed API with access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents/process", s.handleUpload)
	mux.HandleFunc("GET /api/assets-list", s.handleListAssets)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetAsset)
	mux.HandleFunc("POST /api/chat/start", s.handleStartChat)
	mux.HandleFunc("GET /api/chat/message", s.handleMessage)
	mux.HandleFunc("POST /api/chat/message", s.handleMessage)
	mux.HandleFunc("GET /api/chat/history/all", s.handleHistoryAll)
	mux.HandleFunc("GET /api/chat/history/{id}", s.handleHistory)
	mux.HandleFunc("POST /api/chat/{id}/deactivate", s.handleDeactivate)
	mux.HandleFunc("GET /api/chat/ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", handleHealth)
	return withAccessLog(withRecovery(mux))
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()

	logger.Info("api: listening on %s", s.addr)
	return nil
}

// Addr returns the listen address, resolved once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Errors delivers a fatal serve error, if one occurs.
func (s *Server) Errors() <-chan error {
	return s.errChan
}

// Stop shuts the server down, waiting for open requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
