package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 64 << 10
	wsQueuedMessages = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsRequest is one question sent by the client.
type wsRequest struct {
	ChatID    string `json:"chat_id" validate:"required"`
	UserQuery string `json:"user_query" validate:"required"`
}

// wsFrame is a server message: token frames while streaming, then one done
// or error frame per question.
type wsFrame struct {
	Type   string `json:"type"`
	Data   string `json:"data,omitempty"`
	Answer string `json:"answer,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleWebSocket answers questions over a websocket, one at a time.
// A read pump keeps reading while an answer streams so that a peer going
// away cancels the answer in flight.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("api: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	// The request context is not cancelled once the connection is hijacked.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	for message := range readPump(ctx, cancel, conn) {
		var req wsRequest
		if err := json.Unmarshal(message, &req); err != nil {
			if s.writeFrame(conn, errorFrame(fmt.Errorf("%w: malformed message: %w", domain.ErrInvalidInput, err))) != nil {
				return
			}
			continue
		}

		req.ChatID = strings.TrimSpace(req.ChatID)
		req.UserQuery = strings.TrimSpace(req.UserQuery)
		if err := check(req); err != nil {
			if s.writeFrame(conn, errorFrame(err)) != nil {
				return
			}
			continue
		}

		if err := s.answerOverSocket(ctx, conn, req); err != nil {
			logger.Debug("api: websocket answer: %v", err)
			return
		}
	}
}

// readPump delivers client messages until a read fails, then cancels ctx
// and closes the returned channel.
func readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) <-chan []byte {
	messages := make(chan []byte, wsQueuedMessages)
	go func() {
		defer close(messages)
		defer cancel()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("api: websocket read: %v", err)
				}
				return
			}
			select {
			case messages <- message:
			case <-ctx.Done():
				return
			}
		}
	}()
	return messages
}

func (s *Server) answerOverSocket(ctx context.Context, conn *websocket.Conn, req wsRequest) error {
	stream, err := s.chat.Message(ctx, req.ChatID, req.UserQuery)
	if err != nil {
		return s.writeFrame(conn, errorFrame(err))
	}
	defer stream.Close()

	for stream.Next() {
		if err := s.writeFrame(conn, wsFrame{Type: "token", Data: stream.Token()}); err != nil {
			return err
		}
	}

	answer, ok := stream.Answer()
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return errors.New("answer stream cancelled")
	}
	return s.writeFrame(conn, wsFrame{Type: "done", Answer: answer})
}

func (s *Server) writeFrame(conn *websocket.Conn, frame wsFrame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}

func errorFrame(err error) wsFrame {
	return wsFrame{Type: "error", Code: ErrorCode(err), Error: err.Error()}
}
