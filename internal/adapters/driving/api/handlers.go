package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// maxUploadSize bounds a single uploaded document.
const maxUploadSize = 64 << 20

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"})
}

// handleUpload accepts a multipart "file" field and schedules ingestion.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, tooLarge.Limit))
			return
		}
		writeFailure(w, fmt.Errorf("%w: expected multipart form with a file field: %w", domain.ErrInvalidInput, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, fmt.Errorf("%w: file is required", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeFailure(w, fmt.Errorf("%w: reading upload: %w", domain.ErrInvalidInput, err))
		return
	}

	doc, err := s.documents.Upload(r.Context(), header.Filename, content)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, map[string]string{"asset_id": doc.ID})
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	assets := make([]*assetView, len(docs))
	for i := range docs {
		assets[i] = newAssetView(&docs[i])
	}
	writeSuccess(w, map[string]any{"assets": assets})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, map[string]any{"asset": newAssetView(doc)})
}

func (s *Server) handleStartChat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeStartChat(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	session, err := s.chat.Start(r.Context(), req.AssetID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, map[string]string{"chat_id": session.ID})
}

// handleMessage streams the answer as server-sent events. Errors found
// before the first byte is written use the normal envelope.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMessage(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	stream, err := s.chat.Message(r.Context(), req.ChatID, req.UserQuery)
	if err != nil {
		writeFailure(w, err)
		return
	}
	defer stream.Close()

	writeEventStream(w, stream)
}

func (s *Server) handleHistoryAll(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.chat.HistoryAll(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	chats := make([]chatView, len(sessions))
	for i := range sessions {
		chats[i] = newChatView(&sessions[i], s.lookupDocument(r, sessions[i].DocumentID))
	}
	writeSuccess(w, map[string]any{"chats": chats})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	session, err := s.chat.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, map[string]any{"chat": newChatView(session, s.lookupDocument(r, session.DocumentID))})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if err := s.chat.Deactivate(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, map[string]string{"chat_id": id})
}

// lookupDocument returns nil when the session's document cannot be read.
func (s *Server) lookupDocument(r *http.Request, id string) *domain.Document {
	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		logger.Debug("api: document %s for chat history: %v", id, err)
		return nil
	}
	return doc
}
