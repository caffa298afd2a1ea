package api

import (
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

type assetView struct {
	AssetID    string    `json:"asset_id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	UploadedAt time.Time `json:"uploaded_at"`
	Processed  bool      `json:"processed"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

func newAssetView(doc *domain.Document) *assetView {
	if doc == nil {
		return nil
	}
	return &assetView{
		AssetID:    doc.ID,
		FileName:   doc.FileName,
		FilePath:   doc.FilePath,
		UploadedAt: doc.UploadedAt,
		Processed:  doc.Ready(),
		Status:     doc.Status.String(),
		Error:      doc.Error,
	}
}

type conversationView struct {
	UserQuery   string    `json:"user_query"`
	BotResponse string    `json:"bot_response"`
	CreatedAt   time.Time `json:"created_at"`
}

type chatView struct {
	ChatID           string             `json:"chat_id"`
	Asset            *assetView         `json:"asset"`
	StartedAt        time.Time          `json:"started_at"`
	LastInteractedAt time.Time          `json:"last_interacted_at"`
	Conversations    []conversationView `json:"conversations"`
}

func newChatView(session *domain.ChatSession, doc *domain.Document) chatView {
	conversations := make([]conversationView, len(session.Turns))
	for i, turn := range session.Turns {
		conversations[i] = conversationView{
			UserQuery:   turn.Query,
			BotResponse: turn.Answer,
			CreatedAt:   turn.CreatedAt,
		}
	}
	return chatView{
		ChatID:           session.ID,
		Asset:            newAssetView(doc),
		StartedAt:        session.StartedAt,
		LastInteractedAt: session.LastInteractedAt,
		Conversations:    conversations,
	}
}
