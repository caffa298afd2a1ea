package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "docqa-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// createTestDocument saves a document to satisfy foreign key constraints.
func createTestDocument(t *testing.T, store *Store, id string, uploadedAt time.Time) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:         id,
		FileName:   id + ".txt",
		FilePath:   "/uploads/" + id + "/" + id + ".txt",
		Status:     domain.StatusPending,
		UploadedAt: uploadedAt,
		UpdatedAt:  uploadedAt,
	}
	require.NoError(t, store.DocumentStore().SaveDocument(context.Background(), doc))
	return doc
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.Equal(t, "metadata.db", filepath.Base(store.Path()))
	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_RecordsMigrations(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	createTestDocument(t, first, "doc-1", time.Now())
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	doc, err := second.DocumentStore().GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1.txt", doc.FileName)
}

// ==================== Document Store Tests ====================

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	createTestDocument(t, store, "doc-1", now)

	doc, err := store.DocumentStore().GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, domain.StatusPending, doc.Status)
	assert.True(t, now.Equal(doc.UploadedAt))
	assert.Empty(t, doc.IndexLocation)
}

func TestDocumentStore_UpdateStatus(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docs := store.DocumentStore()

	doc := createTestDocument(t, store, "doc-1", time.Now())
	doc.Status = domain.StatusReady
	doc.IndexLocation = "/indexes/doc-1"
	doc.UpdatedAt = time.Now()
	require.NoError(t, docs.SaveDocument(ctx, doc))

	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, got.Ready())
	assert.Equal(t, "/indexes/doc-1", got.IndexLocation)
}

func TestDocumentStore_GetNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.DocumentStore().GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveRequiresID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.DocumentStore().SaveDocument(context.Background(), &domain.Document{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_ListNewestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	base := time.Now().UTC().Truncate(time.Second)
	createTestDocument(t, store, "old", base.Add(-2*time.Hour))
	createTestDocument(t, store, "new", base)
	createTestDocument(t, store, "mid", base.Add(-time.Hour))

	docs, err := store.DocumentStore().ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
}

func TestDocumentStore_ListByStatus(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docs := store.DocumentStore()

	base := time.Now().UTC()
	for i, st := range []domain.DocumentStatus{
		domain.StatusPending, domain.StatusProcessing, domain.StatusReady, domain.StatusFailed,
	} {
		doc := createTestDocument(t, store, string(st), base.Add(time.Duration(i)*time.Minute))
		doc.Status = st
		require.NoError(t, docs.SaveDocument(ctx, doc))
	}

	stranded, err := docs.ListDocumentsByStatus(ctx, domain.StatusPending, domain.StatusProcessing)
	require.NoError(t, err)
	require.Len(t, stranded, 2)
	assert.Equal(t, "pending", stranded[0].ID)
	assert.Equal(t, "processing", stranded[1].ID)

	none, err := docs.ListDocumentsByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// ==================== Chat Store Tests ====================

func TestChatStore_SessionLifecycle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chats := store.ChatStore()

	createTestDocument(t, store, "doc-1", time.Now())
	now := time.Now().UTC().Truncate(time.Second)
	session := &domain.ChatSession{
		ID:               "chat-1",
		DocumentID:       "doc-1",
		Active:           true,
		StartedAt:        now,
		LastInteractedAt: now,
	}
	require.NoError(t, chats.SaveSession(ctx, session))

	got, err := chats.GetSession(ctx, "chat-1")
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, "doc-1", got.DocumentID)

	session.Active = false
	require.NoError(t, chats.SaveSession(ctx, session))

	got, err = chats.GetSession(ctx, "chat-1")
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestChatStore_SessionRequiresDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.ChatStore().SaveSession(context.Background(), &domain.ChatSession{
		ID:         "chat-1",
		DocumentID: "missing",
		Active:     true,
		StartedAt:  time.Now(),
	})
	assert.Error(t, err)
}

func TestChatStore_GetSessionNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.ChatStore().GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatStore_ListSessions(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chats := store.ChatStore()

	createTestDocument(t, store, "doc-1", time.Now())
	base := time.Now().UTC()
	for i, active := range []bool{true, false, true} {
		require.NoError(t, chats.SaveSession(ctx, &domain.ChatSession{
			ID:         "chat-" + string(rune('a'+i)),
			DocumentID: "doc-1",
			Active:     active,
			StartedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	all, err := chats.ListSessions(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := chats.ListSessions(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "chat-a", active[0].ID)
	assert.Equal(t, "chat-c", active[1].ID)
}

func TestChatStore_AppendTurn(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chats := store.ChatStore()

	createTestDocument(t, store, "doc-1", time.Now())
	started := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, chats.SaveSession(ctx, &domain.ChatSession{
		ID: "chat-1", DocumentID: "doc-1", Active: true, StartedAt: started, LastInteractedAt: started,
	}))

	at := time.Now().UTC().Truncate(time.Second)
	// Identical timestamps still come back in insertion order.
	for i, q := range []string{"first?", "second?", "third?"} {
		require.NoError(t, chats.AppendTurn(ctx, &domain.Turn{
			ID:        "turn-" + string(rune('1'+i)),
			SessionID: "chat-1",
			Query:     q,
			Answer:    "answer to " + q,
			CreatedAt: at,
		}))
	}

	turns, err := chats.GetTurns(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "first?", turns[0].Query)
	assert.Equal(t, "third?", turns[2].Query)
	assert.Equal(t, "answer to second?", turns[1].Answer)

	session, err := chats.GetSession(ctx, "chat-1")
	require.NoError(t, err)
	assert.True(t, at.Equal(session.LastInteractedAt))
}

func TestChatStore_AppendTurnUnknownSession(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	err := store.ChatStore().AppendTurn(ctx, &domain.Turn{
		ID: "turn-1", SessionID: "missing", Query: "q", Answer: "a", CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	turns, err := store.ChatStore().GetTurns(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, turns)
}
