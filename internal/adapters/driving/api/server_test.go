package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

type envelope struct {
	Success  bool            `json:"success"`
	Msg      string          `json:"msg"`
	Data     json.RawMessage `json:"data"`
	Code     string          `json:"code"`
	ErrorMsg string          `json:"errorMsg"`
}

func readyDoc() *domain.Document {
	return &domain.Document{
		ID:            "doc-1",
		FileName:      "colours.txt",
		FilePath:      "/data/uploads/doc-1/colours.txt",
		IndexLocation: "/data/indexes/doc-1",
		Status:        domain.StatusReady,
		UploadedAt:    testTime,
	}
}

func activeSession() *domain.ChatSession {
	return &domain.ChatSession{
		ID:               "chat-1",
		DocumentID:       "doc-1",
		Active:           true,
		StartedAt:        testTime,
		LastInteractedAt: testTime.Add(time.Minute),
		Turns: []domain.Turn{
			{ID: "t1", SessionID: "chat-1", Query: "What color is grass?", Answer: "Green.", CreatedAt: testTime.Add(time.Minute)},
		},
	}
}

func newTestServer(t *testing.T, docs *fakeDocuments, chat *fakeChat) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(":0", docs, chat).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("get: %w", domain.ErrNotFound), CodeNotFound},
		{domain.ErrNotReady, CodeNotReady},
		{domain.ErrInvalidInput, CodeInvalidInput},
		{domain.ErrEmptyInput, CodeInvalidInput},
		{domain.ErrUnsupportedFormat, CodeUnsupportedFormat},
		{fmt.Errorf("%w: bad zip", domain.ErrExtraction), CodeExtractionFailed},
		{domain.ErrEmbeddingService, CodeSomethingWrong},
		{errors.New("disk full"), CodeSomethingWrong},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestUpload(t *testing.T) {
	docs := newFakeDocuments()
	srv := newTestServer(t, docs, newFakeChat())

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "colours.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("The sky is blue."))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/documents/process", mw.FormDataContentType(), body)
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)

	assert.True(t, env.Success)
	assert.JSONEq(t, `{"asset_id":"doc-new"}`, string(env.Data))
	assert.Equal(t, []string{"colours.txt:The sky is blue."}, docs.uploaded)
}

func TestUpload_Failures(t *testing.T) {
	t.Run("missing file field", func(t *testing.T) {
		srv := newTestServer(t, newFakeDocuments(), newFakeChat())
		body := new(bytes.Buffer)
		mw := multipart.NewWriter(body)
		require.NoError(t, mw.WriteField("name", "x"))
		require.NoError(t, mw.Close())

		resp, err := http.Post(srv.URL+"/api/documents/process", mw.FormDataContentType(), body)
		require.NoError(t, err)
		env := decodeEnvelope(t, resp)
		assert.False(t, env.Success)
		assert.Equal(t, CodeInvalidInput, env.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		srv := newTestServer(t, newFakeDocuments(), newFakeChat())
		resp, err := http.Post(srv.URL+"/api/documents/process", "text/plain", strings.NewReader("hi"))
		require.NoError(t, err)
		env := decodeEnvelope(t, resp)
		assert.Equal(t, CodeInvalidInput, env.Code)
	})

	t.Run("unsupported format", func(t *testing.T) {
		docs := newFakeDocuments()
		docs.err = fmt.Errorf("%w: image.png", domain.ErrUnsupportedFormat)
		srv := newTestServer(t, docs, newFakeChat())

		body := new(bytes.Buffer)
		mw := multipart.NewWriter(body)
		part, _ := mw.CreateFormFile("file", "image.png")
		_, _ = part.Write([]byte{1, 2, 3})
		require.NoError(t, mw.Close())

		resp, err := http.Post(srv.URL+"/api/documents/process", mw.FormDataContentType(), body)
		require.NoError(t, err)
		env := decodeEnvelope(t, resp)
		assert.False(t, env.Success)
		assert.Equal(t, CodeUnsupportedFormat, env.Code)
		assert.Contains(t, env.ErrorMsg, "image.png")
	})
}

func TestWrongMethodIs405(t *testing.T) {
	srv := newTestServer(t, newFakeDocuments(), newFakeChat())

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/assets-list"},
		{http.MethodGet, "/api/chat/start"},
		{http.MethodDelete, "/api/chat/message"},
		{http.MethodGet, "/api/chat/chat-1/deactivate"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		})
	}
}

func TestAssets(t *testing.T) {
	failed := &domain.Document{ID: "doc-2", FileName: "broken.pdf", Status: domain.StatusFailed, Error: "embedding service error", UploadedAt: testTime}
	srv := newTestServer(t, newFakeDocuments(readyDoc(), failed), newFakeChat())

	resp, err := http.Get(srv.URL + "/api/documents/doc-1")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"asset":{
		"asset_id":"doc-1","file_name":"colours.txt","file_path":"/data/uploads/doc-1/colours.txt",
		"uploaded_at":"2026-03-01T12:00:00Z","processed":true,"status":"ready"}}`, string(env.Data))

	resp, err = http.Get(srv.URL + "/api/documents/doc-2")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	assert.Contains(t, string(env.Data), `"error":"embedding service error"`)
	assert.Contains(t, string(env.Data), `"processed":false`)

	resp, err = http.Get(srv.URL + "/api/documents/missing")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, CodeNotFound, env.Code)

	resp, err = http.Get(srv.URL + "/api/assets-list")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	var list struct {
		Assets []assetView `json:"assets"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Assets, 2)
}

func TestStartChat(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		query       string
		wantCode    string
	}{
		{name: "json body", contentType: "application/json", body: `{"asset_id":"doc-1"}`},
		{name: "form body", contentType: "application/x-www-form-urlencoded", body: "asset_id=doc-1"},
		{name: "query string", contentType: "application/json", query: "?asset_id=doc-1"},
		{name: "missing asset", contentType: "application/json", body: `{}`, wantCode: CodeInvalidInput},
		{name: "malformed json", contentType: "application/json", body: `{"asset_id":`, wantCode: CodeInvalidInput},
		{name: "not ready", contentType: "application/json", body: `{"asset_id":"pending"}`, wantCode: CodeNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, newFakeDocuments(readyDoc()), newFakeChat())
			resp, err := http.Post(srv.URL+"/api/chat/start"+tt.query, tt.contentType, strings.NewReader(tt.body))
			require.NoError(t, err)
			env := decodeEnvelope(t, resp)

			if tt.wantCode != "" {
				assert.False(t, env.Success)
				assert.Equal(t, tt.wantCode, env.Code)
				return
			}
			assert.True(t, env.Success)
			assert.JSONEq(t, `{"chat_id":"chat-new"}`, string(env.Data))
		})
	}
}

func TestStartChat_ValidationNamesField(t *testing.T) {
	srv := newTestServer(t, newFakeDocuments(), newFakeChat())
	resp, err := http.Post(srv.URL+"/api/chat/start", "application/json", strings.NewReader(`{"asset_id":"  "}`))
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	assert.Contains(t, env.ErrorMsg, "asset_id")
}

func TestMessage_StreamsEvents(t *testing.T) {
	chat := newFakeChat(activeSession())
	srv := newTestServer(t, newFakeDocuments(readyDoc()), chat)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			var resp *http.Response
			var err error
			q := url.Values{"chat_id": {"chat-1"}, "user_query": {"What color is grass?"}}
			if method == http.MethodGet {
				resp, err = http.Get(srv.URL + "/api/chat/message?" + q.Encode())
			} else {
				resp, err = http.PostForm(srv.URL+"/api/chat/message", q)
			}
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
			assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
			assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t,
				"data: \"Grass \"\n\ndata: \"is \"\n\ndata: \"green.\"\n\nevent: done\ndata: \"Grass is green.\"\n\n",
				string(body))
		})
	}

	require.Len(t, chat.streams, 2)
	for _, stream := range chat.streams {
		assert.True(t, stream.wasClosed())
	}
}

func TestMessage_ErrorsUseEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		chatErr  error
		wantCode string
	}{
		{"missing query", "?chat_id=chat-1", nil, CodeInvalidInput},
		{"missing chat", "?user_query=hi", nil, CodeInvalidInput},
		{"unknown chat", "?chat_id=nope&user_query=hi", nil, CodeNotFound},
		{"document not ready", "?chat_id=chat-1&user_query=hi", domain.ErrNotReady, CodeNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := newFakeChat(activeSession())
			chat.messageErr = tt.chatErr
			srv := newTestServer(t, newFakeDocuments(readyDoc()), chat)

			resp, err := http.Get(srv.URL + "/api/chat/message" + tt.query)
			require.NoError(t, err)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			env := decodeEnvelope(t, resp)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

func TestHistory(t *testing.T) {
	srv := newTestServer(t, newFakeDocuments(readyDoc()), newFakeChat(activeSession()))

	resp, err := http.Get(srv.URL + "/api/chat/history/chat-1")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)

	var data struct {
		Chat chatView `json:"chat"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "chat-1", data.Chat.ChatID)
	require.NotNil(t, data.Chat.Asset)
	assert.Equal(t, "doc-1", data.Chat.Asset.AssetID)
	require.Len(t, data.Chat.Conversations, 1)
	assert.Equal(t, "What color is grass?", data.Chat.Conversations[0].UserQuery)
	assert.Equal(t, "Green.", data.Chat.Conversations[0].BotResponse)

	resp, err = http.Get(srv.URL + "/api/chat/history/all")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	var all struct {
		Chats []chatView `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all.Chats, 1)
}

func TestDeactivate(t *testing.T) {
	srv := newTestServer(t, newFakeDocuments(readyDoc()), newFakeChat(activeSession()))

	resp, err := http.Post(srv.URL+"/api/chat/chat-1/deactivate", "application/json", nil)
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	assert.True(t, env.Success)

	resp, err = http.Get(srv.URL + "/api/chat/history/chat-1")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	assert.Equal(t, CodeNotFound, env.Code)

	resp, err = http.Post(srv.URL+"/api/chat/chat-1/deactivate", "application/json", nil)
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	assert.Equal(t, CodeNotFound, env.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, newFakeDocuments(), newFakeChat())
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	assert.True(t, env.Success)
}

func TestWebSocket(t *testing.T) {
	chat := newFakeChat(activeSession())
	srv := newTestServer(t, newFakeDocuments(readyDoc()), chat)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"chat_id": "chat-1", "user_query": "What color is grass?"}))

	var frames []wsFrame
	for {
		var f wsFrame
		require.NoError(t, conn.ReadJSON(&f))
		frames = append(frames, f)
		if f.Type != "token" {
			break
		}
	}
	require.Len(t, frames, 4)
	assert.Equal(t, wsFrame{Type: "token", Data: "Grass "}, frames[0])
	assert.Equal(t, wsFrame{Type: "done", Answer: "Grass is green."}, frames[3])

	require.NoError(t, conn.WriteJSON(map[string]string{"chat_id": "nope", "user_query": "hi"}))
	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, CodeNotFound, f.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, CodeInvalidInput, f.Code)
}

func TestWebSocket_DisconnectCancelsAnswer(t *testing.T) {
	chat := newFakeChat(activeSession())
	chat.hold = make(chan struct{})
	defer close(chat.hold)
	srv := newTestServer(t, newFakeDocuments(readyDoc()), chat)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"chat_id": "chat-1", "user_query": "What color is grass?"}))

	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, wsFrame{Type: "token", Data: "Grass "}, f)

	// Leave while the answer is still streaming.
	require.NoError(t, conn.Close())

	streamOf := func() *fakeStream {
		chat.mu.Lock()
		defer chat.mu.Unlock()
		if len(chat.streams) == 0 {
			return nil
		}
		return chat.streams[0]
	}
	require.Eventually(t, func() bool {
		stream := streamOf()
		return stream != nil && stream.wasCancelled() && stream.wasClosed()
	}, 2*time.Second, 10*time.Millisecond)

	_, completed := streamOf().Answer()
	assert.False(t, completed, "an abandoned answer must not complete")
}

func TestServer_StartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", newFakeDocuments(), newFakeChat())
	require.NoError(t, s.Start())
	assert.NotEqual(t, "127.0.0.1:0", s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
