package telegram

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/eventscope/pkg/config"
)

func newTestClient(endpoint string) *Client {
	return NewClient(config.TelegramConfig{
		Token:    "test-token",
		Endpoint: endpoint,
		Timeout:  5 * time.Second,
	})
}

func TestClient_SendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "42", r.Form.Get("chat_id"))
		assert.Equal(t, "hello *there*", r.Form.Get("text"))
		assert.Equal(t, "Markdown", r.Form.Get("parse_mode"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	require.NoError(t, c.SendMessage(t.Context(), 42, "hello *there*"))
}

func TestClient_SendMessage_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"description":"bot was blocked"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	err := c.SendMessage(t.Context(), 42, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestClient_Download(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottest-token/getFile":
			assert.Equal(t, "photo-123", r.URL.Query().Get("file_id"))
			_, _ = w.Write([]byte(`{"ok":true,"result":{"file_path":"photos/file_1.jpg"}}`))
		case "/file/bottest-token/photos/file_1.jpg":
			_, _ = w.Write([]byte("jpeg-bytes"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	data, err := c.Download(t.Context(), "photo-123")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
}

func TestClient_Download_NoFilePath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Download(t.Context(), "gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no file path")
}

func TestLargestPhoto(t *testing.T) {
	photos := []PhotoSize{
		{FileID: "small", Width: 90, Height: 60},
		{FileID: "large", Width: 1280, Height: 960},
		{FileID: "medium", Width: 320, Height: 240},
	}
	best, ok := LargestPhoto(photos)
	require.True(t, ok)
	assert.Equal(t, "large", best.FileID)

	_, ok = LargestPhoto(nil)
	assert.False(t, ok)
}
