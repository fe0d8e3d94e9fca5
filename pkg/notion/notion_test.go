package notion

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/eventscope/pkg/config"
	"github.com/umputun/eventscope/pkg/domain"
)

func testCandidate() domain.EventCandidate {
	return domain.EventCandidate{
		Title: "Jazz Night", Date: "2025-06-24 20:00", Location: "Blue Note",
		Description: "an evening of jazz", Source: "telegram", UserID: "u1",
		InputType: domain.InputText, RawInput: "jazz night june 24",
	}
}

func singleExpansion(title, date string) domain.Expansion {
	return domain.Expansion{
		DisplayTitle: title,
		Sessions:     []domain.Session{{Number: 1, Total: 1, Title: title, Date: date}},
	}
}

func newClient(endpoint string) *Client {
	return NewClient(config.NotionConfig{
		Token:      "secret-token",
		DatabaseID: "db-123",
		Endpoint:   endpoint,
		Timeout:    5 * time.Second,
	})
}

func TestClient_Save_Single(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/pages", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-06-28", r.Header.Get("Notion-Version"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "abc-def-123"})
	}))
	defer server.Close()

	c := newClient(server.URL)
	result, err := c.Save(t.Context(), testCandidate(), singleExpansion("Jazz Night", "2025-06-24T20:00:00"))
	require.NoError(t, err)

	assert.Equal(t, "abc-def-123", result.PageID)
	assert.Equal(t, "https://www.notion.so/abcdef123", result.URL, "dashes stripped from page url")
	assert.Equal(t, 1, result.CreatedSessions)
	assert.Empty(t, result.SeriesID)

	props := captured["properties"].(map[string]interface{})
	assert.Contains(t, props, "Title")
	assert.Contains(t, props, "Date/Time")
	assert.Contains(t, props, "Location")
	assert.Contains(t, props, "Status")
	assert.Contains(t, props, "Added")
	assert.NotContains(t, props, "Series ID", "single sessions carry no series metadata")
	assert.NotContains(t, props, "URL", "text input has no url property")

	parent := captured["parent"].(map[string]interface{})
	assert.Equal(t, "db-123", parent["database_id"])
}

func TestClient_Save_Series(t *testing.T) {
	var count int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&count, 1)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		props := body["properties"].(map[string]interface{})
		assert.Contains(t, props, "Series ID")
		assert.Contains(t, props, "Session Number")
		assert.Contains(t, props, "Total Sessions")

		_ = json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("page-%d", n)})
	}))
	defer server.Close()

	exp := domain.Expansion{
		SeriesID:     "ab12cd34",
		DisplayTitle: "Workshop (Series of 3)",
		Sessions: []domain.Session{
			{Number: 1, Total: 3, Title: "Workshop (Session 1 of 3)", Date: "2025-07-01T10:00:00"},
			{Number: 2, Total: 3, Title: "Workshop (Session 2 of 3)", Date: "2025-07-02T10:00:00"},
			{Number: 3, Total: 3, Title: "Workshop (Session 3 of 3)", Date: "2025-07-03T10:00:00"},
		},
	}

	c := newClient(server.URL)
	result, err := c.Save(t.Context(), testCandidate(), exp)
	require.NoError(t, err)

	assert.Equal(t, "ab12cd34", result.SeriesID)
	assert.Equal(t, 3, result.TotalSessions)
	assert.Equal(t, 3, result.CreatedSessions)
	assert.Len(t, result.AllPageIDs, 3)
	assert.Equal(t, result.AllPageIDs[0], result.PageID, "first page is the primary reference")
	assert.Equal(t, "Workshop (Series of 3)", result.Title)
}

func TestClient_Save_SeriesPartialFailure(t *testing.T) {
	var count int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&count, 1)
		if n == 2 { // second session rejected permanently
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"validation error"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("page-%d", n)})
	}))
	defer server.Close()

	exp := domain.Expansion{
		SeriesID:     "ab12cd34",
		DisplayTitle: "Workshop (Series of 2)",
		Sessions: []domain.Session{
			{Number: 1, Total: 2, Title: "Workshop (Session 1 of 2)", Date: "2025-07-01T10:00:00"},
			{Number: 2, Total: 2, Title: "Workshop (Session 2 of 2)", Date: "2025-07-02T10:00:00"},
		},
	}

	c := newClient(server.URL)
	result, err := c.Save(t.Context(), testCandidate(), exp)
	require.NoError(t, err, "partial series save still succeeds")
	assert.Equal(t, 1, result.CreatedSessions)
	assert.Equal(t, 2, result.TotalSessions)
}

func TestClient_Save_AllSessionsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"no"}`))
	}))
	defer server.Close()

	c := newClient(server.URL)
	_, err := c.Save(t.Context(), testCandidate(), singleExpansion("X", "2025-07-01T10:00:00"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create any session records")
}

func TestClient_Save_RetriesTransientErrors(t *testing.T) {
	var count int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&count, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "page-ok"})
	}))
	defer server.Close()

	c := newClient(server.URL)
	result, err := c.Save(t.Context(), testCandidate(), singleExpansion("X", "2025-07-01T10:00:00"))
	require.NoError(t, err)
	assert.Equal(t, "page-ok", result.PageID)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestClient_Save_NotConfigured(t *testing.T) {
	c := NewClient(config.NotionConfig{Endpoint: "http://localhost:1"})
	_, err := c.Save(t.Context(), testCandidate(), singleExpansion("X", ""))
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_Save_DryRun(t *testing.T) {
	c := NewClient(config.NotionConfig{
		Token: "t", DatabaseID: "db", DryRun: true, Endpoint: "http://localhost:1",
	})

	exp := domain.Expansion{
		SeriesID:     "ff00aa11",
		DisplayTitle: "Thing (Series of 2)",
		Sessions: []domain.Session{
			{Number: 1, Total: 2, Title: "Thing (Session 1 of 2)", Date: "2025-07-01T10:00:00"},
			{Number: 2, Total: 2, Title: "Thing (Session 2 of 2)", Date: "2025-07-02T10:00:00"},
		},
	}

	result, err := c.Save(t.Context(), testCandidate(), exp)
	require.NoError(t, err)
	assert.Equal(t, 2, result.CreatedSessions)
	assert.Contains(t, result.PageID, "dry-run")
	assert.Len(t, result.AllURLs, 2)
}

func TestBuildProperties_URLInput(t *testing.T) {
	c := newClient("http://localhost:1")
	candidate := testCandidate()
	candidate.InputType = domain.InputURL
	candidate.RawInput = "https://example.com/events/1"

	props := c.buildProperties(candidate, domain.Session{Number: 1, Total: 1, Title: "X", Date: "2025-07-01T10:00:00"}, "")
	require.Contains(t, props, "URL")
	assert.Equal(t, map[string]interface{}{"url": "https://example.com/events/1"}, props["URL"])
}

func TestBuildProperties_FallbackTitle(t *testing.T) {
	c := newClient("http://localhost:1")

	candidate := testCandidate()
	candidate.RawInput = "short text"
	props := c.buildProperties(candidate, domain.Session{Number: 1, Total: 1}, "")
	title := props["Title"].(map[string]interface{})["title"].([]interface{})[0].(map[string]interface{})
	content := title["text"].(map[string]string)["content"]
	assert.Equal(t, "short text", content, "untitled text input falls back to the raw text")
}
