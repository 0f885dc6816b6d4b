// ABOUTME: Tests for the service HTTP client against httptest servers.
// ABOUTME: Covers request encoding, reply decoding, status errors and health.

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wellness-client/internal/chat"
)

func TestNewValidatesURL(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoServiceURL)

	_, err = New("ftp://example.com")
	assert.Error(t, err)

	c, err := New("http://localhost:8000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestSendPostsRequestAndDecodesReply(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"response": "Pick a lab",
			"agent": "lab_test",
			"cards": [{"type": "lab", "title": "Metro Labs", "lab_id": "l-1"}],
			"suggested_replies": ["Home collection?"],
			"confirmed": false,
			"timestamp": "2026-03-14T09:05:00"
		}`))
	}))
	defer server.Close()

	c, err := New(server.URL)
	require.NoError(t, err)

	resp, err := c.Send(context.Background(), &chat.Request{
		Message:          "I want Metro Labs",
		CurrentAgent:     "lab_test",
		IsSuggestedReply: true,
		CardData:         json.RawMessage(`{"type":"lab","lab_id":"l-1"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "I want Metro Labs", got["message"])
	assert.Equal(t, "lab_test", got["current_agent"])
	assert.Equal(t, true, got["is_suggested_reply"])
	assert.Equal(t, map[string]any{"type": "lab", "lab_id": "l-1"}, got["card_data"])

	assert.Equal(t, "Pick a lab", resp.Response)
	assert.Equal(t, "lab_test", resp.Agent)
	require.Len(t, resp.Cards, 1)
	assert.IsType(t, &chat.LabCard{}, resp.Cards[0])
	assert.Equal(t, []string{"Home collection?"}, resp.SuggestedReplies)
	require.NotNil(t, resp.Confirmed)
	assert.False(t, *resp.Confirmed)
}

func TestSendOmitsOptionalFields(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"response":"hi","agent":"orchestrator"}`))
	}))
	defer server.Close()

	c, err := New(server.URL)
	require.NoError(t, err)
	_, err = c.Send(context.Background(), &chat.Request{Message: "hello"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"message": "hello"}, raw)
}

func TestSendStatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusBadRequest, `{"error": "Message is required"}`, "Message is required"},
		{"detail field", http.StatusInternalServerError, `{"detail": "boom"}`, "boom"},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, err := New(server.URL)
			require.NoError(t, err)

			_, err = c.Send(context.Background(), &chat.Request{Message: "hi"})
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr), "got %v", err)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.message, statusErr.Message)
		})
	}
}

func TestSendMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": `))
	}))
	defer server.Close()

	c, err := New(server.URL)
	require.NoError(t, err)
	_, err = c.Send(context.Background(), &chat.Request{Message: "hi"})
	assert.Error(t, err)
}

func TestSendHonorsContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c, err := New(server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Send(ctx, &chat.Request{Message: "hi"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHealth(t *testing.T) {
	for status, healthy := range map[string]bool{"healthy": true, "degraded": false} {
		t.Run(status, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
			}))
			defer server.Close()

			c, err := New(server.URL)
			require.NoError(t, err)

			err = c.Health(context.Background())
			if healthy {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
