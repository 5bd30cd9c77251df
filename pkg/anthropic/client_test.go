package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageServer(t *testing.T, status int, text string, hits *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])
		assert.NotEmpty(t, body["system"])

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"type":  "error",
				"error": map[string]any{"type": "overloaded_error", "message": "busy"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":          "msg_01",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": text}},
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 40, "output_tokens": 20},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestExtract(t *testing.T) {
	var hits int32
	ts := messageServer(t, http.StatusOK, "```json\n{\"place_name\":\"Blue Lagoon\",\"city\":\"Grindavik\",\"state\":null,\"country\":\"Iceland\"}\n```", &hits)

	c := NewClient("test-key", WithBaseURL(ts.URL), WithModel("claude-test"))
	assert.Equal(t, "anthropic/claude-test", c.Name())

	info, err := c.Extract(context.Background(), "Soaking at the Blue Lagoon")
	require.NoError(t, err)
	assert.Equal(t, "Blue Lagoon", *info.PlaceName)
	assert.Equal(t, "Iceland", *info.Country)
	assert.Nil(t, info.State)
}

func TestExtractDoesNotRetry(t *testing.T) {
	var hits int32
	ts := messageServer(t, http.StatusServiceUnavailable, "", &hits)

	_, err := NewClient("test-key", WithBaseURL(ts.URL), WithModel("claude-test")).Extract(context.Background(), "caption")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestExtractUnparseableText(t *testing.T) {
	var hits int32
	ts := messageServer(t, http.StatusOK, "It looks like Reykjavik.", &hits)

	_, err := NewClient("test-key", WithBaseURL(ts.URL), WithModel("claude-test")).Extract(context.Background(), "caption")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse location")
}
