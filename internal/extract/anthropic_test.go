package extract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/extract"
)

func TestAnthropicCompleter_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "test-model",
			"content": [{"type": "text", "text": "{\"damage\": 7}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	c := extract.NewAnthropicCompleter(extract.AnthropicConfig{
		APIKey: "test-key", Model: "test-model", MaxTokens: 256, BaseURL: srv.URL, MaxRetries: 0,
	}, zap.NewNop())

	out, err := c.Complete(context.Background(), "sys", "prompt", map[string]any{"type": "object"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"damage": 7}`, string(out))
	assert.Equal(t, "test-model", got["model"])
	assert.EqualValues(t, 256, got["max_tokens"])
}

func TestAnthropicCompleter_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	c := extract.NewAnthropicCompleter(extract.AnthropicConfig{
		APIKey: "k", Model: "m", MaxTokens: 16, BaseURL: srv.URL, MaxRetries: 0,
	}, zap.NewNop())
	_, err := c.Complete(context.Background(), "sys", "prompt", nil)
	assert.Error(t, err)
}
