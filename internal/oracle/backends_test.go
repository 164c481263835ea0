package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/dailybrief/internal/config"
)

func TestOpenAICompleter(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": " {\"score\": 7} "}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("sk-test", srv.URL+"/v1", "gpt-4o-mini")
	out, err := c.Complete(context.Background(), "rate this", 200)
	require.NoError(t, err)
	assert.Equal(t, `{"score": 7}`, out)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.EqualValues(t, 200, got["max_completion_tokens"])
}

func TestAnthropicCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-20250514", body["model"])
		assert.EqualValues(t, 150, body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "英伟达发布新GPU。"}],
			"stop_reason": "end_turn", "usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropicCompleter("sk-ant", srv.URL, "claude-sonnet-4-20250514")
	out, err := c.Complete(context.Background(), "summarize", 150)
	require.NoError(t, err)
	assert.Equal(t, "英伟达发布新GPU。", out)
}

func TestAnthropicCompleterServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"down"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicCompleter("sk-ant", srv.URL, "claude-sonnet-4-20250514")
	_, err := c.Complete(context.Background(), "x", 10)
	assert.Error(t, err)
}

func TestNewCompleterSelectsProvider(t *testing.T) {
	cfg := config.Default()
	cfg.AnthropicAPIKey = "k"
	c, err := NewCompleter(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	cfg.OracleProvider = config.ProviderOpenAI
	cfg.OpenAIAPIKey = "k"
	c, err = NewCompleter(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	cfg.OracleProvider = "nope"
	_, err = NewCompleter(context.Background(), cfg)
	assert.Error(t, err)
}
