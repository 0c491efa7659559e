package llms

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/config"
)

func TestAnthropicClientChatWithTools(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "you are a contract reviewer", req.System)

		input := map[string]interface{}{"clause_id": "9.1"}
		resp := anthropicResponse{Content: []anthropicContent{
			{Type: "tool_use", ID: "tool-1", Name: "resolve_definition", Input: &input},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewAnthropicClientFromConfig(&config.LLMProviderConfig{
		Type: "anthropic", Model: "claude-3-5-sonnet", APIKey: "test-key", Host: server.URL, Timeout: 5, MaxTokens: 1024,
	})
	require.NoError(t, err)

	messages := []Message{
		{Role: "system", Content: "you are a contract reviewer"},
		{Role: "user", Content: "what does 'Employer' mean?"},
	}
	text, toolCalls, err := client.ChatWithTools(t.Context(), messages, []ToolDefinition{{Name: "resolve_definition"}}, 0.0)
	require.NoError(t, err)
	assert.Empty(t, text)
	require.Len(t, toolCalls, 1)
	assert.Equal(t, "resolve_definition", toolCalls[0].Name)
	assert.Equal(t, "9.1", toolCalls[0].Arguments["clause_id"])
}

func TestAnthropicClientPropagatesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := anthropicResponse{Error: &anthropicError{Type: "overloaded_error", Message: "overloaded"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewAnthropicClientFromConfig(&config.LLMProviderConfig{
		Type: "anthropic", Model: "claude-3-5-sonnet", APIKey: "test-key", Host: server.URL, Timeout: 5, MaxTokens: 1024,
	})
	require.NoError(t, err)

	_, err = client.Chat(t.Context(), []Message{{Role: "user", Content: "hi"}}, 0.2, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}
