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

func TestOpenAIClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		resp := openAIResponse{Choices: []openAIChoice{{Message: openAIMessage{Role: "assistant", Content: "hello"}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOpenAIClientFromConfig(&config.LLMProviderConfig{
		Type: "openai", Model: "gpt-4o", APIKey: "test-key", Host: server.URL, Timeout: 5,
	})
	require.NoError(t, err)

	text, err := client.Chat(t.Context(), []Message{{Role: "user", Content: "hi"}}, 0.2, 100)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestOpenAIClientChatWithTools(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openAIResponse{Choices: []openAIChoice{{Message: openAIMessage{
			Role: "assistant",
			ToolCalls: []openAIToolCall{{
				ID:   "call-1",
				Type: "function",
				Function: openAIToolCallFunc{
					Name:      "get_clause_context",
					Arguments: `{"clause_id":"5.1"}`,
				},
			}},
		}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOpenAIClientFromConfig(&config.LLMProviderConfig{
		Type: "openai", Model: "gpt-4o", APIKey: "test-key", Host: server.URL, Timeout: 5,
	})
	require.NoError(t, err)

	tools := []ToolDefinition{{Name: "get_clause_context", Description: "fetch clause text"}}
	text, toolCalls, err := client.ChatWithTools(t.Context(), []Message{{Role: "user", Content: "look up 5.1"}}, tools, 0.0)
	require.NoError(t, err)
	assert.Empty(t, text)
	require.Len(t, toolCalls, 1)
	assert.Equal(t, "get_clause_context", toolCalls[0].Name)
	assert.Equal(t, "5.1", toolCalls[0].Arguments["clause_id"])
}

func TestOpenAIClientPropagatesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openAIResponse{Error: &openAIError{Message: "rate limited", Type: "rate_limit_error"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOpenAIClientFromConfig(&config.LLMProviderConfig{
		Type: "openai", Model: "gpt-4o", APIKey: "test-key", Host: server.URL, Timeout: 5,
	})
	require.NoError(t, err)

	_, err = client.Chat(t.Context(), []Message{{Role: "user", Content: "hi"}}, 0.2, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
