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

func TestGeminiClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := geminiResponse{Candidates: []geminiCandidate{{
			Content: geminiContent{Parts: []geminiPart{{Text: "the time bar is 28 days"}}},
		}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewGeminiClientFromConfig(&config.LLMProviderConfig{
		Type: "gemini", Model: "gemini-1.5-pro", APIKey: "test-key", Host: server.URL, Timeout: 5,
	})
	require.NoError(t, err)

	text, err := client.Chat(t.Context(), []Message{{Role: "user", Content: "how long is the time bar?"}}, 0.1, 200)
	require.NoError(t, err)
	assert.Equal(t, "the time bar is 28 days", text)
}

func TestGeminiClientChatWithToolsParsesFunctionCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := geminiResponse{Candidates: []geminiCandidate{{
			Content: geminiContent{Parts: []geminiPart{{
				FunctionCall: &geminiFunctionCall{Name: "fidic_calculate_time_bar", Args: map[string]interface{}{"notice_date": "2026-01-01"}},
			}}},
		}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewGeminiClientFromConfig(&config.LLMProviderConfig{
		Type: "gemini", Model: "gemini-1.5-pro", APIKey: "test-key", Host: server.URL, Timeout: 5,
	})
	require.NoError(t, err)

	_, toolCalls, err := client.ChatWithTools(t.Context(), []Message{{Role: "user", Content: "check time bar"}}, []ToolDefinition{{Name: "fidic_calculate_time_bar"}}, 0.0)
	require.NoError(t, err)
	require.Len(t, toolCalls, 1)
	assert.Equal(t, "fidic_calculate_time_bar", toolCalls[0].Name)
	assert.Equal(t, "2026-01-01", toolCalls[0].Arguments["notice_date"])
}
