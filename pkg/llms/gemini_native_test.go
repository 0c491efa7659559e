package llms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/clausereview/engine/pkg/config"
)

func TestToGenaiContentsSplitsSystemAndRoles(t *testing.T) {
	system, contents := toGenaiContents([]Message{
		{Role: "system", Content: "you are a contract reviewer"},
		{Role: "user", Content: "review clause 4.1"},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "c1", Name: "get_clause_context", Arguments: map[string]any{"clause_id": "4.1"}}}},
		{Role: "tool", ToolCallID: "c1", Name: "get_clause_context", Content: `{"found":true}`},
		{Role: "assistant", Content: "[]"},
	})

	assert.Equal(t, "you are a contract reviewer", system)
	require.Len(t, contents, 4)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "get_clause_context", contents[1].Parts[0].FunctionCall.Name)
	require.NotNil(t, contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, true, contents[2].Parts[0].FunctionResponse.Response["found"])
	assert.Equal(t, "model", contents[3].Role)
}

func TestToGenaiContentsWrapsNonJSONToolResult(t *testing.T) {
	_, contents := toGenaiContents([]Message{
		{Role: "tool", ToolCallID: "c9", Name: "compare_with_baseline", Content: "plain text result"},
	})
	require.Len(t, contents, 1)
	resp := contents[0].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Equal(t, "plain text result", resp.Response["result"])
}

func TestToGenaiSchemaConversion(t *testing.T) {
	s := toGenaiSchema(map[string]any{
		"type":        "object",
		"description": "clause lookup input",
		"properties": map[string]any{
			"clause_id": map[string]any{"type": "string", "description": "dotted clause id"},
			"terms":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"depth":     map[string]any{"type": "string", "enum": []any{"quick", "standard", "deep"}},
		},
		"required": []any{"clause_id"},
	})

	require.NotNil(t, s)
	assert.Equal(t, genai.Type("object"), s.Type)
	assert.Equal(t, []string{"clause_id"}, s.Required)
	require.Contains(t, s.Properties, "terms")
	require.NotNil(t, s.Properties["terms"].Items)
	assert.ElementsMatch(t, []string{"quick", "standard", "deep"}, s.Properties["depth"].Enum)

	assert.Nil(t, toGenaiSchema(nil))
}

func TestGeminiNativeRequiresAPIKey(t *testing.T) {
	_, err := NewGeminiNativeClientFromConfig(&config.LLMProviderConfig{Type: "gemini-native", Model: "gemini-2.0-flash"})
	require.Error(t, err)
}
