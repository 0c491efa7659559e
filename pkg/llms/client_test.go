package llms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONRawObject(t *testing.T) {
	raw, ok := ExtractJSON(`{"risk_level": "high"}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"risk_level": "high"}`, string(raw))
}

func TestExtractJSONFencedCodeBlock(t *testing.T) {
	text := "Here is the analysis:\n```json\n{\"risk_level\": \"medium\"}\n```\nLet me know if you need more."
	raw, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"risk_level": "medium"}`, string(raw))
}

func TestExtractJSONFirstBalancedObject(t *testing.T) {
	text := `Sure, the result is {"risk_level": "low", "note": "looks fine"} and that's final.`
	raw, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"risk_level": "low", "note": "looks fine"}`, string(raw))
}

func TestExtractJSONBracesInsideStringDontConfuseDepth(t *testing.T) {
	text := `{"note": "use { and } carefully", "risk_level": "high"}`
	raw, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, text, string(raw))
}

func TestExtractJSONNoObjectFails(t *testing.T) {
	_, ok := ExtractJSON("no json here at all")
	assert.False(t, ok)
}
