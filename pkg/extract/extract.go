// Package extract implements the hybrid regex+LLM extractors for contract
// definitions and cross-references: a fast deterministic regex pass from
// pkg/patterns, optionally enriched by an LLM pass over a bounded slice of
// text, merged so the regex results always win on a duplicate key and the
// LLM only contributes genuinely new entries.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/clausereview/engine/pkg/llms"
)

const (
	llmTemperature     = 0.1
	llmMaxOutputTokens = 1500
)

// callLLMForJSON sends a single-user-message prompt and extracts a JSON
// object from the reply using the three-step extractor. Any failure -
// nil client, transport error, non-JSON reply - is absorbed and reported
// as ok=false so callers degrade to regex-only results.
func callLLMForJSON(ctx context.Context, client llms.Client, prompt string) (json.RawMessage, bool) {
	if client == nil {
		return nil, false
	}

	messages := []llms.Message{{Role: "user", Content: prompt}}
	text, err := client.Chat(ctx, messages, llmTemperature, llmMaxOutputTokens)
	if err != nil {
		slog.Warn("extract: llm call failed", "error", err)
		return nil, false
	}

	raw, ok := llms.ExtractJSON(text)
	if !ok {
		slog.Warn("extract: could not extract JSON from llm response")
		return nil, false
	}
	return raw, true
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
