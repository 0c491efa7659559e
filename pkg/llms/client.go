// Package llms provides LLM provider implementations behind a single
// provider-agnostic Client interface.
package llms

import (
	"context"
	"encoding/json"
	"strings"
)

// Client is the provider-agnostic surface every LLM call in this module
// goes through: a plain chat completion and a chat completion with
// function-calling tools. Streaming, thinking blocks, and provider-specific
// structured-output variants are out of scope; every caller that needs
// structured data asks for it in the prompt and parses it with
// ExtractJSON.
type Client interface {
	// Chat sends messages and returns the assistant's text reply.
	Chat(ctx context.Context, messages []Message, temperature float64, maxOutputTokens int) (string, error)

	// ChatWithTools sends messages plus tool definitions and returns either
	// assistant text or a set of tool calls the caller must execute and
	// feed back as "tool" role messages.
	ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64) (text string, toolCalls []ToolCall, err error)

	// ModelName identifies the underlying model, used in logs and traces.
	ModelName() string

	Close() error
}

// ExtractJSON recovers a JSON object from raw LLM output using three
// progressively looser strategies: the whole string is valid JSON; the
// JSON lives inside a fenced ```json code block; or the first balanced
// {...} span in the string is JSON. Returns false if none succeed.
func ExtractJSON(raw string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(raw)

	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), true
	}

	if fenced, ok := extractFencedJSON(trimmed); ok {
		if json.Valid([]byte(fenced)) {
			return json.RawMessage(fenced), true
		}
	}

	if span, ok := firstBalancedObject(trimmed); ok {
		if json.Valid([]byte(span)) {
			return json.RawMessage(span), true
		}
	}

	return nil, false
}

func extractFencedJSON(s string) (string, bool) {
	markers := []string{"```json", "```"}
	for _, marker := range markers {
		start := strings.Index(s, marker)
		if start < 0 {
			continue
		}
		rest := s[start+len(marker):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		body := strings.TrimSpace(rest[:end])
		if body != "" {
			return body, true
		}
	}
	return "", false
}

// firstBalancedObject scans for the first top-level {...} span, respecting
// string literals and escapes so braces inside quoted strings don't confuse
// the depth counter.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// inside a string literal, braces don't count
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
