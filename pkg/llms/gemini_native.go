package llms

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/clausereview/engine/pkg/config"
)

// GeminiNativeClient implements Client on the official
// google.golang.org/genai SDK, as an alternative to GeminiClient's plain
// HTTP transport. The SDK handles auth, retries, and API versioning;
// pick it with `type: gemini-native` in the provider config.
type GeminiNativeClient struct {
	client *genai.Client
	config *config.LLMProviderConfig
}

// NewGeminiNativeClientFromConfig builds a GeminiNativeClient from
// provider config.
func NewGeminiNativeClientFromConfig(cfg *config.LLMProviderConfig) (*GeminiNativeClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Gemini")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Host != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.Host
	}

	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiNativeClient{client: client, config: cfg}, nil
}

func (c *GeminiNativeClient) ModelName() string { return c.config.Model }

func (c *GeminiNativeClient) Close() error { return nil }

func (c *GeminiNativeClient) Chat(ctx context.Context, messages []Message, temperature float64, maxOutputTokens int) (string, error) {
	text, _, err := c.chat(ctx, messages, nil, temperature, maxOutputTokens)
	return text, err
}

func (c *GeminiNativeClient) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64) (string, []ToolCall, error) {
	return c.chat(ctx, messages, tools, temperature, c.config.MaxTokens)
}

func (c *GeminiNativeClient) chat(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64, maxTokens int) (string, []ToolCall, error) {
	system, contents := toGenaiContents(messages)

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if maxTokens > 0 {
		genCfg.MaxOutputTokens = int32(maxTokens)
	}
	if system != "" {
		genCfg.SystemInstruction = &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if len(tools) > 0 {
		genCfg.Tools = toGenaiTools(tools)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, contents, genCfg)
	if err != nil {
		return "", nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil, fmt.Errorf("gemini response had no candidates")
	}

	var text string
	var toolCalls []ToolCall
	for i, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			callID := part.FunctionCall.ID
			if callID == "" {
				callID = fmt.Sprintf("%s-%d", part.FunctionCall.Name, i)
			}
			rawArgs, _ := json.Marshal(part.FunctionCall.Args)
			toolCalls = append(toolCalls, ToolCall{
				ID:        callID,
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
				RawArgs:   string(rawArgs),
			})
			continue
		}
		text += part.Text
	}

	return text, toolCalls, nil
}

// toGenaiContents splits out "system" role messages into a single
// instruction string and maps the remainder into the SDK's user/model
// content vocabulary, with tool calls and tool results as
// FunctionCall/FunctionResponse parts.
func toGenaiContents(messages []Message) (string, []*genai.Content) {
	var system string
	var out []*genai.Content

	for _, m := range messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "assistant":
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: tc.Arguments},
				})
			}
			if len(parts) == 0 {
				continue
			}
			out = append(out, &genai.Content{Role: "model", Parts: parts})
		case "tool":
			var response map[string]any
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"result": m.Content}
			}
			out = append(out, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{ID: m.ToolCallID, Name: m.Name, Response: response},
				}},
			})
		default:
			out = append(out, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	return system, out
}

func toGenaiTools(tools []ToolDefinition) []*genai.Tool {
	out := make([]*genai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.Parameters),
			}},
		})
	}
	return out
}

// toGenaiSchema converts a JSON-schema-style map into the SDK's Schema
// type. Unknown keywords are dropped; the subset below covers what the
// skill registrations actually emit.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	s := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(t)
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if required, ok := schema["required"].([]string); ok {
		s.Required = append(s.Required, required...)
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if enum, ok := schema["enum"].([]any); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}
	return s
}
