package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clausereview/engine/pkg/config"
	"github.com/clausereview/engine/pkg/httpclient"
)

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	config     *config.LLMProviderConfig
	httpClient *httpclient.Client
}

// anthropicTool is a tool definition in Anthropic's wire format.
type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string              `json:"model"`
	Messages    []anthropicMessage  `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature,omitempty"`
	System      string              `json:"system,omitempty"`
	Tools       []anthropicTool     `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string              `json:"stop_reason"`
	Error      *anthropicError     `json:"error,omitempty"`
}

type anthropicContent struct {
	Type      string                  `json:"type"`
	Text      string                  `json:"text,omitempty"`
	ID        string                  `json:"id,omitempty"`
	Name      string                  `json:"name,omitempty"`
	Input     *map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                  `json:"tool_use_id,omitempty"`
	Content   string                  `json:"content,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewAnthropicClientFromConfig builds an AnthropicClient from provider
// config, defaulting the host and applying the module's retry policy.
func NewAnthropicClientFromConfig(cfg *config.LLMProviderConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Anthropic")
	}
	if cfg.Host == "" {
		cfg.Host = "https://api.anthropic.com"
	}

	return &AnthropicClient{
		config: cfg,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Timeout) * time.Second,
			}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Second),
		),
	}, nil
}

func (c *AnthropicClient) ModelName() string { return c.config.Model }

func (c *AnthropicClient) Close() error { return nil }

func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, temperature float64, maxOutputTokens int) (string, error) {
	text, _, err := c.chat(ctx, messages, nil, temperature, maxOutputTokens)
	return text, err
}

func (c *AnthropicClient) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64) (string, []ToolCall, error) {
	return c.chat(ctx, messages, tools, temperature, c.config.MaxTokens)
}

func (c *AnthropicClient) chat(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64, maxTokens int) (string, []ToolCall, error) {
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	system, converted := splitSystemAndConvert(messages)

	req := anthropicRequest{
		Model:       c.config.Model,
		Messages:    converted,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      system,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Host+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("build anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read anthropic response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, fmt.Errorf("parse anthropic response: %w", err)
	}
	if parsed.Error != nil {
		return "", nil, fmt.Errorf("anthropic error: %s", parsed.Error.Message)
	}

	var text string
	var toolCalls []ToolCall
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			args := map[string]interface{}{}
			if block.Input != nil {
				args = *block.Input
			}
			rawArgs, _ := json.Marshal(args)
			toolCalls = append(toolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
				RawArgs:   string(rawArgs),
			})
		}
	}

	return text, toolCalls, nil
}

// splitSystemAndConvert pulls leading "system" role messages out into a
// single system string (Anthropic's wire format has no system role) and
// converts the remainder to Anthropic's content-block message shape.
func splitSystemAndConvert(messages []Message) (string, []anthropicMessage) {
	var system string
	var out []anthropicMessage

	for _, m := range messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "tool":
			out = append(out, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Content,
				}},
			})
		case "assistant":
			content := []anthropicContent{}
			if m.Content != "" {
				content = append(content, anthropicContent{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				content = append(content, anthropicContent{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: &args,
				})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: content})
		default:
			out = append(out, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: m.Content}},
			})
		}
	}

	return system, out
}
