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

// OllamaClient implements Client against a local or remote Ollama server's
// /api/chat endpoint.
type OllamaClient struct {
	config     *config.LLMProviderConfig
	httpClient *httpclient.Client
}

type ollamaToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaChatMessage struct {
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	ToolCalls []ollamaToolCallIn `json:"tool_calls,omitempty"`
}

type ollamaToolCallIn struct {
	Function ollamaToolFunctionCall `json:"function"`
}

type ollamaToolFunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ollamaChatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Tools    []ollamaTool        `json:"tools,omitempty"`
	Options  *ollamaChatOptions  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Error   string            `json:"error,omitempty"`
}

// NewOllamaClientFromConfig builds an OllamaClient from provider config.
func NewOllamaClientFromConfig(cfg *config.LLMProviderConfig) (*OllamaClient, error) {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}

	return &OllamaClient{
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

func (c *OllamaClient) ModelName() string { return c.config.Model }

func (c *OllamaClient) Close() error { return nil }

func (c *OllamaClient) Chat(ctx context.Context, messages []Message, temperature float64, maxOutputTokens int) (string, error) {
	text, _, err := c.chat(ctx, messages, nil, temperature)
	return text, err
}

func (c *OllamaClient) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64) (string, []ToolCall, error) {
	return c.chat(ctx, messages, tools, temperature)
}

func (c *OllamaClient) chat(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64) (string, []ToolCall, error) {
	req := ollamaChatRequest{
		Model:    c.config.Model,
		Messages: toOllamaMessages(messages),
		Stream:   false,
		Options:  &ollamaChatOptions{Temperature: temperature},
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read ollama response: %w", err)
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, fmt.Errorf("parse ollama response: %w", err)
	}
	if parsed.Error != "" {
		return "", nil, fmt.Errorf("ollama error: %s", parsed.Error)
	}

	var toolCalls []ToolCall
	for i, tc := range parsed.Message.ToolCalls {
		rawArgs, _ := json.Marshal(tc.Function.Arguments)
		toolCalls = append(toolCalls, ToolCall{
			ID:        fmt.Sprintf("%s-%d", tc.Function.Name, i),
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
			RawArgs:   string(rawArgs),
		})
	}

	return parsed.Message.Content, toolCalls, nil
}

func toOllamaMessages(messages []Message) []ollamaChatMessage {
	out := make([]ollamaChatMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "tool" {
			// Ollama has no dedicated tool role; fold the result back in as
			// a user turn labelled with the originating tool name.
			out = append(out, ollamaChatMessage{Role: "user", Content: fmt.Sprintf("[%s result] %s", m.Name, m.Content)})
			continue
		}
		cm := ollamaChatMessage{Role: role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, ollamaToolCallIn{
				Function: ollamaToolFunctionCall{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out = append(out, cm)
	}
	return out
}
