package llms

import (
	"context"
	"time"

	"github.com/clausereview/engine/pkg/observability"
	"github.com/clausereview/engine/pkg/ratelimit"
	"github.com/clausereview/engine/pkg/utils"
)

// Instrumented wraps a Client with rate limiting and observability, so every
// call site that obtains a Client through cmd/reviewctl's construction gets
// both for free instead of each caller (reactloop.ChatWithTools,
// skills/local's LLM-backed preparers, orchestrator.MaybeAdjustPlan) wiring
// them individually.
//
// Limiter, Scope, Tracer, and Metrics are all optional; a nil field disables
// that concern without disabling the others, matching pkg/ratelimit's and
// pkg/observability's own nil-safe method receivers.
type Instrumented struct {
	Client Client

	Limiter    ratelimit.RateLimiter
	Scope      ratelimit.Scope
	Identifier string

	Tracer  *observability.Tracer
	Metrics *observability.Metrics

	counter *utils.TokenCounter
}

// NewInstrumented wraps client. identifier scopes rate-limit usage, e.g. the
// review session ID; limiter and obs may be nil to skip that concern.
func NewInstrumented(client Client, limiter ratelimit.RateLimiter, scope ratelimit.Scope, identifier string, tracer *observability.Tracer, metrics *observability.Metrics) *Instrumented {
	counter, err := utils.NewTokenCounter(client.ModelName())
	if err != nil {
		counter = nil
	}
	return &Instrumented{
		Client:     client,
		Limiter:    limiter,
		Scope:      scope,
		Identifier: identifier,
		Tracer:     tracer,
		Metrics:    metrics,
		counter:    counter,
	}
}

// provider returns a short label for metrics/trace attributes, derived from
// the wrapped client's concrete type rather than threaded through as a
// separate field.
func (i *Instrumented) provider() string {
	switch i.Client.(type) {
	case *OpenAIClient:
		return "openai"
	case *AnthropicClient:
		return "anthropic"
	case *GeminiClient:
		return "gemini"
	case *OllamaClient:
		return "ollama"
	default:
		return "unknown"
	}
}

func (i *Instrumented) estimateTokens(messages []Message) int {
	if i.counter != nil {
		tcMessages := make([]utils.Message, len(messages))
		for idx, m := range messages {
			tcMessages[idx] = utils.Message{Role: m.Role, Content: m.Content}
		}
		return i.counter.CountMessages(tcMessages)
	}
	var total int
	for _, m := range messages {
		total += utils.EstimateTokens(m.Content)
	}
	return total
}

// checkLimit enforces the configured rate limit before an LLM call, a no-op
// when no Limiter is configured.
func (i *Instrumented) checkLimit(ctx context.Context, promptTokens int) error {
	if i.Limiter == nil {
		return nil
	}
	result, err := i.Limiter.Check(ctx, i.Scope, i.Identifier)
	if err != nil {
		return err
	}
	if result.IsExceeded() {
		return ratelimit.NewRateLimitError(result)
	}
	return nil
}

func (i *Instrumented) recordUsage(ctx context.Context, promptTokens, outputTokens int) {
	if i.Limiter == nil {
		return
	}
	_ = i.Limiter.Record(ctx, i.Scope, i.Identifier, int64(promptTokens+outputTokens), 1)
}

// Chat implements Client, wrapping the underlying call with a rate-limit
// check, an observability.Tracer span, and Metrics recording.
func (i *Instrumented) Chat(ctx context.Context, messages []Message, temperature float64, maxOutputTokens int) (string, error) {
	promptTokens := i.estimateTokens(messages)
	model, provider := i.Client.ModelName(), i.provider()

	if err := i.checkLimit(ctx, promptTokens); err != nil {
		i.Metrics.RecordLLMError(model, provider, "rate_limited")
		return "", err
	}

	ctx, span := i.Tracer.StartLLMCall(ctx, model, promptTokens, temperature, 0)
	start := time.Now()

	text, err := i.Client.Chat(ctx, messages, temperature, maxOutputTokens)

	duration := time.Since(start)
	i.Metrics.RecordLLMCall(model, provider, duration)
	if err != nil {
		i.Tracer.RecordError(span, err)
		i.Metrics.RecordLLMError(model, provider, "call_failed")
		span.End()
		return "", err
	}

	outputTokens := 0
	if i.counter != nil {
		outputTokens = i.counter.Count(text)
	} else {
		outputTokens = utils.EstimateTokens(text)
	}
	i.Tracer.AddLLMUsage(span, promptTokens, outputTokens)
	i.Tracer.AddPayload(span, messagesToPrompt(messages), text)
	i.Metrics.RecordLLMTokens(model, provider, promptTokens, outputTokens)
	span.End()

	i.recordUsage(ctx, promptTokens, outputTokens)
	return text, nil
}

// ChatWithTools implements Client, instrumenting the ReAct loop's tool-call
// path (reactloop.ChatWithTools) the same way Chat instruments plain calls.
func (i *Instrumented) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64) (string, []ToolCall, error) {
	promptTokens := i.estimateTokens(messages)
	model, provider := i.Client.ModelName(), i.provider()

	if err := i.checkLimit(ctx, promptTokens); err != nil {
		i.Metrics.RecordLLMError(model, provider, "rate_limited")
		return "", nil, err
	}

	ctx, span := i.Tracer.StartLLMCall(ctx, model, promptTokens, temperature, 0)
	start := time.Now()

	text, toolCalls, err := i.Client.ChatWithTools(ctx, messages, tools, temperature)

	duration := time.Since(start)
	i.Metrics.RecordLLMCall(model, provider, duration)
	if err != nil {
		i.Tracer.RecordError(span, err)
		i.Metrics.RecordLLMError(model, provider, "call_failed")
		span.End()
		return "", nil, err
	}

	outputTokens := 0
	if i.counter != nil {
		outputTokens = i.counter.Count(text)
	} else {
		outputTokens = utils.EstimateTokens(text)
	}
	i.Tracer.AddLLMUsage(span, promptTokens, outputTokens)
	i.Tracer.AddPayload(span, messagesToPrompt(messages), text)
	i.Metrics.RecordLLMTokens(model, provider, promptTokens, outputTokens)
	span.End()

	i.recordUsage(ctx, promptTokens, outputTokens)
	return text, toolCalls, nil
}

// ModelName implements Client.
func (i *Instrumented) ModelName() string { return i.Client.ModelName() }

// Close implements Client.
func (i *Instrumented) Close() error { return i.Client.Close() }

func messagesToPrompt(messages []Message) string {
	var out string
	for _, m := range messages {
		out += m.Role + ": " + m.Content + "\n"
	}
	return out
}

var _ Client = (*Instrumented)(nil)
