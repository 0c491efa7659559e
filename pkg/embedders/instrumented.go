package embedders

import (
	"context"
	"time"

	"github.com/clausereview/engine/pkg/observability"
	"github.com/clausereview/engine/pkg/ratelimit"
	"github.com/clausereview/engine/pkg/utils"
)

// Instrumented wraps an EmbedderProvider with rate limiting and
// observability, the embedding-side counterpart of pkg/llms.Instrumented.
// Embed takes no context.Context, so rate-limit checks and spans use
// context.Background() internally.
type Instrumented struct {
	Provider EmbedderProvider

	Limiter    ratelimit.RateLimiter
	Scope      ratelimit.Scope
	Identifier string

	Tracer  *observability.Tracer
	Metrics *observability.Metrics
}

// NewInstrumented wraps provider. limiter and obs may be nil to skip that
// concern.
func NewInstrumented(provider EmbedderProvider, limiter ratelimit.RateLimiter, scope ratelimit.Scope, identifier string, tracer *observability.Tracer, metrics *observability.Metrics) *Instrumented {
	return &Instrumented{
		Provider:   provider,
		Limiter:    limiter,
		Scope:      scope,
		Identifier: identifier,
		Tracer:     tracer,
		Metrics:    metrics,
	}
}

// Embed implements EmbedderProvider.
func (i *Instrumented) Embed(text string) ([]float32, error) {
	ctx := context.Background()
	model := i.Provider.GetModelName()
	tokens := utils.EstimateTokens(text)

	if i.Limiter != nil {
		result, err := i.Limiter.Check(ctx, i.Scope, i.Identifier)
		if err != nil {
			return nil, err
		}
		if result.IsExceeded() {
			i.Metrics.RecordLLMError(model, "embedder", "rate_limited")
			return nil, ratelimit.NewRateLimitError(result)
		}
	}

	_, span := i.Tracer.StartMemorySearch(ctx, model, 0)
	start := time.Now()

	vec, err := i.Provider.Embed(text)

	duration := time.Since(start)
	i.Metrics.RecordMemorySearch(model, duration)
	if err != nil {
		i.Tracer.RecordError(span, err)
		i.Metrics.RecordLLMError(model, "embedder", "embed_failed")
		span.End()
		return nil, err
	}
	i.Metrics.RecordLLMTokens(model, "embedder", tokens, 0)
	span.End()

	if i.Limiter != nil {
		_ = i.Limiter.Record(ctx, i.Scope, i.Identifier, int64(tokens), 1)
	}
	return vec, nil
}

// GetDimension implements EmbedderProvider.
func (i *Instrumented) GetDimension() int { return i.Provider.GetDimension() }

// GetModelName implements EmbedderProvider.
func (i *Instrumented) GetModelName() string { return i.Provider.GetModelName() }

// Close implements EmbedderProvider.
func (i *Instrumented) Close() error { return i.Provider.Close() }

var _ EmbedderProvider = (*Instrumented)(nil)
