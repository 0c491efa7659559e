// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with review-domain span helpers
// (agent runs, LLM calls, tool executions, memory searches) and an
// optional in-memory DebugExporter for UI inspection.
type Tracer struct {
	provider        *sdktrace.TracerProvider
	tracer          trace.Tracer
	debugExporter   *DebugExporter
	capturePayloads bool
}

// TracerOption configures a Tracer at construction time.
type TracerOption func(*Tracer)

// WithDebugExporter attaches an in-memory span exporter for UI inspection.
func WithDebugExporter(exporter *DebugExporter) TracerOption {
	return func(t *Tracer) {
		t.debugExporter = exporter
	}
}

// WithCapturePayloads enables capturing full LLM request/response text on
// spans. Only takes effect when the tracer actually records spans.
func WithCapturePayloads(enabled bool) TracerOption {
	return func(t *Tracer) {
		t.capturePayloads = enabled
	}
}

// NewTracer builds a Tracer from TracingConfig. The caller is responsible
// for checking cfg.Enabled before calling; NewTracer always builds a real
// exporter pipeline.
func NewTracer(ctx context.Context, cfg *TracingConfig, opts ...TracerOption) (*Tracer, error) {
	if cfg == nil {
		cfg = &TracingConfig{}
		cfg.SetDefaults()
	}

	grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.IsInsecure() {
		grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithResource(res),
	)

	t := &Tracer{
		provider: tp,
		tracer:   tp.Tracer(DefaultServiceName),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.debugExporter != nil {
		tp.RegisterSpanProcessor(sdktrace.NewSimpleSpanProcessor(t.debugExporter))
	}

	otel.SetTracerProvider(tp)
	return t, nil
}

// Start begins a generic span.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil {
		return ctx, noopSpan()
	}
	return t.tracer.Start(ctx, name, opts...)
}

// StartAgentRun begins a span for one review-graph node execution.
func (t *Tracer) StartAgentRun(ctx context.Context, taskID, nodeName, documentID, clauseID, eventID string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, noopSpan()
	}
	return t.tracer.Start(ctx, SpanAgentRun, trace.WithAttributes(
		attribute.String(AttrAgentName, nodeName),
		attribute.String("task.id", taskID),
		attribute.String("document.id", documentID),
		attribute.String("clause.id", clauseID),
		attribute.String(AttrEventID, eventID),
	))
}

// StartLLMCall begins a span for a single LLM request.
func (t *Tracer) StartLLMCall(ctx context.Context, model string, promptTokens int, temperature, _ float64) (context.Context, trace.Span) {
	if t == nil {
		return ctx, noopSpan()
	}
	return t.tracer.Start(ctx, SpanLLMCall, trace.WithAttributes(
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMTokensInput, promptTokens),
		attribute.Float64("llm.temperature", temperature),
	))
}

// StartToolExecution begins a span for a skill/tool call.
func (t *Tracer) StartToolExecution(ctx context.Context, toolName, skillID, backend string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, noopSpan()
	}
	return t.tracer.Start(ctx, SpanToolExecution, trace.WithAttributes(
		attribute.String(AttrToolName, toolName),
		attribute.String("skill.id", skillID),
		attribute.String("skill.backend", backend),
	))
}

// StartMemorySearch begins a span for a criteria/evidence-repository search.
func (t *Tracer) StartMemorySearch(ctx context.Context, storeName string, topK int) (context.Context, trace.Span) {
	if t == nil {
		return ctx, noopSpan()
	}
	return t.tracer.Start(ctx, SpanMemorySearch, trace.WithAttributes(
		attribute.String("memory.store", storeName),
		attribute.Int("memory.top_k", topK),
	))
}

// AddLLMUsage records token usage on an LLM call span.
func (t *Tracer) AddLLMUsage(span trace.Span, inputTokens, outputTokens int) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int(AttrLLMTokensInput, inputTokens),
		attribute.Int(AttrLLMTokensOutput, outputTokens),
	)
}

// AddLLMFinishReason records the finish reason on an LLM call span.
func (t *Tracer) AddLLMFinishReason(span trace.Span, reason string) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String("llm.finish_reason", reason))
}

// AddPayload attaches the raw prompt/response text to a span when payload
// capture is enabled.
func (t *Tracer) AddPayload(span trace.Span, prompt, response string) {
	if t == nil || span == nil || !t.capturePayloads {
		return
	}
	span.SetAttributes(
		attribute.String("llm.prompt", prompt),
		attribute.String("llm.response", response),
	)
}

// AddToolPayload attaches the raw tool call arguments/result to a span when
// payload capture is enabled.
func (t *Tracer) AddToolPayload(span trace.Span, args, result string) {
	if t == nil || span == nil || !t.capturePayloads {
		return
	}
	span.SetAttributes(
		attribute.String("tool.arguments", args),
		attribute.String("tool.result", result),
	)
}

// RecordError records err on span and marks it failed.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(AttrErrorType, err.Error()))
}

// DebugExporter returns the attached in-memory exporter, or nil.
func (t *Tracer) DebugExporter() *DebugExporter {
	if t == nil {
		return nil
	}
	return t.debugExporter
}

// Shutdown flushes and stops the underlying tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// GetTracer returns a named tracer from the global provider, for packages
// that only need ad-hoc spans outside the Manager/Tracer wiring.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
