package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsDisabledReturnsNil(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestMetricsRecording(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Enabled: true, Namespace: "testns"})
	require.NoError(t, err)
	require.NotNil(t, m)

	m.RecordAgentCall("clause_analyze", "node", 100*time.Millisecond)
	m.RecordAgentError("clause_analyze", "node", "timeout")
	m.IncAgentActiveRuns("clause_analyze")
	m.DecAgentActiveRuns("clause_analyze")

	m.RecordLLMCall("gpt-4o", "openai", 500*time.Millisecond)
	m.RecordLLMTokens("gpt-4o", "openai", 100, 50)
	m.RecordLLMError("gpt-4o", "openai", "rate_limited")

	m.RecordToolCall("resolve_definition", 10*time.Millisecond)
	m.RecordToolError("resolve_definition", "not_found")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAgentCall("x", "y", time.Millisecond)
		m.RecordToolCall("x", time.Millisecond)
		m.RecordLLMCall("x", "y", time.Millisecond)
	})
}

func TestMetricsHandlerServesPrometheusFormat(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Enabled: true, Namespace: "testns2"})
	require.NoError(t, err)
	m.RecordToolCall("resolve_definition", time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "testns2_tool_calls_total")
}

func TestNilTracerIsSafe(t *testing.T) {
	var tr *Tracer
	assert.NotPanics(t, func() {
		ctx, span := tr.StartAgentRun(context.Background(), "task-1", "clause_analyze", "doc-1", "3.2", "evt-1")
		tr.AddLLMUsage(span, 10, 5)
		tr.RecordError(span, nil)
		span.End()
		_ = ctx
	})
	assert.Nil(t, tr.DebugExporter())
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestManagerWithNilConfig(t *testing.T) {
	mgr, err := NewManager(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, mgr)
	assert.False(t, mgr.TracingEnabled())
	assert.False(t, mgr.MetricsEnabled())
	assert.Nil(t, mgr.Tracer())
	assert.Nil(t, mgr.Metrics())
}

func TestNoopManager(t *testing.T) {
	mgr := NoopManager()
	require.NotNil(t, mgr)
	assert.False(t, mgr.TracingEnabled())
	assert.False(t, mgr.MetricsEnabled())
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

func TestDebugExporterStartsEmptyAndClears(t *testing.T) {
	exp := NewDebugExporter().WithMaxSize(2)
	assert.Equal(t, 0, exp.Count())
	exp.Clear()
	assert.Equal(t, 0, exp.Count())
}

func BenchmarkMetricsRecording(b *testing.B) {
	m, err := NewMetrics(&MetricsConfig{Enabled: true, Namespace: "benchns"})
	if err != nil || m == nil {
		b.Fatalf("failed to build metrics: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordAgentCall("clause_analyze", "node", 100*time.Millisecond)
	}
}
