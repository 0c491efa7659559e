package smartparse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
)

type fakeClient struct {
	text string
	err  error
}

func (f *fakeClient) Chat(ctx context.Context, messages []llms.Message, temperature float64, maxOutputTokens int) (string, error) {
	return f.text, f.err
}

func (f *fakeClient) ChatWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition, temperature float64) (string, []llms.ToolCall, error) {
	return f.text, nil, f.err
}

func (f *fakeClient) ModelName() string { return "fake" }
func (f *fakeClient) Close() error      { return nil }

const sampleDoc = `1 Definitions
1.1 "Employer" means the party named in Appendix A.
1.2 "Contractor" means the party executing the works.
2 Scope of Work
2.1 The Contractor shall perform the works described in Schedule 1.
2.2 Time is of the essence.
3 Payment
3.1 Payment shall be made within 28 days.
`

func TestInferEmptySampleReturnsExistingConfig(t *testing.T) {
	existing := &domain.DocumentParserConfig{ClausePattern: `(?m)^(\d+)\.`, StructureType: "custom"}
	cfg := Infer(context.Background(), nil, "", sampleDoc, existing)
	assert.Same(t, existing, cfg)
}

func TestInferEmptySampleNoExistingReturnsFallback(t *testing.T) {
	cfg := Infer(context.Background(), nil, "", sampleDoc, nil)
	require.NotNil(t, cfg)
	assert.Equal(t, "numeric_dotted", cfg.StructureType)
}

func TestInferNilClientFallsBackToDefault(t *testing.T) {
	cfg := Infer(context.Background(), nil, sampleDoc, sampleDoc, nil)
	require.NotNil(t, cfg)
	assert.Equal(t, domain.DefaultFallbackConfig().ClausePattern, cfg.ClausePattern)
}

func TestInferGoodLLMPatternIsUsed(t *testing.T) {
	client := &fakeClient{text: `{"clause_pattern": "^(\\d+(?:\\.\\d+)*)\\s", "structure_type": "numeric_dotted", "max_depth": 3, "confidence": 0.95, "definitions_section_id": "1"}`}
	cfg := Infer(context.Background(), client, sampleDoc, sampleDoc, nil)
	require.NotNil(t, cfg)
	assert.Equal(t, "1", cfg.DefinitionsSectionID)
	assert.Equal(t, 3, cfg.MaxDepth)
	assert.GreaterOrEqual(t, cfg.Confidence, 0.9)
}

func TestInferBadClausePatternFallsBackToExisting(t *testing.T) {
	existing := &domain.DocumentParserConfig{ClausePattern: `(?m)^(\d+(?:\.\d+)*)\s`, StructureType: "numeric_dotted"}
	client := &fakeClient{text: `{"clause_pattern": "(unterminated", "confidence": 0.9}`}
	cfg := Infer(context.Background(), client, sampleDoc, sampleDoc, existing)
	assert.Same(t, existing, cfg)
}

func TestInferLowMatchCountFallsBackToTable(t *testing.T) {
	client := &fakeClient{text: `{"clause_pattern": "^NOPE_NEVER_MATCHES", "structure_type": "weird", "confidence": 0.9}`}
	cfg := Infer(context.Background(), client, sampleDoc, sampleDoc, nil)
	require.NotNil(t, cfg)
	assert.Equal(t, "numeric_dotted", cfg.StructureType)
}

func TestInferExistingConfigWinsOverWeakLLM(t *testing.T) {
	existing := &domain.DocumentParserConfig{ClausePattern: `(?m)^(\d+(?:\.\d+)*)\s`, StructureType: "numeric_dotted"}
	client := &fakeClient{text: `{"clause_pattern": "^\\d+\\.1\\s", "structure_type": "partial", "confidence": 0.2}`}
	cfg := Infer(context.Background(), client, sampleDoc, sampleDoc, existing)
	assert.Same(t, existing, cfg)
}

func TestInferDefinitionsSectionIDOverride(t *testing.T) {
	existing := &domain.DocumentParserConfig{ClausePattern: `(?m)^(\d+(?:\.\d+)*)\s`, DefinitionsSectionID: "1"}
	client := &fakeClient{text: `{"clause_pattern": "^(\\d+(?:\\.\\d+)*)\\s", "structure_type": "numeric_dotted", "confidence": 0.95, "definitions_section_id": "9"}`}
	cfg := Infer(context.Background(), client, sampleDoc, sampleDoc, existing)
	require.NotNil(t, cfg)
	assert.Equal(t, "1", cfg.DefinitionsSectionID)
}

func TestInferDropsInvalidExtraPatterns(t *testing.T) {
	client := &fakeClient{text: `{"clause_pattern": "^(\\d+(?:\\.\\d+)*)\\s", "structure_type": "numeric_dotted", "confidence": 0.95, "cross_reference_patterns": ["见(\\d+)", "(unterminated"]}`}
	cfg := Infer(context.Background(), client, sampleDoc, sampleDoc, nil)
	require.Len(t, cfg.CrossReferencePatterns, 1)
	assert.Equal(t, `见(\d+)`, cfg.CrossReferencePatterns[0])
}

func TestInferLLMErrorFallsBackToFallback(t *testing.T) {
	client := &fakeClient{err: assert.AnError}
	cfg := Infer(context.Background(), client, sampleDoc, sampleDoc, nil)
	require.NotNil(t, cfg)
	assert.Equal(t, domain.DefaultFallbackConfig().ClausePattern, cfg.ClausePattern)
}
