package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/llms"
)

type fakeClient struct {
	text string
	err  error
	n    int
}

func (f *fakeClient) Chat(ctx context.Context, messages []llms.Message, temperature float64, maxOutputTokens int) (string, error) {
	f.n++
	return f.text, f.err
}

func (f *fakeClient) ChatWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition, temperature float64) (string, []llms.ToolCall, error) {
	return f.text, nil, f.err
}

func (f *fakeClient) ModelName() string { return "fake" }
func (f *fakeClient) Close() error      { return nil }

func TestDefinitionsRegexOnly(t *testing.T) {
	text := `"Employer" means the party named in Appendix A. "Contractor" means the party executing the works.`
	entries := Definitions(context.Background(), nil, text, text)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "regex", string(e.Source))
	}
}

func TestDefinitionsLLMSupplementsNewTerms(t *testing.T) {
	text := `"Employer" means the party named in Appendix A.`
	client := &fakeClient{text: `{"definitions": [{"term": "Force Majeure Event", "definition_text": "an event beyond reasonable control", "confidence": 0.8}], "confidence": 0.8}`}
	entries := Definitions(context.Background(), client, text, text)
	require.Len(t, entries, 2)

	var llmEntry bool
	for _, e := range entries {
		if e.Term == "Force Majeure Event" {
			llmEntry = true
			assert.Equal(t, "llm", string(e.Source))
			assert.Equal(t, 0.8, e.Confidence)
		}
	}
	assert.True(t, llmEntry)
}

func TestDefinitionsRegexWinsOnDuplicateKey(t *testing.T) {
	text := `"Employer" means the party named in Appendix A.`
	client := &fakeClient{text: `{"definitions": [{"term": "employer", "definition_text": "a different definition entirely here", "confidence": 0.9}]}`}
	entries := Definitions(context.Background(), client, text, text)
	require.Len(t, entries, 1)
	assert.Equal(t, "regex", string(entries[0].Source))
}

func TestDefinitionsDropsOutOfBoundsEntries(t *testing.T) {
	client := &fakeClient{text: `{"definitions": [{"term": "X", "definition_text": "ok"}, {"term": "Valid Term", "definition_text": "no"}]}`}
	entries := Definitions(context.Background(), client, "", "", )
	assert.Empty(t, entries)
	_ = client
}

func TestDefinitionsLLMFailureDegradesToRegexOnly(t *testing.T) {
	text := `"Employer" means the party named in Appendix A.`
	client := &fakeClient{err: assert.AnError}
	entries := Definitions(context.Background(), client, text, text)
	require.Len(t, entries, 1)
}

func TestCrossReferencesRegexOnly(t *testing.T) {
	clauseSet := map[string]struct{}{"1": {}, "2": {}, "9.1": {}}
	clauses := []ClauseText{{ClauseID: "1", Text: "Subject to Clause 9.1, the works shall proceed."}}
	refs := CrossReferences(context.Background(), nil, clauses, clauseSet, nil)
	require.Len(t, refs, 1)
	assert.Equal(t, "9.1", refs[0].TargetClauseID)
	assert.Equal(t, "regex", string(refs[0].Source))
}

func TestCrossReferencesLLMBatchCapped(t *testing.T) {
	clauseSet := map[string]struct{}{"9": {}}
	var clauses []ClauseText
	for i := 0; i < crossRefLLMClauseCap+5; i++ {
		clauses = append(clauses, ClauseText{ClauseID: "x", Text: "plain text with no references"})
	}
	client := &fakeClient{text: `{"references": []}`}
	CrossReferences(context.Background(), client, clauses, clauseSet, nil)
	assert.Equal(t, crossRefLLMClauseCap, client.n)
}

func TestCrossReferencesLLMSupplementsAndDedups(t *testing.T) {
	clauseSet := map[string]struct{}{"9": {}}
	clauses := []ClauseText{{ClauseID: "1", Text: "See the payment terms above."}}
	client := &fakeClient{text: `{"references": [{"target_clause_id": "9", "reference_text": "payment terms", "reference_type": "clause", "confidence": 0.75}, {"target_clause_id": "9", "reference_text": "Payment Terms", "reference_type": "clause", "confidence": 0.6}]}`}
	refs := CrossReferences(context.Background(), client, clauses, clauseSet, nil)
	require.Len(t, refs, 1)
	assert.Equal(t, "llm", string(refs[0].Source))
}
