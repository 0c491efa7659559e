package reviewgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/config"
	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/skills"
	"github.com/clausereview/engine/pkg/skills/local"
)

func newDispatcherWithClauseContext(t *testing.T) *skills.Dispatcher {
	t.Helper()
	d := skills.NewDispatcher(0)
	require.NoError(t, d.RegisterLocal(
		domain.SkillRegistration{SkillID: "get_clause_context", Name: "get_clause_context", LocalHandler: "GetClauseContext", Domain: "*", InputSchema: map[string]any{"type": "object"}},
		local.GetClauseContext,
		local.PrepareGetClauseContextInput,
	))
	return d
}

func structureFixture() *domain.DocumentStructure {
	node := &domain.ClauseNode{ClauseID: "14.2", Title: "Advance Payment", Text: "预付款为合同总价的30%"}
	return &domain.DocumentStructure{
		DocumentID:    "doc1",
		StructureType: "numeric_dotted",
		Clauses:       []*domain.ClauseNode{node},
		TotalClauses:  1,
	}
}

func TestEmptyChecklistCompletesImmediately(t *testing.T) {
	g := New(skills.NewDispatcher(0), nil, &config.ReviewConfig{ExecutionMode: domain.ExecutionModeLegacy})
	state := domain.NewState("e1")
	state.ReviewChecklist = []*domain.ReviewChecklistItem{}

	out, err := g.Ainvoke(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, out.IsComplete)
	assert.Contains(t, out.SummaryNotes, "0 个条款")
	assert.Empty(t, out.AllRisks)
	assert.Empty(t, out.AllDiffs)
}

func TestSingleClauseDeterministicLegacyNoLLM(t *testing.T) {
	dispatcher := newDispatcherWithClauseContext(t)
	g := New(dispatcher, nil, &config.ReviewConfig{ExecutionMode: domain.ExecutionModeLegacy})

	state := domain.NewState("t1")
	state.ReviewChecklist = []*domain.ReviewChecklistItem{
		{ClauseID: "14.2", RequiredSkills: []string{"get_clause_context"}},
	}
	state.Documents = []*domain.TaskDocument{{DocumentID: "doc1", Role: domain.RolePrimary, Structure: structureFixture()}}

	out, err := g.Ainvoke(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, out.IsComplete)
	assert.Equal(t, 1, out.CurrentClauseIndex)
	assert.Empty(t, out.Findings["14.2"].Risks)
	require.Contains(t, out.CurrentSkillContext, "get_clause_context")
	var shape struct {
		ContextText string `json:"context_text"`
	}
	res := out.CurrentSkillContext["get_clause_context"]
	require.True(t, res.Success)
	out2, ok := res.Data.(local.GetClauseContextOutput)
	require.True(t, ok)
	shape.ContextText = out2.ContextText
	assert.Contains(t, shape.ContextText, "预付款")
	assert.Contains(t, out.SummaryNotes, "1 个条款")
}

// scriptedLLM is a minimal llms.Client whose Chat responses are scripted
// in call order, used to drive clause_generate_diffs/clause_validate
// deterministically in tests.
type scriptedLLM struct {
	chatResponses []string
	chatIdx       int
}

func (c *scriptedLLM) Chat(ctx context.Context, messages []llms.Message, temperature float64, maxOutputTokens int) (string, error) {
	if c.chatIdx >= len(c.chatResponses) {
		// Script exhausted; any remaining call is a validation pass.
		return `{"result":"pass"}`, nil
	}
	resp := c.chatResponses[c.chatIdx]
	c.chatIdx++
	return resp, nil
}
func (c *scriptedLLM) ChatWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition, temperature float64) (string, []llms.ToolCall, error) {
	return "[]", nil, nil
}
func (c *scriptedLLM) ModelName() string { return "scripted" }
func (c *scriptedLLM) Close() error      { return nil }

func TestHumanApprovalSplitDecisionsResume(t *testing.T) {
	dispatcher := newDispatcherWithClauseContext(t)
	client := &scriptedLLM{chatResponses: []string{
		// legacy analyze: two risks
		`[{"risk_level":"high","description":"r1"},{"risk_level":"medium","description":"r2"}]`,
		// diff draft for risk 1
		`{"action_type":"replace","original_text":"old1","proposed_text":"new1","reason":"tighten obligation"}`,
		// diff draft for risk 2
		`{"action_type":"replace","original_text":"old2","proposed_text":"new2","reason":"clarify timing"}`,
	}}
	g := New(dispatcher, client, &config.ReviewConfig{ExecutionMode: domain.ExecutionModeLegacy})

	state := domain.NewState("t2")
	state.ReviewChecklist = []*domain.ReviewChecklistItem{
		{ClauseID: "14.2", RequiredSkills: []string{"get_clause_context"}},
	}
	state.Documents = []*domain.TaskDocument{{DocumentID: "doc1", Role: domain.RolePrimary, Structure: structureFixture()}}

	out, err := g.Ainvoke(context.Background(), state)
	require.Error(t, err)
	_, isInterrupt := err.(*Interrupted)
	require.True(t, isInterrupt)
	require.Len(t, out.PendingDiffs, 2)

	d1, d2 := out.PendingDiffs[0], out.PendingDiffs[1]
	out.UserDecisions = map[string]domain.UserDecision{
		d1.DiffID: domain.DecisionApprove,
		d2.DiffID: domain.DecisionReject,
	}

	final, err := g.Resume(context.Background(), out)
	require.NoError(t, err)
	assert.True(t, final.IsComplete)
	require.Len(t, final.AllDiffs, 1)
	assert.Equal(t, d1.DiffID, final.AllDiffs[0].DiffID)
	assert.Equal(t, domain.DiffStatusApproved, final.AllDiffs[0].Status)

	findingDiffs := final.Findings["14.2"].Diffs
	require.Len(t, findingDiffs, 2)
	for _, d := range findingDiffs {
		if d.DiffID == d2.DiffID {
			assert.Equal(t, domain.DiffStatusRejected, d.Status)
		}
	}
}

func TestDoubleResumeIsIdempotent(t *testing.T) {
	g := New(skills.NewDispatcher(0), nil, &config.ReviewConfig{ExecutionMode: domain.ExecutionModeLegacy})
	state := domain.NewState("t3")
	state.ReviewChecklist = []*domain.ReviewChecklistItem{}
	state.IsComplete = true

	out1, err := g.Resume(context.Background(), state)
	require.NoError(t, err)
	out2, err := g.Resume(context.Background(), out1)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}
