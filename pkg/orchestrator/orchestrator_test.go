package orchestrator

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

func (c *fakeClient) Chat(ctx context.Context, messages []llms.Message, temperature float64, maxOutputTokens int) (string, error) {
	return c.text, c.err
}
func (c *fakeClient) ChatWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition, temperature float64) (string, []llms.ToolCall, error) {
	return c.text, nil, c.err
}
func (c *fakeClient) ModelName() string { return "fake" }
func (c *fakeClient) Close() error      { return nil }

func checklistFixture() []*domain.ReviewChecklistItem {
	return []*domain.ReviewChecklistItem{
		{ClauseID: "1", ClauseName: "Definitions", Priority: domain.PriorityLow},
		{ClauseID: "2", ClauseName: "Liability", Priority: domain.PriorityCritical},
		{ClauseID: "3", ClauseName: "Indemnity", Priority: domain.PriorityCritical},
		{ClauseID: "4", ClauseName: "Payment", Priority: domain.PriorityMedium},
	}
}

func TestGenerateReviewPlanNilClientReturnsDefault(t *testing.T) {
	plan := GenerateReviewPlan(context.Background(), nil, checklistFixture(), "fidic", "construction", []string{"get_clause_context"})
	require.Len(t, plan.Clauses, 4)
	assert.Equal(t, domain.AnalysisDepthStandard, plan.Clauses[0].AnalysisDepth)
	assert.Equal(t, domain.AnalysisDepthDeep, plan.Clauses[1].AnalysisDepth)
}

func TestGenerateReviewPlanEmptyChecklist(t *testing.T) {
	plan := GenerateReviewPlan(context.Background(), nil, nil, "fidic", "construction", nil)
	assert.Empty(t, plan.Clauses)
}

func TestGenerateReviewPlanParsesAndReordersByPriority(t *testing.T) {
	resp := `{"global_strategy":"front-load critical clauses","clauses":[
		{"clause_id":"1","analysis_depth":"quick","priority_order":3,"skip_diffs":true,"skip_validate":true},
		{"clause_id":"2","analysis_depth":"deep","priority_order":0,"max_iterations":5},
		{"clause_id":"3","analysis_depth":"deep","priority_order":1,"max_iterations":5},
		{"clause_id":"4","analysis_depth":"standard","priority_order":2}
	]}`
	client := &fakeClient{text: resp}
	plan := GenerateReviewPlan(context.Background(), client, checklistFixture(), "fidic", "construction", []string{"x"})
	require.Len(t, plan.Clauses, 4)
	assert.Equal(t, "2", plan.Clauses[0].ClauseID)
	assert.Equal(t, "3", plan.Clauses[1].ClauseID)
	assert.Equal(t, "4", plan.Clauses[2].ClauseID)
	assert.Equal(t, "1", plan.Clauses[3].ClauseID)

	checklist := ReorderChecklist(checklistFixture(), plan)
	assert.Equal(t, []string{"2", "3", "4", "1"}, []string{checklist[0].ClauseID, checklist[1].ClauseID, checklist[2].ClauseID, checklist[3].ClauseID})
}

func TestGenerateReviewPlanBackfillsOmittedClause(t *testing.T) {
	resp := `{"clauses":[{"clause_id":"2","analysis_depth":"deep","priority_order":0}]}`
	client := &fakeClient{text: resp}
	plan := GenerateReviewPlan(context.Background(), client, checklistFixture(), "fidic", "construction", nil)
	require.Len(t, plan.Clauses, 4)
	byID := plan.ByClauseID()
	assert.Equal(t, domain.AnalysisDepthDeep, byID["2"].AnalysisDepth)
	// backfilled entries use DefaultPlanEntry
	assert.Equal(t, domain.AnalysisDepthStandard, byID["1"].AnalysisDepth)
}

func TestGenerateReviewPlanInvalidDepthNormalizesToStandard(t *testing.T) {
	resp := `{"clauses":[
		{"clause_id":"1","analysis_depth":"bogus","priority_order":0},
		{"clause_id":"2","analysis_depth":"deep","priority_order":1},
		{"clause_id":"3","analysis_depth":"deep","priority_order":2},
		{"clause_id":"4","analysis_depth":"standard","priority_order":3}
	]}`
	client := &fakeClient{text: resp}
	plan := GenerateReviewPlan(context.Background(), client, checklistFixture(), "fidic", "construction", nil)
	assert.Equal(t, domain.AnalysisDepthStandard, plan.ByClauseID()["1"].AnalysisDepth)
}

func TestMaybeAdjustPlanSkipsLLMWhenNoHighRiskAndNotMidpoint(t *testing.T) {
	client := &fakeClient{text: `{"should_adjust":true}`}
	adj := MaybeAdjustPlan(context.Background(), client, "1", []*domain.Risk{{RiskLevel: "low"}}, nil, 1, 10)
	assert.False(t, adj.ShouldAdjust)
}

func TestMaybeAdjustPlanTriggersOnHighRisk(t *testing.T) {
	client := &fakeClient{text: `{"should_adjust":true,"adjusted_clauses":[{"clause_id":"5","analysis_depth":"deep","max_iterations":5,"rationale":"related to high risk"}]}`}
	adj := MaybeAdjustPlan(context.Background(), client, "1", []*domain.Risk{{RiskLevel: "high"}}, nil, 1, 10)
	require.True(t, adj.ShouldAdjust)
	require.Len(t, adj.AdjustedClauses, 1)
	assert.Equal(t, "5", adj.AdjustedClauses[0].ClauseID)
}

func TestMaybeAdjustPlanTriggersExactlyAtIntegerMidpoint(t *testing.T) {
	client := &fakeClient{text: `{"should_adjust":false}`}
	// total=10: midpoint triggers only when completed==5, not 4 or 6.
	adjNotYet := MaybeAdjustPlan(context.Background(), client, "1", nil, nil, 4, 10)
	assert.False(t, adjNotYet.ShouldAdjust)

	called := false
	wrapped := &callCountingClient{fakeClient: client, onCall: func() { called = true }}
	_ = MaybeAdjustPlan(context.Background(), wrapped, "1", nil, nil, 5, 10)
	assert.True(t, called, "LLM must be consulted exactly at the integer midpoint")

	called = false
	_ = MaybeAdjustPlan(context.Background(), wrapped, "1", nil, nil, 6, 10)
	assert.False(t, called, "midpoint fires once, not for every completedCount >= total/2")
}

type callCountingClient struct {
	*fakeClient
	onCall func()
}

func (c *callCountingClient) Chat(ctx context.Context, messages []llms.Message, temperature float64, maxOutputTokens int) (string, error) {
	c.onCall()
	return c.fakeClient.Chat(ctx, messages, temperature, maxOutputTokens)
}

func TestMaybeAdjustPlanLLMFailureReturnsNoAdjust(t *testing.T) {
	client := &fakeClient{err: assertErr}
	adj := MaybeAdjustPlan(context.Background(), client, "1", []*domain.Risk{{RiskLevel: "critical"}}, nil, 1, 10)
	assert.False(t, adj.ShouldAdjust)
}

var assertErr = domain.ErrParseFailure
