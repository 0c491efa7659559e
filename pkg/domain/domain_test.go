package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleForest() []*ClauseNode {
	return []*ClauseNode{
		{
			ClauseID: "1",
			Level:    0,
			Text:     "root",
			Children: []*ClauseNode{
				{ClauseID: "1.1", Level: 1, Text: "child a"},
				{ClauseID: "1.2", Level: 1, Text: "child b"},
			},
		},
		{ClauseID: "2", Level: 0, Text: "root2"},
	}
}

func TestTotalClausesInvariant(t *testing.T) {
	forest := sampleForest()
	total := TotalClauses(forest)
	assert.Equal(t, 4, total)

	structure := &DocumentStructure{Clauses: forest, TotalClauses: total}
	require.NoError(t, structure.Validate())

	structure.TotalClauses = total + 1
	require.Error(t, structure.Validate())
}

func TestClauseIDSetAndFind(t *testing.T) {
	forest := sampleForest()
	ids := ClauseIDSet(forest)
	assert.Contains(t, ids, "1.1")
	assert.Contains(t, ids, "2")

	node := FindInForest(forest, "1.2")
	require.NotNil(t, node)
	assert.Equal(t, "child b", node.Text)

	assert.Nil(t, FindInForest(forest, "9.9"))
}

func TestCrossReferenceSelfReferenceAndValidity(t *testing.T) {
	ref := &CrossReference{SourceClauseID: "1", TargetClauseID: "1"}
	assert.True(t, ref.IsSelfReference())

	ids := ClauseIDSet(sampleForest())
	ref2 := &CrossReference{SourceClauseID: "1", TargetClauseID: "1.1", Source: CrossReferenceSourceRegex}
	ref2.ValidateAgainst(ids)
	require.NotNil(t, ref2.IsValid)
	assert.True(t, *ref2.IsValid)

	ref3 := &CrossReference{SourceClauseID: "1", TargetClauseID: "99", Source: CrossReferenceSourceRegex}
	ref3.ValidateAgainst(ids)
	assert.False(t, *ref3.IsValid)
}

func TestDefinitionEntryValidateAndTruncate(t *testing.T) {
	entry := &DefinitionEntry{Term: "Employer", DefinitionText: "the party named in the contract"}
	require.NoError(t, entry.Validate())

	entry.Term = "a"
	require.Error(t, entry.Validate())

	long := &DefinitionEntry{Term: "Works"}
	text := make([]byte, 2500)
	for i := range text {
		text[i] = 'x'
	}
	long.DefinitionText = string(text)
	long.Truncate()
	assert.LessOrEqual(t, len(long.DefinitionText), definitionTruncatedCap)
	assert.Contains(t, long.DefinitionText, truncationSuffix)
}

func TestDocumentDiffMonotonicStatus(t *testing.T) {
	diff := &DocumentDiff{ActionType: DiffActionReplace, OriginalText: "a", ProposedText: "b", Status: DiffStatusPending}
	require.NoError(t, diff.Validate())

	diff.ApplyDecision(DecisionApprove)
	assert.Equal(t, DiffStatusApproved, diff.Status)

	// Monotonic: a second decision on an already-resolved diff is a no-op.
	diff.ApplyDecision(DecisionReject)
	assert.Equal(t, DiffStatusApproved, diff.Status)
}

func TestApplyAdjustmentNoOpPreservesVersion(t *testing.T) {
	plan := &ReviewPlan{
		PlanVersion: 3,
		Clauses: []*ClauseAnalysisPlan{
			{ClauseID: "1", AnalysisDepth: AnalysisDepthStandard, MaxIterations: 3},
		},
	}
	result := ApplyAdjustment(plan, &PlanAdjustment{ShouldAdjust: false})
	assert.Equal(t, 3, result.PlanVersion)

	adjusted := ApplyAdjustment(plan, &PlanAdjustment{
		ShouldAdjust: true,
		AdjustedClauses: []*ClauseAdjustment{
			{ClauseID: "1", AnalysisDepth: AnalysisDepthDeep, MaxIterations: 5},
		},
	})
	assert.Equal(t, 4, adjusted.PlanVersion)
	assert.Equal(t, AnalysisDepthDeep, adjusted.ByClauseID()["1"].AnalysisDepth)

	// Unknown clause_id is ignored.
	ignored := ApplyAdjustment(adjusted, &PlanAdjustment{
		ShouldAdjust:    true,
		AdjustedClauses: []*ClauseAdjustment{{ClauseID: "nope", AnalysisDepth: AnalysisDepthQuick}},
	})
	assert.Equal(t, 5, ignored.PlanVersion)
}

func TestSkillRegistrationValidate(t *testing.T) {
	local := &SkillRegistration{Backend: SkillBackendLocal}
	assert.ErrorIs(t, local.Validate(), ErrMissingHandlerPath)

	local.LocalHandler = "local.get_clause_context"
	assert.NoError(t, local.Validate())

	remote := &SkillRegistration{Backend: SkillBackendRemote}
	assert.ErrorIs(t, remote.Validate(), ErrRemoteWithoutClient)
}

func TestReviewGraphStateInvariants(t *testing.T) {
	state := NewState("t1")
	state.ReviewChecklist = []*ReviewChecklistItem{{ClauseID: "1"}}
	require.NoError(t, state.Validate())
	assert.True(t, state.HasMoreClauses())

	state.CurrentClauseIndex = 1
	require.NoError(t, state.Validate())
	assert.False(t, state.HasMoreClauses())

	state.CurrentClauseIndex = 2
	assert.Error(t, state.Validate())
}
