package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/domain"
)

func sampleStructure() *domain.DocumentStructure {
	child := &domain.ClauseNode{ClauseID: "14.2", Title: "Advance Payment", Level: 1, Text: `预付款为合同总价的30%，"Engineer" shall certify.`}
	root := &domain.ClauseNode{ClauseID: "14", Title: "Contract Price and Payment", Level: 0, Text: "Clause 14 covers payment.", Children: []*domain.ClauseNode{child}}
	forest := []*domain.ClauseNode{root}

	valid := true
	invalid := false

	return &domain.DocumentStructure{
		DocumentID:    "doc-1",
		StructureType: "fidic",
		Clauses:       forest,
		Definitions:   map[string]string{"Engineer": "the person appointed by the Employer"},
		DefinitionsV2: []*domain.DefinitionEntry{
			{Term: "Contract Price", DefinitionText: "the amount stated in the Letter of Acceptance", Source: domain.DefinitionSourceRegex, Confidence: 1.0, Aliases: []string{"Price"}},
		},
		CrossReferences: []*domain.CrossReference{
			{SourceClauseID: "14.2", TargetClauseID: "4.1", ReferenceText: "Clause 4.1", IsValid: &valid, Source: domain.CrossReferenceSourceRegex, ReferenceType: domain.ReferenceTypeClause},
			{SourceClauseID: "14.2", TargetClauseID: "99.9", ReferenceText: "Clause 99.9", IsValid: &invalid, Source: domain.CrossReferenceSourceRegex, ReferenceType: domain.ReferenceTypeClause},
			{SourceClauseID: "4.1", TargetClauseID: "14.2", ReferenceText: "Clause 14.2", IsValid: &valid, Source: domain.CrossReferenceSourceRegex, ReferenceType: domain.ReferenceTypeClause},
		},
		TotalClauses: domain.TotalClauses(forest),
	}
}

func TestGetClauseContext_Found(t *testing.T) {
	structure := sampleStructure()
	out, err := GetClauseContext(context.Background(), GetClauseContextInput{ClauseID: "14", Structure: structure})
	require.NoError(t, err)
	result := out.(GetClauseContextOutput)

	assert.True(t, result.Found)
	assert.Contains(t, result.ContextText, "Clause 14 covers payment.")
	assert.Contains(t, result.ContextText, "预付款")
}

func TestGetClauseContext_NotFound(t *testing.T) {
	structure := sampleStructure()
	out, err := GetClauseContext(context.Background(), GetClauseContextInput{ClauseID: "999", Structure: structure})
	require.NoError(t, err)
	result := out.(GetClauseContextOutput)

	assert.False(t, result.Found)
	assert.Empty(t, result.ContextText)
}

func TestPrepareGetClauseContextInput_LLMOverridesClauseID(t *testing.T) {
	structure := sampleStructure()
	in, err := PrepareGetClauseContextInput("14.2", structure, nil, map[string]any{"clause_id": "4.1"})
	require.NoError(t, err)
	assert.Equal(t, "4.1", in.(GetClauseContextInput).ClauseID)
}

func TestResolveDefinition_V2PreferredOverLegacy(t *testing.T) {
	structure := sampleStructure()
	out, err := ResolveDefinition(context.Background(), ResolveDefinitionInput{
		ClauseID: "14.2", Structure: structure, Terms: []string{"Price", "Engineer", "Nonexistent Term"},
	})
	require.NoError(t, err)
	result := out.(ResolveDefinitionOutput)

	require.Contains(t, result.Found, "Price")
	assert.Equal(t, domain.DefinitionSourceRegex, result.Found["Price"].Source, "alias match must resolve through DefinitionsV2, not legacy")

	require.Contains(t, result.Found, "Engineer")
	assert.Equal(t, domain.DefinitionSourceManual, result.Found["Engineer"].Source, "legacy map entries are tagged manual by resolve_definition")

	assert.Equal(t, []string{"Nonexistent Term"}, result.NotFound)
}

func TestResolveDefinition_ExtractsQuotedTermsWhenNoneSupplied(t *testing.T) {
	structure := sampleStructure()
	out, err := ResolveDefinition(context.Background(), ResolveDefinitionInput{ClauseID: "14.2", Structure: structure})
	require.NoError(t, err)
	result := out.(ResolveDefinitionOutput)

	assert.NotEmpty(t, result.Found, "should extract and resolve the quoted term in 14.2's text")
}

func TestCompareWithBaseline_NoBaseline(t *testing.T) {
	structure := sampleStructure()
	out, err := CompareWithBaseline(context.Background(), CompareWithBaselineInput{ClauseID: "14", Structure: structure, BaselineText: ""})
	require.NoError(t, err)
	assert.False(t, out.(CompareWithBaselineOutput).HasBaseline)
}

func TestCompareWithBaseline_IdenticalIgnoresWhitespace(t *testing.T) {
	structure := sampleStructure()
	out, err := CompareWithBaseline(context.Background(), CompareWithBaselineInput{
		ClauseID: "14", Structure: structure, BaselineText: "Clause   14 covers\tpayment.\n预付款为合同总价的30%，\"Engineer\"   shall\tcertify.",
	})
	require.NoError(t, err)
	result := out.(CompareWithBaselineOutput)
	assert.True(t, result.HasBaseline)
	assert.True(t, result.IsIdentical)
}

func TestCompareWithBaseline_DifferenceSummarized(t *testing.T) {
	structure := sampleStructure()
	out, err := CompareWithBaseline(context.Background(), CompareWithBaselineInput{
		ClauseID: "14", Structure: structure, BaselineText: "Clause 14 covers a completely different topic.",
	})
	require.NoError(t, err)
	result := out.(CompareWithBaselineOutput)
	assert.True(t, result.HasBaseline)
	assert.False(t, result.IsIdentical)
	assert.NotEmpty(t, result.DifferencesSummary)
}

func TestPrepareCompareWithBaselineInput_IgnoresLLMArgs(t *testing.T) {
	structure := sampleStructure()
	baselineNode := &domain.ClauseNode{ClauseID: "14", Text: "baseline text"}
	state := &domain.ReviewGraphState{
		Documents: []*domain.TaskDocument{
			{Role: domain.RoleBaseline, Structure: &domain.DocumentStructure{Clauses: []*domain.ClauseNode{baselineNode}}},
		},
	}
	in, err := PrepareCompareWithBaselineInput("14", structure, state, map[string]any{"baseline_text": "should be ignored"})
	require.NoError(t, err)
	assert.Equal(t, "baseline text", in.(CompareWithBaselineInput).BaselineText)
}

func TestCrossReferenceCheck_FiltersBySourceClauseAndSeparatesInvalid(t *testing.T) {
	structure := sampleStructure()
	out, err := CrossReferenceCheck(context.Background(), CrossReferenceCheckInput{ClauseID: "14.2", Structure: structure})
	require.NoError(t, err)
	result := out.(CrossReferenceCheckOutput)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.InvalidTotal)
	require.Len(t, result.InvalidReferences, 1)
	assert.Equal(t, "99.9", result.InvalidReferences[0].TargetClauseID)
}

func TestCrossReferenceCheck_NoMatches(t *testing.T) {
	structure := sampleStructure()
	out, err := CrossReferenceCheck(context.Background(), CrossReferenceCheckInput{ClauseID: "1", Structure: structure})
	require.NoError(t, err)
	result := out.(CrossReferenceCheckOutput)
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.References)
}
