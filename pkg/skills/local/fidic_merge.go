package local

import (
	"context"

	"github.com/clausereview/engine/pkg/domain"
)

// FidicMergeGcPcInput is fidic_merge_gc_pc's handler input. Per the General
// Conditions/Particular Conditions amendment mechanism, the merge is just a
// clause text comparison against a caller-supplied base (the General
// Conditions text for the same clause reference), the same recipe
// compare_with_baseline uses, reframed for GC/PC rather than a prior
// contract revision.
type FidicMergeGcPcInput struct {
	ClauseID   string
	Structure  *domain.DocumentStructure
	GCBaseText string
}

// FidicMergeGcPcOutput is fidic_merge_gc_pc's handler output.
type FidicMergeGcPcOutput struct {
	HasGeneralConditions    bool     `json:"has_general_conditions"`
	AmendsGeneralConditions bool     `json:"amends_general_conditions"`
	AmendmentsSummary       []string `json:"amendments_summary,omitempty"`
}

// FidicMergeGcPc delegates to the same normalize/diff/summarize recipe as
// CompareWithBaseline: the Particular Conditions clause text is compared
// against the caller-supplied General Conditions text for the same
// reference, and any difference is reported as an amendment.
func FidicMergeGcPc(ctx context.Context, input any) (any, error) {
	in := input.(FidicMergeGcPcInput)

	cmp, err := CompareWithBaseline(ctx, CompareWithBaselineInput{
		ClauseID:     in.ClauseID,
		Structure:    in.Structure,
		BaselineText: in.GCBaseText,
	})
	if err != nil {
		return FidicMergeGcPcOutput{}, err
	}
	out := cmp.(CompareWithBaselineOutput)

	return FidicMergeGcPcOutput{
		HasGeneralConditions:    out.HasBaseline,
		AmendsGeneralConditions: out.HasBaseline && !out.IsIdentical,
		AmendmentsSummary:       out.DifferencesSummary,
	}, nil
}

// PrepareFidicMergeGcPcInput derives FidicMergeGcPcInput from graph state,
// reading the General Conditions document the same way
// PrepareCompareWithBaselineInput reads the baseline document.
func PrepareFidicMergeGcPcInput(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
	return FidicMergeGcPcInput{ClauseID: clauseID, Structure: primary, GCBaseText: generalConditionsClauseText(state, clauseID)}, nil
}

func generalConditionsClauseText(state *domain.ReviewGraphState, clauseID string) string {
	if state == nil {
		return ""
	}
	for _, doc := range state.Documents {
		if doc.Role != domain.RoleReference || doc.Structure == nil {
			continue
		}
		if node := doc.Structure.FindClause(clauseID); node != nil {
			return node.FullText()
		}
	}
	return ""
}
