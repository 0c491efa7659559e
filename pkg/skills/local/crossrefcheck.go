package local

import (
	"context"

	"github.com/clausereview/engine/pkg/domain"
)

// CrossReferenceCheckInput is cross_reference_check's handler input.
type CrossReferenceCheckInput struct {
	ClauseID  string
	Structure *domain.DocumentStructure
}

// CrossReferenceCheckOutput is cross_reference_check's handler output.
type CrossReferenceCheckOutput struct {
	References        []*domain.CrossReference `json:"references"`
	InvalidReferences []*domain.CrossReference `json:"invalid_references"`
	Total             int                      `json:"total"`
	InvalidTotal      int                      `json:"invalid_total"`
}

// CrossReferenceCheck filters the document's pre-computed cross-references
// by source_clause_id and separates the invalid ones out.
func CrossReferenceCheck(ctx context.Context, input any) (any, error) {
	in := input.(CrossReferenceCheckInput)

	var refs, invalid []*domain.CrossReference
	if in.Structure != nil {
		for _, ref := range in.Structure.CrossReferences {
			if ref.SourceClauseID != in.ClauseID {
				continue
			}
			refs = append(refs, ref)
			if ref.IsValid != nil && !*ref.IsValid {
				invalid = append(invalid, ref)
			}
		}
	}

	return CrossReferenceCheckOutput{
		References:        refs,
		InvalidReferences: invalid,
		Total:             len(refs),
		InvalidTotal:      len(invalid),
	}, nil
}

// PrepareCrossReferenceCheckInput derives CrossReferenceCheckInput from
// graph state.
func PrepareCrossReferenceCheckInput(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
	return CrossReferenceCheckInput{ClauseID: clauseID, Structure: primary}, nil
}
