package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/patterns"
)

const (
	crossRefFocusCharLimit = 4000
	crossRefLLMClauseCap   = 50
)

type llmCrossRef struct {
	TargetClauseID string  `json:"target_clause_id"`
	ReferenceText  string  `json:"reference_text"`
	ReferenceType  string  `json:"reference_type"`
	Confidence     float64 `json:"confidence"`
}

type llmCrossRefsResponse struct {
	References []llmCrossRef `json:"references"`
	Confidence float64       `json:"confidence"`
}

// ClauseText pairs a clause_id with the text to extract cross-references
// from, the unit CrossReferences batches LLM calls over.
type ClauseText struct {
	ClauseID string
	Text     string
}

// CrossReferences runs the three-phase hybrid cross-reference extractor
// over every clause in clauses. Phase A (regex) runs unconditionally on
// every clause; Phase C (LLM) only runs for the first crossRefLLMClauseCap
// clauses to bound per-document LLM cost.
func CrossReferences(ctx context.Context, client llms.Client, clauses []ClauseText, clauseIDSet map[string]struct{}, extraPatterns []patterns.ExtraPattern) []*domain.CrossReference {
	var out []*domain.CrossReference

	for i, c := range clauses {
		seen := make(map[string]bool)
		addAll := func(refs []*domain.CrossReference) {
			for _, r := range refs {
				key := crossRefKey(r)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, r)
			}
		}

		// Phase A.
		addAll(patterns.ExtractCrossReferences(c.Text, c.ClauseID, clauseIDSet, extraPatterns))

		// Phase C, capped to the first N clauses.
		if client != nil && i < crossRefLLMClauseCap {
			focus := truncate(c.Text, crossRefFocusCharLimit)
			if llmRefs, ok := callCrossRefLLM(ctx, client, c.ClauseID, focus, clauseIDSet); ok {
				addAll(llmRefs)
			}
		}
	}

	return out
}

func crossRefKey(r *domain.CrossReference) string {
	return fmt.Sprintf("%s|%s|%s", r.SourceClauseID, r.TargetClauseID, patterns.NormalizeKey(r.ReferenceText))
}

func callCrossRefLLM(ctx context.Context, client llms.Client, clauseID, focusText string, clauseIDSet map[string]struct{}) ([]*domain.CrossReference, bool) {
	prompt := crossRefPrompt(clauseID, focusText)
	raw, ok := callLLMForJSON(ctx, client, prompt)
	if !ok {
		return nil, false
	}

	var resp llmCrossRefsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}

	out := make([]*domain.CrossReference, 0, len(resp.References))
	for _, r := range resp.References {
		if r.TargetClauseID == "" || r.TargetClauseID == clauseID {
			continue
		}
		confidence := r.Confidence
		if confidence == 0 {
			confidence = 0.7
		}
		refType := domain.ReferenceType(r.ReferenceType)
		if !refType.IsValid() {
			refType = domain.ReferenceTypeClause
		}
		ref := &domain.CrossReference{
			SourceClauseID: clauseID,
			TargetClauseID: r.TargetClauseID,
			ReferenceText:  r.ReferenceText,
			Source:         domain.CrossReferenceSourceLLM,
			Confidence:     confidence,
			ReferenceType:  refType,
		}
		ref.TruncateReferenceText()
		ref.ValidateAgainst(clauseIDSet)
		out = append(out, ref)
	}
	return out, true
}

func crossRefPrompt(clauseID, focusText string) string {
	return "Find cross-references to other clauses in this contract clause that a " +
		"regex scan for standard \"Clause N\"/\"Article N\" phrasing would miss " +
		"(e.g. references by name, or non-standard numbering).\n\n" +
		"The clause being analyzed is " + clauseID + ". Do not report it as its own target.\n\n" +
		"Respond with a single JSON object: " +
		`{"references": [{"target_clause_id": string, "reference_text": string, "reference_type": string, "confidence": number}], "confidence": number}` +
		"\n\nClause text:\n" + focusText
}
