package reviewgraph

import (
	"context"
	"encoding/json"

	"github.com/clausereview/engine/pkg/domain"
)

// FallbackResult is the deterministic fallback path's output: the clause
// text it managed to locate and the skill_context it populated along the
// way. Risks are always empty -- no LLM synthesis happens here.
type FallbackResult struct {
	ClauseText   string
	SkillContext map[string]*domain.SkillResult
}

// DeterministicFallback iterates requiredSkills in order, calling
// dispatcher.PrepareAndCall for each one that is registered (unregistered
// skill ids are silently skipped, matching a checklist authored against a
// domain whose full skill set isn't wired in this deployment). It
// guarantees rule-grounded skill output even when no LLM is available.
func (g *Graph) DeterministicFallback(ctx context.Context, clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, requiredSkills []string) *FallbackResult {
	skillContext := make(map[string]*domain.SkillResult)

	for _, skillID := range requiredSkills {
		if !g.Dispatcher.IsRegistered(skillID) {
			continue
		}
		result := g.Dispatcher.PrepareAndCall(ctx, skillID, clauseID, primary, state, nil)
		skillContext[skillID] = result
	}

	return &FallbackResult{
		ClauseText:   resolveClauseText(skillContext, primary, clauseID),
		SkillContext: skillContext,
	}
}

// resolveClauseText extracts context_text from get_clause_context's output
// if present and successful, else walks the structure directly for
// clauseID.
func resolveClauseText(skillContext map[string]*domain.SkillResult, primary *domain.DocumentStructure, clauseID string) string {
	if res, ok := skillContext["get_clause_context"]; ok && res.Success {
		var shape struct {
			ContextText string `json:"context_text"`
		}
		if raw, err := json.Marshal(res.Data); err == nil {
			if err := json.Unmarshal(raw, &shape); err == nil && shape.ContextText != "" {
				return shape.ContextText
			}
		}
	}

	if node := primary.FindClause(clauseID); node != nil {
		return node.FullText()
	}
	return ""
}
