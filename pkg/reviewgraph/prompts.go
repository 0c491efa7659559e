package reviewgraph

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
)

// buildClassicAnalyzePrompt composes the legacy-mode analyze prompt: the
// clause text plus the skill_context gathered by the deterministic
// fallback pass, asking for a JSON risk list.
func buildClassicAnalyzePrompt(clauseID, clauseText string, skillContext map[string]*domain.SkillResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze clause %s of a contract for risk.\n\nClause text:\n%s\n", clauseID, clauseText)
	if len(skillContext) > 0 {
		b.WriteString("\nTool context gathered so far:\n")
		for id, res := range skillContext {
			if raw, err := json.Marshal(res); err == nil {
				fmt.Fprintf(&b, "- %s: %s\n", id, string(raw))
			}
		}
	}
	b.WriteString("\nRespond with a JSON array of risk objects, each with \"risk_level\" (critical|high|medium|low) and \"description\". Respond with JSON only.")
	return b.String()
}

// parseRiskList interprets text as a JSON array of risk objects (or an
// object wrapping one under a "risks" key), degrading to an empty list on
// any parse failure.
func parseRiskList(text string) []*domain.Risk {
	raw, ok := llms.ExtractJSON(text)
	if !ok {
		if json.Valid([]byte(text)) {
			raw = json.RawMessage(text)
		} else {
			return nil
		}
	}

	var risks []*domain.Risk
	if err := json.Unmarshal(raw, &risks); err == nil {
		return risks
	}

	var wrapper struct {
		Risks []*domain.Risk `json:"risks"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil {
		return wrapper.Risks
	}

	slog.Warn("reviewgraph: could not parse risk list from llm response")
	return nil
}

// buildDiffPrompt composes the redline-drafting prompt for one risk.
func buildDiffPrompt(clauseID, clauseText string, risk *domain.Risk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a redline edit for clause %s addressing this risk:\n[%s] %s\n\nClause text:\n%s\n\n",
		clauseID, risk.RiskLevel, risk.Description, clauseText)
	b.WriteString("Respond with a single JSON object: {\"action_type\": \"replace\"|\"delete\"|\"insert\", \"original_text\", \"proposed_text\", \"reason\"}. original_text is required for replace/delete; proposed_text is required for insert/replace. Respond with JSON only.")
	return b.String()
}

// buildValidatePrompt composes clause_validate's quality-check prompt.
func buildValidatePrompt(clauseID string, diffs []*domain.DocumentDiff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review these proposed redline edits to clause %s for correctness and internal consistency:\n", clauseID)
	for _, d := range diffs {
		fmt.Fprintf(&b, "- [%s] %s -> %s (%s)\n", d.ActionType, d.OriginalText, d.ProposedText, d.Reason)
	}
	b.WriteString("\nRespond with a single JSON object: {\"result\": \"pass\"|\"fail\", \"reason\"}. Respond with JSON only.")
	return b.String()
}
