package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/instruction"
	"github.com/clausereview/engine/pkg/llms"
)

// adjustIntroTemplate is the plan-adjustment prompt's opening line,
// resolved through pkg/instruction like the ReAct loop's system prompt.
var adjustIntroTemplate = instruction.New("Clause {clause_id} was just analyzed. Findings:")

// highRiskLevels are the risk_level values that count as "a high-risk
// finding was observed" for MaybeAdjustPlan's trigger condition.
var highRiskLevels = map[string]bool{"high": true, "critical": true}

// HasHighRisk reports whether any risk in risks is high or critical.
func HasHighRisk(risks []*domain.Risk) bool {
	for _, r := range risks {
		if highRiskLevels[strings.ToLower(r.RiskLevel)] {
			return true
		}
	}
	return false
}

// llmAdjustResponse mirrors the JSON maybe_adjust_plan's prompt asks for.
type llmAdjustResponse struct {
	ShouldAdjust    bool                         `json:"should_adjust"`
	AdjustedClauses []*domain.ClauseAdjustment `json:"adjusted_clauses"`
}

// MaybeAdjustPlan decides whether to revise the remaining review plan
// mid-run.
//
// The LLM is only consulted when a high-risk finding was observed in
// currentRisks, OR when completedCount == totalCount/2 using Go integer
// division -- this fires once, at exactly one completion point; a single
// midpoint review is intended, not "at least 50%". Any other call
// returns {ShouldAdjust: false} without an LLM call.
func MaybeAdjustPlan(ctx context.Context, client llms.Client, currentClauseID string, currentRisks []*domain.Risk, remainingPlan []*domain.ClauseAnalysisPlan, completedCount, totalCount int) *domain.PlanAdjustment {
	isMidpoint := totalCount > 0 && completedCount == totalCount/2
	if !HasHighRisk(currentRisks) && !isMidpoint {
		return &domain.PlanAdjustment{ShouldAdjust: false}
	}

	resp, ok := callAdjustLLM(ctx, client, currentClauseID, currentRisks, remainingPlan)
	if !ok {
		return &domain.PlanAdjustment{ShouldAdjust: false}
	}
	return &domain.PlanAdjustment{ShouldAdjust: resp.ShouldAdjust, AdjustedClauses: resp.AdjustedClauses}
}

func callAdjustLLM(ctx context.Context, client llms.Client, currentClauseID string, currentRisks []*domain.Risk, remainingPlan []*domain.ClauseAnalysisPlan) (*llmAdjustResponse, bool) {
	if client == nil {
		return nil, false
	}

	risks := currentRisks
	if len(risks) > maxAdjustRisks {
		risks = risks[:maxAdjustRisks]
	}
	remaining := remainingPlan
	if len(remaining) > maxAdjustRemainingPlans {
		remaining = remaining[:maxAdjustRemainingPlans]
	}

	prompt := buildAdjustPrompt(currentClauseID, risks, remaining)
	text, err := client.Chat(ctx, []llms.Message{{Role: "user", Content: prompt}}, adjustTemperature, adjustMaxOutputTokens)
	if err != nil {
		slog.Warn("orchestrator: maybe_adjust_plan llm call failed", "error", err)
		return nil, false
	}

	raw, ok := llms.ExtractJSON(text)
	if !ok {
		slog.Warn("orchestrator: could not extract JSON from maybe_adjust_plan response")
		return nil, false
	}

	var resp llmAdjustResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("orchestrator: malformed maybe_adjust_plan JSON", "error", err)
		return nil, false
	}
	return &resp, true
}

func buildAdjustPrompt(currentClauseID string, risks []*domain.Risk, remaining []*domain.ClauseAnalysisPlan) string {
	var b strings.Builder
	intro, err := adjustIntroTemplate.Render(instruction.MapState{"clause_id": currentClauseID})
	if err != nil {
		intro = fmt.Sprintf("Clause %s was just analyzed. Findings:", currentClauseID)
	}
	fmt.Fprintf(&b, "%s\n", intro)
	for _, r := range risks {
		fmt.Fprintf(&b, "- [%s] %s\n", r.RiskLevel, r.Description)
	}
	b.WriteString("\nRemaining plan:\n")
	for _, p := range remaining {
		fmt.Fprintf(&b, "- clause_id=%s depth=%s max_iterations=%d\n", p.ClauseID, p.AnalysisDepth, p.MaxIterations)
	}
	b.WriteString("\nGiven these findings, should the remaining plan change (e.g. deepen analysis of related clauses)? Respond with a single JSON object: either {\"should_adjust\": false} or {\"should_adjust\": true, \"adjusted_clauses\": [{\"clause_id\", \"analysis_depth\", \"max_iterations\", \"rationale\"}]}. Respond with JSON only.")
	return b.String()
}
