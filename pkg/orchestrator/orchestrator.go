// Package orchestrator implements the LLM-driven review planner:
// it reads the review checklist and assigns each clause an analysis depth,
// suggested tools, iteration cap, and execution order, and can revise that
// plan mid-run when high-risk findings appear.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
)

const (
	planTemperature          = 0.1
	planMaxOutputTokens      = 2000
	adjustTemperature        = 0.1
	adjustMaxOutputTokens    = 800
	maxAdjustRisks           = 5
	maxAdjustRemainingPlans  = 10
)

// llmPlanResponse mirrors the JSON the generate_review_plan prompt asks for.
type llmPlanResponse struct {
	GlobalStrategy string              `json:"global_strategy"`
	Clauses        []llmPlanClauseItem `json:"clauses"`
}

type llmPlanClauseItem struct {
	ClauseID       string   `json:"clause_id"`
	AnalysisDepth  string   `json:"analysis_depth"`
	SuggestedTools []string `json:"suggested_tools"`
	MaxIterations  int      `json:"max_iterations"`
	PriorityOrder  int      `json:"priority_order"`
	Rationale      string   `json:"rationale"`
	SkipDiffs      bool     `json:"skip_diffs"`
	SkipValidate   bool     `json:"skip_validate"`
}

// GenerateReviewPlan asks the LLM to assign each checklist clause an
// analysis depth, suggested tools, iteration cap, and execution order,
// then normalizes and backfills the result into a complete ReviewPlan.
//
// On any LLM failure (nil client, transport error, unparseable JSON) this
// returns the default plan (domain.DefaultPlan): critical clauses get
// "deep", everything else gets "standard".
func GenerateReviewPlan(ctx context.Context, client llms.Client, checklist []*domain.ReviewChecklistItem, domainID, materialType string, availableTools []string) *domain.ReviewPlan {
	if len(checklist) == 0 {
		return &domain.ReviewPlan{PlanVersion: 1}
	}

	resp, ok := callPlanLLM(ctx, client, checklist, domainID, materialType, availableTools)
	if !ok {
		return domain.DefaultPlan(checklist)
	}

	byID := make(map[string]*llmPlanClauseItem, len(resp.Clauses))
	for i := range resp.Clauses {
		byID[resp.Clauses[i].ClauseID] = &resp.Clauses[i]
	}

	plan := &domain.ReviewPlan{GlobalStrategy: resp.GlobalStrategy, PlanVersion: 1}
	for i, item := range checklist {
		llmItem, present := byID[item.ClauseID]
		if !present {
			plan.Clauses = append(plan.Clauses, domain.DefaultPlanEntry(item, i))
			continue
		}
		entry := &domain.ClauseAnalysisPlan{
			ClauseID:       item.ClauseID,
			AnalysisDepth:  domain.NormalizeAnalysisDepth(domain.AnalysisDepth(llmItem.AnalysisDepth)),
			SuggestedTools: llmItem.SuggestedTools,
			MaxIterations:  llmItem.MaxIterations,
			PriorityOrder:  llmItem.PriorityOrder,
			Rationale:      llmItem.Rationale,
			SkipDiffs:      llmItem.SkipDiffs,
			SkipValidate:   llmItem.SkipValidate,
		}
		entry.Normalize()
		if entry.PriorityOrder == 0 && llmItem.PriorityOrder == 0 {
			entry.PriorityOrder = i
		}
		plan.Clauses = append(plan.Clauses, entry)
	}

	sort.SliceStable(plan.Clauses, func(i, j int) bool {
		return plan.Clauses[i].PriorityOrder < plan.Clauses[j].PriorityOrder
	})

	return plan
}

// ReorderChecklist reorders checklist to match plan's PriorityOrder,
// the order plan_review hands the rest of the graph. Checklist entries
// absent from the plan sort last,
// preserving their relative original order.
func ReorderChecklist(checklist []*domain.ReviewChecklistItem, plan *domain.ReviewPlan) []*domain.ReviewChecklistItem {
	order := plan.ByClauseID()
	indexed := make([]*domain.ReviewChecklistItem, len(checklist))
	copy(indexed, checklist)

	sort.SliceStable(indexed, func(i, j int) bool {
		pi, oki := order[indexed[i].ClauseID]
		pj, okj := order[indexed[j].ClauseID]
		switch {
		case oki && okj:
			return pi.PriorityOrder < pj.PriorityOrder
		case oki:
			return true
		case okj:
			return false
		default:
			return false
		}
	})
	return indexed
}

func callPlanLLM(ctx context.Context, client llms.Client, checklist []*domain.ReviewChecklistItem, domainID, materialType string, availableTools []string) (*llmPlanResponse, bool) {
	if client == nil {
		return nil, false
	}

	prompt := buildPlanPrompt(checklist, domainID, materialType, availableTools)
	text, err := client.Chat(ctx, []llms.Message{{Role: "user", Content: prompt}}, planTemperature, planMaxOutputTokens)
	if err != nil {
		slog.Warn("orchestrator: generate_review_plan llm call failed", "error", err)
		return nil, false
	}

	raw, ok := llms.ExtractJSON(text)
	if !ok {
		slog.Warn("orchestrator: could not extract JSON from generate_review_plan response")
		return nil, false
	}

	var resp llmPlanResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("orchestrator: malformed generate_review_plan JSON", "error", err)
		return nil, false
	}
	return &resp, true
}

func buildPlanPrompt(checklist []*domain.ReviewChecklistItem, domainID, materialType string, availableTools []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are planning the review of a %s contract (domain: %s).\n\n", materialType, domainID)
	b.WriteString("Three analysis depths are available:\n")
	b.WriteString("- quick: definition/general clauses, no material risk, skip diff generation and validation\n")
	b.WriteString("- standard: payment/time-bar and most operative clauses\n")
	b.WriteString("- deep: critical clauses with high financial or liability exposure\n\n")
	b.WriteString("Assignment principles: critical-priority clauses get deep; definition/general clauses get quick with skip_diffs and skip_validate true; payment/time-bar clauses get standard or deep; a clause that is the target of another clause's cross-reference should be ordered before the clause that depends on it.\n\n")
	fmt.Fprintf(&b, "Available tools: %s\n\n", strings.Join(availableTools, ", "))
	b.WriteString("Checklist:\n")
	for _, item := range checklist {
		fmt.Fprintf(&b, "- clause_id=%s name=%q priority=%s required_skills=%v\n", item.ClauseID, item.ClauseName, item.Priority, item.RequiredSkills)
	}
	b.WriteString("\nRespond with a single JSON object: {\"global_strategy\": string, \"clauses\": [{\"clause_id\", \"analysis_depth\", \"suggested_tools\", \"max_iterations\", \"priority_order\", \"rationale\", \"skip_diffs\", \"skip_validate\"}]}. Respond with JSON only.")
	return b.String()
}
