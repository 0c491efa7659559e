package domain

// ClauseAnalysisPlan is the orchestrator's per-clause execution recipe.
type ClauseAnalysisPlan struct {
	ClauseID        string        `json:"clause_id"`
	AnalysisDepth   AnalysisDepth `json:"analysis_depth"`
	SuggestedTools  []string      `json:"suggested_tools"`
	MaxIterations   int           `json:"max_iterations"` // >= 1
	PriorityOrder   int           `json:"priority_order"` // smaller first
	Rationale       string        `json:"rationale,omitempty"`
	SkipDiffs       bool          `json:"skip_diffs"`
	SkipValidate    bool          `json:"skip_validate"`
}

// Normalize clamps MaxIterations to >= 1 and AnalysisDepth to a valid enum.
func (p *ClauseAnalysisPlan) Normalize() {
	p.AnalysisDepth = NormalizeAnalysisDepth(p.AnalysisDepth)
	if p.MaxIterations < 1 {
		p.MaxIterations = 1
	}
}

// ReviewPlan aggregates per-clause plans plus the global strategy.
type ReviewPlan struct {
	Clauses       []*ClauseAnalysisPlan `json:"clauses"`
	GlobalStrategy string               `json:"global_strategy,omitempty"`
	PlanVersion   int                   `json:"plan_version"` // monotonic
}

// ByClauseID returns a lookup map from clause_id to its plan entry.
func (p *ReviewPlan) ByClauseID() map[string]*ClauseAnalysisPlan {
	m := make(map[string]*ClauseAnalysisPlan, len(p.Clauses))
	for _, c := range p.Clauses {
		m[c.ClauseID] = c
	}
	return m
}

// DefaultPlanEntry returns the fallback per-priority plan used when the LLM
// omits a checklist entry or when the orchestrator call fails entirely
// (critical clauses get deep analysis, everything else standard).
func DefaultPlanEntry(item *ReviewChecklistItem, priorityOrder int) *ClauseAnalysisPlan {
	depth := AnalysisDepthStandard
	if item.Priority == PriorityCritical {
		depth = AnalysisDepthDeep
	}
	return &ClauseAnalysisPlan{
		ClauseID:      item.ClauseID,
		AnalysisDepth: depth,
		MaxIterations: 5,
		PriorityOrder: priorityOrder,
		Rationale:     "default plan (no LLM adjustment)",
	}
}

// DefaultPlan builds the complete fallback plan for a checklist, used when
// Orchestrator.GenerateReviewPlan's LLM call fails outright.
func DefaultPlan(checklist []*ReviewChecklistItem) *ReviewPlan {
	plan := &ReviewPlan{PlanVersion: 1}
	for i, item := range checklist {
		plan.Clauses = append(plan.Clauses, DefaultPlanEntry(item, i))
	}
	return plan
}

// PlanAdjustment is maybe_adjust_plan's return value.
type PlanAdjustment struct {
	ShouldAdjust    bool                  `json:"should_adjust"`
	AdjustedClauses []*ClauseAdjustment   `json:"adjusted_clauses,omitempty"`
}

// ClauseAdjustment is one clause's revised depth/iteration/rationale.
type ClauseAdjustment struct {
	ClauseID      string        `json:"clause_id"`
	AnalysisDepth AnalysisDepth `json:"analysis_depth,omitempty"`
	MaxIterations int           `json:"max_iterations,omitempty"`
	Rationale     string        `json:"rationale,omitempty"`
}

// ApplyAdjustment merges per-clause adjustments into plan, incrementing
// PlanVersion. Unknown clause_ids are ignored; a no-op adjustment
// (ShouldAdjust false, or empty AdjustedClauses) leaves the plan version
// unchanged.
func ApplyAdjustment(plan *ReviewPlan, adj *PlanAdjustment) *ReviewPlan {
	if plan == nil || adj == nil || !adj.ShouldAdjust || len(adj.AdjustedClauses) == 0 {
		return plan
	}
	byID := plan.ByClauseID()
	for _, a := range adj.AdjustedClauses {
		entry, ok := byID[a.ClauseID]
		if !ok {
			continue
		}
		if a.AnalysisDepth != "" {
			entry.AnalysisDepth = NormalizeAnalysisDepth(a.AnalysisDepth)
		}
		if a.MaxIterations > 0 {
			entry.MaxIterations = a.MaxIterations
		}
		if a.Rationale != "" {
			entry.Rationale = a.Rationale
		}
	}
	plan.PlanVersion++
	return plan
}
