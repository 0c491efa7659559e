package reviewgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/orchestrator"
	"github.com/clausereview/engine/pkg/reactloop"
)

// nodeInit sets ReviewGraphState's defaults: indices to 0, retry count
// to 0, empty containers, completion flag false. State may already carry
// uploaded Documents and a plugin-supplied checklist from the external
// upload boundary; init never overwrites those.
func (g *Graph) nodeInit(ctx context.Context, state *domain.ReviewGraphState) (NodeID, error) {
	if state.Findings == nil {
		state.Findings = make(map[string]*domain.ClauseFindings)
	}
	if state.UserDecisions == nil {
		state.UserDecisions = make(map[string]domain.UserDecision)
	}
	if state.MaxRetries == 0 {
		state.MaxRetries = 2
	}
	state.CurrentClauseIndex = 0
	state.ClauseRetryCount = 0
	state.IsComplete = false
	return NodeParseDocument, nil
}

// nodeParseDocument materializes PrimaryStructure from the documents
// list; if no checklist was supplied by a domain plugin, it generates a
// generic one from the parsed document's top-level clauses. An empty
// checklist with no primary document is not treated as fatal -- it
// completes the review with zero clauses.
func (g *Graph) nodeParseDocument(ctx context.Context, state *domain.ReviewGraphState) (NodeID, error) {
	if doc := state.PrimaryDocument(); doc != nil {
		state.PrimaryStructure = doc.Structure
	}

	if len(state.ReviewChecklist) == 0 && state.PrimaryStructure != nil {
		state.ReviewChecklist = domain.GenerateChecklistFromStructure(state.PrimaryStructure)
	}

	if g.Config.ExecutionMode == domain.ExecutionModeGen3 {
		return NodePlanReview, nil
	}
	return routeNextClauseOrEnd(state), nil
}

// nodePlanReview invokes the orchestrator to assign each checklist clause
// an analysis depth, suggested tools, iteration cap, and execution order,
// then reorders the checklist to match (gen3 mode only).
func (g *Graph) nodePlanReview(ctx context.Context, state *domain.ReviewGraphState) (NodeID, error) {
	var availableTools []string
	if g.Dispatcher != nil {
		for _, t := range g.Dispatcher.GetToolDefinitions(state.DomainID) {
			availableTools = append(availableTools, t.Name)
		}
	}

	plan := orchestrator.GenerateReviewPlan(ctx, g.LLM, state.ReviewChecklist, state.DomainID, state.MaterialType, availableTools)
	state.ReviewPlan = plan
	state.PlanVersion = plan.PlanVersion
	state.ReviewChecklist = orchestrator.ReorderChecklist(state.ReviewChecklist, plan)

	return routeNextClauseOrEnd(state), nil
}

// nodeClauseAnalyze dispatches the per-clause analyzer based on
// execution mode.
func (g *Graph) nodeClauseAnalyze(ctx context.Context, state *domain.ReviewGraphState) (NodeID, error) {
	state.ClauseRetryCount = 0

	item := state.CurrentChecklistItem()
	if item == nil {
		return NodeSummarize, nil
	}
	state.CurrentClauseID = item.ClauseID
	if node := state.PrimaryStructure.FindClause(item.ClauseID); node != nil {
		state.CurrentClauseText = node.FullText()
	}

	var skipDiffs bool
	if g.Config.ExecutionMode == domain.ExecutionModeGen3 {
		skipDiffs = g.analyzeGen3(ctx, state, item)
	} else {
		g.analyzeLegacy(ctx, state, item)
	}

	if skipDiffs {
		return NodeSaveClause, nil
	}
	return NodeClauseGenerateDiffs, nil
}

// analyzeLegacy implements clause_analyze's legacy-mode branch: iterate
// required_skills via the deterministic fallback, then (if an LLM is
// available) ask it to synthesize a JSON risk list from the gathered
// skill_context.
func (g *Graph) analyzeLegacy(ctx context.Context, state *domain.ReviewGraphState, item *domain.ReviewChecklistItem) {
	fallback := g.DeterministicFallback(ctx, item.ClauseID, state.PrimaryStructure, state, item.RequiredSkills)
	state.CurrentSkillContext = fallback.SkillContext
	if fallback.ClauseText != "" {
		state.CurrentClauseText = fallback.ClauseText
	}

	if g.LLM == nil {
		state.CurrentRisks = nil
		return
	}

	prompt := buildClassicAnalyzePrompt(item.ClauseID, state.CurrentClauseText, fallback.SkillContext)
	text, err := g.LLM.Chat(ctx, []llms.Message{{Role: "user", Content: prompt}}, 0.1, 1500)
	if err != nil {
		slog.Warn("reviewgraph: legacy analyze llm call failed", "clause_id", item.ClauseID, "error", err)
		state.CurrentRisks = nil
		return
	}
	state.CurrentRisks = parseRiskList(text)
}

// analyzeGen3 implements clause_analyze's gen3-mode branch: run the ReAct
// loop under a per-clause timeout, falling back to the deterministic path
// on missing prerequisites, timeout, error, or an empty result. Returns
// whether the clause's plan entry requests skip_diffs.
func (g *Graph) analyzeGen3(ctx context.Context, state *domain.ReviewGraphState, item *domain.ReviewChecklistItem) (skipDiffs bool) {
	var planEntry *domain.ClauseAnalysisPlan
	if state.ReviewPlan != nil {
		planEntry = state.ReviewPlan.ByClauseID()[item.ClauseID]
	}
	if planEntry == nil {
		planEntry = domain.DefaultPlanEntry(item, state.CurrentClauseIndex)
	}

	useFallback := g.LLM == nil || g.Dispatcher == nil || state.PrimaryStructure == nil

	if !useFallback {
		tools := g.Dispatcher.GetToolDefinitions(state.DomainID)
		system := reactloop.BuildSystemPrompt(tools, item.ClauseID, planEntry.MaxIterations, crossReferencedClauses(state.PrimaryStructure, item.ClauseID), state.DomainID)
		user := reactloop.BuildUserPrompt(item.ClauseID, state.CurrentClauseText, state.MaterialType)
		messages := []llms.Message{{Role: "system", Content: system}, {Role: "user", Content: user}}

		reactCtx, cancel := context.WithTimeout(ctx, clauseTimeout(g.Config))
		result, err := reactloop.Run(reactCtx, g.LLM, g.Dispatcher, messages, item.ClauseID, state.PrimaryStructure, state, reactloop.Options{
			MaxIterations: planEntry.MaxIterations,
			Temperature:   g.Config.ReactTemperature,
		})
		cancel()

		if err != nil || result == nil || len(result.SkillContext) == 0 {
			slog.Warn("reviewgraph: react loop unproductive, falling back to deterministic path", "clause_id", item.ClauseID, "error", err)
			useFallback = true
		} else {
			state.CurrentRisks = result.Risks
			state.CurrentSkillContext = result.SkillContext
			state.AgentMessages = append(state.AgentMessages, reactloop.ToAgentMessages(result.Messages)...)
		}
	}

	if useFallback {
		fallback := g.DeterministicFallback(ctx, item.ClauseID, state.PrimaryStructure, state, item.RequiredSkills)
		state.CurrentSkillContext = fallback.SkillContext
		if fallback.ClauseText != "" {
			state.CurrentClauseText = fallback.ClauseText
		}
		state.CurrentRisks = nil
	}

	return planEntry.SkipDiffs
}

// crossReferencedClauses resolves up to 3 clauses that clauseID's
// cross-references point at, for the ReAct system prompt's injected
// context.
func crossReferencedClauses(structure *domain.DocumentStructure, clauseID string) []*domain.ClauseNode {
	if structure == nil {
		return nil
	}
	var out []*domain.ClauseNode
	for _, ref := range structure.CrossReferences {
		if ref.SourceClauseID != clauseID {
			continue
		}
		if node := structure.FindClause(ref.TargetClauseID); node != nil {
			out = append(out, node)
		}
		if len(out) >= 3 {
			break
		}
	}
	return out
}

// nodeClauseGenerateDiffs drafts a redline edit for each current risk via
// the LLM. With no LLM available, no diffs are produced for this pass --
// an empty diff set, not a crash.
func (g *Graph) nodeClauseGenerateDiffs(ctx context.Context, state *domain.ReviewGraphState) (NodeID, error) {
	state.CurrentDiffs = nil

	if g.LLM != nil {
		for _, risk := range state.CurrentRisks {
			diff := g.draftDiff(ctx, state, risk)
			if diff != nil {
				state.CurrentDiffs = append(state.CurrentDiffs, diff)
			}
		}
	}

	if g.skipValidateForCurrentClause(state) {
		return NodeHumanApproval, nil
	}
	return NodeClauseValidate, nil
}

func (g *Graph) skipValidateForCurrentClause(state *domain.ReviewGraphState) bool {
	if state.ReviewPlan == nil {
		return false
	}
	entry := state.ReviewPlan.ByClauseID()[state.CurrentClauseID]
	return entry != nil && entry.SkipValidate
}

func (g *Graph) draftDiff(ctx context.Context, state *domain.ReviewGraphState, risk *domain.Risk) *domain.DocumentDiff {
	prompt := buildDiffPrompt(state.CurrentClauseID, state.CurrentClauseText, risk)
	text, err := g.LLM.Chat(ctx, []llms.Message{{Role: "user", Content: prompt}}, 0.2, 1000)
	if err != nil {
		slog.Warn("reviewgraph: diff drafting llm call failed", "clause_id", state.CurrentClauseID, "error", err)
		return nil
	}

	raw, ok := llms.ExtractJSON(text)
	if !ok {
		slog.Warn("reviewgraph: could not extract JSON from diff drafting response")
		return nil
	}

	var resp struct {
		ActionType   string `json:"action_type"`
		OriginalText string `json:"original_text"`
		ProposedText string `json:"proposed_text"`
		Reason       string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("reviewgraph: malformed diff drafting JSON", "error", err)
		return nil
	}

	diff := &domain.DocumentDiff{
		DiffID:       newDiffID(),
		RiskID:       risk.RiskID,
		ClauseID:     state.CurrentClauseID,
		ActionType:   domain.DiffActionType(resp.ActionType),
		OriginalText: resp.OriginalText,
		ProposedText: resp.ProposedText,
		Reason:       resp.Reason,
		RiskLevel:    risk.RiskLevel,
		Status:       domain.DiffStatusPending,
	}
	if !diff.ActionType.IsValid() {
		diff.ActionType = domain.DiffActionReplace
	}
	if err := diff.Validate(); err != nil {
		slog.Warn("reviewgraph: drafted diff failed validation, dropping", "clause_id", state.CurrentClauseID, "error", err)
		return nil
	}
	return diff
}

// nodeClauseValidate runs an optional LLM quality check over the drafted
// diffs. With no LLM, validation trivially passes -- there is nothing to
// check against, and an LLM-dependent node must degrade rather than
// block progress.
func (g *Graph) nodeClauseValidate(ctx context.Context, state *domain.ReviewGraphState) (NodeID, error) {
	result := domain.ValidationPass
	if g.LLM != nil && len(state.CurrentDiffs) > 0 {
		result = g.runValidation(ctx, state)
	}

	if result == domain.ValidationPass {
		return NodeHumanApproval, nil
	}

	if state.ClauseRetryCount < state.MaxRetries {
		state.ClauseRetryCount++
		return NodeClauseGenerateDiffs, nil
	}
	return NodeSaveClause, nil
}

func (g *Graph) runValidation(ctx context.Context, state *domain.ReviewGraphState) domain.ValidationResult {
	prompt := buildValidatePrompt(state.CurrentClauseID, state.CurrentDiffs)
	text, err := g.LLM.Chat(ctx, []llms.Message{{Role: "user", Content: prompt}}, 0, 300)
	if err != nil {
		slog.Warn("reviewgraph: validate llm call failed", "clause_id", state.CurrentClauseID, "error", err)
		return domain.ValidationPass
	}

	raw, ok := llms.ExtractJSON(text)
	if !ok {
		return domain.ValidationPass
	}
	var resp struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.ValidationPass
	}
	if domain.ValidationResult(resp.Result) == domain.ValidationFail {
		return domain.ValidationFail
	}
	return domain.ValidationPass
}

// nodeHumanApproval is the interrupt boundary. Pending diffs awaiting a
// human decision pause the graph; an empty diff set has
// nothing for a human to decide, so it passes straight through rather
// than pausing for no reason.
func (g *Graph) nodeHumanApproval(ctx context.Context, state *domain.ReviewGraphState) (NodeID, error) {
	state.PendingDiffs = state.CurrentDiffs
	if len(state.PendingDiffs) == 0 {
		return NodeSaveClause, nil
	}
	return NodeSaveClause, &Interrupted{TaskID: state.TaskID, ClauseID: state.CurrentClauseID}
}

// nodeSaveClause filters current_diffs by user_decisions (missing
// decisions default to approve), extends all_diffs with only the
// approved subset, records the clause's findings, and advances to the
// next clause. AllDiffs only ever grows, and only with diffs drawn from
// the current clause's pending set.
func (g *Graph) nodeSaveClause(ctx context.Context, state *domain.ReviewGraphState) (NodeID, error) {
	clauseID := state.CurrentClauseID
	var recordedDiffs []*domain.DocumentDiff

	for _, diff := range state.CurrentDiffs {
		decision, ok := state.UserDecisions[diff.DiffID]
		if !ok {
			decision = domain.DecisionApprove
		}
		diff.ApplyDecision(decision)
		recordedDiffs = append(recordedDiffs, diff)
		if diff.Status == domain.DiffStatusApproved {
			state.AllDiffs = append(state.AllDiffs, diff)
		}
	}

	state.AllRisks = append(state.AllRisks, state.CurrentRisks...)
	state.Findings[clauseID] = &domain.ClauseFindings{
		ClauseID:  clauseID,
		Risks:     state.CurrentRisks,
		Diffs:     recordedDiffs,
		Completed: true,
	}

	state.PendingDiffs = nil
	state.CurrentDiffs = nil
	completedCount := state.CurrentClauseIndex + 1
	totalCount := len(state.ReviewChecklist)
	state.CurrentClauseIndex = completedCount

	if g.Config.ExecutionMode == domain.ExecutionModeGen3 && state.ReviewPlan != nil {
		g.maybeAdjustPlan(ctx, state, clauseID, completedCount, totalCount)
	}

	return routeNextClauseOrEnd(state), nil
}

func (g *Graph) maybeAdjustPlan(ctx context.Context, state *domain.ReviewGraphState, clauseID string, completedCount, totalCount int) {
	var remaining []*domain.ClauseAnalysisPlan
	for _, item := range state.ReviewChecklist[min(completedCount, len(state.ReviewChecklist)):] {
		if entry := state.ReviewPlan.ByClauseID()[item.ClauseID]; entry != nil {
			remaining = append(remaining, entry)
		}
	}

	adj := orchestrator.MaybeAdjustPlan(ctx, g.LLM, clauseID, state.AllRisks[max(0, len(state.AllRisks)-len(state.Findings[clauseID].Risks)):], remaining, completedCount, totalCount)
	state.NeedsPlanAdjustment = adj.ShouldAdjust
	if adj.ShouldAdjust {
		state.ReviewPlan = domain.ApplyAdjustment(state.ReviewPlan, adj)
		state.PlanVersion = state.ReviewPlan.PlanVersion
	}
}

// nodeSummarize composes the final summary and marks the review complete.
func (g *Graph) nodeSummarize(ctx context.Context, state *domain.ReviewGraphState) (NodeID, error) {
	approved := 0
	for _, d := range state.AllDiffs {
		if d.Status == domain.DiffStatusApproved {
			approved++
		}
	}
	state.SummaryNotes = fmt.Sprintf("审查完成：%d 个条款，%d 个风险，%d 个已批准修改", len(state.ReviewChecklist), len(state.AllRisks), approved)
	state.IsComplete = true
	return NodeEnd, nil
}

// routeNextClauseOrEnd selects clause_analyze if more checklist items
// remain, else summarize; shared after parse_document and after
// save_clause.
func routeNextClauseOrEnd(state *domain.ReviewGraphState) NodeID {
	if state.HasMoreClauses() {
		return NodeClauseAnalyze
	}
	return NodeSummarize
}

