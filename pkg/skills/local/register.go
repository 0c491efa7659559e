package local

import (
	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/embedders"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/skills"
	"github.com/clausereview/engine/pkg/vector"
)

// Deps carries the optional runtime dependencies some local skills close
// over. Client and Embedder may be nil: fidic_calculate_time_bar and
// extract_financial_terms are not registered without a Client, and
// fidic_search_er / load_review_criteria are not registered without an
// embedder.
type Deps struct {
	Client llms.Client

	Embedder embedders.EmbedderProvider

	// ErStructure is the parsed Employer's Requirements document that
	// fidic_search_er searches. Nil skips registering that skill.
	ErStructure *domain.DocumentStructure

	// Criteria is the caller-supplied review playbook that
	// load_review_criteria matches clauses against. Nil (or empty) skips
	// registering that skill.
	Criteria []ReviewCriterion

	// VectorStore optionally backs load_review_criteria's similarity
	// search with an external vector database instead of the in-process
	// cosine fallback. Nil is fine; the skill degrades gracefully.
	VectorStore vector.Provider
}

// RegisterAll registers every local skill this package implements against
// d, skipping the ones whose optional dependency is absent. Called once at
// startup (cmd/reviewctl); the dispatcher stays effectively immutable
// once graph execution begins.
func RegisterAll(d *skills.Dispatcher, deps Deps) error {
	registrations := []struct {
		reg     domain.SkillRegistration
		handler skills.Handler
		prepare skills.PrepareInputFunc
	}{
		{
			reg: domain.SkillRegistration{
				SkillID:      "get_clause_context",
				Name:         "Get Clause Context",
				Description:  "Return a clause's full text, including the text of all its sub-clauses.",
				InputSchema:  ReflectSchema(GetClauseContextArgs{}),
				LocalHandler: "GetClauseContext",
				Domain:       "*",
				Category:     "context",
			},
			handler: GetClauseContext,
			prepare: PrepareGetClauseContextInput,
		},
		{
			reg: domain.SkillRegistration{
				SkillID:      "resolve_definition",
				Name:         "Resolve Definition",
				Description:  "Resolve one or more defined terms against the document's definitions section.",
				InputSchema:  ReflectSchema(ResolveDefinitionArgs{}),
				LocalHandler: "ResolveDefinition",
				Domain:       "*",
				Category:     "definitions",
			},
			handler: ResolveDefinition,
			prepare: PrepareResolveDefinitionInput,
		},
		{
			reg: domain.SkillRegistration{
				SkillID:      "cross_reference_check",
				Name:         "Cross-Reference Check",
				Description:  "Verify the current clause's cross-references resolve to clauses that still exist.",
				InputSchema:  ReflectSchema(NoArgs{}),
				LocalHandler: "CrossReferenceCheck",
				Domain:       "*",
				Category:     "consistency",
			},
			handler: CrossReferenceCheck,
			prepare: PrepareCrossReferenceCheckInput,
		},
		{
			reg: domain.SkillRegistration{
				SkillID:      "compare_with_baseline",
				Name:         "Compare With Baseline",
				Description:  "Diff the current clause against the matching clause in the uploaded baseline document, if any.",
				InputSchema:  ReflectSchema(NoArgs{}),
				LocalHandler: "CompareWithBaseline",
				Domain:       "*",
				Category:     "baseline",
			},
			handler: CompareWithBaseline,
			prepare: PrepareCompareWithBaselineInput,
		},
		{
			reg: domain.SkillRegistration{
				SkillID:      "fidic_merge_gc_pc",
				Name:         "Merge General & Particular Conditions",
				Description:  "Merge a FIDIC General Conditions clause with its Particular Conditions amendment, if one exists.",
				InputSchema:  ReflectSchema(NoArgs{}),
				LocalHandler: "FidicMergeGcPc",
				Domain:       "fidic",
				Category:     "fidic",
			},
			handler: FidicMergeGcPc,
			prepare: PrepareFidicMergeGcPcInput,
		},
		{
			reg: domain.SkillRegistration{
				SkillID:      "fidic_check_pc_consistency",
				Name:         "Check Particular Conditions Consistency",
				Description:  "Check a FIDIC Particular Conditions clause against the standard set of cross-clause consistency rules.",
				InputSchema:  ReflectSchema(FidicCheckPcConsistencyArgs{}),
				LocalHandler: "FidicCheckPcConsistency",
				Domain:       "fidic",
				Category:     "fidic",
			},
			handler: FidicCheckPcConsistency,
			prepare: PrepareFidicCheckPcConsistencyInput,
		},
	}

	for _, r := range registrations {
		if err := d.RegisterLocal(r.reg, r.handler, r.prepare); err != nil {
			return err
		}
	}

	if deps.Client != nil {
		if err := d.RegisterLocal(domain.SkillRegistration{
			SkillID:      "fidic_calculate_time_bar",
			Name:         "Calculate Time Bar",
			Description:  "Extract notice periods and time-bar deadlines from the current clause, enriched with an LLM pass over ambiguous phrasing.",
			InputSchema:  ReflectSchema(NoArgs{}),
			LocalHandler: "FidicCalculateTimeBar",
			Domain:       "fidic",
			Category:     "fidic",
		}, FidicCalculateTimeBar, NewFidicCalculateTimeBarPreparer(deps.Client)); err != nil {
			return err
		}

		if err := d.RegisterLocal(domain.SkillRegistration{
			SkillID:      "extract_financial_terms",
			Name:         "Extract Financial Terms",
			Description:  "Extract percentages, monetary amounts, durations, and dates from the current clause via a regex pass, supplemented by an LLM pass for quantities written in words.",
			InputSchema:  ReflectSchema(NoArgs{}),
			LocalHandler: "ExtractFinancialTerms",
			Domain:       "*",
			Category:     "financial",
		}, ExtractFinancialTerms, NewExtractFinancialTermsPreparer(deps.Client)); err != nil {
			return err
		}
	}

	if deps.Embedder != nil && deps.ErStructure != nil {
		if err := d.RegisterLocal(domain.SkillRegistration{
			SkillID:      "fidic_search_er",
			Name:         "Search Employer's Requirements",
			Description:  "Free-text search over the Employer's Requirements document, ranked by embedding similarity.",
			InputSchema:  ReflectSchema(FidicSearchErArgs{}),
			LocalHandler: "FidicSearchEr",
			Domain:       "fidic",
			Category:     "fidic",
		}, FidicSearchEr, NewFidicSearchErPreparer(deps.ErStructure, deps.Embedder)); err != nil {
			return err
		}
	}

	if deps.Embedder != nil && len(deps.Criteria) > 0 {
		if err := d.RegisterLocal(domain.SkillRegistration{
			SkillID:      "load_review_criteria",
			Name:         "Load Review Criteria",
			Description:  "Match the current clause against a caller-supplied review playbook by clause reference and embedding similarity.",
			InputSchema:  ReflectSchema(NoArgs{}),
			LocalHandler: "LoadReviewCriteria",
			Domain:       "*",
			Category:     "playbook",
		}, LoadReviewCriteria, NewLoadReviewCriteriaPreparer(deps.Criteria, deps.Embedder, deps.Client, deps.VectorStore)); err != nil {
			return err
		}
	}

	return nil
}
