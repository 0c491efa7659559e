// Package domain holds the data model shared by every clause-review
// component: the clause tree, document structure, definitions and
// cross-references, review checklist and plan, and the review graph state.
//
// Sum types are represented as validated string-backed enums rather than
// subclassing or bare strings, per the design note preferring tagged
// variants over polymorphism.
package domain

// DefinitionSource tags how a DefinitionEntry was produced.
type DefinitionSource string

const (
	DefinitionSourceRegex  DefinitionSource = "regex"
	DefinitionSourceLLM    DefinitionSource = "llm"
	DefinitionSourceManual DefinitionSource = "manual"
)

func (s DefinitionSource) IsValid() bool {
	switch s {
	case DefinitionSourceRegex, DefinitionSourceLLM, DefinitionSourceManual:
		return true
	}
	return false
}

// DefinitionCategory classifies a DefinitionEntry's semantic role.
type DefinitionCategory string

const (
	CategoryParty   DefinitionCategory = "party"
	CategoryDate    DefinitionCategory = "date"
	CategoryAmount  DefinitionCategory = "amount"
	CategoryGeneral DefinitionCategory = "general"
	CategoryNone    DefinitionCategory = ""
)

// CrossReferenceSource tags how a CrossReference was produced.
type CrossReferenceSource string

const (
	CrossReferenceSourceRegex CrossReferenceSource = "regex"
	CrossReferenceSourceLLM   CrossReferenceSource = "llm"
)

func (s CrossReferenceSource) IsValid() bool {
	return s == CrossReferenceSourceRegex || s == CrossReferenceSourceLLM
}

// ReferenceType classifies the kind of structural unit a CrossReference points at.
type ReferenceType string

const (
	ReferenceTypeClause    ReferenceType = "clause"
	ReferenceTypeArticle   ReferenceType = "article"
	ReferenceTypeSection   ReferenceType = "section"
	ReferenceTypeAppendix  ReferenceType = "appendix"
	ReferenceTypeSchedule  ReferenceType = "schedule"
	ReferenceTypeAnnex     ReferenceType = "annex"
	ReferenceTypeParagraph ReferenceType = "paragraph"
)

func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceTypeClause, ReferenceTypeArticle, ReferenceTypeSection, ReferenceTypeAppendix, ReferenceTypeSchedule, ReferenceTypeAnnex, ReferenceTypeParagraph:
		return true
	default:
		return false
	}
}

// Priority is a ReviewChecklistItem's urgency tag.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// SkillBackend selects how a SkillRegistration is executed.
type SkillBackend string

const (
	SkillBackendLocal  SkillBackend = "local"
	SkillBackendRemote SkillBackend = "remote"
)

// DiffActionType tags a DocumentDiff's kind of edit.
type DiffActionType string

const (
	DiffActionReplace DiffActionType = "replace"
	DiffActionDelete  DiffActionType = "delete"
	DiffActionInsert  DiffActionType = "insert"
)

func (a DiffActionType) IsValid() bool {
	switch a {
	case DiffActionReplace, DiffActionDelete, DiffActionInsert:
		return true
	}
	return false
}

// DiffStatus is a DocumentDiff's human-approval lifecycle state.
type DiffStatus string

const (
	DiffStatusPending  DiffStatus = "pending"
	DiffStatusApproved DiffStatus = "approved"
	DiffStatusRejected DiffStatus = "rejected"
)

// AnalysisDepth tags a ClauseAnalysisPlan's intended thoroughness.
type AnalysisDepth string

const (
	AnalysisDepthQuick    AnalysisDepth = "quick"
	AnalysisDepthStandard AnalysisDepth = "standard"
	AnalysisDepthDeep     AnalysisDepth = "deep"
)

// IsValid reports whether d is one of the three recognized depths.
func (d AnalysisDepth) IsValid() bool {
	switch d {
	case AnalysisDepthQuick, AnalysisDepthStandard, AnalysisDepthDeep:
		return true
	}
	return false
}

// NormalizeAnalysisDepth returns d if valid, else "standard".
func NormalizeAnalysisDepth(d AnalysisDepth) AnalysisDepth {
	if d.IsValid() {
		return d
	}
	return AnalysisDepthStandard
}

// ExecutionMode selects the review graph's topology and per-clause analyzer.
type ExecutionMode string

const (
	ExecutionModeLegacy ExecutionMode = "legacy"
	ExecutionModeGen3   ExecutionMode = "gen3"
)

func (m ExecutionMode) IsValid() bool {
	return m == ExecutionModeLegacy || m == ExecutionModeGen3
}

// DocumentRole tags an uploaded TaskDocument's purpose.
type DocumentRole string

const (
	RolePrimary    DocumentRole = "primary"
	RoleBaseline   DocumentRole = "baseline"
	RoleSupplement DocumentRole = "supplement"
	RoleReference  DocumentRole = "reference"
)

// UserDecision is a human reviewer's verdict on a pending diff.
type UserDecision string

const (
	DecisionApprove UserDecision = "approve"
	DecisionReject  UserDecision = "reject"
)

// TimeBarClassification tags a fidic_calculate_time_bar finding.
type TimeBarClassification string

const (
	TimeBarHard     TimeBarClassification = "hard_bar"
	TimeBarSoft     TimeBarClassification = "soft_bar"
	TimeBarAdvisory TimeBarClassification = "advisory"
)

// ValidationResult is clause_validate's pass/fail outcome.
type ValidationResult string

const (
	ValidationPass ValidationResult = "pass"
	ValidationFail ValidationResult = "fail"
)
