package domain

// DocumentDiff is a proposed textual edit against a specific clause,
// awaiting human decision.
//
// Lifecycle: status transitions are monotonic pending -> {approved,
// rejected}, set only by human approval.
type DocumentDiff struct {
	DiffID        string         `json:"diff_id"`
	RiskID        string         `json:"risk_id,omitempty"`
	ClauseID      string         `json:"clause_id"`
	ActionType    DiffActionType `json:"action_type"`
	OriginalText  string         `json:"original_text,omitempty"` // required for replace/delete
	ProposedText  string         `json:"proposed_text,omitempty"` // required for insert/replace
	Reason        string         `json:"reason"`
	RiskLevel     string         `json:"risk_level"`
	Status        DiffStatus     `json:"status"`
}

// Validate enforces the per-action-type field requirements: replace and
// delete need the original text, insert and replace need the proposal.
func (d *DocumentDiff) Validate() error {
	switch d.ActionType {
	case DiffActionReplace:
		if d.OriginalText == "" || d.ProposedText == "" {
			return ErrParseFailure
		}
	case DiffActionDelete:
		if d.OriginalText == "" {
			return ErrParseFailure
		}
	case DiffActionInsert:
		if d.ProposedText == "" {
			return ErrParseFailure
		}
	default:
		return ErrParseFailure
	}
	return nil
}

// ApplyDecision transitions Status from pending to approved/rejected. A
// decision on a non-pending diff is a no-op, preserving monotonicity.
func (d *DocumentDiff) ApplyDecision(decision UserDecision) {
	if d.Status != DiffStatusPending {
		return
	}
	switch decision {
	case DecisionApprove:
		d.Status = DiffStatusApproved
	case DecisionReject:
		d.Status = DiffStatusRejected
	}
}

// Deviation records a detected departure from a baseline clause, produced
// by compare_with_baseline and stored on ClauseFindings.
type Deviation struct {
	ClauseID    string `json:"clause_id"`
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"`
}

// Risk is one identified risk for a clause, emitted by the ReAct loop or
// the legacy analyze prompt as a JSON object.
type Risk struct {
	RiskID      string `json:"risk_id,omitempty"`
	ClauseID    string `json:"clause_id,omitempty"`
	RiskLevel   string `json:"risk_level"`
	Description string `json:"description"`
}

// ClauseFindings is the aggregated analysis for one clause: its risks,
// diffs, and notes. Acts as a cross-clause scratchpad in the graph state's
// findings map.
type ClauseFindings struct {
	ClauseID   string          `json:"clause_id"`
	Risks      []*Risk         `json:"risks"`
	Deviations []*Deviation    `json:"deviations"`
	Diffs      []*DocumentDiff `json:"diffs"`
	Notes      string          `json:"notes,omitempty"`
	Completed  bool            `json:"completed"`
}
