package domain

import "fmt"

// SuggestionPriority tags how strongly a redline edit is recommended.
type SuggestionPriority string

const (
	SuggestionMust   SuggestionPriority = "must"
	SuggestionShould SuggestionPriority = "should"
	SuggestionMay    SuggestionPriority = "may"
)

// ModificationSuggestion is the record an external redline generator
// consumes for one approved edit. Replace/delete edits carry the original
// text to act on directly; insert edits set IsAddition with an
// InsertionPoint naming where the new text goes.
type ModificationSuggestion struct {
	ClauseID       string             `json:"clause_id"`
	ActionType     DiffActionType     `json:"action_type"`
	OriginalText   string             `json:"original_text,omitempty"`
	ProposedText   string             `json:"proposed_text,omitempty"`
	Reason         string             `json:"reason,omitempty"`
	Priority       SuggestionPriority `json:"priority"`
	IsAddition     bool               `json:"is_addition"`
	InsertionPoint string             `json:"insertion_point,omitempty"`
}

// SuggestionsFromDiffs maps approved diffs into redline suggestions.
// Replace and delete map directly; insert sets IsAddition with an
// "after clause {clause_id}" insertion point. Risk level maps to
// priority: high/critical are must, medium is should, low is may.
// Non-approved diffs are skipped.
func SuggestionsFromDiffs(diffs []*DocumentDiff) []*ModificationSuggestion {
	out := make([]*ModificationSuggestion, 0, len(diffs))
	for _, d := range diffs {
		if d == nil || d.Status != DiffStatusApproved {
			continue
		}
		s := &ModificationSuggestion{
			ClauseID:     d.ClauseID,
			ActionType:   d.ActionType,
			OriginalText: d.OriginalText,
			ProposedText: d.ProposedText,
			Reason:       d.Reason,
			Priority:     suggestionPriority(d.RiskLevel),
		}
		if d.ActionType == DiffActionInsert {
			s.IsAddition = true
			s.InsertionPoint = fmt.Sprintf("after clause %s", d.ClauseID)
		}
		out = append(out, s)
	}
	return out
}

func suggestionPriority(riskLevel string) SuggestionPriority {
	switch riskLevel {
	case "high", "critical":
		return SuggestionMust
	case "medium":
		return SuggestionShould
	default:
		return SuggestionMay
	}
}
