package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestionsFromDiffsMapping(t *testing.T) {
	diffs := []*DocumentDiff{
		{DiffID: "d1", ClauseID: "4.1", ActionType: DiffActionReplace, OriginalText: "old", ProposedText: "new", RiskLevel: "critical", Status: DiffStatusApproved},
		{DiffID: "d2", ClauseID: "4.2", ActionType: DiffActionInsert, ProposedText: "added text", RiskLevel: "medium", Status: DiffStatusApproved},
		{DiffID: "d3", ClauseID: "4.3", ActionType: DiffActionDelete, OriginalText: "gone", RiskLevel: "low", Status: DiffStatusApproved},
		{DiffID: "d4", ClauseID: "4.4", ActionType: DiffActionReplace, OriginalText: "x", ProposedText: "y", RiskLevel: "high", Status: DiffStatusRejected},
		{DiffID: "d5", ClauseID: "4.5", ActionType: DiffActionReplace, OriginalText: "x", ProposedText: "y", RiskLevel: "high", Status: DiffStatusPending},
		nil,
	}

	out := SuggestionsFromDiffs(diffs)
	require.Len(t, out, 3, "rejected, pending, and nil diffs are skipped")

	assert.Equal(t, DiffActionReplace, out[0].ActionType)
	assert.False(t, out[0].IsAddition)
	assert.Empty(t, out[0].InsertionPoint)
	assert.Equal(t, SuggestionMust, out[0].Priority)

	assert.True(t, out[1].IsAddition)
	assert.Equal(t, "after clause 4.2", out[1].InsertionPoint)
	assert.Equal(t, SuggestionShould, out[1].Priority)

	assert.Equal(t, SuggestionMay, out[2].Priority)
}

func TestSuggestionsFromDiffsEmpty(t *testing.T) {
	assert.Empty(t, SuggestionsFromDiffs(nil))
	assert.Empty(t, SuggestionsFromDiffs([]*DocumentDiff{{Status: DiffStatusPending}}))
}
