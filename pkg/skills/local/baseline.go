package local

import (
	"context"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/clausereview/engine/pkg/domain"
)

// CompareWithBaselineInput is compare_with_baseline's handler input.
type CompareWithBaselineInput struct {
	ClauseID     string
	Structure    *domain.DocumentStructure
	BaselineText string
}

// CompareWithBaselineOutput is compare_with_baseline's handler output.
type CompareWithBaselineOutput struct {
	HasBaseline        bool     `json:"has_baseline"`
	IsIdentical        bool     `json:"is_identical"`
	DifferencesSummary []string `json:"differences_summary,omitempty"`
}

const maxDiffLinesPerSide = 5

// CompareWithBaseline normalizes whitespace on both texts before testing
// equality; on a difference it computes a unified diff and summarizes up
// to 5 added and 5 removed lines.
func CompareWithBaseline(ctx context.Context, input any) (any, error) {
	in := input.(CompareWithBaselineInput)

	if in.BaselineText == "" {
		return CompareWithBaselineOutput{HasBaseline: false}, nil
	}

	node := in.Structure.FindClause(in.ClauseID)
	var clauseText string
	if node != nil {
		clauseText = node.FullText()
	}

	normClause := normalizeWhitespace(clauseText)
	normBaseline := normalizeWhitespace(in.BaselineText)
	if normClause == normBaseline {
		return CompareWithBaselineOutput{HasBaseline: true, IsIdentical: true}, nil
	}

	diffText, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(normBaseline),
		B:        difflib.SplitLines(normClause),
		FromFile: "baseline",
		ToFile:   "clause",
		Context:  1,
	})
	if err != nil {
		return CompareWithBaselineOutput{HasBaseline: true, IsIdentical: false}, nil
	}

	summary := summarizeDiff(diffText)
	return CompareWithBaselineOutput{HasBaseline: true, IsIdentical: false, DifferencesSummary: summary}, nil
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// summarizeDiff keeps up to maxDiffLinesPerSide "+" lines and
// maxDiffLinesPerSide "-" lines from a unified diff, in order.
func summarizeDiff(diffText string) []string {
	var added, removed []string
	for _, line := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+") && len(added) < maxDiffLinesPerSide:
			added = append(added, line)
		case strings.HasPrefix(line, "-") && len(removed) < maxDiffLinesPerSide:
			removed = append(removed, line)
		}
	}
	return append(removed, added...)
}

// PrepareCompareWithBaselineInput derives CompareWithBaselineInput from
// graph state; baselineText comes from the task's baseline document, not
// from the LLM, so this never reads llmArgs.
func PrepareCompareWithBaselineInput(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
	baselineText := baselineClauseText(state, clauseID)
	return CompareWithBaselineInput{ClauseID: clauseID, Structure: primary, BaselineText: baselineText}, nil
}

func baselineClauseText(state *domain.ReviewGraphState, clauseID string) string {
	if state == nil {
		return ""
	}
	for _, doc := range state.Documents {
		if doc.Role != domain.RoleBaseline || doc.Structure == nil {
			continue
		}
		if node := doc.Structure.FindClause(clauseID); node != nil {
			return node.FullText()
		}
	}
	return ""
}
