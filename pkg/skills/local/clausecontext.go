// Package local implements the ten concrete skills the dispatcher can
// register as local handlers: pure functions over a typed input object
// yielding a typed output object.
package local

import (
	"context"

	"github.com/clausereview/engine/pkg/domain"
)

// GetClauseContextInput is get_clause_context's handler input.
type GetClauseContextInput struct {
	ClauseID  string
	Structure *domain.DocumentStructure
}

// GetClauseContextOutput is get_clause_context's handler output.
type GetClauseContextOutput struct {
	ClauseID    string `json:"clause_id"`
	Found       bool   `json:"found"`
	ContextText string `json:"context_text,omitempty"`
	Title       string `json:"title,omitempty"`
}

// GetClauseContext concatenates a clause node's own text with every
// descendant's text, in depth-first order.
func GetClauseContext(ctx context.Context, input any) (any, error) {
	in := input.(GetClauseContextInput)

	node := in.Structure.FindClause(in.ClauseID)
	if node == nil {
		return GetClauseContextOutput{ClauseID: in.ClauseID, Found: false}, nil
	}

	return GetClauseContextOutput{
		ClauseID:    in.ClauseID,
		Found:       true,
		ContextText: node.FullText(),
		Title:       node.Title,
	}, nil
}

// PrepareGetClauseContextInput derives GetClauseContextInput from graph
// state; llmArgs may override clause_id when the LLM asks about a clause
// other than the one currently under analysis (e.g. following a
// cross-reference).
func PrepareGetClauseContextInput(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
	target := clauseID
	if v, ok := llmArgs["clause_id"].(string); ok && v != "" {
		target = v
	}
	return GetClauseContextInput{ClauseID: target, Structure: primary}, nil
}
