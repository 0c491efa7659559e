package reactloop

import (
	"fmt"
	"strings"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/instruction"
)

const (
	crossRefContextMaxClauses = 3
	crossRefContextMaxChars   = 2000
)

// domainInstructions are short, domain-specific directive blocks injected
// into the system prompt, keyed by domain id.
var domainInstructions = map[string]string{
	"fidic":    "This is a FIDIC-form construction contract. Pay particular attention to time-bar provisions (notice periods under Sub-Clause 20.1/20.2), the allocation of risk between Employer and Contractor, and Particular Conditions that amend the General Conditions.",
	"sha_spa":  "This is a share purchase / shareholders' agreement. Pay particular attention to representations and warranties, conditions precedent, indemnities, and post-completion covenants.",
}

// directiveTemplate is the tool-use directive line, resolved through
// pkg/instruction rather than built with fmt.Sprintf so it follows the
// same placeholder syntax as every other runtime-assembled prompt.
var directiveTemplate = instruction.New("You must prefer these suggested tools: {tool_names}. Do not exceed {max_iterations} turns. All tool invocations use clause_id={clause_id} unless you are deliberately following a cross-reference to a different clause. Do not resupply system-internal fields. Stop calling tools when you have enough information. Do not repeat a failed tool.")

// BuildSystemPrompt composes the ReAct loop's system message: the tool
// enumeration and directive, optional cross-reference context for clauses
// the current clause points at, and a domain-specific instruction block.
//
// crossRefClauses are the (up to 3) clauses referenced by the current
// clause, each clause's FullText truncated to 2000 characters.
func BuildSystemPrompt(tools []domain.ToolDefinition, clauseID string, maxIterations int, crossRefClauses []*domain.ClauseNode, domainID string) string {
	var b strings.Builder

	b.WriteString("You are reviewing one clause of a contract. You have access to the following tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}

	directive, err := directiveTemplate.Render(instruction.MapState{
		"tool_names":     toolNames(tools),
		"max_iterations": maxIterations,
		"clause_id":      clauseID,
	})
	if err != nil {
		directive = fmt.Sprintf("You must prefer these suggested tools: %s. Do not exceed %d turns. All tool invocations use clause_id=%s.",
			toolNames(tools), maxIterations, clauseID)
	}
	fmt.Fprintf(&b, "\n%s\n", directive)

	b.WriteString("\nWhen you have enough information, respond with a JSON array of risk objects, each with \"risk_level\" (critical|high|medium|low) and \"description\". Respond with the JSON array only, no surrounding prose.\n")

	if len(crossRefClauses) > 0 {
		b.WriteString("\nReferenced clauses:\n")
		n := crossRefClauses
		if len(n) > crossRefContextMaxClauses {
			n = n[:crossRefContextMaxClauses]
		}
		for _, c := range n {
			text := c.FullText()
			if r := []rune(text); len(r) > crossRefContextMaxChars {
				text = string(r[:crossRefContextMaxChars])
			}
			fmt.Fprintf(&b, "\n[%s] %s\n%s\n", c.ClauseID, c.Title, text)
		}
	}

	if instr, ok := domainInstructions[domainID]; ok {
		fmt.Fprintf(&b, "\n%s\n", instr)
	}

	return b.String()
}

func toolNames(tools []domain.ToolDefinition) string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

// BuildUserPrompt composes the clause-focused user message.
func BuildUserPrompt(clauseID, clauseText, materialType string) string {
	var b strings.Builder
	if materialType != "" {
		fmt.Fprintf(&b, "Review clause %s of a %s contract.\n\n", clauseID, materialType)
	} else {
		fmt.Fprintf(&b, "Review clause %s.\n\n", clauseID)
	}
	b.WriteString(clauseText)
	return b.String()
}
