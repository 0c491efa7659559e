package local

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// The *Args types below describe each skill's LLM-facing arguments only --
// never the Structure/State the dispatcher injects via PrepareInputFunc.
// ReflectSchema turns one into the parameters object a ToolDefinition
// carries, the same reflector shape the CLI's schema command uses for
// config structs.

// GetClauseContextArgs is get_clause_context's optional override: the LLM
// may name a different clause than the one currently under analysis.
type GetClauseContextArgs struct {
	ClauseID string `json:"clause_id,omitempty" jsonschema_description:"Clause to fetch context for; defaults to the clause currently under analysis."`
}

// ResolveDefinitionArgs is resolve_definition's term list; when omitted the
// handler extracts quoted terms from the current clause text itself.
type ResolveDefinitionArgs struct {
	Terms []string `json:"terms,omitempty" jsonschema_description:"Defined terms to resolve; defaults to the quoted terms found in the current clause."`
}

// FidicCheckPcConsistencyArgs lets the LLM scope the consistency check to a
// specific focus clause and a custom PC clause set.
type FidicCheckPcConsistencyArgs struct {
	FocusClauseID string     `json:"focus_clause_id,omitempty"`
	PcClauses     []PcClause `json:"pc_clauses,omitempty"`
}

// FidicSearchErArgs is fidic_search_er's free-text query against the
// embedded Employer's Requirements document.
type FidicSearchErArgs struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"Free-text search query against the Employer's Requirements."`
	TopK  int    `json:"top_k,omitempty" jsonschema_description:"Number of matches to return, default 5."`
}

// NoArgs describes a skill the LLM invokes with no parameters: every input
// it needs comes from graph state via its PrepareInputFunc.
type NoArgs struct{}

// ReflectSchema turns one of the *Args types above (or NoArgs{}) into the
// parameters object a ToolDefinition carries.
func ReflectSchema(v any) map[string]any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	return out
}
