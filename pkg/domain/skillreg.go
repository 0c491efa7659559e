package domain

// ToolDefinition is the function-calling tool schema shape an LLM sees:
// name, description, and a JSON-schema-style parameters object. Kept
// dependency-free of pkg/llms so pkg/domain has no upward imports; pkg/skills
// converts this 1:1 into an llms.ToolDefinition at the dispatcher boundary.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// SkillRegistration describes one skill's identity, schemas, and backend
// wiring. It never appears bare: every registration is paired with a
// ToolDefinitionFunc and a PrepareInputFunc supplied by the registrant,
// held separately in the dispatcher (pkg/skills) rather than on this
// struct, since those are Go closures, not serializable data.
type SkillRegistration struct {
	SkillID           string       `json:"skill_id"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	InputSchema       map[string]any `json:"input_schema"`
	OutputSchema      map[string]any `json:"output_schema"`
	Backend           SkillBackend `json:"backend"`
	LocalHandler      string       `json:"local_handler,omitempty"`      // required when backend=local
	RemoteWorkflowID  string       `json:"remote_workflow_id,omitempty"` // required when backend=remote
	Domain            string       `json:"domain"`                      // "*" or domain id
	Category          string       `json:"category,omitempty"`
}

// Validate enforces the registration contract: local
// skills require LocalHandler; remote skills require RemoteWorkflowID (the
// non-nil client requirement is enforced by the dispatcher, which holds the
// client reference, not this struct).
func (r *SkillRegistration) Validate() error {
	switch r.Backend {
	case SkillBackendLocal:
		if r.LocalHandler == "" {
			return ErrMissingHandlerPath
		}
	case SkillBackendRemote:
		if r.RemoteWorkflowID == "" {
			return ErrRemoteWithoutClient
		}
	}
	return nil
}

// MatchesDomain reports whether the registration applies to the given
// domain filter.
func (r *SkillRegistration) MatchesDomain(domainFilter string) bool {
	return r.Domain == "*" || r.Domain == domainFilter
}

// SkillResult is the dispatcher's uniform wrapper around every skill call.
type SkillResult struct {
	Success         bool   `json:"success"`
	Data            any    `json:"data,omitempty"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
}
