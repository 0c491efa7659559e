// Package skills implements the skill registry and dispatcher: a
// skill_id -> executor map plus a skill_id -> registration map, each
// skill paired with a prepare-input hook that derives the handler's typed
// input from graph state instead of asking the LLM to supply
// system-internal fields.
package skills

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/observability"
)

// Handler is a local skill's implementation: a typed-input-in, typed-output-out
// pure function. The dispatcher never passes raw maps to a handler.
type Handler func(ctx context.Context, input any) (any, error)

// PrepareInputFunc derives a skill's typed input object from the graph
// state, the clause under analysis, and whatever arguments the LLM
// supplied when it called the tool (llmArgs may be nil for skills invoked
// outside a ReAct turn, e.g. the deterministic fallback path).
type PrepareInputFunc func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error)

// WorkflowClient is the minimal polling-workflow transport a remote skill
// executor needs: start a workflow run and poll it until terminal. The
// actual wire protocol is a caller concern; this interface only captures
// the start-then-poll shape the remote executor needs.
type WorkflowClient interface {
	CallWorkflow(ctx context.Context, workflowID string, input any) (taskID string, err error)
	PollStatus(ctx context.Context, taskID string) (result any, terminal bool, err error)
}

type registeredSkill struct {
	registration *domain.SkillRegistration
	prepareInput PrepareInputFunc

	// Local backend.
	handler Handler

	// Remote backend.
	client     WorkflowClient
	workflowID string
}

// Dispatcher holds every registered skill's executor and registration.
type Dispatcher struct {
	mu        sync.RWMutex
	skills    map[string]*registeredSkill
	pollEvery time.Duration

	// Tracer and Metrics are optional; when set, PrepareAndCall wraps every
	// skill execution in a tool-execution span and records call/error
	// metrics. Nil-safe: both types degrade to no-ops on a nil receiver.
	Tracer  *observability.Tracer
	Metrics *observability.Metrics
}

// NewDispatcher returns an empty dispatcher. pollEvery bounds how often a
// remote executor re-polls workflow status; zero selects a 200ms default.
func NewDispatcher(pollEvery time.Duration) *Dispatcher {
	if pollEvery <= 0 {
		pollEvery = 200 * time.Millisecond
	}
	return &Dispatcher{skills: make(map[string]*registeredSkill), pollEvery: pollEvery}
}

// WithObservability attaches a tracer and metrics instance, returning d for
// chaining at construction time (cmd/reviewctl).
func (d *Dispatcher) WithObservability(tracer *observability.Tracer, metrics *observability.Metrics) *Dispatcher {
	d.Tracer = tracer
	d.Metrics = metrics
	return d
}

// RegisterLocal registers a skill backed by an in-process handler function.
func (d *Dispatcher) RegisterLocal(reg domain.SkillRegistration, handler Handler, prepareInput PrepareInputFunc) error {
	reg.Backend = domain.SkillBackendLocal
	if err := reg.Validate(); err != nil {
		return err
	}
	if handler == nil {
		return domain.ErrMissingHandlerPath
	}
	return d.register(&registeredSkill{registration: &reg, handler: handler, prepareInput: prepareInput})
}

// RegisterRemote registers a skill backed by a remote workflow poll.
func (d *Dispatcher) RegisterRemote(reg domain.SkillRegistration, client WorkflowClient, prepareInput PrepareInputFunc) error {
	reg.Backend = domain.SkillBackendRemote
	if err := reg.Validate(); err != nil {
		return err
	}
	if client == nil {
		return domain.ErrRemoteWithoutClient
	}
	return d.register(&registeredSkill{registration: &reg, client: client, workflowID: reg.RemoteWorkflowID, prepareInput: prepareInput})
}

func (d *Dispatcher) register(rs *registeredSkill) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.skills[rs.registration.SkillID]; exists {
		return domain.ErrSkillAlreadyExists
	}
	d.skills[rs.registration.SkillID] = rs
	return nil
}

// GetToolDefinitions returns the tool schema for every skill whose
// registration matches domainFilter (domain == "*" or domain == filter).
func (d *Dispatcher) GetToolDefinitions(domainFilter string) []domain.ToolDefinition {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.ToolDefinition, 0, len(d.skills))
	for _, rs := range d.skills {
		if !rs.registration.MatchesDomain(domainFilter) {
			continue
		}
		out = append(out, domain.ToolDefinition{
			Name:        rs.registration.SkillID,
			Description: rs.registration.Description,
			Parameters:  rs.registration.InputSchema,
		})
	}
	return out
}

// IsRegistered reports whether skillID has a registration, used by the
// deterministic fallback path to skip required_skills that never got wired.
func (d *Dispatcher) IsRegistered(skillID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.skills[skillID]
	return ok
}

// PrepareAndCall derives the skill's input via its prepare_input_fn, then
// invokes its executor, wrapping both in a uniform SkillResult. Panics and
// errors from either step are caught, logged, and returned as a failure
// result rather than propagated.
func (d *Dispatcher) PrepareAndCall(ctx context.Context, skillID, clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArguments map[string]any) (result *domain.SkillResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("skills: panic during skill execution", "skill_id", skillID, "panic", r)
			result = &domain.SkillResult{Success: false, Error: fmt.Sprintf("panic: %v", r), ExecutionTimeMS: time.Since(start).Milliseconds()}
		}
	}()

	d.mu.RLock()
	rs, ok := d.skills[skillID]
	d.mu.RUnlock()
	if !ok {
		return &domain.SkillResult{Success: false, Error: domain.ErrUnregisteredSkill.Error(), ExecutionTimeMS: time.Since(start).Milliseconds()}
	}

	ctx, span := d.Tracer.StartToolExecution(ctx, skillID, skillID, string(rs.registration.Backend))
	defer span.End()

	var input any
	var err error
	if rs.prepareInput != nil {
		input, err = rs.prepareInput(clauseID, primary, state, llmArguments)
		if err != nil {
			slog.Warn("skills: prepare_input failed", "skill_id", skillID, "error", err)
			d.Tracer.RecordError(span, err)
			d.Metrics.RecordToolError(skillID, "prepare_input")
			return &domain.SkillResult{Success: false, Error: err.Error(), ExecutionTimeMS: time.Since(start).Milliseconds()}
		}
	}

	var data any
	switch rs.registration.Backend {
	case domain.SkillBackendRemote:
		data, err = d.callRemote(ctx, rs, input)
	default:
		data, err = rs.handler(ctx, input)
	}
	d.Metrics.RecordToolCall(skillID, time.Since(start))
	if err != nil {
		slog.Warn("skills: skill execution failed", "skill_id", skillID, "error", err)
		d.Tracer.RecordError(span, err)
		d.Metrics.RecordToolError(skillID, "execution")
		return &domain.SkillResult{Success: false, Error: err.Error(), ExecutionTimeMS: time.Since(start).Milliseconds()}
	}

	d.Tracer.AddToolPayload(span, fmt.Sprintf("%+v", input), fmt.Sprintf("%+v", data))
	return &domain.SkillResult{Success: true, Data: data, ExecutionTimeMS: time.Since(start).Milliseconds()}
}

func (d *Dispatcher) callRemote(ctx context.Context, rs *registeredSkill, input any) (any, error) {
	taskID, err := rs.client.CallWorkflow(ctx, rs.workflowID, input)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(d.pollEvery)
	defer ticker.Stop()
	for {
		result, terminal, err := rs.client.PollStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if terminal {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
