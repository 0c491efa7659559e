// Package reactloop implements the ReAct agent loop: an
// iterative LLM<->tool loop in which the LLM sees tool definitions and a
// clause prompt, emits tool calls, receives serialized results, decides
// the next step, and finally emits a JSON risk list.
package reactloop

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/skills"
)

const (
	// DefaultMaxIterations is the hard cap on ReAct turns per clause.
	DefaultMaxIterations = 5
	// DefaultTemperature is the LLM sampling temperature used in ReAct calls.
	DefaultTemperature = 0.1
	// maxToolResultChars bounds a single serialized tool result fed back to
	// the LLM.
	maxToolResultChars = 3000
	truncationSuffix    = "... [truncated]"
)

// Options configures a single Run invocation.
type Options struct {
	MaxIterations int
	Temperature   float64
}

// SetDefaults fills zero-valued fields with the loop's defaults.
func (o *Options) SetDefaults() {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
}

// Result is Run's return value: the risks the LLM settled on, the skill
// results collected along the way, and the full message transcript
// (including the final assistant turn), for persisting into
// ReviewGraphState.AgentMessages.
type Result struct {
	Risks        []*domain.Risk
	SkillContext map[string]*domain.SkillResult
	Messages     []llms.Message
}

// iterationLog is the structured per-iteration log record:
// iteration, tools_called, elapsed.
type iterationLog struct {
	Iteration   int      `json:"iteration"`
	ToolsCalled []string `json:"tools_called"`
	ElapsedMS   int64    `json:"elapsed_ms"`
}

// Run executes the ReAct loop for one clause. messages must already
// contain the system and user turns describing the clause (see
// BuildSystemPrompt). clauseID is the outer clause under analysis;
// individual tool calls may target a different clause_id when the LLM
// supplies one (e.g. following a cross-reference).
//
// If the dispatcher yields no tool definitions
// for state's domain, Run returns immediately with empty risks and
// skill_context.
func Run(ctx context.Context, client llms.Client, dispatcher *skills.Dispatcher, messages []llms.Message, clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, opts Options) (*Result, error) {
	opts.SetDefaults()

	tools := toLLMToolDefinitions(dispatcher.GetToolDefinitions(state.DomainID))
	if len(tools) == 0 {
		return &Result{SkillContext: map[string]*domain.SkillResult{}, Messages: messages}, nil
	}

	skillContext := make(map[string]*domain.SkillResult)

	for iteration := 1; iteration <= opts.MaxIterations; iteration++ {
		iterStart := time.Now()

		text, toolCalls, err := client.ChatWithTools(ctx, messages, tools, opts.Temperature)
		if err != nil {
			return nil, fmt.Errorf("reactloop: chat_with_tools failed on iteration %d: %w", iteration, err)
		}

		if len(toolCalls) == 0 {
			messages = append(messages, llms.Message{Role: "assistant", Content: text})
			risks := parseRisks(text)
			slog.Info("reactloop: final turn", "clause_id", clauseID, "iteration", iteration, "risks", len(risks))
			return &Result{Risks: risks, SkillContext: skillContext, Messages: messages}, nil
		}

		messages = append(messages, llms.Message{Role: "assistant", Content: text, ToolCalls: toolCalls})

		toolMessages, calledNames := executeToolCalls(ctx, dispatcher, toolCalls, clauseID, primary, state, skillContext)
		messages = append(messages, toolMessages...)

		logIteration := iterationLog{Iteration: iteration, ToolsCalled: calledNames, ElapsedMS: time.Since(iterStart).Milliseconds()}
		slog.Info("reactloop: tool iteration", "clause_id", clauseID, "iteration", logIteration.Iteration, "tools_called", logIteration.ToolsCalled, "elapsed_ms", logIteration.ElapsedMS)
	}

	// Loop exhausted max_iterations without a non-tool-call turn.
	return &Result{SkillContext: skillContext, Messages: messages}, nil
}

// executeToolCalls runs every tool call in toolCalls concurrently via
// dispatcher.PrepareAndCall, serializes each
// result, and returns one "tool" role message per call in toolCalls
// order plus the list of tool names invoked.
func executeToolCalls(ctx context.Context, dispatcher *skills.Dispatcher, toolCalls []llms.ToolCall, outerClauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, skillContext map[string]*domain.SkillResult) ([]llms.Message, []string) {
	results := make([]*domain.SkillResult, len(toolCalls))
	names := make([]string, len(toolCalls))

	g, gctx := errgroup.WithContext(ctx)
	for i, tc := range toolCalls {
		i, tc := i, tc
		names[i] = tc.Name
		g.Go(func() error {
			target := outerClauseID
			if v, ok := tc.Arguments["clause_id"].(string); ok && v != "" {
				target = v
			}
			results[i] = dispatcher.PrepareAndCall(gctx, tc.Name, target, primary, state, tc.Arguments)
			return nil
		})
	}
	_ = g.Wait() // individual failures surface as {"error": ...} skill results, not a gather error.

	messages := make([]llms.Message, len(toolCalls))
	for i, tc := range toolCalls {
		res := results[i]
		if res.Success {
			skillContext[tc.Name] = res
		}
		messages[i] = llms.Message{
			Role:       "tool",
			Name:       tc.Name,
			ToolCallID: tc.ID,
			Content:    serializeResult(res),
		}
	}
	return messages, names
}

// serializeResult renders a SkillResult as JSON for the LLM, truncating at
// maxToolResultChars. Serialization failure and tool failure both degrade
// to a `{"error": ...}` payload the LLM can react to.
func serializeResult(res *domain.SkillResult) string {
	var payload any
	if res.Success {
		payload = res.Data
	} else {
		payload = map[string]string{"error": res.Error}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("serialization failed: %v", err)})
	}
	s := string(raw)
	if r := []rune(s); len(r) > maxToolResultChars {
		s = string(r[:maxToolResultChars]) + truncationSuffix
	}
	return s
}

// parseRisks interprets the LLM's final (non-tool-call) turn as a JSON
// list of risk objects, using the three-step JSON extractor. An
// unparseable or absent list degrades to no risks rather than an error,
// so a malformed final turn never aborts the clause.
func parseRisks(text string) []*domain.Risk {
	raw, ok := llms.ExtractJSON(text)
	if !ok {
		// ExtractJSON's brace scan only finds objects; re-check the raw
		// text with json.Valid before giving up.
		if json.Valid([]byte(text)) {
			raw = json.RawMessage(text)
		} else {
			return nil
		}
	}

	var risks []*domain.Risk
	if err := json.Unmarshal(raw, &risks); err != nil {
		// The model may have wrapped the list in an object, e.g.
		// {"risks": [...]}; try that shape before giving up.
		var wrapper struct {
			Risks []*domain.Risk `json:"risks"`
		}
		if err2 := json.Unmarshal(raw, &wrapper); err2 == nil {
			return wrapper.Risks
		}
		slog.Warn("reactloop: could not parse final turn as a risk list", "error", err)
		return nil
	}
	return risks
}

func toLLMToolDefinitions(defs []domain.ToolDefinition) []llms.ToolDefinition {
	out := make([]llms.ToolDefinition, len(defs))
	for i, d := range defs {
		out[i] = llms.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}
	return out
}

// ToAgentMessages converts a transcript of llms.Message into
// ReviewGraphState's persisted AgentMessage form.
func ToAgentMessages(messages []llms.Message) []*domain.AgentMessage {
	out := make([]*domain.AgentMessage, len(messages))
	for i, m := range messages {
		am := &domain.AgentMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			am.ToolCalls = append(am.ToolCalls, domain.AgentToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
		out[i] = am
	}
	return out
}
