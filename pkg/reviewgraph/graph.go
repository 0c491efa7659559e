// Package reviewgraph implements the orchestrated clause-review state
// machine: the nine-node graph coordinating document
// parsing, orchestrator planning, per-clause analysis (ReAct or
// deterministic), diff generation, validation, checkpointed human
// approval, and final summarization.
//
// The graph is implemented as explicit node-function dispatch rather than
// a generic DAG engine: the state machine
// has no parallel branches, so a switch over a small NodeID enum is
// sufficient and keeps the control flow readable.
package reviewgraph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clausereview/engine/pkg/config"
	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/skills"
)

// NodeID identifies one of the review graph's nodes.
type NodeID string

const (
	NodeInit                NodeID = "init"
	NodeParseDocument       NodeID = "parse_document"
	NodePlanReview          NodeID = "plan_review"
	NodeClauseAnalyze       NodeID = "clause_analyze"
	NodeClauseGenerateDiffs NodeID = "clause_generate_diffs"
	NodeClauseValidate      NodeID = "clause_validate"
	NodeHumanApproval       NodeID = "human_approval"
	NodeSaveClause          NodeID = "save_clause"
	NodeSummarize           NodeID = "summarize"
	NodeEnd                 NodeID = "end"
)

// Graph coordinates one review task's state machine. It holds no
// per-task state itself -- every mutation lives in the
// domain.ReviewGraphState passed to Ainvoke/Resume -- so a single Graph
// instance is safe to share across concurrently running tasks.
type Graph struct {
	Dispatcher *skills.Dispatcher
	LLM        llms.Client // may be nil: every LLM-driven node degrades gracefully
	Config     *config.ReviewConfig
}

// New constructs a Graph. cfg may be nil, in which case defaults are
// applied.
func New(dispatcher *skills.Dispatcher, llmClient llms.Client, cfg *config.ReviewConfig) *Graph {
	if cfg == nil {
		cfg = &config.ReviewConfig{}
	}
	cfg.SetDefaults()
	return &Graph{Dispatcher: dispatcher, LLM: llmClient, Config: cfg}
}

// Interrupted is returned by Ainvoke when execution paused at the
// human_approval boundary with a non-empty set of pending diffs awaiting
// a human decision. It is not an error in the usual sense: state is
// valid and checkpointable; the caller is expected to record decisions
// into state.UserDecisions/UserFeedback and call Resume.
type Interrupted struct {
	TaskID   string
	ClauseID string
}

func (e *Interrupted) Error() string {
	return fmt.Sprintf("reviewgraph: task %s interrupted at human_approval for clause %s", e.TaskID, e.ClauseID)
}

// Ainvoke runs state through the graph starting at init, advancing node
// by node until either the graph completes (summarize), or it pauses at
// human_approval with pending diffs (returns *Interrupted), or a fatal
// initialization invariant is violated.
//
// Node execution within one task is strictly sequential;
// there are no parallel branches in the graph itself.
func (g *Graph) Ainvoke(ctx context.Context, state *domain.ReviewGraphState) (*domain.ReviewGraphState, error) {
	return g.run(ctx, state, NodeInit)
}

// Resume continues state from the human_approval interrupt boundary. The
// caller must have already merged UserDecisions (and optionally
// UserFeedback) into state before calling Resume; Resume itself performs
// no I/O to fetch decisions: resume inputs are state patches, not
// continuations.
//
// Resuming a state that is already complete, or one that was never
// interrupted (PendingDiffs empty), is a no-op that returns state
// unchanged, so a double resume after an approval injection is safe.
func (g *Graph) Resume(ctx context.Context, state *domain.ReviewGraphState) (*domain.ReviewGraphState, error) {
	if state.IsComplete {
		return state, nil
	}
	if len(state.PendingDiffs) == 0 {
		return state, nil
	}
	return g.run(ctx, state, NodeSaveClause)
}

func (g *Graph) run(ctx context.Context, state *domain.ReviewGraphState, start NodeID) (*domain.ReviewGraphState, error) {
	node := start
	for {
		if state.IsComplete {
			return state, nil
		}

		next, err := g.dispatch(ctx, state, node)
		if err != nil {
			if interrupted, ok := err.(*Interrupted); ok {
				return state, interrupted
			}
			state.Error = err.Error()
			slog.Error("reviewgraph: node failed", "node", node, "task_id", state.TaskID, "error", err)
			return state, err
		}
		if next == NodeEnd {
			return state, nil
		}
		node = next
	}
}

func (g *Graph) dispatch(ctx context.Context, state *domain.ReviewGraphState, node NodeID) (NodeID, error) {
	switch node {
	case NodeInit:
		return g.nodeInit(ctx, state)
	case NodeParseDocument:
		return g.nodeParseDocument(ctx, state)
	case NodePlanReview:
		return g.nodePlanReview(ctx, state)
	case NodeClauseAnalyze:
		return g.nodeClauseAnalyze(ctx, state)
	case NodeClauseGenerateDiffs:
		return g.nodeClauseGenerateDiffs(ctx, state)
	case NodeClauseValidate:
		return g.nodeClauseValidate(ctx, state)
	case NodeHumanApproval:
		return g.nodeHumanApproval(ctx, state)
	case NodeSaveClause:
		return g.nodeSaveClause(ctx, state)
	case NodeSummarize:
		return g.nodeSummarize(ctx, state)
	default:
		return NodeEnd, fmt.Errorf("reviewgraph: unknown node %q", node)
	}
}

func newDiffID() string {
	return uuid.NewString()
}

func clauseTimeout(cfg *config.ReviewConfig) time.Duration {
	return time.Duration(cfg.ReactClauseTimeoutSeconds) * time.Second
}
