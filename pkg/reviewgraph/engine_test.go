package reviewgraph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/config"
	"github.com/clausereview/engine/pkg/domain"
)

const sampleContract = `1 Definitions
"Contract" means the agreement between the Parties for the execution of the Works.
1.1 Scope
See Clause 2 for the payment arrangements.
2 Payment
The advance payment shall be 30% of the Contract Price.
`

type capturingRedline struct {
	taskID      string
	suggestions []*domain.ModificationSuggestion
}

func (r *capturingRedline) Generate(ctx context.Context, taskID string, suggestions []*domain.ModificationSuggestion) error {
	r.taskID = taskID
	r.suggestions = suggestions
	return nil
}

func newTestEngine(t *testing.T, llm *scriptedLLM, redline RedlineGenerator) *Engine {
	t.Helper()
	g := New(newDispatcherWithClauseContext(t), nil, &config.ReviewConfig{ExecutionMode: domain.ExecutionModeLegacy})
	if llm != nil {
		g.LLM = llm
	}
	e := NewEngine(g, EngineOptions{TempDir: t.TempDir(), Redline: redline})
	t.Cleanup(e.Close)
	return e
}

func TestEngineUploadParsesHybridStructure(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	ctx := context.Background()

	started, err := e.StartReview(ctx, StartReviewRequest{TaskID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", started.TaskID)
	assert.NotEmpty(t, started.GraphRunID)

	resp, err := e.UploadDocument(ctx, "u1", []byte(sampleContract), domain.RolePrimary, "contract.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalClauses)
	assert.Equal(t, "numeric_dotted", resp.StructureType)

	cc, err := e.GetClauseContext("u1", "1.1")
	require.NoError(t, err)
	assert.Equal(t, "Scope", cc.Title)
	assert.Equal(t, 1, cc.Level)

	task, err := e.task("u1")
	require.NoError(t, err)
	structure := task.State.Documents[0].Structure
	assert.Contains(t, structure.Definitions, "Contract")

	var sawClauseTwo bool
	for _, ref := range structure.CrossReferences {
		if ref.SourceClauseID == "1.1" && ref.TargetClauseID == "2" {
			sawClauseTwo = true
			require.NotNil(t, ref.IsValid)
			assert.True(t, *ref.IsValid)
		}
	}
	assert.True(t, sawClauseTwo, "expected the Clause 2 reference from 1.1")
}

func TestEngineRejectsEmptyUpload(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	ctx := context.Background()
	_, err := e.StartReview(ctx, StartReviewRequest{TaskID: "u2"})
	require.NoError(t, err)

	_, err = e.UploadDocument(ctx, "u2", []byte("   \n"), domain.RolePrimary, "empty.txt")
	require.ErrorIs(t, err, domain.ErrParseFailure)

	// The failed upload must not have mutated the task's document list.
	task, err := e.task("u2")
	require.NoError(t, err)
	assert.Empty(t, task.State.Documents)
}

func TestEngineApprovalFlowEndToEnd(t *testing.T) {
	client := &scriptedLLM{chatResponses: []string{
		`[{"risk_level":"high","description":"r1"},{"risk_level":"medium","description":"r2"}]`,
		`{"action_type":"replace","original_text":"old1","proposed_text":"new1","reason":"tighten obligation"}`,
		`{"action_type":"insert","proposed_text":"new2","reason":"add notice duty"}`,
	}}
	redline := &capturingRedline{}
	e := newTestEngine(t, client, redline)
	ctx := context.Background()

	_, err := e.StartReview(ctx, StartReviewRequest{
		TaskID: "a1",
		Checklist: []*domain.ReviewChecklistItem{
			{ClauseID: "14.2", RequiredSkills: []string{"get_clause_context"}},
		},
	})
	require.NoError(t, err)

	_, err = e.UploadDocument(ctx, "a1", []byte("14.2 Advance Payment\n预付款为合同总价的30%\n"), domain.RolePrimary, "contract.txt")
	require.NoError(t, err)

	// Resume before any interrupt is a state mismatch.
	require.ErrorIs(t, e.Resume(ctx, "a1"), domain.ErrInterruptMismatch)

	err = e.Run(ctx, "a1")
	var interrupted *Interrupted
	require.ErrorAs(t, err, &interrupted)
	assert.Equal(t, "14.2", interrupted.ClauseID)

	status, err := e.GetStatus("a1")
	require.NoError(t, err)
	assert.True(t, status.IsInterrupted)
	assert.False(t, status.IsComplete)
	assert.Equal(t, "14.2", status.CurrentClauseID)

	pending, err := e.GetPendingDiffs("a1")
	require.NoError(t, err)
	require.Len(t, pending.PendingDiffs, 2)
	d1, d2 := pending.PendingDiffs[0], pending.PendingDiffs[1]

	// Unknown diff ids are an interrupt-state mismatch.
	_, err = e.Approve(ctx, "a1", Approval{DiffID: "nope", Decision: domain.DecisionApprove})
	require.ErrorIs(t, err, domain.ErrInterruptMismatch)

	resp, err := e.Approve(ctx, "a1", Approval{DiffID: d1.DiffID, Decision: domain.DecisionApprove, UserModifiedText: "new1-edited"})
	require.NoError(t, err)
	assert.Equal(t, domain.DiffStatusApproved, resp.NewStatus)
	assert.Equal(t, "new1-edited", d1.ProposedText)

	batch, err := e.ApproveBatch(ctx, "a1", []Approval{{DiffID: d2.DiffID, Decision: domain.DecisionReject}})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, domain.DiffStatusRejected, batch[0].NewStatus)

	require.NoError(t, e.Resume(ctx, "a1"))

	result, err := e.GetResult("a1")
	require.NoError(t, err)
	assert.True(t, result.IsComplete)
	assert.Equal(t, 2, result.TotalRisks)
	assert.Equal(t, 1, result.ApprovedCount)
	assert.Equal(t, 1, result.RejectedCount)

	// Completion handed the approved edit to the redline generator with
	// the user's modified text.
	assert.Equal(t, "a1", redline.taskID)
	require.Len(t, redline.suggestions, 1)
	assert.Equal(t, domain.DiffActionReplace, redline.suggestions[0].ActionType)
	assert.Equal(t, "new1-edited", redline.suggestions[0].ProposedText)
	assert.Equal(t, domain.SuggestionMust, redline.suggestions[0].Priority)

	// Resume after completion stays a no-op.
	require.NoError(t, e.Resume(ctx, "a1"))
}

func TestEngineUnknownTask(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	_, err := e.GetStatus("missing")
	require.Error(t, err)
	_, err = e.GetResult("missing")
	require.Error(t, err)
	require.Error(t, e.Run(context.Background(), "missing"))
}

func TestEnginePruneExpiredRemovesCompletedTasks(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	ctx := context.Background()
	_, err := e.StartReview(ctx, StartReviewRequest{TaskID: "p1", Checklist: []*domain.ReviewChecklistItem{}})
	require.NoError(t, err)
	require.NoError(t, e.Run(ctx, "p1"))

	task, err := e.task("p1")
	require.NoError(t, err)
	task.mu.Lock()
	task.completedAt = time.Now().Add(-time.Hour)
	task.mu.Unlock()

	e.pruneExpired()
	_, err = e.task("p1")
	require.Error(t, err)

	// Pruning a still-running task is a no-op.
	_, err = e.StartReview(ctx, StartReviewRequest{TaskID: "p2"})
	require.NoError(t, err)
	e.pruneExpired()
	_, err = e.task("p2")
	require.NoError(t, err)
}

func TestEngineDuplicateTaskID(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	ctx := context.Background()
	_, err := e.StartReview(ctx, StartReviewRequest{TaskID: "dup"})
	require.NoError(t, err)
	_, err = e.StartReview(ctx, StartReviewRequest{TaskID: "dup"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInterruptMismatch))
}
