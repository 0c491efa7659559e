package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/domain"
)

func TestStateSerializeRoundTrip(t *testing.T) {
	reviewState := domain.NewState("task-1")
	reviewState.CurrentClauseID = "5.1"

	state := NewState("task-1", "sess-1", "user-1", "clausereview").
		WithPhase(PhaseToolApproval).
		WithReviewState(reviewState).
		WithPendingToolCall(&PendingToolCall{ID: "diff-1", Name: "apply_diffs", RequiresApproval: true})

	data, err := state.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, "task-1", restored.TaskID)
	assert.Equal(t, PhaseToolApproval, restored.Phase)
	require.NotNil(t, restored.ReviewState)
	assert.Equal(t, "5.1", restored.ReviewState.CurrentClauseID)
	assert.True(t, restored.NeedsUserInput())
}

func TestStateIsExpired(t *testing.T) {
	state := NewState("task-1", "sess-1", "user-1", "clausereview")
	state.CheckpointTime = time.Now().Add(-2 * time.Hour)
	assert.True(t, state.IsExpired(time.Hour))
	assert.False(t, state.IsExpired(0))
}

func TestStateWithErrorSetsErrorPhase(t *testing.T) {
	state := NewState("task-1", "sess-1", "user-1", "clausereview")
	state.WithError(assert.AnError)
	assert.Equal(t, PhaseError, state.Phase)
	assert.Equal(t, TypeError, state.CheckpointType)
	assert.NotEmpty(t, state.Error)
}
