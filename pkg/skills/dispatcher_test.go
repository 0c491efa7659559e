package skills

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/domain"
)

type echoInput struct{ ClauseID string }
type echoOutput struct{ Echo string }

func TestRegisterLocalRequiresHandlerPath(t *testing.T) {
	d := NewDispatcher(0)
	err := d.RegisterLocal(domain.SkillRegistration{SkillID: "no_handler_path", Domain: "*"}, func(ctx context.Context, input any) (any, error) {
		return nil, nil
	}, nil)
	assert.ErrorIs(t, err, domain.ErrMissingHandlerPath)
}

func TestRegisterLocalRequiresHandlerFunc(t *testing.T) {
	d := NewDispatcher(0)
	err := d.RegisterLocal(domain.SkillRegistration{SkillID: "x", LocalHandler: "pkg.x", Domain: "*"}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrMissingHandlerPath)
}

func TestRegisterRemoteRequiresWorkflowID(t *testing.T) {
	d := NewDispatcher(0)
	err := d.RegisterRemote(domain.SkillRegistration{SkillID: "x", Domain: "*"}, &fakeWorkflowClient{}, nil)
	assert.ErrorIs(t, err, domain.ErrRemoteWithoutClient)
}

func TestRegisterDuplicateSkillID(t *testing.T) {
	d := NewDispatcher(0)
	reg := domain.SkillRegistration{SkillID: "echo", LocalHandler: "pkg.echo", Domain: "*"}
	handler := func(ctx context.Context, input any) (any, error) { return echoOutput{}, nil }
	require.NoError(t, d.RegisterLocal(reg, handler, nil))
	assert.ErrorIs(t, d.RegisterLocal(reg, handler, nil), domain.ErrSkillAlreadyExists)
}

func TestGetToolDefinitionsFiltersByDomain(t *testing.T) {
	d := NewDispatcher(0)
	handler := func(ctx context.Context, input any) (any, error) { return nil, nil }
	require.NoError(t, d.RegisterLocal(domain.SkillRegistration{SkillID: "general", LocalHandler: "p.g", Domain: "*"}, handler, nil))
	require.NoError(t, d.RegisterLocal(domain.SkillRegistration{SkillID: "fidic_only", LocalHandler: "p.f", Domain: "fidic"}, handler, nil))

	defs := d.GetToolDefinitions("fidic")
	assert.Len(t, defs, 2)

	defs = d.GetToolDefinitions("sha_spa")
	assert.Len(t, defs, 1)
	assert.Equal(t, "general", defs[0].Name)
}

func TestPrepareAndCallSuccess(t *testing.T) {
	d := NewDispatcher(0)
	handler := func(ctx context.Context, input any) (any, error) {
		in := input.(echoInput)
		return echoOutput{Echo: in.ClauseID}, nil
	}
	prepare := func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
		return echoInput{ClauseID: clauseID}, nil
	}
	require.NoError(t, d.RegisterLocal(domain.SkillRegistration{SkillID: "echo", LocalHandler: "p.echo", Domain: "*"}, handler, prepare))

	result := d.PrepareAndCall(context.Background(), "echo", "3.2", nil, nil, nil)
	require.True(t, result.Success)
	assert.Equal(t, echoOutput{Echo: "3.2"}, result.Data)
}

func TestPrepareAndCallUnregisteredSkill(t *testing.T) {
	d := NewDispatcher(0)
	result := d.PrepareAndCall(context.Background(), "missing", "1", nil, nil, nil)
	assert.False(t, result.Success)
	assert.Equal(t, domain.ErrUnregisteredSkill.Error(), result.Error)
}

func TestPrepareAndCallHandlerErrorBecomesFailureResult(t *testing.T) {
	d := NewDispatcher(0)
	handler := func(ctx context.Context, input any) (any, error) { return nil, errors.New("boom") }
	require.NoError(t, d.RegisterLocal(domain.SkillRegistration{SkillID: "boom", LocalHandler: "p.boom", Domain: "*"}, handler, nil))

	result := d.PrepareAndCall(context.Background(), "boom", "1", nil, nil, nil)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
}

func TestPrepareAndCallPanicBecomesFailureResult(t *testing.T) {
	d := NewDispatcher(0)
	handler := func(ctx context.Context, input any) (any, error) { panic("kaboom") }
	require.NoError(t, d.RegisterLocal(domain.SkillRegistration{SkillID: "panicky", LocalHandler: "p.panicky", Domain: "*"}, handler, nil))

	assert.NotPanics(t, func() {
		result := d.PrepareAndCall(context.Background(), "panicky", "1", nil, nil, nil)
		assert.False(t, result.Success)
	})
}

type fakeWorkflowClient struct {
	polls int
}

func (f *fakeWorkflowClient) CallWorkflow(ctx context.Context, workflowID string, input any) (string, error) {
	return "task-1", nil
}

func (f *fakeWorkflowClient) PollStatus(ctx context.Context, taskID string) (any, bool, error) {
	f.polls++
	if f.polls < 2 {
		return nil, false, nil
	}
	return echoOutput{Echo: "done"}, true, nil
}

func TestPrepareAndCallRemoteExecutor(t *testing.T) {
	d := NewDispatcher(time.Millisecond)
	client := &fakeWorkflowClient{}
	require.NoError(t, d.RegisterRemote(domain.SkillRegistration{SkillID: "remote_skill", RemoteWorkflowID: "wf-1", Domain: "*"}, client, nil))

	result := d.PrepareAndCall(context.Background(), "remote_skill", "1", nil, nil, nil)
	require.True(t, result.Success)
	assert.Equal(t, echoOutput{Echo: "done"}, result.Data)
}
