package reactloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/skills"
)

// scriptedClient replays a fixed sequence of ChatWithTools turns.
type scriptedClient struct {
	turns []scriptedTurn
	i     int
}

type scriptedTurn struct {
	text      string
	toolCalls []llms.ToolCall
}

func (c *scriptedClient) Chat(ctx context.Context, messages []llms.Message, temperature float64, maxOutputTokens int) (string, error) {
	return "", nil
}

func (c *scriptedClient) ChatWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition, temperature float64) (string, []llms.ToolCall, error) {
	turn := c.turns[c.i]
	c.i++
	return turn.text, turn.toolCalls, nil
}

func (c *scriptedClient) ModelName() string { return "scripted" }
func (c *scriptedClient) Close() error      { return nil }

func registerEcho(t *testing.T, d *skills.Dispatcher, id string) {
	t.Helper()
	require.NoError(t, d.RegisterLocal(
		domain.SkillRegistration{SkillID: id, LocalHandler: "pkg.local." + id, Domain: "*", InputSchema: map[string]any{"type": "object"}},
		func(ctx context.Context, input any) (any, error) { return map[string]string{"ok": id}, nil },
		func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
			return clauseID, nil
		},
	))
}

func TestRunNoToolDefinitionsReturnsEmpty(t *testing.T) {
	d := skills.NewDispatcher(0)
	state := &domain.ReviewGraphState{DomainID: "fidic"}
	res, err := Run(context.Background(), &scriptedClient{}, d, nil, "1.1", nil, state, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Risks)
	assert.Empty(t, res.SkillContext)
}

func TestRunHappyPathTwoToolsThenRisks(t *testing.T) {
	d := skills.NewDispatcher(0)
	registerEcho(t, d, "get_clause_context")
	registerEcho(t, d, "compare_with_baseline")

	client := &scriptedClient{turns: []scriptedTurn{
		{toolCalls: []llms.ToolCall{{ID: "c1", Name: "get_clause_context", Arguments: map[string]any{}}}},
		{toolCalls: []llms.ToolCall{{ID: "c2", Name: "compare_with_baseline", Arguments: map[string]any{}}}},
		{text: `[{"risk_level":"high","description":"义务范围被扩大"}]`},
	}}

	state := &domain.ReviewGraphState{DomainID: "fidic"}
	messages := []llms.Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "user"}}

	res, err := Run(context.Background(), client, d, messages, "4.1", nil, state, Options{})
	require.NoError(t, err)
	require.Len(t, res.Risks, 1)
	assert.Equal(t, "high", res.Risks[0].RiskLevel)
	assert.Len(t, res.SkillContext, 2)
	// system, user, assistant(tools), tool, assistant(tools), tool, assistant(final) = 7
	assert.Len(t, res.Messages, 7)
}

func TestRunMaxIterationsExhaustedReturnsEmptyRisks(t *testing.T) {
	d := skills.NewDispatcher(0)
	registerEcho(t, d, "get_clause_context")

	turn := scriptedTurn{toolCalls: []llms.ToolCall{{ID: "c1", Name: "get_clause_context", Arguments: map[string]any{}}}}
	client := &scriptedClient{turns: []scriptedTurn{turn, turn, turn, turn, turn}}

	state := &domain.ReviewGraphState{DomainID: "fidic"}
	res, err := Run(context.Background(), client, d, []llms.Message{{Role: "user", Content: "u"}}, "1.1", nil, state, Options{MaxIterations: 5})
	require.NoError(t, err)
	assert.Empty(t, res.Risks)
	assert.NotEmpty(t, res.SkillContext)
}

func TestRunToolFailureSurfacesAsErrorPayloadAndContinues(t *testing.T) {
	d := skills.NewDispatcher(0)
	require.NoError(t, d.RegisterLocal(
		domain.SkillRegistration{SkillID: "boom", LocalHandler: "pkg.local.boom", Domain: "*"},
		func(ctx context.Context, input any) (any, error) { return nil, assertErr },
		func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
			return nil, nil
		},
	))

	client := &scriptedClient{turns: []scriptedTurn{
		{toolCalls: []llms.ToolCall{{ID: "c1", Name: "boom", Arguments: map[string]any{}}}},
		{text: `[]`},
	}}

	state := &domain.ReviewGraphState{DomainID: "fidic"}
	res, err := Run(context.Background(), client, d, []llms.Message{{Role: "user", Content: "u"}}, "1.1", nil, state, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Risks)
	assert.NotContains(t, res.SkillContext, "boom") // failed calls aren't recorded as successful context
}

var assertErr = domain.ErrParseFailure
