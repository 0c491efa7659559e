package instruction

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeState map[string]any

func (s fakeState) Get(key string) (any, error) {
	v, ok := s[key]
	if !ok {
		return nil, fmt.Errorf("state key not found: %s", key)
	}
	return v, nil
}

func TestRenderResolvesPlainAndPrefixedPlaceholders(t *testing.T) {
	state := fakeState{"clause_id": "5.1", "app:material_type": "construction"}
	tmpl := New("Review clause {clause_id} of a {app:material_type} contract.")

	out, err := tmpl.Render(state)
	require.NoError(t, err)
	assert.Equal(t, "Review clause 5.1 of a construction contract.", out)
}

func TestRenderOptionalPlaceholderMissingYieldsEmpty(t *testing.T) {
	out, err := InjectState(fakeState{}, "Notes: {notes?}")
	require.NoError(t, err)
	assert.Equal(t, "Notes: ", out)
}

func TestRenderRequiredPlaceholderMissingErrors(t *testing.T) {
	_, err := InjectState(fakeState{}, "Notes: {notes}")
	assert.Error(t, err)
}

func TestRenderInvalidIdentifierLeftLiteral(t *testing.T) {
	out, err := InjectState(fakeState{}, "{not a valid name}")
	require.NoError(t, err)
	assert.Equal(t, "{not a valid name}", out)
}

func TestListAndHasPlaceholders(t *testing.T) {
	assert.True(t, HasPlaceholders("{clause_id}"))
	assert.False(t, HasPlaceholders("no placeholders here"))
	assert.ElementsMatch(t, []string{"clause_id", "notes"}, ListPlaceholders("{clause_id} and {notes?}"))
}
