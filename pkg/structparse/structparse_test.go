package structparse

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/domain"
)

// clauseIDAsInt sanity-checks that a clause id segment is numeric.
func clauseIDAsInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func TestParseBuildsHierarchicalTree(t *testing.T) {
	text := "1 General\nsome text\n1.1 Definitions\nmore text\n1.2 Scope\nscope text\n2 Payment\npayment text\n"
	cfg := domain.DefaultFallbackConfig()

	structure, err := Parse("doc1", LoadedDocument{Text: text}, cfg)
	require.NoError(t, err)
	require.Len(t, structure.Clauses, 2)

	assert.Equal(t, "1", structure.Clauses[0].ClauseID)
	require.Len(t, structure.Clauses[0].Children, 2)
	assert.Equal(t, "1.1", structure.Clauses[0].Children[0].ClauseID)
	assert.Equal(t, 1, structure.Clauses[0].Children[0].Level)
	assert.Equal(t, 0, structure.Clauses[0].Level)

	assert.Equal(t, domain.TotalClauses(structure.Clauses), structure.TotalClauses)

	for _, root := range structure.Clauses {
		_, err := clauseIDAsInt(root.ClauseID)
		assert.NoError(t, err, "top-level clause id %q should be numeric", root.ClauseID)
	}
}

func TestParseEmptyDocumentYieldsZeroClauses(t *testing.T) {
	structure, err := Parse("doc-empty", LoadedDocument{Text: ""}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, structure.TotalClauses)
	assert.Empty(t, structure.Clauses)
}

func TestExtractTitleDropsOverlongFirstLine(t *testing.T) {
	longLine := "1 " + string(make([]byte, 150))
	title := extractTitle(longLine, "1")
	assert.Equal(t, "", title)
}

func TestParseWithDefinitionsSection(t *testing.T) {
	text := "1 Definitions\n\"Employer\" means the party named herein.\n2 Payment\ntext\n"
	cfg := domain.DefaultFallbackConfig()
	cfg.DefinitionsSectionID = "1"

	structure, err := Parse("doc2", LoadedDocument{Text: text}, cfg)
	require.NoError(t, err)
	require.Contains(t, structure.Definitions, "Employer")
	require.Len(t, structure.DefinitionsV2, 1)
	assert.Equal(t, "1", structure.DefinitionsV2[0].SourceClauseID)
}
