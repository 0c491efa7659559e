package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChineseNumeralToInt(t *testing.T) {
	cases := map[string]int{
		"一":   1,
		"九":   9,
		"十":   10,
		"十九":  19,
		"二十":  20,
		"二十三": 23,
		"九十九": 99,
	}
	for in, want := range cases {
		got, ok := ChineseNumeralToInt(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ChineseNumeralToInt("abc")
	assert.False(t, ok)
}

func TestExtractCrossReferencesDeterministic(t *testing.T) {
	clauseIDs := map[string]struct{}{"5": {}, "3": {}}

	refs1 := ExtractCrossReferences("See Article 5 and 第三条", "1", clauseIDs, nil)
	refs2 := ExtractCrossReferences("See Article 5 and 第三条", "1", clauseIDs, nil)
	require.Equal(t, len(refs1), len(refs2))
	assert.Len(t, refs1, 2)

	targets := map[string]bool{}
	for _, r := range refs1 {
		targets[r.TargetClauseID] = true
		require.NotNil(t, r.IsValid)
		assert.True(t, *r.IsValid)
	}
	assert.True(t, targets["5"])
	assert.True(t, targets["3"])
}

func TestExtractCrossReferencesDropsSelfReference(t *testing.T) {
	clauseIDs := map[string]struct{}{"5": {}}
	refs := ExtractCrossReferences("See Article 5", "5", clauseIDs, nil)
	assert.Empty(t, refs)
}

func TestExtractCrossReferencesChineseNumeralBoundary(t *testing.T) {
	clauseIDs := map[string]struct{}{"99": {}}
	refs := ExtractCrossReferences("第九十九条", "1", clauseIDs, nil)
	require.Len(t, refs, 1)
	assert.Equal(t, "99", refs[0].TargetClauseID)
}

func TestExtractDefinitionsFirstMatchWins(t *testing.T) {
	text := `"Employer" means the party named in Appendix A. Later, "Employer" refers to someone else.`
	defs := ExtractDefinitions(text)
	require.Len(t, defs, 1)
	assert.Equal(t, "Employer", defs[0].Term)
	assert.Equal(t, "regex", string(defs[0].Source))
}

func TestExtractDefinitionsInlineParty(t *testing.T) {
	text := `ABC Construction Co., Ltd. (以下简称"承包商") shall perform the works.`
	defs := ExtractDefinitions(text)
	require.Len(t, defs, 1)
	assert.Equal(t, "承包商", defs[0].Term)
	assert.Equal(t, 0.9, defs[0].Confidence)
}

func TestCompileExtraPatternsSkipsInvalid(t *testing.T) {
	extra := CompileExtraPatterns([]string{`\d+`, `(unterminated`})
	assert.Len(t, extra, 1)
}

func TestExtractionIsPure(t *testing.T) {
	clauseIDs := map[string]struct{}{"5": {}}
	text := "See Clause 5 for details."
	a := ExtractCrossReferences(text, "1", clauseIDs, nil)
	b := ExtractCrossReferences(text, "1", clauseIDs, nil)
	require.Equal(t, len(a), len(b))
	assert.Equal(t, a[0].TargetClauseID, b[0].TargetClauseID)
}
