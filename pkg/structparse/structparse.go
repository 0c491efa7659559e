// Package structparse splits raw document text into a clause tree using a
// detected or default DocumentParserConfig, with no LLM involvement.
package structparse

import (
	"regexp"
	"strings"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/patterns"
)

const titleMaxLen = 100

// LoadedDocument is the input text plus its source path.
type LoadedDocument struct {
	Text string
	Path string
}

// match is one clause-pattern hit.
type match struct {
	clauseID string
	start    int
}

// Parse builds a DocumentStructure from doc using cfg. A nil cfg falls
// back to domain.DefaultFallbackConfig().
func Parse(documentID string, doc LoadedDocument, cfg *domain.DocumentParserConfig) (*domain.DocumentStructure, error) {
	if cfg == nil {
		cfg = domain.DefaultFallbackConfig()
	}
	maxDepth := domain.ClampMaxDepth(cfg.MaxDepth)

	re, err := regexp.Compile(cfg.ClausePattern)
	if err != nil {
		re = regexp.MustCompile(domain.DefaultFallbackConfig().ClausePattern)
	}

	matches := findMatches(re, doc.Text)
	roots := buildTree(matches, doc.Text, maxDepth)

	structure := &domain.DocumentStructure{
		DocumentID:    documentID,
		StructureType: cfg.StructureType,
		Clauses:       roots,
		Definitions:   make(map[string]string),
	}

	if cfg.DefinitionsSectionID != "" {
		if node := domain.FindInForest(roots, cfg.DefinitionsSectionID); node != nil {
			defs := patterns.ExtractDefinitions(node.FullText())
			for _, d := range defs {
				d.SourceClauseID = cfg.DefinitionsSectionID
				structure.Definitions[d.Term] = d.DefinitionText
			}
			structure.DefinitionsV2 = defs
		}
	}

	clauseIDs := domain.ClauseIDSet(roots)
	extra := patterns.CompileExtraPatterns(cfg.CrossReferencePatterns)
	var allRefs []*domain.CrossReference
	var walk func(n *domain.ClauseNode)
	walk = func(n *domain.ClauseNode) {
		refs := patterns.ExtractCrossReferences(n.Text, n.ClauseID, clauseIDs, extra)
		allRefs = append(allRefs, refs...)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	structure.CrossReferences = allRefs

	structure.TotalClauses = domain.TotalClauses(roots)
	return structure, structure.Validate()
}

func findMatches(re *regexp.Regexp, text string) []match {
	idx := re.FindAllStringSubmatchIndex(text, -1)
	var out []match
	for _, m := range idx {
		group := 1
		if group*2+1 >= len(m) || m[group*2] < 0 {
			group = 0
		}
		out = append(out, match{
			clauseID: text[m[group*2]:m[group*2+1]],
			start:    m[0],
		})
	}
	return out
}

// levelOf counts dot-separated non-empty parts: "1" -> 0, "1.1" -> 1, etc.,
// capped at maxDepth-1.
func levelOf(clauseID string, maxDepth int) int {
	parts := strings.FieldsFunc(clauseID, func(r rune) bool { return r == '.' })
	level := len(parts) - 1
	if level < 0 {
		level = 0
	}
	if level > maxDepth-1 {
		level = maxDepth - 1
	}
	return level
}

func buildTree(matches []match, text string, maxDepth int) []*domain.ClauseNode {
	if len(matches) == 0 {
		return nil
	}

	type stackEntry struct {
		node *domain.ClauseNode
	}
	var roots []*domain.ClauseNode
	var stack []stackEntry

	for i, m := range matches {
		segEnd := len(text)
		if i+1 < len(matches) {
			segEnd = matches[i+1].start
		}
		segment := text[m.start:segEnd]
		level := levelOf(m.clauseID, maxDepth)
		title := extractTitle(segment, m.clauseID)

		node := &domain.ClauseNode{
			ClauseID:    m.clauseID,
			Title:       title,
			Level:       level,
			Text:        segment,
			StartOffset: m.start,
			EndOffset:   segEnd,
		}

		for len(stack) > 0 && stack[len(stack)-1].node.Level >= level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, stackEntry{node: node})
	}

	return roots
}

// extractTitle strips the clause-id prefix from the first line of segment;
// if that line exceeds 100 characters, treat it as having no title.
func extractTitle(segment, clauseID string) string {
	firstLine := segment
	if idx := strings.IndexByte(segment, '\n'); idx >= 0 {
		firstLine = segment[:idx]
	}
	if len([]rune(firstLine)) > titleMaxLen {
		return ""
	}
	title := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(firstLine), clauseID))
	title = strings.TrimLeft(title, ".:：、 \t")
	return title
}

// ParseClauseLevel is exported for callers (e.g. the smart parser fallback
// table evaluator) that need level math without a full parse.
func ParseClauseLevel(clauseID string, maxDepth int) int {
	return levelOf(clauseID, maxDepth)
}
