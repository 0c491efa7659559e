package local

import (
	"context"
	"regexp"
	"strings"

	"github.com/clausereview/engine/pkg/domain"
)

// ResolveDefinitionInput is resolve_definition's handler input.
type ResolveDefinitionInput struct {
	ClauseID  string
	Structure *domain.DocumentStructure
	Terms     []string
}

// ResolveDefinitionOutput is resolve_definition's handler output.
type ResolveDefinitionOutput struct {
	Found    map[string]*domain.DefinitionEntry `json:"found"`
	NotFound []string                           `json:"not_found"`
}

var quotedTermRe = regexp.MustCompile(`["'“”‘’]([^"'“”‘’]{2,50})["'“”‘’]`)

// ResolveDefinition looks up the given terms (or, if none supplied, every
// quoted term found in the clause's own text) against the document's
// definitions, preferring DefinitionsV2 (with alias matching) over the
// plain Definitions map. Matching is case-insensitive after quote-strip
// normalization.
func ResolveDefinition(ctx context.Context, input any) (any, error) {
	in := input.(ResolveDefinitionInput)

	terms := in.Terms
	if len(terms) == 0 {
		node := in.Structure.FindClause(in.ClauseID)
		if node != nil {
			terms = extractQuotedTerms(node.Text)
		}
	}

	found := make(map[string]*domain.DefinitionEntry)
	var notFound []string

	for _, term := range terms {
		key := normalize(term)
		if entry := lookupV2(in.Structure, key); entry != nil {
			found[term] = entry
			continue
		}
		if text, ok := lookupLegacy(in.Structure, key); ok {
			found[term] = &domain.DefinitionEntry{Term: term, DefinitionText: text, Source: domain.DefinitionSourceManual, Confidence: 1.0}
			continue
		}
		notFound = append(notFound, term)
	}

	return ResolveDefinitionOutput{Found: found, NotFound: notFound}, nil
}

func extractQuotedTerms(text string) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, m := range quotedTermRe.FindAllStringSubmatch(text, -1) {
		term := strings.TrimSpace(m[1])
		key := normalize(term)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, term)
	}
	return terms
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'“”‘’`)
	return strings.ToLower(s)
}

func lookupV2(structure *domain.DocumentStructure, key string) *domain.DefinitionEntry {
	if structure == nil {
		return nil
	}
	for _, entry := range structure.DefinitionsV2 {
		if normalize(entry.Term) == key {
			return entry
		}
		for _, alias := range entry.Aliases {
			if normalize(alias) == key {
				return entry
			}
		}
	}
	return nil
}

func lookupLegacy(structure *domain.DocumentStructure, key string) (string, bool) {
	if structure == nil {
		return "", false
	}
	for term, text := range structure.Definitions {
		if normalize(term) == key {
			return text, true
		}
	}
	return "", false
}

// PrepareResolveDefinitionInput derives ResolveDefinitionInput from graph
// state; llmArgs may supply an explicit "terms" list.
func PrepareResolveDefinitionInput(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
	var terms []string
	if raw, ok := llmArgs["terms"].([]any); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				terms = append(terms, s)
			}
		}
	}
	return ResolveDefinitionInput{ClauseID: clauseID, Structure: primary, Terms: terms}, nil
}
