package extract

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/patterns"
)

const (
	definitionsFocusCharLimit = 8000
	definitionsLLMYieldCap   = 60
)

type llmDefinition struct {
	Term           string  `json:"term"`
	DefinitionText string  `json:"definition_text"`
	Confidence     float64 `json:"confidence"`
	SourceClauseID string  `json:"source_clause_id"`
}

type llmDefinitionsResponse struct {
	Definitions []llmDefinition `json:"definitions"`
	Confidence  float64         `json:"confidence"`
}

// Definitions runs the three-phase hybrid definition extractor.
//
// Phase A runs the regex catalog over definitionsSectionText (the narrow
// definitions-section text, or the whole document if no section was
// identified). Phase B runs the same regex catalog's inline-party rules
// over fullDocumentText, since abbreviation definitions ("X (以下简称"T")")
// are scattered throughout a contract rather than confined to one section.
// Phase C, when client is non-nil, asks an LLM to supplement both passes
// from a bounded focus slice.
func Definitions(ctx context.Context, client llms.Client, definitionsSectionText, fullDocumentText string) []*domain.DefinitionEntry {
	seen := make(map[string]bool)
	var out []*domain.DefinitionEntry

	addAll := func(entries []*domain.DefinitionEntry) {
		for _, e := range entries {
			key := patterns.NormalizeKey(e.Term)
			if key == "" || seen[key] {
				continue
			}
			if !validateDefinition(e) {
				continue
			}
			e.Truncate()
			seen[key] = true
			out = append(out, e)
		}
	}

	// Phase A: regex over the definitions-section text.
	addAll(patterns.ExtractDefinitions(definitionsSectionText))

	// Phase B: inline-party sweep over the full document. ExtractDefinitions
	// already includes the inline-party rules in its catalog, so running it
	// again over the full text picks up abbreviations declared outside the
	// definitions section; entries already seen from Phase A are skipped by
	// the dedup above.
	if fullDocumentText != definitionsSectionText {
		addAll(patterns.ExtractDefinitions(fullDocumentText))
	}

	// Phase C: LLM supplement.
	if client != nil {
		focus := definitionsSectionText
		if focus == "" {
			focus = fullDocumentText
		}
		focus = truncate(focus, definitionsFocusCharLimit)

		if llmEntries, ok := callDefinitionsLLM(ctx, client, focus); ok {
			yielded := 0
			for _, e := range llmEntries {
				if yielded >= definitionsLLMYieldCap {
					break
				}
				key := patterns.NormalizeKey(e.Term)
				if key == "" || seen[key] {
					continue
				}
				if !validateDefinition(e) {
					continue
				}
				e.Truncate()
				seen[key] = true
				out = append(out, e)
				yielded++
			}
		}
	}

	return out
}

func validateDefinition(e *domain.DefinitionEntry) bool {
	if n := utf8.RuneCountInString(e.Term); n < 2 || n > 50 {
		return false
	}
	if utf8.RuneCountInString(e.DefinitionText) < 4 {
		return false
	}
	return true
}

func callDefinitionsLLM(ctx context.Context, client llms.Client, focusText string) ([]*domain.DefinitionEntry, bool) {
	prompt := definitionsPrompt(focusText)
	raw, ok := callLLMForJSON(ctx, client, prompt)
	if !ok {
		return nil, false
	}

	var resp llmDefinitionsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}

	out := make([]*domain.DefinitionEntry, 0, len(resp.Definitions))
	for _, d := range resp.Definitions {
		confidence := d.Confidence
		if confidence == 0 {
			confidence = 0.7
		}
		out = append(out, &domain.DefinitionEntry{
			Term:           d.Term,
			DefinitionText: d.DefinitionText,
			Source:         domain.DefinitionSourceLLM,
			Confidence:     confidence,
			SourceClauseID: d.SourceClauseID,
		})
	}
	return out, true
}

func definitionsPrompt(focusText string) string {
	return "Identify defined terms in this contract excerpt that a plain regex scan " +
		"for quoted-term definition phrases would miss (paraphrased definitions, " +
		"multi-sentence definitions, terms defined by cross-reference).\n\n" +
		"Respond with a single JSON object: " +
		`{"definitions": [{"term": string, "definition_text": string, "confidence": number, "source_clause_id": string}], "confidence": number}` +
		"\n\nExcerpt:\n" + focusText
}
