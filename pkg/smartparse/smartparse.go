// Package smartparse asks an LLM to infer a DocumentParserConfig from a
// leading sample of an uploaded contract, then validates and repairs that
// guess against the full document text before the structure parser ever
// sees it. Every failure mode is absorbed here: a missing LLM, a
// non-compiling pattern, a pattern that barely matches anything, all fall
// back to a plugin-supplied existing config or the numeric-dotted default.
// The function never returns an error; it always returns a usable config.
package smartparse

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
)

const (
	sampleLength        = 6000
	llmTemperature      = 0
	llmMaxOutputTokens  = 500
	minAcceptableMatches = 3
	existingConfigMargin = 1.5
	weakConfidenceCutoff = 0.8
)

// llmResponse mirrors the JSON object the prompt asks the model to produce.
type llmResponse struct {
	ClausePattern          string   `json:"clause_pattern"`
	ChapterPattern         string   `json:"chapter_pattern"`
	StructureType          string   `json:"structure_type"`
	MaxDepth               int      `json:"max_depth"`
	Confidence             float64  `json:"confidence"`
	DefinitionsSectionID   string   `json:"definitions_section_id"`
	CrossReferencePatterns []string `json:"cross_reference_patterns"`
}

// candidate is one clause_pattern candidate considered during the
// match-count picking step.
type candidate struct {
	source  string
	pattern string
	matches int
}

// fallbackRule is one entry of the five-rule fallback table.
type fallbackRule struct {
	name    string
	pattern string
}

var fallbackTable = []fallbackRule{
	{"numeric_dotted", `(?m)^(\d+(?:\.\d+)*)\s`},
	{"chinese_article_word", `(?m)^第[一二三四五六七八九十百]+条\s*`},
	{"chinese_article_digit", `(?m)^第\d+条\s*`},
	{"article_n", `(?m)^Article\s+\d+`},
	{"section_n", `(?m)^Section\s+\d+`},
}

// Infer derives a DocumentParserConfig for document from sample (expected to
// be document's leading sampleLength characters, but callers may pass a
// shorter sample for small documents). existingConfig, if non-nil, is a
// plugin-supplied preset that wins over a weakly-confident LLM guess and
// always wins on definitions_section_id. client may be nil, in which case
// the LLM step is skipped entirely.
func Infer(ctx context.Context, client llms.Client, sample, document string, existingConfig *domain.DocumentParserConfig) *domain.DocumentParserConfig {
	if sample == "" {
		if existingConfig != nil {
			return existingConfig
		}
		return domain.DefaultFallbackConfig()
	}

	resp, ok := callLLM(ctx, client, sample)
	if !ok {
		if existingConfig != nil {
			return existingConfig
		}
		return domain.DefaultFallbackConfig()
	}

	clauseRe, ok := compileMultiline(resp.ClausePattern)
	if !ok {
		slog.Warn("smartparse: llm clause_pattern failed to compile, falling back", "pattern", resp.ClausePattern)
		if existingConfig != nil {
			return existingConfig
		}
		return domain.DefaultFallbackConfig()
	}

	llmMatches := len(clauseRe.FindAllStringIndex(document, -1))

	finalPattern := resp.ClausePattern
	finalStructureType := resp.StructureType
	finalMatches := llmMatches

	if llmMatches < minAcceptableMatches {
		best := pickFallbackPattern(document, resp.ClausePattern, llmMatches, existingConfig)
		finalPattern = best.pattern
		finalMatches = best.matches
		if best.source != "llm" {
			finalStructureType = best.source
		}
	}

	if existingConfig != nil {
		existingMatches := countMatches(document, existingConfig.ClausePattern)
		if float64(existingMatches) >= float64(finalMatches)*existingConfigMargin && resp.Confidence < weakConfidenceCutoff {
			return withDefinitionsOverride(existingConfig, existingConfig)
		}
	}

	maxDepth := resp.MaxDepth
	if maxDepth == 0 {
		maxDepth = domain.MaxParserDepth
	}

	cfg := &domain.DocumentParserConfig{
		ClausePattern:          finalPattern,
		ChapterPattern:         resp.ChapterPattern,
		DefinitionsSectionID:   resp.DefinitionsSectionID,
		MaxDepth:               domain.ClampMaxDepth(maxDepth),
		StructureType:          finalStructureType,
		CrossReferencePatterns: validateExtraPatterns(resp.CrossReferencePatterns),
		Confidence:             resp.Confidence,
	}
	if cfg.StructureType == "" {
		cfg.StructureType = "numeric_dotted"
	}

	return withDefinitionsOverride(cfg, existingConfig)
}

// withDefinitionsOverride honors the plugin's definitions_section_id over
// any LLM-detected value.
func withDefinitionsOverride(cfg, existingConfig *domain.DocumentParserConfig) *domain.DocumentParserConfig {
	if existingConfig != nil && existingConfig.DefinitionsSectionID != "" {
		cfg.DefinitionsSectionID = existingConfig.DefinitionsSectionID
	}
	return cfg
}

func callLLM(ctx context.Context, client llms.Client, sample string) (*llmResponse, bool) {
	if client == nil {
		return nil, false
	}
	if r := []rune(sample); len(r) > sampleLength {
		sample = string(r[:sampleLength])
	}

	messages := []llms.Message{
		{Role: "system", Content: smartParseSystemPrompt},
		{Role: "user", Content: sample},
	}

	text, err := client.Chat(ctx, messages, llmTemperature, llmMaxOutputTokens)
	if err != nil {
		slog.Warn("smartparse: llm call failed", "error", err)
		return nil, false
	}

	raw, ok := llms.ExtractJSON(text)
	if !ok {
		slog.Warn("smartparse: could not extract JSON from llm response")
		return nil, false
	}

	var resp llmResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("smartparse: malformed llm response JSON", "error", err)
		return nil, false
	}
	if resp.ClausePattern == "" {
		return nil, false
	}
	return &resp, true
}

const smartParseSystemPrompt = `You analyze a leading sample of a legal contract and infer how it is structured into numbered clauses.

Respond with a single JSON object with these fields:
- clause_pattern: a Python-style regular expression matching a clause heading at the start of a line
- chapter_pattern: an optional regular expression matching a chapter/section heading
- structure_type: a short tag describing the numbering scheme (e.g. "numeric_dotted", "article_based")
- max_depth: an integer 1..6, the deepest nesting level the pattern can express
- confidence: a float 0..1, your confidence that clause_pattern is correct
- definitions_section_id: the clause_id of the definitions section, if any
- cross_reference_patterns: a list of extra regular expressions matching non-standard cross-reference forms in this document

Respond with JSON only.`

func compileMultiline(pattern string) (*regexp.Regexp, bool) {
	if pattern == "" {
		return nil, false
	}
	re, err := regexp.Compile(`(?m)` + pattern)
	if err != nil {
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, false
		}
	}
	return re, true
}

func countMatches(document, pattern string) int {
	re, ok := compileMultiline(pattern)
	if !ok {
		return 0
	}
	return len(re.FindAllStringIndex(document, -1))
}

// pickFallbackPattern resolves a weak LLM guess: when the LLM pattern
// matched fewer than minAcceptableMatches times, try the LLM pattern, the
// existing config, and each of the five fallback-table rules, and keep
// whichever has the most matches (ties resolved toward the more specific,
// i.e. earlier-listed, candidate).
func pickFallbackPattern(document, llmPattern string, llmMatches int, existingConfig *domain.DocumentParserConfig) candidate {
	best := candidate{source: "llm", pattern: llmPattern, matches: llmMatches}

	if existingConfig != nil {
		m := countMatches(document, existingConfig.ClausePattern)
		if m > best.matches {
			best = candidate{source: "existing_config", pattern: existingConfig.ClausePattern, matches: m}
		}
	}

	for _, rule := range fallbackTable {
		m := countMatches(document, rule.pattern)
		if m >= minAcceptableMatches && m > best.matches {
			best = candidate{source: rule.name, pattern: rule.pattern, matches: m}
		}
	}

	return best
}

// validateExtraPatterns compiles and drops invalid cross-reference pattern
// candidates. Group-0 fallback for capture-less
// patterns is handled downstream by patterns.CompileExtraPatterns at
// extraction time; here we only filter compile failures so
// DocumentParserConfig never carries an unusable regex string.
func validateExtraPatterns(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if _, err := regexp.Compile(r); err == nil {
			out = append(out, r)
		}
	}
	return out
}
