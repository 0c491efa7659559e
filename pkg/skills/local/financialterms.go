package local

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
)

// FinancialTerm is one quantity or deadline found in a clause's text.
type FinancialTerm struct {
	Kind            string `json:"kind"` // percentage | amount | duration | date | textual
	Value           string `json:"value"`
	SemanticMeaning string `json:"semantic_meaning,omitempty"`
}

// ExtractFinancialTermsInput is extract_financial_terms's handler input.
type ExtractFinancialTermsInput struct {
	ClauseID  string
	Structure *domain.DocumentStructure
	Client    llms.Client
}

// ExtractFinancialTermsOutput is extract_financial_terms's handler output.
type ExtractFinancialTermsOutput struct {
	Terms []FinancialTerm `json:"terms"`
}

var (
	percentageRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*%`)
	amountEnRe   = regexp.MustCompile(`[$£€¥]\s?\d[\d,]*(?:\.\d+)?`)
	amountZhRe   = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?\s*(?:元|人民币|万元)`)
	// No trailing \b: RE2 word boundaries are ASCII-only, so one after a
	// CJK unit would never match and drop every Chinese duration.
	durationRe = regexp.MustCompile(`(?i)\b\d+\s*(?:days?|months?|years?|天|日|个月|年)`)
	dateRe     = regexp.MustCompile(`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b`)
)

const financialTermsLLMYieldCap = 40

// ExtractFinancialTerms runs a regex phase over the clause text matching
// percentages, currency amounts (English symbol-prefixed, Chinese
// suffix-suffixed), durations, and dates; when a client is available, an
// LLM phase supplements with textual quantity expressions and a
// semantic_meaning tag, deduplicating by normalized value string. Any LLM
// failure degrades silently to the regex-only result.
func ExtractFinancialTerms(ctx context.Context, input any) (any, error) {
	in := input.(ExtractFinancialTermsInput)

	var text string
	if node := in.Structure.FindClause(in.ClauseID); node != nil {
		text = node.FullText()
	}

	seen := make(map[string]bool)
	var terms []FinancialTerm
	add := func(kind, value string) {
		key := normalize(value)
		if seen[key] {
			return
		}
		seen[key] = true
		terms = append(terms, FinancialTerm{Kind: kind, Value: value})
	}

	for _, m := range percentageRe.FindAllString(text, -1) {
		add("percentage", m)
	}
	for _, m := range amountEnRe.FindAllString(text, -1) {
		add("amount", m)
	}
	for _, m := range amountZhRe.FindAllString(text, -1) {
		add("amount", m)
	}
	for _, m := range durationRe.FindAllString(text, -1) {
		add("duration", m)
	}
	for _, m := range dateRe.FindAllString(text, -1) {
		add("date", m)
	}

	if in.Client != nil {
		if llmTerms, ok := callFinancialTermsLLM(ctx, in.Client, text); ok {
			yielded := 0
			for _, t := range llmTerms {
				if yielded >= financialTermsLLMYieldCap {
					break
				}
				key := normalize(t.Value)
				if seen[key] {
					continue
				}
				seen[key] = true
				terms = append(terms, t)
				yielded++
			}
		}
	}

	return ExtractFinancialTermsOutput{Terms: terms}, nil
}

type llmFinancialTerm struct {
	Value           string `json:"value"`
	SemanticMeaning string `json:"semantic_meaning"`
}

func callFinancialTermsLLM(ctx context.Context, client llms.Client, text string) ([]FinancialTerm, bool) {
	prompt := "Find financial or time quantities expressed in words rather than digits/symbols in this contract clause " +
		"(e.g. \"twice the Contract Price\", \"合同总价的百分之五\"), and tag each with a short semantic_meaning.\n\n" +
		`Respond with a single JSON object: {"terms": [{"value": string, "semantic_meaning": string}]}` +
		"\n\nClause text:\n" + truncate(text, 4000)

	messages := []llms.Message{{Role: "user", Content: prompt}}
	reply, err := client.Chat(ctx, messages, 0.1, 800)
	if err != nil {
		return nil, false
	}
	raw, ok := llms.ExtractJSON(reply)
	if !ok {
		return nil, false
	}
	var resp struct {
		Terms []llmFinancialTerm `json:"terms"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	out := make([]FinancialTerm, 0, len(resp.Terms))
	for _, t := range resp.Terms {
		if strings.TrimSpace(t.Value) == "" {
			continue
		}
		out = append(out, FinancialTerm{Kind: "textual", Value: t.Value, SemanticMeaning: t.SemanticMeaning})
	}
	return out, true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// NewExtractFinancialTermsPreparer builds extract_financial_terms's
// prepare-input hook closed over an llms.Client, since the dispatcher's
// PrepareInputFunc signature carries no LLM reference.
func NewExtractFinancialTermsPreparer(client llms.Client) func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
	return func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
		return ExtractFinancialTermsInput{ClauseID: clauseID, Structure: primary, Client: client}, nil
	}
}
