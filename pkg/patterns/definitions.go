package patterns

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/clausereview/engine/pkg/domain"
)

// DefinitionRule is one named definition-syntax detection rule.
type DefinitionRule struct {
	Name        string
	Regex       *regexp.Regexp
	TermGroup   int
	DefGroup    int // 0 means "rest of matched sentence" (inline-party rules)
	Language    string
	Confidence  float64
	InlineParty bool
}

// quoted matches a double- or single-quoted or CJK-quoted term.
const quoted = `["'“”‘’]([^"'“”‘’]{1,50})["'“”‘’]`

// DefinitionRules is the built-in catalog: 11+ named rules spanning English
// and Chinese definition syntax, including the two inline-party forms.
var DefinitionRules = []DefinitionRule{
	{Name: "en_means", Regex: regexp.MustCompile(quoted + `\s+means\b`), TermGroup: 1, Language: "en", Confidence: 1.0},
	{Name: "en_shall_mean", Regex: regexp.MustCompile(quoted + `\s+shall\s+mean\b`), TermGroup: 1, Language: "en", Confidence: 1.0},
	{Name: "en_refers_to", Regex: regexp.MustCompile(quoted + `\s+refers\s+to\b`), TermGroup: 1, Language: "en", Confidence: 1.0},
	{Name: "en_is_defined_as", Regex: regexp.MustCompile(quoted + `\s+is\s+defined\s+as\b`), TermGroup: 1, Language: "en", Confidence: 1.0},
	{Name: "en_hereinafter", Regex: regexp.MustCompile(`hereinafter\s+referred\s+to\s+as\s+` + quoted), TermGroup: 1, Language: "en", Confidence: 1.0},

	{Name: "zh_zhi", Regex: regexp.MustCompile(quoted + `\s*指\b`), TermGroup: 1, Language: "zh", Confidence: 1.0},
	{Name: "zh_shizhi", Regex: regexp.MustCompile(quoted + `\s*是指\b`), TermGroup: 1, Language: "zh", Confidence: 1.0},
	{Name: "zh_xizhi", Regex: regexp.MustCompile(quoted + `\s*系指\b`), TermGroup: 1, Language: "zh", Confidence: 1.0},
	{Name: "zh_colon", Regex: regexp.MustCompile(quoted + `\s*[:：]`), TermGroup: 1, Language: "zh", Confidence: 1.0},
	{Name: "zh_ji", Regex: regexp.MustCompile(quoted + `\s*[,，]\s*即\b`), TermGroup: 1, Language: "zh", Confidence: 1.0},

	{Name: "zh_inline_abbrev", Regex: regexp.MustCompile(`([^（(]{2,60})[（(]以下简称\s*` + quoted + `[）)]`), TermGroup: 2, Language: "zh", Confidence: 0.9, InlineParty: true},
	{Name: "zh_inline_party", Regex: regexp.MustCompile(`([^（(]{2,60})[（(]以下(?:称|简称)\s*` + quoted + `[）)]`), TermGroup: 2, Language: "zh", Confidence: 0.9, InlineParty: true},
}

// ExtractDefinitions scans text for definition matches using the built-in
// catalog. Rules are applied in order; the first match for a given
// normalized term wins; later rules never override an earlier match.
func ExtractDefinitions(text string) []*domain.DefinitionEntry {
	seen := make(map[string]bool)
	var out []*domain.DefinitionEntry

	for _, rule := range DefinitionRules {
		for _, m := range rule.Regex.FindAllStringSubmatchIndex(text, -1) {
			group := rule.TermGroup
			if group*2+1 >= len(m) || m[group*2] < 0 {
				continue
			}
			term := strings.TrimSpace(text[m[group*2]:m[group*2+1]])
			key := NormalizeKey(term)
			if key == "" || seen[key] {
				continue
			}

			defText := sentenceAround(text, m[0], m[1])
			if rule.InlineParty {
				// The "definition" of an inline-party abbreviation is the
				// full party name preceding the parenthetical.
				if 1*2+1 < len(m) && m[2] >= 0 {
					defText = strings.TrimSpace(text[m[2]:m[3]])
				}
			}

			entry := &domain.DefinitionEntry{
				Term:           term,
				DefinitionText: defText,
				Source:         domain.DefinitionSourceRegex,
				Confidence:     rule.Confidence,
			}
			if entry.DefinitionText == "" {
				continue
			}
			seen[key] = true
			out = append(out, entry)
		}
	}

	return out
}

// sentenceTerminators are the boundaries sentenceAround scans for: the
// ASCII full stop, newline, and the CJK full stop.
const sentenceTerminators = ".\n。"

// sentenceAround returns the sentence containing the match [start,end),
// bounded by the nearest sentence terminators, used as the definition text
// for non-inline-party rules. The terminator set includes a multi-byte
// rune, so boundaries are located with IndexAny rather than byte scans.
func sentenceAround(text string, start, end int) string {
	lo := 0
	if i := strings.LastIndexAny(text[:start], sentenceTerminators); i >= 0 {
		_, w := utf8.DecodeRuneInString(text[i:])
		lo = i + w
	}
	hi := len(text)
	if i := strings.IndexAny(text[end:], sentenceTerminators); i >= 0 {
		_, w := utf8.DecodeRuneInString(text[end+i:])
		hi = end + i + w
	}
	return strings.TrimSpace(text[lo:hi])
}
