// Package patterns holds the stateless regex pattern catalogs for clause
// numbering, definition syntax, and cross-reference syntax.
// Every exported function here is pure: identical input always yields
// identical output.
package patterns

import (
	"regexp"
	"strings"

	"github.com/clausereview/engine/pkg/domain"
)

// CrossRefRule is one named cross-reference detection rule.
type CrossRefRule struct {
	Name          string
	Regex         *regexp.Regexp
	TargetGroup   int
	ReferenceType domain.ReferenceType
	Language      string // "en" | "zh"
	Confidence    float64
}

// CrossRefRules is the built-in catalog: 15+ named rules spanning English
// and Chinese clause/article/section/appendix forms.
var CrossRefRules = []CrossRefRule{
	{Name: "en_clause", Regex: regexp.MustCompile(`(?i)\bSub-?Clause\s+(\d+(?:\.\d+)*)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeClause, Language: "en", Confidence: 1.0},
	{Name: "en_clause_bare", Regex: regexp.MustCompile(`(?i)\bClause\s+(\d+(?:\.\d+)*)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeClause, Language: "en", Confidence: 1.0},
	{Name: "en_article", Regex: regexp.MustCompile(`(?i)\bArticle\s+(\d+(?:\.\d+)*)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeArticle, Language: "en", Confidence: 1.0},
	{Name: "en_section", Regex: regexp.MustCompile(`(?i)\bSection\s+(\d+(?:\.\d+)*)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeSection, Language: "en", Confidence: 1.0},
	{Name: "en_paragraph", Regex: regexp.MustCompile(`(?i)\bParagraph\s+(\d+(?:\.\d+)*)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeParagraph, Language: "en", Confidence: 1.0},
	{Name: "en_section_symbol", Regex: regexp.MustCompile(`§\s*(\d+(?:\.\d+)*)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeSection, Language: "en", Confidence: 1.0},
	{Name: "en_appendix", Regex: regexp.MustCompile(`(?i)\bAppendix\s+([A-Z0-9]+(?:\.\d+)*)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeAppendix, Language: "en", Confidence: 1.0},
	{Name: "en_schedule", Regex: regexp.MustCompile(`(?i)\bSchedule\s+([A-Z0-9]+(?:\.\d+)*)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeSchedule, Language: "en", Confidence: 1.0},
	{Name: "en_annex", Regex: regexp.MustCompile(`(?i)\bAnnex\s+([A-Z0-9]+(?:\.\d+)*)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeAnnex, Language: "en", Confidence: 1.0},

	{Name: "zh_article_arabic", Regex: regexp.MustCompile(`第\s*(\d+(?:\.\d+)*)\s*条`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeArticle, Language: "zh", Confidence: 1.0},
	{Name: "zh_article_cjk", Regex: regexp.MustCompile(`第([一二三四五六七八九十两]+)条`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeArticle, Language: "zh", Confidence: 1.0},
	{Name: "zh_paragraph_arabic", Regex: regexp.MustCompile(`第\s*(\d+)\s*款`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeParagraph, Language: "zh", Confidence: 1.0},
	{Name: "zh_paragraph_cjk", Regex: regexp.MustCompile(`第([一二三四五六七八九十两]+)款`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeParagraph, Language: "zh", Confidence: 1.0},
	{Name: "zh_item_arabic", Regex: regexp.MustCompile(`第\s*(\d+)\s*项`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeClause, Language: "zh", Confidence: 1.0},
	{Name: "zh_item_cjk", Regex: regexp.MustCompile(`第([一二三四五六七八九十两]+)项`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeClause, Language: "zh", Confidence: 1.0},
	{Name: "zh_see", Regex: regexp.MustCompile(`(?:见|参见|依据)第\s*(\d+(?:\.\d+)*)\s*条`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeArticle, Language: "zh", Confidence: 1.0},
	{Name: "zh_appendix", Regex: regexp.MustCompile(`附件\s*([一二三四五六七八九十\d]+)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeAppendix, Language: "zh", Confidence: 1.0},
	{Name: "zh_schedule", Regex: regexp.MustCompile(`附表\s*([一二三四五六七八九十\d]+)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeSchedule, Language: "zh", Confidence: 1.0},
	{Name: "zh_annex", Regex: regexp.MustCompile(`附录\s*([一二三四五六七八九十\d]+)`), TargetGroup: 1, ReferenceType: domain.ReferenceTypeAnnex, Language: "zh", Confidence: 1.0},
}

// normalizeTargetID converts a Chinese-numeral target id to its arabic
// form when applicable, so that "第九十九条" -> target_id "99".
func normalizeTargetID(raw string) string {
	if n, ok := ChineseNumeralToInt(raw); ok {
		return intToString(n)
	}
	return raw
}

func intToString(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// ExtractCrossReferences scans text for cross-reference matches using the
// built-in catalog plus any extra LLM-supplied patterns, validating each
// target against clauseIDSet. sourceClauseID is attached to every match;
// self-references are dropped.
func ExtractCrossReferences(text, sourceClauseID string, clauseIDSet map[string]struct{}, extra []ExtraPattern) []*domain.CrossReference {
	var out []*domain.CrossReference

	for _, rule := range CrossRefRules {
		for _, m := range rule.Regex.FindAllStringSubmatchIndex(text, -1) {
			group := rule.TargetGroup
			if group*2+1 >= len(m) || m[group*2] < 0 {
				continue
			}
			raw := text[m[group*2]:m[group*2+1]]
			target := normalizeTargetID(raw)
			if target == sourceClauseID {
				continue
			}
			refText := text[m[0]:m[1]]
			ref := &domain.CrossReference{
				SourceClauseID: sourceClauseID,
				TargetClauseID: target,
				ReferenceText:  refText,
				Source:         domain.CrossReferenceSourceRegex,
				Confidence:     rule.Confidence,
				ReferenceType:  rule.ReferenceType,
			}
			ref.TruncateReferenceText()
			ref.ValidateAgainst(clauseIDSet)
			out = append(out, ref)
		}
	}

	for _, ep := range extra {
		for _, m := range ep.Regex.FindAllStringSubmatchIndex(text, -1) {
			// Defensive group-index handling: fall back to group 0 on match
			// when the LLM-supplied pattern has no capturing group.
			group := 1
			if group*2+1 >= len(m) || m[group*2] < 0 {
				group = 0
			}
			if group*2+1 >= len(m) || m[group*2] < 0 {
				continue
			}
			raw := text[m[group*2]:m[group*2+1]]
			target := normalizeTargetID(raw)
			if target == sourceClauseID {
				continue
			}
			refText := text[m[0]:m[1]]
			ref := &domain.CrossReference{
				SourceClauseID: sourceClauseID,
				TargetClauseID: target,
				ReferenceText:  refText,
				Source:         domain.CrossReferenceSourceRegex,
				Confidence:     0.8,
				ReferenceType:  domain.ReferenceTypeClause,
			}
			ref.TruncateReferenceText()
			ref.ValidateAgainst(clauseIDSet)
			out = append(out, ref)
		}
	}

	return out
}

// ExtraPattern is one LLM-discovered cross-reference regex, validated for
// compile-ability by the smart parser before being handed here.
type ExtraPattern struct {
	Regex *regexp.Regexp
}

// CompileExtraPatterns compiles a list of raw regex strings, silently
// skipping any that fail to compile.
func CompileExtraPatterns(raw []string) []ExtraPattern {
	var out []ExtraPattern
	for _, r := range raw {
		re, err := regexp.Compile(r)
		if err != nil {
			continue
		}
		out = append(out, ExtraPattern{Regex: re})
	}
	return out
}

// NormalizeKey case-folds and strips surrounding quotes, used by the hybrid
// extractor's dedup-by-normalized-key merge rule.
func NormalizeKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'“”‘’`)
	return strings.ToLower(s)
}
