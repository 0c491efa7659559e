package local

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/llms"
)

// TimeBar is one deadline/notice obligation found in a clause.
type TimeBar struct {
	DeadlineDays   int                          `json:"deadline_days"`
	Trigger        string                       `json:"trigger,omitempty"`
	Consequence    string                       `json:"consequence,omitempty"`
	Classification domain.TimeBarClassification `json:"classification,omitempty"`
}

// FidicCalculateTimeBarInput is fidic_calculate_time_bar's handler input.
type FidicCalculateTimeBarInput struct {
	ClauseID  string
	Structure *domain.DocumentStructure
	Client    llms.Client
}

// FidicCalculateTimeBarOutput is fidic_calculate_time_bar's handler output.
type FidicCalculateTimeBarOutput struct {
	TimeBars         []TimeBar `json:"time_bars"`
	HasStrictTimeBar bool      `json:"has_strict_time_bar"`
}

var (
	dayCountRe      = regexp.MustCompile(`(?i)within\s+(\d+)\s*days?`)
	triggerRe       = regexp.MustCompile(`(?i)(?:after|from|following)\s+([^,.;]{3,60})`)
	consequenceRe   = regexp.MustCompile(`(?i)(?:shall be (?:barred|deemed waived)|forfeit[s]?|time[- ]barred)[^,.;]{0,80}`)
	reasonablePeriodRe = regexp.MustCompile(`(?i)a reasonable (?:period|time)`)
)

// FidicCalculateTimeBar extracts day counts, triggers, and consequences via
// regex; when an LLM client is available it enriches empty trigger or
// consequence fields without overwriting non-empty ones, classifies each
// finding as hard_bar/soft_bar/advisory, and discovers non-numeric
// deadlines such as "a reasonable period" (deadline_days=0).
func FidicCalculateTimeBar(ctx context.Context, input any) (any, error) {
	in := input.(FidicCalculateTimeBarInput)

	var text string
	if node := in.Structure.FindClause(in.ClauseID); node != nil {
		text = node.FullText()
	}

	var bars []TimeBar
	for _, m := range dayCountRe.FindAllStringSubmatchIndex(text, -1) {
		days, _ := strconv.Atoi(text[m[2]:m[3]])
		window := text[max(0, m[0]-80):min(len(text), m[1]+120)]
		bar := TimeBar{DeadlineDays: days}
		if tm := triggerRe.FindStringSubmatch(window); tm != nil {
			bar.Trigger = strings.TrimSpace(tm[1])
		}
		if cm := consequenceRe.FindString(window); cm != "" {
			bar.Consequence = strings.TrimSpace(cm)
		}
		bars = append(bars, bar)
	}
	if reasonablePeriodRe.MatchString(text) {
		bars = append(bars, TimeBar{DeadlineDays: 0, Trigger: "a reasonable period"})
	}

	if in.Client != nil {
		bars = enrichTimeBars(ctx, in.Client, text, bars)
	}

	hasStrict := false
	for _, b := range bars {
		if b.Classification == domain.TimeBarHard {
			hasStrict = true
			break
		}
	}

	return FidicCalculateTimeBarOutput{TimeBars: bars, HasStrictTimeBar: hasStrict}, nil
}

type llmTimeBarEnrichment struct {
	Index          int    `json:"index"`
	Trigger        string `json:"trigger"`
	Consequence    string `json:"consequence"`
	Classification string `json:"classification"`
}

func enrichTimeBars(ctx context.Context, client llms.Client, text string, bars []TimeBar) []TimeBar {
	if len(bars) == 0 {
		return bars
	}
	prompt := timeBarPrompt(text, bars)
	messages := []llms.Message{{Role: "user", Content: prompt}}
	reply, err := client.Chat(ctx, messages, 0.1, 800)
	if err != nil {
		return bars
	}
	raw, ok := llms.ExtractJSON(reply)
	if !ok {
		return bars
	}
	var resp struct {
		Enrichments []llmTimeBarEnrichment `json:"enrichments"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return bars
	}

	for _, e := range resp.Enrichments {
		if e.Index < 0 || e.Index >= len(bars) {
			continue
		}
		b := &bars[e.Index]
		if b.Trigger == "" && e.Trigger != "" {
			b.Trigger = e.Trigger
		}
		if b.Consequence == "" && e.Consequence != "" {
			b.Consequence = e.Consequence
		}
		if cls := domain.TimeBarClassification(e.Classification); cls == domain.TimeBarHard || cls == domain.TimeBarSoft || cls == domain.TimeBarAdvisory {
			b.Classification = cls
		}
	}
	return bars
}

func timeBarPrompt(text string, bars []TimeBar) string {
	listing := ""
	for i, b := range bars {
		listing += strconv.Itoa(i) + ": deadline_days=" + strconv.Itoa(b.DeadlineDays) + " trigger=" + b.Trigger + " consequence=" + b.Consequence + "\n"
	}
	return "Review these time-bar findings extracted from a FIDIC contract clause and fill in any missing " +
		"trigger or consequence, and classify each as hard_bar (mandatory forfeiture), soft_bar " +
		"(discretionary/extendable), or advisory (no stated consequence).\n\n" +
		"Findings:\n" + listing + "\n\nClause text:\n" + truncate(text, 3000) + "\n\n" +
		`Respond with a single JSON object: {"enrichments": [{"index": int, "trigger": string, "consequence": string, "classification": string}]}`
}

// NewFidicCalculateTimeBarPreparer closes over an llms.Client.
func NewFidicCalculateTimeBarPreparer(client llms.Client) func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
	return func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
		return FidicCalculateTimeBarInput{ClauseID: clauseID, Structure: primary, Client: client}, nil
	}
}
