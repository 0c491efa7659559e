package local

import (
	"context"
	"regexp"
	"strings"

	"github.com/clausereview/engine/pkg/domain"
)

// PcClause is one Particular Conditions clause supplied for a consistency
// sweep against the clause under analysis.
type PcClause struct {
	ClauseID string `json:"clause_id"`
	Text     string `json:"text"`
}

// ConsistencyIssue is one pairwise inconsistency found between the focus
// clause and another Particular Conditions clause.
type ConsistencyIssue struct {
	Rule        string `json:"rule"`
	ClauseA     string `json:"clause_a"`
	ClauseB     string `json:"clause_b"`
	Description string `json:"description"`
}

// FidicCheckPcConsistencyInput is fidic_check_pc_consistency's handler
// input.
type FidicCheckPcConsistencyInput struct {
	ClauseID      string
	Structure     *domain.DocumentStructure
	PcClauses     []PcClause
	FocusClauseID string
}

// FidicCheckPcConsistencyOutput is fidic_check_pc_consistency's handler
// output.
type FidicCheckPcConsistencyOutput struct {
	ConsistencyIssues []ConsistencyIssue `json:"consistency_issues"`
}

type pcConsistencyRule struct {
	name  string
	check func(focusID, focusText, otherID, otherText string) *ConsistencyIssue
}

var (
	unlimitedLiabilityRe = regexp.MustCompile(`(?i)unlimited liability`)
	liabilityCapRe       = regexp.MustCompile(`(?i)liability.{0,40}\b(?:cap|capped|limited to)\b`)
	timeBarClauseRe      = regexp.MustCompile(`(?i)within\s+\d+\s*days?`)
	noticeProcedureRe    = regexp.MustCompile(`(?i)notice (?:shall|must) be (?:given|sent|issued)`)
	amountRe             = regexp.MustCompile(`[$£€¥]\s?\d[\d,]*(?:\.\d+)?`)
	scheduleRe           = regexp.MustCompile(`(?i)payment schedule|schedule of payments`)
	riskTransferRe       = regexp.MustCompile(`(?i)risk (?:of loss|shall pass|transfers?)`)
	insuranceRe          = regexp.MustCompile(`(?i)insur(?:e|ance|ed)`)
	rightGrantRe         = regexp.MustCompile(`(?i)\b(?:shall have the right|is entitled) to\b`)
	obligationRe         = regexp.MustCompile(`(?i)\bshall\b`)
)

var pcConsistencyRules = []pcConsistencyRule{
	{"obligation_vs_liability_cap", checkObligationVsLiabilityCap},
	{"time_bar_vs_procedure", checkTimeBarVsProcedure},
	{"payment_vs_schedule", checkPaymentVsSchedule},
	{"risk_transfer_vs_insurance", checkRiskTransferVsInsurance},
	{"rights_vs_obligations", checkRightsVsObligations},
	{"cross_reference_stale", checkCrossReferenceStale},
}

// FidicCheckPcConsistency runs a fixed set of 6 keyword/pattern-based
// pairwise checks between the focus clause and every other supplied
// Particular Conditions clause, collecting whichever checks fire.
func FidicCheckPcConsistency(ctx context.Context, input any) (any, error) {
	in := input.(FidicCheckPcConsistencyInput)

	focusID := in.FocusClauseID
	if focusID == "" {
		focusID = in.ClauseID
	}

	var focusText string
	for _, pc := range in.PcClauses {
		if pc.ClauseID == focusID {
			focusText = pc.Text
			break
		}
	}
	if focusText == "" && in.Structure != nil {
		if node := in.Structure.FindClause(focusID); node != nil {
			focusText = node.FullText()
		}
	}
	if focusText == "" {
		return FidicCheckPcConsistencyOutput{}, nil
	}

	var issues []ConsistencyIssue
	for _, pc := range in.PcClauses {
		if pc.ClauseID == focusID {
			continue
		}
		for _, rule := range pcConsistencyRules {
			if issue := rule.check(focusID, focusText, pc.ClauseID, pc.Text); issue != nil {
				issues = append(issues, *issue)
			}
		}
	}

	return FidicCheckPcConsistencyOutput{ConsistencyIssues: issues}, nil
}

func checkObligationVsLiabilityCap(focusID, focusText, otherID, otherText string) *ConsistencyIssue {
	if !liabilityCapRe.MatchString(focusText) {
		return nil
	}
	if !unlimitedLiabilityRe.MatchString(otherText) {
		return nil
	}
	return &ConsistencyIssue{
		Rule:        "obligation_vs_liability_cap",
		ClauseA:     focusID,
		ClauseB:     otherID,
		Description: "a liability cap is stated but another clause asserts unlimited liability",
	}
}

func checkTimeBarVsProcedure(focusID, focusText, otherID, otherText string) *ConsistencyIssue {
	if !timeBarClauseRe.MatchString(focusText) {
		return nil
	}
	if !strings.Contains(strings.ToLower(otherText), "notice") {
		return nil
	}
	if noticeProcedureRe.MatchString(otherText) {
		return nil
	}
	return &ConsistencyIssue{
		Rule:        "time_bar_vs_procedure",
		ClauseA:     focusID,
		ClauseB:     otherID,
		Description: "a time-barred notice deadline references a procedure clause that never specifies how notice is given",
	}
}

func checkPaymentVsSchedule(focusID, focusText, otherID, otherText string) *ConsistencyIssue {
	focusAmounts := amountRe.FindAllString(focusText, -1)
	if len(focusAmounts) == 0 || !scheduleRe.MatchString(otherText) {
		return nil
	}
	otherAmounts := amountRe.FindAllString(otherText, -1)
	if len(otherAmounts) == 0 {
		return nil
	}
	for _, fa := range focusAmounts {
		for _, oa := range otherAmounts {
			if fa == oa {
				return nil
			}
		}
	}
	return &ConsistencyIssue{
		Rule:        "payment_vs_schedule",
		ClauseA:     focusID,
		ClauseB:     otherID,
		Description: "payment amounts do not match any figure in the referenced payment schedule",
	}
}

func checkRiskTransferVsInsurance(focusID, focusText, otherID, otherText string) *ConsistencyIssue {
	if !riskTransferRe.MatchString(focusText) {
		return nil
	}
	if !strings.Contains(strings.ToLower(otherText), "insur") {
		return nil
	}
	if insuranceRe.MatchString(otherText) {
		return nil
	}
	return &ConsistencyIssue{
		Rule:        "risk_transfer_vs_insurance",
		ClauseA:     focusID,
		ClauseB:     otherID,
		Description: "a risk transfer is stated but the referenced insurance clause does not cover it",
	}
}

func checkRightsVsObligations(focusID, focusText, otherID, otherText string) *ConsistencyIssue {
	if !rightGrantRe.MatchString(focusText) {
		return nil
	}
	if obligationRe.MatchString(otherText) {
		return nil
	}
	return &ConsistencyIssue{
		Rule:        "rights_vs_obligations",
		ClauseA:     focusID,
		ClauseB:     otherID,
		Description: "a right is granted without a corresponding obligation in the paired clause",
	}
}

func checkCrossReferenceStale(focusID, focusText, otherID, otherText string) *ConsistencyIssue {
	if !strings.Contains(focusText, otherID) {
		return nil
	}
	if strings.TrimSpace(otherText) != "" {
		return nil
	}
	return &ConsistencyIssue{
		Rule:        "cross_reference_stale",
		ClauseA:     focusID,
		ClauseB:     otherID,
		Description: "references a clause that is now empty or renumbered",
	}
}

// PrepareFidicCheckPcConsistencyInput derives FidicCheckPcConsistencyInput
// from llmArgs, since the Particular Conditions clause set and focus
// clause are supplied per tool call rather than carried in graph state.
func PrepareFidicCheckPcConsistencyInput(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
	focusClauseID, _ := llmArgs["focus_clause_id"].(string)

	var pcClauses []PcClause
	if raw, ok := llmArgs["pc_clauses"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id, _ := m["clause_id"].(string)
			text, _ := m["text"].(string)
			if id == "" {
				continue
			}
			pcClauses = append(pcClauses, PcClause{ClauseID: id, Text: text})
		}
	}

	return FidicCheckPcConsistencyInput{
		ClauseID:      clauseID,
		Structure:     primary,
		PcClauses:     pcClauses,
		FocusClauseID: focusClauseID,
	}, nil
}
