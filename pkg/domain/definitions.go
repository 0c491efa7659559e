package domain

import (
	"fmt"
	"unicode/utf8"
)

// DefinitionEntry is a rich, sourced definition of a contract term.
//
// Invariant: Term is 2..50 characters; DefinitionText is 4..2000
// characters before truncation (after truncation with a suffix marker, up
// to 2003). Bounds are counted in runes so Chinese terms measure the same
// as English ones.
type DefinitionEntry struct {
	Term            string             `json:"term"`
	DefinitionText  string             `json:"definition_text"`
	Source          DefinitionSource   `json:"source"`
	Confidence      float64            `json:"confidence"`
	SourceClauseID  string             `json:"source_clause_id,omitempty"`
	Aliases         []string           `json:"aliases,omitempty"`
	Category        DefinitionCategory `json:"category,omitempty"`
}

const (
	definitionTextMaxLen    = 2000
	definitionTruncatedCap  = 2003 // 2000 + len("...")
	truncationSuffix        = "..."
	termMinLen              = 2
	termMaxLen              = 50
	definitionTextMinLen    = 4
)

// Validate reports whether the entry satisfies the length invariants.
func (e *DefinitionEntry) Validate() error {
	if e == nil {
		return fmt.Errorf("domain: nil definition entry")
	}
	if n := utf8.RuneCountInString(e.Term); n < termMinLen || n > termMaxLen {
		return fmt.Errorf("domain: definition term %q length out of [2,50]", e.Term)
	}
	if n := utf8.RuneCountInString(e.DefinitionText); n < definitionTextMinLen || n > definitionTruncatedCap {
		return fmt.Errorf("domain: definition text for %q out of bounds", e.Term)
	}
	return nil
}

// Truncate caps DefinitionText at 2000 characters, appending a suffix
// marker. The bounds are counted in runes, not bytes, so Chinese
// definition text is not cut short (or mid-rune).
func (e *DefinitionEntry) Truncate() {
	if utf8.RuneCountInString(e.DefinitionText) > definitionTextMaxLen {
		runes := []rune(e.DefinitionText)
		e.DefinitionText = string(runes[:definitionTextMaxLen]) + truncationSuffix
	}
}
