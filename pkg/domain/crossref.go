package domain

// CrossReference is a textual pointer from one clause to another.
//
// Invariant: SourceClauseID != TargetClauseID (no self-references).
type CrossReference struct {
	SourceClauseID string                `json:"source_clause_id"`
	TargetClauseID string                `json:"target_clause_id"`
	ReferenceText  string                `json:"reference_text"` // <= 80 chars
	IsValid        *bool                 `json:"is_valid"`       // nil = unchecked
	Source         CrossReferenceSource  `json:"source"`
	Confidence     float64               `json:"confidence"`
	ReferenceType  ReferenceType         `json:"reference_type"`
}

const crossReferenceTextMaxLen = 80

// IsSelfReference reports whether the cross-reference points at its own clause.
func (c *CrossReference) IsSelfReference() bool {
	return c.SourceClauseID == c.TargetClauseID
}

// TruncateReferenceText caps ReferenceText at 80 characters.
func (c *CrossReference) TruncateReferenceText() {
	if len(c.ReferenceText) > crossReferenceTextMaxLen {
		c.ReferenceText = c.ReferenceText[:crossReferenceTextMaxLen]
	}
}

// ValidateAgainst sets IsValid based on target_clause_id membership in
// the supplied clause_id set.
func (c *CrossReference) ValidateAgainst(clauseIDs map[string]struct{}) {
	_, ok := clauseIDs[c.TargetClauseID]
	valid := ok
	c.IsValid = &valid
}

func BoolPtr(b bool) *bool { return &b }
