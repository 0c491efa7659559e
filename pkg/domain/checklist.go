package domain

// ReviewChecklistItem is one clause a review task must examine, either
// supplied by a domain plugin for the material type or generated from the
// top-level clauses of the parsed document.
type ReviewChecklistItem struct {
	ClauseID       string   `json:"clause_id"`
	ClauseName     string   `json:"clause_name"`
	Priority       Priority `json:"priority"`
	RequiredSkills []string `json:"required_skills"`
	Description    string   `json:"description"`
}

// GenerateChecklistFromStructure builds a generic checklist from the
// top-level clauses of a parsed document, used by parse_document when no
// plugin-supplied checklist exists.
func GenerateChecklistFromStructure(structure *DocumentStructure) []*ReviewChecklistItem {
	if structure == nil {
		return nil
	}
	items := make([]*ReviewChecklistItem, 0, len(structure.Clauses))
	for _, root := range structure.Clauses {
		items = append(items, &ReviewChecklistItem{
			ClauseID:       root.ClauseID,
			ClauseName:     root.Title,
			Priority:       PriorityMedium,
			RequiredSkills: []string{"get_clause_context"},
			Description:    root.Title,
		})
	}
	return items
}
