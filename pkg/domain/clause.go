package domain

// ClauseNode is one node of a parsed contract's clause tree.
//
// Invariant: every child's Level is strictly greater than its parent's
// Level; StartOffset/EndOffset are monotonically non-decreasing across a
// depth-first traversal of the tree.
type ClauseNode struct {
	ClauseID    string        `json:"clause_id"`
	Title       string        `json:"title"`
	Level       int           `json:"level"`
	Text        string        `json:"text"`
	StartOffset int           `json:"start_offset"`
	EndOffset   int           `json:"end_offset"`
	Children    []*ClauseNode `json:"children,omitempty"`
}

// FullText returns the node's own text concatenated with every descendant's
// text, in depth-first order. Used by get_clause_context and by the
// definitions-section text gather in the structure parser.
func (n *ClauseNode) FullText() string {
	if n == nil {
		return ""
	}
	text := n.Text
	for _, child := range n.Children {
		if ct := child.FullText(); ct != "" {
			if text != "" {
				text += "\n"
			}
			text += ct
		}
	}
	return text
}

// Count returns the transitive node count rooted at n, including n itself.
func (n *ClauseNode) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}

// Find performs a depth-first search for clauseID starting at n.
func (n *ClauseNode) Find(clauseID string) *ClauseNode {
	if n == nil {
		return nil
	}
	if n.ClauseID == clauseID {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(clauseID); found != nil {
			return found
		}
	}
	return nil
}

// FindInForest searches a forest (ordered list of roots) for clauseID.
func FindInForest(forest []*ClauseNode, clauseID string) *ClauseNode {
	for _, root := range forest {
		if found := root.Find(clauseID); found != nil {
			return found
		}
	}
	return nil
}

// TotalClauses sums Count() over a forest, matching the total_clauses
// invariant: it equals count(clauses) + sum(child counts) recursively.
func TotalClauses(forest []*ClauseNode) int {
	total := 0
	for _, root := range forest {
		total += root.Count()
	}
	return total
}

// ClauseIDSet collects every clause_id present in a forest, used by
// cross-reference validation.
func ClauseIDSet(forest []*ClauseNode) map[string]struct{} {
	set := make(map[string]struct{})
	var walk func(n *ClauseNode)
	walk = func(n *ClauseNode) {
		if n == nil {
			return
		}
		set[n.ClauseID] = struct{}{}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, root := range forest {
		walk(root)
	}
	return set
}

// DocumentStructure is the full parse result for one uploaded document.
//
// Invariant: TotalClauses equals the transitive node count of Clauses.
type DocumentStructure struct {
	DocumentID       string              `json:"document_id"`
	StructureType    string              `json:"structure_type"`
	Clauses          []*ClauseNode       `json:"clauses"`
	Definitions      map[string]string   `json:"definitions"`
	DefinitionsV2    []*DefinitionEntry  `json:"definitions_v2"`
	CrossReferences  []*CrossReference   `json:"cross_references"`
	TotalClauses     int                 `json:"total_clauses"`
}

// Validate checks the total_clauses invariant.
func (d *DocumentStructure) Validate() error {
	if d == nil {
		return ErrParseFailure
	}
	if d.TotalClauses != TotalClauses(d.Clauses) {
		return ErrParseFailure
	}
	return nil
}

// FindClause walks the clause forest for clauseID.
func (d *DocumentStructure) FindClause(clauseID string) *ClauseNode {
	if d == nil {
		return nil
	}
	return FindInForest(d.Clauses, clauseID)
}
