package local

import (
	"context"
	"sort"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/embedders"
)

// RelevantSection is one Employer's Requirements paragraph judged relevant
// to a query, ordered by descending cosine score.
type RelevantSection struct {
	ClauseID string  `json:"clause_id"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// FidicSearchErInput is fidic_search_er's handler input.
type FidicSearchErInput struct {
	ClauseID    string
	Structure   *domain.DocumentStructure
	ErStructure *domain.DocumentStructure
	Query       string
	TopK        int
	Embedder    embedders.EmbedderProvider
}

// FidicSearchErOutput is fidic_search_er's handler output.
type FidicSearchErOutput struct {
	RelevantSections []RelevantSection `json:"relevant_sections"`
}

const (
	searchErBatchSize   = 25
	searchErScoreCutoff = 0.3
	searchErDefaultTopK = 5
)

// FidicSearchEr embeds the query and then every Employer's Requirements
// paragraph, walking the paragraphs in groups of 25 with one Embed call per
// text (the embedder has no batch call), cosine-ranks the candidates
// against the query, drops anything below a 0.3 score, and keeps the top_k
// survivors. Any embedding failure returns an empty result rather than an
// error.
func FidicSearchEr(ctx context.Context, input any) (any, error) {
	in := input.(FidicSearchErInput)

	topK := in.TopK
	if topK <= 0 {
		topK = searchErDefaultTopK
	}

	if in.Embedder == nil || in.ErStructure == nil || in.Query == "" {
		return FidicSearchErOutput{}, nil
	}

	queryVec, err := in.Embedder.Embed(in.Query)
	if err != nil {
		return FidicSearchErOutput{}, nil
	}

	nodes := flattenClauseNodes(in.ErStructure.Clauses)

	var candidates []RelevantSection
	for start := 0; start < len(nodes); start += searchErBatchSize {
		end := start + searchErBatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		for _, n := range nodes[start:end] {
			text := n.FullText()
			if text == "" {
				continue
			}
			vec, err := in.Embedder.Embed(text)
			if err != nil {
				return FidicSearchErOutput{}, nil
			}
			score := cosineSimilarity(queryVec, vec)
			if score < searchErScoreCutoff {
				continue
			}
			candidates = append(candidates, RelevantSection{
				ClauseID: n.ClauseID,
				Title:    n.Title,
				Text:     text,
				Score:    score,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return FidicSearchErOutput{RelevantSections: candidates}, nil
}

func flattenClauseNodes(forest []*domain.ClauseNode) []*domain.ClauseNode {
	var out []*domain.ClauseNode
	var walk func(n *domain.ClauseNode)
	walk = func(n *domain.ClauseNode) {
		if n == nil {
			return
		}
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, root := range forest {
		walk(root)
	}
	return out
}

// NewFidicSearchErPreparer closes over the Employer's Requirements
// structure and embedder, since graph state carries neither directly and
// the query/top_k arrive per-call via the tool-call arguments.
func NewFidicSearchErPreparer(erStructure *domain.DocumentStructure, embedder embedders.EmbedderProvider) func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
	return func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
		query, _ := llmArgs["query"].(string)
		topK := searchErDefaultTopK
		if v, ok := llmArgs["top_k"].(float64); ok && v > 0 {
			topK = int(v)
		}
		return FidicSearchErInput{
			ClauseID:    clauseID,
			Structure:   primary,
			ErStructure: erStructure,
			Query:       query,
			TopK:        topK,
			Embedder:    embedder,
		}, nil
	}
}
