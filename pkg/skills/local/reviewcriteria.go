package local

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/embedders"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/vector"
)

// reviewCriteriaCollection is the vector-store collection load_review_criteria
// seeds on its first call and searches at match time.
const reviewCriteriaCollection = "review_criteria"

// ReviewCriterion is one entry of a caller-supplied criteria set, e.g. a
// playbook rule keyed to a specific clause or topic.
type ReviewCriterion struct {
	ClauseRef string    `json:"clause_ref"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// MatchedCriterion is one criterion judged applicable (or under
// consideration) for the clause under analysis.
type MatchedCriterion struct {
	ClauseRef           string  `json:"clause_ref"`
	Text                string  `json:"text"`
	Score               float64 `json:"score,omitempty"`
	Applicable          bool    `json:"applicable"`
	ApplicabilityReason string  `json:"applicability_reason,omitempty"`
}

// LoadReviewCriteriaInput is load_review_criteria's handler input.
type LoadReviewCriteriaInput struct {
	ClauseID  string
	Structure *domain.DocumentStructure
	Criteria  []ReviewCriterion
	Embedder  embedders.EmbedderProvider
	Client    llms.Client

	// Store is an optional vector-store backend, seeded with Criteria by
	// the preparer on its first call. When nil, matching falls back to
	// the in-process cosine similarity over Criteria's own embeddings.
	Store vector.Provider
}

// LoadReviewCriteriaOutput is load_review_criteria's handler output.
type LoadReviewCriteriaOutput struct {
	MatchedCriteria []MatchedCriterion `json:"matched_criteria"`
}

const (
	embeddingTopK          = 5
	embeddingScoreThreshold = 0.5
	llmFilterMaxApplicable = 3
)

// LoadReviewCriteria matches a clause against a caller-supplied criteria
// set: exact clause_ref match first; otherwise top-K embedding similarity
// above a threshold, trimmed by an LLM applicability filter to at most 3
// entries. Exact matches bypass the filter and are always applicable.
func LoadReviewCriteria(ctx context.Context, input any) (any, error) {
	in := input.(LoadReviewCriteriaInput)

	var exact []MatchedCriterion
	for _, c := range in.Criteria {
		if normalize(c.ClauseRef) == normalize(in.ClauseID) {
			exact = append(exact, MatchedCriterion{ClauseRef: c.ClauseRef, Text: c.Text, Applicable: true, ApplicabilityReason: "exact clause reference match"})
		}
	}
	if len(exact) > 0 {
		return LoadReviewCriteriaOutput{MatchedCriteria: exact}, nil
	}

	if in.Embedder == nil {
		return LoadReviewCriteriaOutput{}, nil
	}

	clauseText := in.ClauseID
	if node := in.Structure.FindClause(in.ClauseID); node != nil {
		clauseText = node.FullText()
	}
	queryVec, err := in.Embedder.Embed(clauseText)
	if err != nil {
		return LoadReviewCriteriaOutput{}, nil
	}

	var candidates []MatchedCriterion
	if in.Store != nil {
		candidates = rankByVectorStore(ctx, in.Store, queryVec)
	}
	if candidates == nil {
		candidates = rankBySimilarity(queryVec, in.Criteria)
	}
	if len(candidates) == 0 {
		return LoadReviewCriteriaOutput{}, nil
	}

	if in.Client == nil {
		// No LLM filter available: keep every candidate above threshold,
		// unfiltered for applicability.
		for i := range candidates {
			candidates[i].Applicable = true
		}
		return LoadReviewCriteriaOutput{MatchedCriteria: candidates}, nil
	}

	filtered := filterApplicableCriteria(ctx, in.Client, in.ClauseID, clauseText, candidates)
	return LoadReviewCriteriaOutput{MatchedCriteria: filtered}, nil
}

func rankBySimilarity(queryVec []float32, criteria []ReviewCriterion) []MatchedCriterion {
	type scored struct {
		c     ReviewCriterion
		score float64
	}
	var scoredList []scored
	for _, c := range criteria {
		if len(c.Embedding) == 0 {
			continue
		}
		score := cosineSimilarity(queryVec, c.Embedding)
		if score < embeddingScoreThreshold {
			continue
		}
		scoredList = append(scoredList, scored{c: c, score: score})
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].score > scoredList[j].score })
	if len(scoredList) > embeddingTopK {
		scoredList = scoredList[:embeddingTopK]
	}
	out := make([]MatchedCriterion, 0, len(scoredList))
	for _, s := range scoredList {
		out = append(out, MatchedCriterion{ClauseRef: s.c.ClauseRef, Text: s.c.Text, Score: s.score})
	}
	return out
}

// rankByVectorStore searches the vector store seeded by seedReviewCriteria,
// reconstructing MatchedCriterion from each Result's metadata. Returns nil
// (not an empty slice) on any failure, signaling the caller to fall back to
// rankBySimilarity rather than report zero matches.
func rankByVectorStore(ctx context.Context, store vector.Provider, queryVec []float32) []MatchedCriterion {
	results, err := store.Search(ctx, reviewCriteriaCollection, queryVec, embeddingTopK)
	if err != nil {
		return nil
	}

	out := make([]MatchedCriterion, 0, len(results))
	for _, r := range results {
		if r.Score < embeddingScoreThreshold {
			continue
		}
		clauseRef, _ := r.Metadata["clause_ref"].(string)
		text, _ := r.Metadata["text"].(string)
		if text == "" {
			text = r.Content
		}
		out = append(out, MatchedCriterion{ClauseRef: clauseRef, Text: text, Score: float64(r.Score)})
	}
	return out
}

// seedReviewCriteria upserts every criterion with a precomputed or
// freshly-embedded vector into store, under reviewCriteriaCollection.
// Called once, on the first call of the hook NewLoadReviewCriteriaPreparer
// returns; the criteria set is effectively immutable after startup.
func seedReviewCriteria(ctx context.Context, store vector.Provider, criteria []ReviewCriterion, embedder embedders.EmbedderProvider) error {
	for i, c := range criteria {
		vec := c.Embedding
		if len(vec) == 0 {
			if embedder == nil {
				continue
			}
			embedded, err := embedder.Embed(c.Text)
			if err != nil {
				continue
			}
			vec = embedded
		}
		metadata := map[string]any{"clause_ref": c.ClauseRef, "text": c.Text}
		if err := store.Upsert(ctx, reviewCriteriaCollection, fmt.Sprintf("criterion-%d", i), vec, metadata); err != nil {
			return err
		}
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type llmApplicability struct {
	ClauseRef           string `json:"clause_ref"`
	Applicable          bool   `json:"applicable"`
	ApplicabilityReason string `json:"applicability_reason"`
}

func filterApplicableCriteria(ctx context.Context, client llms.Client, clauseID, clauseText string, candidates []MatchedCriterion) []MatchedCriterion {
	prompt := buildApplicabilityPrompt(clauseID, clauseText, candidates)
	messages := []llms.Message{{Role: "user", Content: prompt}}
	reply, err := client.Chat(ctx, messages, 0.1, 800)
	if err != nil {
		return candidates
	}
	raw, ok := llms.ExtractJSON(reply)
	if !ok {
		return candidates
	}
	var resp struct {
		Results []llmApplicability `json:"results"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return candidates
	}

	byRef := make(map[string]llmApplicability, len(resp.Results))
	for _, r := range resp.Results {
		byRef[r.ClauseRef] = r
	}

	var applicable []MatchedCriterion
	for _, c := range candidates {
		if verdict, ok := byRef[c.ClauseRef]; ok && verdict.Applicable {
			c.Applicable = true
			c.ApplicabilityReason = verdict.ApplicabilityReason
			applicable = append(applicable, c)
		}
		if len(applicable) >= llmFilterMaxApplicable {
			break
		}
	}
	return applicable
}

func buildApplicabilityPrompt(clauseID, clauseText string, candidates []MatchedCriterion) string {
	refs := ""
	for _, c := range candidates {
		refs += "- " + c.ClauseRef + ": " + c.Text + "\n"
	}
	return "A clause (" + clauseID + ") is being reviewed against a set of candidate review criteria found " +
		"by semantic similarity. Decide which candidates genuinely apply to this clause, at most 3.\n\n" +
		"Clause text:\n" + truncate(clauseText, 2000) + "\n\nCandidates:\n" + refs + "\n" +
		`Respond with a single JSON object: {"results": [{"clause_ref": string, "applicable": bool, "applicability_reason": string}]}`
}

// NewLoadReviewCriteriaPreparer closes over a criteria set, embedder, and
// LLM client gathered at dispatcher wiring time, since the graph state
// carries none of these directly. If store is non-nil, the criteria set is
// seeded into it once, on the first call, instead of at registration time,
// so a seeding failure surfaces as a normal skill error rather than
// aborting RegisterAll.
func NewLoadReviewCriteriaPreparer(criteria []ReviewCriterion, embedder embedders.EmbedderProvider, client llms.Client, store vector.Provider) func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
	var seedOnce bool
	var seedErr error

	return func(clauseID string, primary *domain.DocumentStructure, state *domain.ReviewGraphState, llmArgs map[string]any) (any, error) {
		if store != nil && !seedOnce {
			seedOnce = true
			seedErr = seedReviewCriteria(context.Background(), store, criteria, embedder)
		}
		effectiveStore := store
		if seedErr != nil {
			effectiveStore = nil
		}
		return LoadReviewCriteriaInput{ClauseID: clauseID, Structure: primary, Criteria: criteria, Embedder: embedder, Client: client, Store: effectiveStore}, nil
	}
}
