package retrieval

import (
	"context"
	"math"
	"sort"

	"talkingbird/internal/contextutil"
)

// Reranker reorders a candidate pool with a cross-encoder model and keeps
// the top K. Reranking is a refinement step: when the model fails, the
// fusion ordering already in hand is served instead.
type Reranker struct {
	model RerankModel
	topK  int
}

// NewReranker creates a reranker that keeps the top K candidates.
func NewReranker(model RerankModel, topK int) *Reranker {
	if topK <= 0 {
		topK = 5
	}
	return &Reranker{model: model, topK: topK}
}

// Rerank scores each candidate against the query, replaces Similarity with
// the sigmoid of the raw model score, and returns the top K by that score.
// Pools of one or zero candidates pass through unchanged. On model failure
// the fusion-ordered top K is returned with a warning log.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate) []Candidate {
	if len(candidates) <= 1 {
		return candidates
	}

	logger := contextutil.LoggerFromContext(ctx)

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.TextContent
	}

	scores, err := r.model.Score(ctx, query, documents)
	if err != nil || len(scores) != len(candidates) {
		logger.WarnContext(ctx, "reranking failed, falling back to fusion order",
			"candidates", len(candidates),
			"error", err,
		)
		return r.truncate(candidates)
	}

	reranked := make([]Candidate, len(candidates))
	copy(reranked, candidates)
	for i, score := range scores {
		reranked[i].Similarity = sigmoid(score)
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Similarity > reranked[j].Similarity
	})
	return r.truncate(reranked)
}

func (r *Reranker) truncate(candidates []Candidate) []Candidate {
	if len(candidates) > r.topK {
		return candidates[:r.topK]
	}
	return candidates
}

// sigmoid maps an unbounded cross-encoder score into (0, 1).
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
