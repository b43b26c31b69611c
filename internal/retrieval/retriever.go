package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"talkingbird/internal/contextutil"
	"talkingbird/internal/service"
	"talkingbird/internal/vectorstore"
)

const minVariationLimit = 15

// Options tunes the retrieval pipeline. Zero values are replaced with the
// documented defaults by NewRetriever.
type Options struct {
	TopK                int
	SimilarityThreshold float64
	RRFK                int
	CandidatePoolSize   int
	FusedScoreScale     float64
}

// Retriever runs the hybrid retrieval pipeline: query expansion, dense
// vector search per variation, lexical BM25 scoring over the candidate
// pool, and reciprocal rank fusion of the two channels.
type Retriever struct {
	expander    *Expander
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	opts        Options
}

// NewRetriever creates a retriever over the given collection.
func NewRetriever(
	expander *Expander,
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	opts Options,
) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = 0.35
	}
	if opts.RRFK <= 0 {
		opts.RRFK = 60
	}
	if opts.CandidatePoolSize <= 0 {
		opts.CandidatePoolSize = 10
	}
	if opts.FusedScoreScale <= 0 {
		opts.FusedScoreScale = 30
	}
	return &Retriever{
		expander:    expander,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		opts:        opts,
	}
}

// Retrieve returns the fused candidate pool for a query, ordered by fused
// score descending. An empty result means no indexed chunk cleared the
// similarity threshold; it is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Candidate, error) {
	logger := contextutil.LoggerFromContext(ctx)

	variations := r.expander.Expand(ctx, query)

	// One batched call keeps vectors aligned with variations by index.
	vectors, err := r.embedder.EmbedTexts(ctx, variations)
	if err != nil {
		return nil, service.WrapError(service.ErrExternalService, fmt.Sprintf("failed to embed query: %v", err))
	}
	if len(vectors) != len(variations) {
		return nil, service.WrapError(service.ErrExternalService,
			fmt.Sprintf("embedding count mismatch: expected %d, got %d", len(variations), len(vectors)))
	}

	pool, err := r.searchVariations(ctx, vectors)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if c.VectorScore >= r.opts.SimilarityThreshold {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		logger.InfoContext(ctx, "no candidates above similarity threshold",
			"query", query,
			"pool_size", len(pool),
			"threshold", r.opts.SimilarityThreshold,
		)
		return nil, nil
	}

	r.scoreLexical(candidates, variations)
	r.fuse(candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FusedScore > candidates[j].FusedScore
	})
	if len(candidates) > r.opts.CandidatePoolSize {
		candidates = candidates[:r.opts.CandidatePoolSize]
	}

	for i := range candidates {
		candidates[i].Similarity = math.Min(candidates[i].FusedScore*r.opts.FusedScoreScale, 1.0)
	}

	logger.DebugContext(ctx, "retrieval complete",
		"variations", len(variations),
		"candidates", len(candidates),
	)
	return candidates, nil
}

// searchVariations runs one vector search per query variation concurrently
// and merges results by chunk ID, keeping the maximum vector score seen for
// each chunk across variations.
func (r *Retriever) searchVariations(ctx context.Context, vectors [][]float32) (map[string]Candidate, error) {
	limit := 3 * r.opts.TopK
	if limit < minVariationLimit {
		limit = minVariationLimit
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		pool     = make(map[string]Candidate)
		firstErr error
	)

	for _, vec := range vectors {
		wg.Add(1)
		go func(vec []float32) {
			defer wg.Done()

			results, err := r.vectorStore.Search(ctx, r.collection, vec, limit)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if firstErr == nil {
					firstErr = service.WrapError(service.ErrVectorStore, fmt.Sprintf("vector search failed: %v", err))
				}
				return
			}
			for _, res := range results {
				c := candidateFromResult(res)
				if existing, ok := pool[c.ChunkID]; !ok || c.VectorScore > existing.VectorScore {
					pool[c.ChunkID] = c
				}
			}
		}(vec)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return pool, nil
}

// scoreLexical BM25-scores every candidate against each query variation and
// keeps the maximum score per candidate.
func (r *Retriever) scoreLexical(candidates []Candidate, variations []string) {
	docs := make([][]string, len(candidates))
	for i, c := range candidates {
		docs[i] = tokenize(c.TextContent)
	}
	index := newBM25Index(docs)

	for _, variation := range variations {
		scores := index.scores(tokenize(variation))
		for i, score := range scores {
			if score > candidates[i].LexicalScore {
				candidates[i].LexicalScore = score
			}
		}
	}
}

// fuse assigns each candidate a reciprocal rank fusion score from its ranks
// in the vector and lexical orderings. Ranks are 0-indexed, so a candidate
// leading both channels scores 2/k. A candidate absent from a channel (zero
// lexical score) takes a rank of len(candidates), one past the last real
// rank in that channel.
func (r *Retriever) fuse(candidates []Candidate) {
	vectorRanks := ranksByScore(candidates, func(c Candidate) float64 { return c.VectorScore })
	lexicalRanks := ranksByScore(candidates, func(c Candidate) float64 { return c.LexicalScore })

	worst := len(candidates)
	k := float64(r.opts.RRFK)

	for i := range candidates {
		vr := vectorRanks[candidates[i].ChunkID]
		lr := worst
		if candidates[i].LexicalScore > 0 {
			lr = lexicalRanks[candidates[i].ChunkID]
		}
		candidates[i].FusedScore = 1/(k+float64(vr)) + 1/(k+float64(lr))
	}
}

// ranksByScore returns 0-indexed ranks per chunk ID, best score first.
func ranksByScore(candidates []Candidate, score func(Candidate) float64) map[string]int {
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return score(candidates[order[a]]) > score(candidates[order[b]])
	})

	ranks := make(map[string]int, len(candidates))
	for rank, idx := range order {
		ranks[candidates[idx].ChunkID] = rank
	}
	return ranks
}

// candidateFromResult maps a vector search hit and its payload into a
// candidate. Numeric payload fields arrive as int64 from the gRPC payload
// conversion.
func candidateFromResult(res vectorstore.SearchResult) Candidate {
	c := Candidate{
		ChunkID:     res.PointID,
		VectorScore: float64(res.Score),
	}
	if v, ok := res.Meta["document_id"].(string); ok {
		c.DocumentID = v
	}
	if v, ok := res.Meta["document_name"].(string); ok {
		c.DocumentName = v
	}
	if v, ok := res.Meta["chunk_index"].(int64); ok {
		c.ChunkIndex = int(v)
	}
	if v, ok := res.Meta["page_number"].(int64); ok {
		c.PageNumber = int(v)
	}
	if v, ok := res.Meta["text_content"].(string); ok {
		c.TextContent = v
	}
	return c
}
