package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"
)

type fakeRerankModel struct {
	scores []float64
	err    error
	called bool
}

func (f *fakeRerankModel) Score(context.Context, string, []string) ([]float64, error) {
	f.called = true
	return f.scores, f.err
}

func poolOf(ids ...string) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{
			ChunkID:     id,
			TextContent: "text for " + id,
			FusedScore:  1.0 / float64(i+1),
			Similarity:  0.5,
		}
	}
	return out
}

func TestRerankReordersBySigmoidScore(t *testing.T) {
	model := &fakeRerankModel{scores: []float64{-1.0, 2.0, 0.5}}
	reranker := NewReranker(model, 3)

	got := reranker.Rerank(context.Background(), "query", poolOf("a", "b", "c"))
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].ChunkID != "b" || got[1].ChunkID != "c" || got[2].ChunkID != "a" {
		t.Fatalf("unexpected order: %v, %v, %v", got[0].ChunkID, got[1].ChunkID, got[2].ChunkID)
	}

	want := 1 / (1 + math.Exp(-2.0))
	if math.Abs(got[0].Similarity-want) > 1e-9 {
		t.Fatalf("expected sigmoid similarity %v, got %v", want, got[0].Similarity)
	}
	for i, c := range got {
		if c.Similarity <= 0 || c.Similarity >= 1 {
			t.Fatalf("candidate %d similarity out of (0, 1): %v", i, c.Similarity)
		}
	}
}

func TestRerankKeepsTopK(t *testing.T) {
	model := &fakeRerankModel{scores: []float64{0.1, 0.9, 0.5, 0.7}}
	reranker := NewReranker(model, 2)

	got := reranker.Rerank(context.Background(), "query", poolOf("a", "b", "c", "d"))
	if len(got) != 2 {
		t.Fatalf("expected top 2, got %d", len(got))
	}
	if got[0].ChunkID != "b" || got[1].ChunkID != "d" {
		t.Fatalf("unexpected survivors: %v, %v", got[0].ChunkID, got[1].ChunkID)
	}
}

func TestRerankSingleCandidatePassesThrough(t *testing.T) {
	model := &fakeRerankModel{}
	reranker := NewReranker(model, 5)

	pool := poolOf("only")
	got := reranker.Rerank(context.Background(), "query", pool)
	if len(got) != 1 || got[0] != pool[0] {
		t.Fatalf("expected unchanged pool, got %v", got)
	}
	if model.called {
		t.Fatal("model should not be called for a single candidate")
	}
}

func TestRerankEmptyPoolPassesThrough(t *testing.T) {
	model := &fakeRerankModel{}
	reranker := NewReranker(model, 5)

	if got := reranker.Rerank(context.Background(), "query", nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if model.called {
		t.Fatal("model should not be called for an empty pool")
	}
}

func TestRerankFallsBackToFusionOrderOnError(t *testing.T) {
	model := &fakeRerankModel{err: errors.New("rerank service down")}
	reranker := NewReranker(model, 2)

	pool := poolOf("a", "b", "c")
	got := reranker.Rerank(context.Background(), "query", pool)
	if len(got) != 2 {
		t.Fatalf("expected fusion-ordered top 2, got %d", len(got))
	}
	if got[0].ChunkID != "a" || got[1].ChunkID != "b" {
		t.Fatalf("expected original order preserved, got %v, %v", got[0].ChunkID, got[1].ChunkID)
	}
	// Fusion-derived similarity survives untouched.
	if got[0].Similarity != 0.5 {
		t.Fatalf("expected similarity unchanged on fallback, got %v", got[0].Similarity)
	}
}

func TestRerankScoreCountMismatchFallsBack(t *testing.T) {
	model := &fakeRerankModel{scores: []float64{0.1}}
	reranker := NewReranker(model, 5)

	pool := poolOf("a", "b", "c")
	got := reranker.Rerank(context.Background(), "query", pool)
	if len(got) != 3 || got[0].ChunkID != "a" {
		t.Fatalf("expected fallback to original pool, got %v", got)
	}
}

func TestRerankDoesNotMutateInput(t *testing.T) {
	model := &fakeRerankModel{scores: []float64{0.9, 0.1}}
	reranker := NewReranker(model, 2)

	pool := poolOf("a", "b")
	_ = reranker.Rerank(context.Background(), "query", pool)
	if pool[0].Similarity != 0.5 || pool[1].Similarity != 0.5 {
		t.Fatalf("input pool mutated: %v", pool)
	}
}
