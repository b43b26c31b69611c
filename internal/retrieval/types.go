package retrieval

import (
	"context"

	"talkingbird/internal/llm"
)

// Candidate is an ephemeral, query-scoped ranked chunk. VectorScore and
// LexicalScore live on incomparable channel-native scales; FusedScore is
// the rank-fusion score; Similarity is the display value in [0, 1],
// reranker-derived when reranking ran and fusion-derived otherwise.
type Candidate struct {
	ChunkID      string
	DocumentID   string
	DocumentName string
	ChunkIndex   int
	PageNumber   int // 1-indexed; 0 when unknown
	TextContent  string
	VectorScore  float64
	LexicalScore float64
	FusedScore   float64
	Similarity   float64
}

// Embedder generates embedding vectors for a batch of texts, one per input
// text, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer generates text from an instruction and input.
type Completer interface {
	Complete(ctx context.Context, instruction, input string, params llm.CompleteParams) (string, error)
}

// RerankModel scores (query, document) pairs jointly, returning one raw
// relevance score per document in document order.
type RerankModel interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}
