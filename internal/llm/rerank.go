package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// RerankClient is a client for a cross-encoder rerank API (TEI-style
// /rerank endpoint). The model scores (query, document) pairs jointly.
type RerankClient struct {
	BaseURL string
	APIKey  string
	Model   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewRerankClient creates a new rerank client.
func NewRerankClient(baseURL, apiKey, model string) *RerankClient {
	return &RerankClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		client:  http.DefaultClient,
		breaker: newBreaker("llm-rerank"),
	}
}

// RerankRequest represents the request payload for the rerank API.
type RerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

// RerankResult represents a single scored document in the response.
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RerankResponse represents the response from the rerank API.
type RerankResponse struct {
	Results []RerankResult `json:"results"`
}

// Score returns one raw relevance score per document, in document order.
// Raw scores are model logits (roughly [-10, 10]); callers normalize.
func (c *RerankClient) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, fmt.Errorf("empty document list")
	}

	url := fmt.Sprintf("%s/rerank", c.BaseURL)

	payload := RerankRequest{
		Model:     c.Model,
		Query:     query,
		Documents: documents,
	}

	raw, err := postJSON(ctx, c.client, c.breaker, url, c.APIKey, payload)
	if err != nil {
		return nil, err
	}

	var rerankResp RerankResponse
	if err := json.Unmarshal(raw, &rerankResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(rerankResp.Results) != len(documents) {
		return nil, fmt.Errorf("expected %d scores, got %d", len(documents), len(rerankResp.Results))
	}

	scores := make([]float64, len(documents))
	for _, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("result index %d out of range", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
	}

	return scores, nil
}
