package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScoreMapsResultsBackToDocumentOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req RerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Query != "the query" || len(req.Documents) != 3 {
			t.Errorf("unexpected request: %+v", req)
		}
		// TEI returns results sorted by score, not document order.
		_ = json.NewEncoder(w).Encode(RerankResponse{Results: []RerankResult{
			{Index: 2, RelevanceScore: 5.0},
			{Index: 0, RelevanceScore: -1.5},
			{Index: 1, RelevanceScore: 2.25},
		}})
	}))
	defer server.Close()

	client := NewRerankClient(server.URL, "key", "model")
	scores, err := client.Score(context.Background(), "the query", []string{"d0", "d1", "d2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{-1.5, 2.25, 5.0}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, scores)
		}
	}
}

func TestScoreEmptyDocuments(t *testing.T) {
	client := NewRerankClient("http://unused", "key", "model")
	if _, err := client.Score(context.Background(), "q", nil); err == nil {
		t.Fatal("expected error for empty document list")
	}
}

func TestScoreCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(RerankResponse{Results: []RerankResult{{Index: 0, RelevanceScore: 1}}})
	}))
	defer server.Close()

	client := NewRerankClient(server.URL, "key", "model")
	if _, err := client.Score(context.Background(), "q", []string{"a", "b"}); err == nil {
		t.Fatal("expected error on score count mismatch")
	}
}

func TestScoreIndexOutOfRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(RerankResponse{Results: []RerankResult{
			{Index: 0, RelevanceScore: 1},
			{Index: 7, RelevanceScore: 2},
		}})
	}))
	defer server.Close()

	client := NewRerankClient(server.URL, "key", "model")
	if _, err := client.Score(context.Background(), "q", []string{"a", "b"}); err == nil {
		t.Fatal("expected error on out-of-range result index")
	}
}
