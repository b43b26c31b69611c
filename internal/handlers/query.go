package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"talkingbird/internal/answer"
	"talkingbird/internal/contextutil"
	"talkingbird/internal/metrics"
	"talkingbird/internal/retrieval"
	"talkingbird/internal/storage"
)

const (
	maxQueryLength      = 2000
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// QueryHandler handles HTTP requests for document-grounded queries.
type QueryHandler struct {
	retriever *retrieval.Retriever
	reranker  *retrieval.Reranker
	generator *answer.Generator
	queryRepo storage.QueryStore
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(
	retriever *retrieval.Retriever,
	reranker *retrieval.Reranker,
	generator *answer.Generator,
	queryRepo storage.QueryStore,
) *QueryHandler {
	return &QueryHandler{
		retriever: retriever,
		reranker:  reranker,
		generator: generator,
		queryRepo: queryRepo,
	}
}

// QueryRequest is the HTTP request payload for queries.
type QueryRequest struct {
	Query string `json:"query"`
}

// SourceResponse is one cited source chunk in a query response.
type SourceResponse struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	PageNumber   int     `json:"page_number,omitempty"`
	Similarity   float64 `json:"similarity"`
	Excerpt      string  `json:"excerpt"`
}

// QueryResponse is the HTTP response payload for queries.
type QueryResponse struct {
	Answer           string           `json:"answer"`
	Confidence       string           `json:"confidence"`
	Sources          []SourceResponse `json:"sources"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	GroundingWarning string           `json:"grounding_warning,omitempty"`
}

// ServeHTTP answers a query against the indexed documents.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "Query is too long")
		return
	}

	candidates, err := h.retriever.Retrieve(ctx, query)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to retrieve documents")
		return
	}

	candidates = h.reranker.Rerank(ctx, query, candidates)
	result := h.generator.Generate(ctx, query, candidates)

	elapsed := time.Since(start).Milliseconds()
	h.recordQuery(r, query, result, len(candidates), elapsed)
	metrics.QueriesAnswered.WithLabelValues(result.Confidence).Inc()

	resp := QueryResponse{
		Answer:           result.Answer,
		Confidence:       result.Confidence,
		Sources:          make([]SourceResponse, 0, len(candidates)),
		ProcessingTimeMs: elapsed,
	}
	if result.Speculative {
		resp.GroundingWarning = "Answer may contain speculative language not grounded in the documents."
	}
	for _, c := range candidates {
		resp.Sources = append(resp.Sources, SourceResponse{
			DocumentID:   c.DocumentID,
			DocumentName: c.DocumentName,
			ChunkIndex:   c.ChunkIndex,
			PageNumber:   c.PageNumber,
			Similarity:   c.Similarity,
			Excerpt:      c.TextContent,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// recordQuery persists the answered query. History is best-effort and never
// fails the request.
func (h *QueryHandler) recordQuery(r *http.Request, query string, result answer.Result, numChunks int, elapsedMs int64) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	record := &storage.QueryRecord{
		ID:               uuid.New().String(),
		QueryText:        query,
		AnswerText:       result.Answer,
		Confidence:       result.Confidence,
		NumChunks:        numChunks,
		AvgSimilarity:    result.AvgSimilarity,
		ProcessingTimeMs: elapsedMs,
	}
	if err := h.queryRepo.Insert(ctx, record); err != nil {
		logger.ErrorContext(ctx, "failed to record query", "error", err)
	}
}

// HistoryHandler handles HTTP requests for recent query history.
type HistoryHandler struct {
	queryRepo storage.QueryStore
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(queryRepo storage.QueryStore) *HistoryHandler {
	return &HistoryHandler{queryRepo: queryRepo}
}

// HistoryEntry is one answered query in the history response.
type HistoryEntry struct {
	ID               string  `json:"id"`
	Query            string  `json:"query"`
	Answer           string  `json:"answer"`
	Confidence       string  `json:"confidence"`
	NumChunks        int     `json:"num_chunks"`
	AvgSimilarity    float64 `json:"avg_similarity"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
	CreatedAt        string  `json:"created_at"`
}

// ServeHTTP lists recent answered queries, newest first.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		if parsed > maxHistoryLimit {
			parsed = maxHistoryLimit
		}
		limit = parsed
	}

	records, err := h.queryRepo.ListRecent(ctx, limit)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list query history")
		return
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, HistoryEntry{
			ID:               rec.ID,
			Query:            rec.QueryText,
			Answer:           rec.AnswerText,
			Confidence:       rec.Confidence,
			NumChunks:        rec.NumChunks,
			AvgSimilarity:    rec.AvgSimilarity,
			ProcessingTimeMs: rec.ProcessingTimeMs,
			CreatedAt:        rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"queries": entries})
}
