package handlers

import (
	"context"
	"net/http"
	"time"

	"talkingbird/internal/vectorstore"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	vectorStore vectorstore.VectorStore
	collection  string
	db          Pinger
	timeout     time.Duration
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping() error
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(vectorStore vectorstore.VectorStore, collection string, db Pinger) *HealthHandler {
	return &HealthHandler{
		vectorStore: vectorStore,
		collection:  collection,
		db:          db,
		timeout:     5 * time.Second,
	}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// ServeHTTP reports service health. Returns 200 when all dependencies are
// reachable and 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{
		"database":     "ok",
		"vector_store": "ok",
	}
	healthy := true

	if err := h.db.Ping(); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}

	if exists, err := h.vectorStore.CollectionExists(ctx, h.collection); err != nil {
		checks["vector_store"] = err.Error()
		healthy = false
	} else if !exists {
		checks["vector_store"] = "collection missing"
		healthy = false
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
