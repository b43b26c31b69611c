package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPRequestDuration tracks request latency per route and status code.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "talkingbird_http_request_duration_seconds",
		Help:    "HTTP request latency by method, path and status code.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// DocumentsProcessed counts document ingestion outcomes by final status.
var DocumentsProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "talkingbird_documents_processed_total",
		Help: "Documents processed by the ingestion pipeline, by final status.",
	},
	[]string{"status"},
)

// QueriesAnswered counts answered queries by confidence tier.
var QueriesAnswered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "talkingbird_queries_answered_total",
		Help: "Answered queries by confidence tier.",
	},
	[]string{"confidence"},
)

// ChunksIndexed counts chunks embedded and upserted into the vector index.
var ChunksIndexed = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "talkingbird_chunks_indexed_total",
		Help: "Chunks embedded and stored in the vector index.",
	},
)
