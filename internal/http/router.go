package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"talkingbird/internal/handlers"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QueryHandler     *handlers.QueryHandler
	HistoryHandler   *handlers.HistoryHandler
	DocumentsHandler *handlers.DocumentsHandler
	HealthHandler    *handlers.HealthHandler
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(LoggerMiddleware)
	r.Use(MetricsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/query", deps.QueryHandler)
		r.Method(http.MethodGet, "/query/history", deps.HistoryHandler)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", deps.DocumentsHandler.Upload)
			r.Get("/", deps.DocumentsHandler.List)
			r.Delete("/{id}", deps.DocumentsHandler.Delete)
		})
	})

	r.Method(http.MethodGet, "/health", deps.HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
