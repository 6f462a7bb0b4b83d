// Package http wires the chi router for the document chat API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docchat-ai/internal/config"
	"docchat-ai/internal/handlers"
	"docchat-ai/internal/history"
	"docchat-ai/internal/ingest"
	"docchat-ai/internal/rag"
	"docchat-ai/internal/storage"
	"docchat-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine              rag.Engine
	Tracker             *history.Tracker
	Pipeline            *ingest.Pipeline
	Documents           storage.DocumentStore
	VectorStore         vectorstore.VectorStore
	Collection          string
	AttributionDefaults config.AttributionConfig
}

// NewRouter creates the HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS)

	queryHandler := handlers.NewQueryHandler(deps.Engine, deps.AttributionDefaults)
	documentsHandler := handlers.NewDocumentsHandler(deps.Pipeline, deps.Documents)
	historyHandler := handlers.NewHistoryHandler(deps.Tracker)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.Collection)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodPost, "/query", queryHandler)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentsHandler.Upload)
			r.Get("/", documentsHandler.List)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", historyHandler.List)
			r.Delete("/", historyHandler.Clear)
			r.Get("/stats", historyHandler.Stats)
			r.Get("/sources", historyHandler.Sources)
			r.Get("/export", historyHandler.Export)
			r.Post("/citations", historyHandler.Regenerate)
		})
	})

	return r
}
