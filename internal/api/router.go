package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter builds the HTTP router with logging, panic recovery and CORS
// applied to every route.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(h.Log))
	r.Use(Recovery(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         3600,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.UpdateProfile)

		r.Post("/ingest", h.Ingest)
		r.Get("/jobs/{jobID}", h.GetJob)

		r.Get("/files", h.ListFiles)
		r.Delete("/files/{fileID}", h.DeleteFile)

		r.Get("/categories", h.ListCategories)

		r.Post("/query", h.Query)
	})

	return r
}
