package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"zapboard/internal/metrics"
)

// Router wires the boundary surface consumed by the React dashboard.
func Router(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// The front end runs on Vite dev ports during development.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:8080",
			"http://localhost:8081",
			"http://localhost:8082",
			"http://localhost:8083",
			"http://localhost:5173",
		},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/health", h.Health)

	r.Get("/api/scheduled", h.ListScheduled)
	r.Post("/api/schedule", h.Schedule)
	r.Delete("/api/scheduled/{id}", h.DeleteScheduled)

	r.Get("/api/stats", h.Stats)
	r.Post("/api/stats/reset", h.ResetStats)

	r.Get("/api/status", h.Status)
	r.Get("/api/events", h.Events)

	r.Handle("/metrics", metrics.Handler())

	return r
}
