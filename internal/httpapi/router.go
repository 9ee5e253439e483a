// Package httpapi exposes the analysis pipeline over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the API router.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(10 * time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", h.Analyze)
		r.Get("/history", h.History)
		r.Get("/analyses/{id}", h.GetAnalysis)
		r.Delete("/analyses/{id}", h.RemoveAnalysis)
		r.Post("/analyses/{id}/research/{productID}", h.ReResearch)
		r.Post("/analyses/{id}/bid", h.Bid)
		r.Get("/contracts", h.Contracts)
		r.Post("/contracts", h.UploadContract)
		r.Delete("/contracts/{id}", h.RemoveContract)
	})

	return r
}
