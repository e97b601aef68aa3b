package upload

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers upload routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/api/upload", h.Upload)
}
