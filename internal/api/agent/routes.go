package agent

import (
	"github.com/go-chi/chi/v5"
)

// RegisterStreamRoutes registers the SSE endpoint. It must stay outside any
// request timeout middleware.
func RegisterStreamRoutes(r chi.Router, h *Handler) {
	r.Get("/api/agent/stream", h.Stream)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/api/agent/run", h.Run)
}
