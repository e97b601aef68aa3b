package offer

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers offer delivery routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/api/email/send", h.SendEmail)
	r.Post("/api/offer/export", h.Export)
}
