package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all decision queue routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/decisions", func(r chi.Router) {
		r.Get("/", h.HandleGetPending)
		r.Get("/history", h.HandleGetHistory)
		r.Get("/stats", h.HandleGetStats)
		r.Post("/{id}/approve", h.HandleApprove)
		r.Post("/{id}/reject", h.HandleReject)
	})
}
