package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk network routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/network", func(r chi.Router) {
		r.Get("/systemic", h.HandleGetSystemic)
		r.Get("/clusters", h.HandleGetClusters)
		r.Get("/anomalies", h.HandleGetAnomalies)
		r.Get("/graph", h.HandleGetGraph)
		r.Get("/contagion/{node}", h.HandleGetContagion)
	})
}
