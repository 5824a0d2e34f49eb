package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		// Latest refresh
		r.Get("/assessment", h.HandleGetAssessment)
		r.Get("/report", h.HandleGetReport)
		r.Get("/seismic-patterns", h.HandleGetSeismicPatterns)
		r.Get("/forecast", h.HandleGetForecast)

		// Stateless calculations
		r.Get("/var", h.HandleGetVaR)
		r.Get("/scenarios", h.HandleGetScenarios)
		r.Post("/assess", h.HandleAssess)
	})
}
