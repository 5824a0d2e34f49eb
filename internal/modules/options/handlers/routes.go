package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all option pricing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/options", func(r chi.Router) {
		r.Post("/price", h.HandlePrice)
		r.Post("/implied-volatility", h.HandleImpliedVolatility)
		r.Post("/monte-carlo", h.HandleMonteCarlo)
		r.Post("/portfolio-greeks", h.HandlePortfolioGreeks)
		r.Post("/nikkei-analysis", h.HandleNikkeiAnalysis)
	})
}
