// Package handlers provides HTTP handlers for market hours operations.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/modules/market_hours"
	"github.com/aristath/tokyorisk/pkg/render"
)

// Handler handles market hours HTTP requests
type Handler struct {
	service *market_hours.MarketHoursService
	clock   domain.Clock
	log     zerolog.Logger
}

// NewHandler creates a new market hours handler
func NewHandler(
	service *market_hours.MarketHoursService,
	clock domain.Clock,
	log zerolog.Logger,
) *Handler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Handler{
		service: service,
		clock:   clock,
		log:     log.With().Str("handler", "market_hours").Logger(),
	}
}

// HandleGetStatus handles GET /api/market/status
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()
	render.OK(w, r, map[string]interface{}{
		"checked_at": now.In(market_hours.Tokyo).Format(time.RFC3339),
		"market":     h.service.GetMarketStatus(now),
	}, h.log)
}

// HandleGetHolidays handles GET /api/market/holidays
func (h *Handler) HandleGetHolidays(w http.ResponseWriter, r *http.Request) {
	year := h.clock.Now().In(market_hours.Tokyo).Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil || parsed < 1980 || parsed > 2099 {
			http.Error(w, "year must be between 1980 and 2099", http.StatusBadRequest)
			return
		}
		year = parsed
	}

	render.OK(w, r, map[string]interface{}{
		"year":     year,
		"exchange": market_hours.ExchangeCode,
		"holidays": h.service.Holidays(year),
	}, h.log)
}
