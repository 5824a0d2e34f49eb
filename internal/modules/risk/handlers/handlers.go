// Package handlers provides HTTP handlers for integrated risk operations.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/modules/risk"
	"github.com/aristath/tokyorisk/internal/monitor"
	"github.com/aristath/tokyorisk/pkg/formulas"
	"github.com/aristath/tokyorisk/pkg/render"
)

// Query bounds
const (
	DefaultForecastDays = 7
	MaxForecastDays     = 30
	MaxVaRDays          = 252
	DefaultPatternDays  = 30
	MaxPatternDays      = 365
	MaxScenarios        = 100000
)

// SnapshotSource exposes the latest refresh and the components behind it
type SnapshotSource interface {
	Latest() (*monitor.Snapshot, error)
	Engine() *risk.Engine
	Forecaster() *risk.StatisticalForecaster
	Location() (lat, lon float64)
}

// Handler handles risk HTTP requests
type Handler struct {
	source SnapshotSource
	clock  domain.Clock
	log    zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(source SnapshotSource, clock domain.Clock, log zerolog.Logger) *Handler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Handler{
		source: source,
		clock:  clock,
		log:    log.With().Str("handler", "risk").Logger(),
	}
}

// latest writes 503 and returns false when no snapshot exists yet
func (h *Handler) latest(w http.ResponseWriter) (*monitor.Snapshot, bool) {
	snap, err := h.source.Latest()
	if err != nil {
		if errors.Is(err, monitor.ErrNoSnapshot) {
			http.Error(w, "Risk assessment not available yet", http.StatusServiceUnavailable)
			return nil, false
		}
		h.log.Error().Err(err).Msg("Failed to load risk snapshot")
		http.Error(w, "Failed to load risk snapshot", http.StatusInternalServerError)
		return nil, false
	}
	return snap, true
}

// intParam parses an optional integer query parameter within [lo, hi]
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return v, nil
}

// HandleGetAssessment handles GET /api/risk/assessment
func (h *Handler) HandleGetAssessment(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}

	render.OK(w, r, map[string]interface{}{
		"assessment":  snap.Assessment,
		"anomaly":     snap.Anomaly,
		"feed_errors": snap.FeedErrors,
		"updated_at":  snap.UpdatedAt.Format(time.RFC3339),
	}, h.log)
}

// HandleGetReport handles GET /api/risk/report
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(risk.Report(snap.Assessment))); err != nil {
		h.log.Error().Err(err).Msg("Failed to write risk report")
	}
}

// HandleGetVaR handles GET /api/risk/var. The level defaults to the
// current combined level.
func (h *Handler) HandleGetVaR(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	value, err := strconv.ParseFloat(q.Get("value"), 64)
	if err != nil || value <= 0 || !formulas.IsFinite(value) {
		http.Error(w, "value must be a positive number", http.StatusBadRequest)
		return
	}

	days, err := intParam(r, "days", 1, 1, MaxVaRDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var level domain.RiskLevel
	if raw := q.Get("level"); raw != "" {
		parsed, ok := domain.ParseRiskLevel(raw)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown risk level %q", raw), http.StatusBadRequest)
			return
		}
		level = parsed
	} else {
		snap, ok := h.latest(w)
		if !ok {
			return
		}
		level = snap.Assessment.Combined.Level
	}

	render.OK(w, r, risk.CalculateVaR(value, level, days), h.log)
}

type assessRequest struct {
	Events            []domain.SeismicEvent    `json:"events"`
	Market            domain.MarketSummary     `json:"market"`
	CorrelationMatrix domain.CorrelationMatrix `json:"correlation_matrix"`
}

// HandleAssess handles POST /api/risk/assess with caller supplied inputs
func (h *Handler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	assessment, err := h.source.Engine().Assess(req.Events, req.Market, req.CorrelationMatrix)
	if err != nil {
		if errors.Is(err, domain.ErrMatrixFormat) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("Failed to assess risk")
		http.Error(w, "Failed to assess risk", http.StatusInternalServerError)
		return
	}

	render.OK(w, r, assessment, h.log)
}

// HandleGetForecast handles GET /api/risk/forecast
func (h *Handler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", DefaultForecastDays, 1, MaxForecastDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap, ok := h.latest(w)
	if !ok {
		return
	}

	f := h.source.Forecaster()
	forecast := f.Forecast(snap.Assessment, days)
	render.OK(w, r, map[string]interface{}{
		"forecast":   forecast,
		"assessment": risk.SummarizeForecast(forecast),
		"model":      f.Name(),
	}, h.log)
}

// HandleGetScenarios handles GET /api/risk/scenarios
func (h *Handler) HandleGetScenarios(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", risk.DefaultScenarioCount, 1, MaxScenarios)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	render.OK(w, r, map[string]interface{}{
		"samples":   n,
		"scenarios": h.source.Forecaster().Scenarios(n),
	}, h.log)
}

// HandleGetSeismicPatterns handles GET /api/risk/seismic-patterns.
// patterns is null when no event falls inside the window.
func (h *Handler) HandleGetSeismicPatterns(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", DefaultPatternDays, 1, MaxPatternDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap, ok := h.latest(w)
	if !ok {
		return
	}

	lat, lon := h.source.Location()
	var patterns *risk.SeismicPatterns
	if p, found := risk.Patterns(snap.Events, lat, lon, days, h.clock.Now()); found {
		patterns = &p
	}

	render.OK(w, r, map[string]interface{}{
		"days":               days,
		"radius_km":          risk.PatternRadiusKm,
		"patterns":           patterns,
		"sector_sensitivity": risk.SectorSensitivity,
	}, h.log)
}
