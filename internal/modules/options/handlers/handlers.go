// Package handlers provides HTTP handlers for option pricing operations.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/modules/options"
	"github.com/aristath/tokyorisk/pkg/render"
)

// MaxPaths bounds Monte Carlo requests
const MaxPaths = 200000

// Handler handles option pricing HTTP requests
type Handler struct {
	engine       *options.Engine
	analyzer     *options.Analyzer
	defaultPaths int
	log          zerolog.Logger
}

// NewHandler creates a new options handler
func NewHandler(engine *options.Engine, defaultPaths int, log zerolog.Logger) *Handler {
	if defaultPaths <= 0 {
		defaultPaths = options.DefaultPaths
	}
	return &Handler{
		engine:       engine,
		analyzer:     options.NewAnalyzer(engine),
		defaultPaths: defaultPaths,
		log:          log.With().Str("handler", "options").Logger(),
	}
}

var errInvalidContract = errors.New("invalid option contract")

func validateContract(c domain.OptionContract) error {
	switch {
	case c.Spot <= 0:
		return fmt.Errorf("%w: spot must be positive", errInvalidContract)
	case c.Strike <= 0:
		return fmt.Errorf("%w: strike must be positive", errInvalidContract)
	case c.TimeToMaturity < 0:
		return fmt.Errorf("%w: time_to_maturity must not be negative", errInvalidContract)
	case c.Volatility <= 0:
		return fmt.Errorf("%w: volatility must be positive", errInvalidContract)
	}
	return nil
}

func parseOptionType(s string) (domain.OptionType, error) {
	switch domain.OptionType(s) {
	case "", domain.Call:
		return domain.Call, nil
	case domain.Put:
		return domain.Put, nil
	}
	return "", fmt.Errorf("unknown option_type %q", s)
}

// HandlePrice handles POST /api/options/price
func (h *Handler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	var c domain.OptionContract
	if err := render.DecodeJSON(r, &c); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateContract(c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	render.OK(w, r, h.engine.PriceBoth(c), h.log)
}

type impliedVolRequest struct {
	MarketPrice    float64 `json:"market_price"`
	Spot           float64 `json:"spot"`
	Strike         float64 `json:"strike"`
	TimeToMaturity float64 `json:"time_to_maturity"`
	RiskFreeRate   float64 `json:"risk_free_rate"`
	OptionType     string  `json:"option_type"`
}

// HandleImpliedVolatility handles POST /api/options/implied-volatility
func (h *Handler) HandleImpliedVolatility(w http.ResponseWriter, r *http.Request) {
	var req impliedVolRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	typ, err := parseOptionType(req.OptionType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.MarketPrice <= 0 || req.Spot <= 0 || req.Strike <= 0 || req.TimeToMaturity <= 0 {
		http.Error(w, "market_price, spot, strike and time_to_maturity must be positive", http.StatusBadRequest)
		return
	}

	iv := h.engine.ImpliedVolatility(req.MarketPrice, req.Spot, req.Strike, req.TimeToMaturity, req.RiskFreeRate, typ)

	render.OK(w, r, map[string]interface{}{
		"implied_volatility": iv,
		"option_type":        typ,
	}, h.log)
}

type monteCarloRequest struct {
	domain.OptionContract
	OptionType string `json:"option_type"`
	NumPaths   int    `json:"num_paths"`
}

// HandleMonteCarlo handles POST /api/options/monte-carlo
func (h *Handler) HandleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	var req monteCarloRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateContract(req.OptionContract); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	typ, err := parseOptionType(req.OptionType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	paths := req.NumPaths
	if paths <= 0 {
		paths = h.defaultPaths
	}
	if paths > MaxPaths {
		http.Error(w, fmt.Sprintf("num_paths must not exceed %d", MaxPaths), http.StatusBadRequest)
		return
	}

	render.OK(w, r, h.engine.MonteCarloPrice(req.OptionContract, paths, typ), h.log)
}

type portfolioRequest struct {
	Positions []options.Position `json:"positions"`
}

// HandlePortfolioGreeks handles POST /api/options/portfolio-greeks
func (h *Handler) HandlePortfolioGreeks(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	for i, p := range req.Positions {
		if err := validateContract(p.OptionContract); err != nil {
			http.Error(w, fmt.Sprintf("position %d: %v", i, err), http.StatusBadRequest)
			return
		}
		if _, err := parseOptionType(string(p.Type)); err != nil {
			http.Error(w, fmt.Sprintf("position %d: %v", i, err), http.StatusBadRequest)
			return
		}
	}

	render.OK(w, r, h.engine.PortfolioGreeks(req.Positions), h.log)
}

type nikkeiRequest struct {
	Spot              float64 `json:"spot"`
	Strike            float64 `json:"strike"`
	DaysToExpiry      int     `json:"days_to_expiry"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	RiskLevel         string  `json:"risk_level"`
}

// HandleNikkeiAnalysis handles POST /api/options/nikkei-analysis
func (h *Handler) HandleNikkeiAnalysis(w http.ResponseWriter, r *http.Request) {
	var req nikkeiRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Spot <= 0 || req.Strike <= 0 || req.DaysToExpiry < 0 || req.ImpliedVolatility <= 0 {
		http.Error(w, "spot, strike and implied_volatility must be positive", http.StatusBadRequest)
		return
	}

	level := domain.RiskMedium
	if req.RiskLevel != "" {
		parsed, ok := domain.ParseRiskLevel(req.RiskLevel)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown risk_level %q", req.RiskLevel), http.StatusBadRequest)
			return
		}
		level = parsed
	}

	h.log.Debug().
		Float64("spot", req.Spot).
		Float64("strike", req.Strike).
		Str("level", string(level)).
		Msg("Analyzing Nikkei option")

	render.OK(w, r, h.analyzer.AnalyzeNikkeiOption(req.Spot, req.Strike, req.DaysToExpiry, req.ImpliedVolatility, level), h.log)
}
