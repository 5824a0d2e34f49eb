package options

import (
	"math"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

// NikkeiRiskFreeRate approximates the Bank of Japan policy rate
const NikkeiRiskFreeRate = 0.005

var earthquakeProbabilities = map[domain.RiskLevel]float64{
	domain.RiskLow:      0.02,
	domain.RiskMedium:   0.05,
	domain.RiskHigh:     0.10,
	domain.RiskCritical: 0.20,
}

var earthquakeRiskScores = map[domain.RiskLevel]int{
	domain.RiskLow:      1,
	domain.RiskMedium:   2,
	domain.RiskHigh:     3,
	domain.RiskCritical: 4,
}

// RiskMetrics are Japan-specific risk figures for an option underlying
type RiskMetrics struct {
	VaR95                 float64 `json:"var_95" msgpack:"var_95"`
	VaR99                 float64 `json:"var_99" msgpack:"var_99"`
	EarthquakeProbability float64 `json:"earthquake_probability" msgpack:"earthquake_probability"`
	EstimatedMaxDrawdown  float64 `json:"estimated_max_drawdown" msgpack:"estimated_max_drawdown"`
	VolatilityPercentile  string  `json:"volatility_percentile" msgpack:"volatility_percentile"`
	RiskRating            string  `json:"risk_rating" msgpack:"risk_rating"`
}

// MarketConditions records the parameters the analysis was run with
type MarketConditions struct {
	EarthquakeRiskLevel  domain.RiskLevel `json:"earthquake_risk_level" msgpack:"earthquake_risk_level"`
	VolatilityAdjustment float64          `json:"volatility_adjustment" msgpack:"volatility_adjustment"`
	DaysToExpiry         int              `json:"time_to_expiry" msgpack:"time_to_expiry"`
	RiskFreeRate         float64          `json:"risk_free_rate" msgpack:"risk_free_rate"`
}

// NikkeiAnalysis is the full analysis of one Nikkei option
type NikkeiAnalysis struct {
	StandardPricing         Pricing          `json:"standard_pricing" msgpack:"standard_pricing"`
	DisasterAdjustedPricing MonteCarloResult `json:"disaster_adjusted_pricing" msgpack:"disaster_adjusted_pricing"`
	RiskMetrics             RiskMetrics      `json:"risk_metrics" msgpack:"risk_metrics"`
	MarketConditions        MarketConditions `json:"market_conditions" msgpack:"market_conditions"`
}

// Analyzer evaluates Nikkei index options under earthquake risk
type Analyzer struct {
	engine *Engine
}

// NewAnalyzer creates an analyzer backed by engine
func NewAnalyzer(engine *Engine) *Analyzer {
	return &Analyzer{engine: engine}
}

// AnalyzeNikkeiOption prices a call with volatility adjusted for the
// earthquake risk level and derives drawdown and rating figures
func (a *Analyzer) AnalyzeNikkeiOption(spot, strike float64, daysToExpiry int, impliedVol float64, level domain.RiskLevel) NikkeiAnalysis {
	t := float64(daysToExpiry) / DaysPerYear
	adjusted := JapaneseVolatilityAdjustment(impliedVol, level)

	contract := domain.OptionContract{
		Spot:           spot,
		Strike:         strike,
		TimeToMaturity: t,
		RiskFreeRate:   NikkeiRiskFreeRate,
		Volatility:     adjusted,
	}

	ratio := 0.0
	if impliedVol != 0 {
		ratio = adjusted / impliedVol
	}

	return NikkeiAnalysis{
		StandardPricing:         a.engine.PriceBoth(contract),
		DisasterAdjustedPricing: a.engine.MonteCarloPrice(contract, DefaultPaths, domain.Call),
		RiskMetrics:             japaneseRiskMetrics(spot, adjusted, t, level),
		MarketConditions: MarketConditions{
			EarthquakeRiskLevel:  level,
			VolatilityAdjustment: ratio,
			DaysToExpiry:         daysToExpiry,
			RiskFreeRate:         NikkeiRiskFreeRate,
		},
	}
}

func japaneseRiskMetrics(spot, sigma, t float64, level domain.RiskLevel) RiskMetrics {
	prob, ok := earthquakeProbabilities[level]
	if !ok {
		prob = earthquakeProbabilities[domain.RiskLow]
	}
	return RiskMetrics{
		VaR95:                 valueAtRisk(spot, sigma, t, 0.95),
		VaR99:                 valueAtRisk(spot, sigma, t, 0.99),
		EarthquakeProbability: prob,
		EstimatedMaxDrawdown:  maxDrawdown(spot, sigma, t, prob),
		VolatilityPercentile:  VolatilityPercentile(sigma),
		RiskRating:            RiskRating(sigma, level),
	}
}

// valueAtRisk is the lognormal loss quantile S·(1 - exp(z·σ√T))
func valueAtRisk(spot, sigma, t, confidence float64) float64 {
	z := formulas.NormQuantile(1 - confidence)
	return finite(spot * (1 - math.Exp(z*sigma*math.Sqrt(math.Max(t, 0)))))
}

// maxDrawdown blends a 2.5σ move with a 25% earthquake crash
func maxDrawdown(spot, sigma, t, quakeProb float64) float64 {
	normal := spot * sigma * math.Sqrt(math.Max(t, 0)) * 2.5
	quake := spot * 0.25
	return normal*(1-quakeProb) + quake*quakeProb
}

// VolatilityPercentile buckets annual volatility against Japanese market history
func VolatilityPercentile(sigma float64) string {
	switch {
	case sigma < 0.15:
		return "Low (bottom 25%)"
	case sigma < 0.25:
		return "Normal (25-75%)"
	case sigma < 0.40:
		return "High (75-95%)"
	default:
		return "Extreme (top 5%)"
	}
}

// RiskRating combines a volatility score (0-5) with the earthquake level score (1-4)
func RiskRating(sigma float64, level domain.RiskLevel) string {
	volScore := int(sigma * 10)
	if volScore > 5 {
		volScore = 5
	}
	quakeScore, ok := earthquakeRiskScores[level]
	if !ok {
		quakeScore = 1
	}

	switch total := volScore + quakeScore; {
	case total <= 3:
		return "Conservative"
	case total <= 5:
		return "Moderate"
	case total <= 7:
		return "Aggressive"
	default:
		return "Speculative"
	}
}
