package risk

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

// DefaultForecastDays is used when a non-positive horizon is requested
const DefaultForecastDays = 7

// DefaultScenarioCount is used when a non-positive scenario count is requested
const DefaultScenarioCount = 1000

// Forecaster projects an integrated assessment forward in time
type Forecaster interface {
	Name() string
	Forecast(base CombinedAssessment, days int) RiskForecast
	Assess(base CombinedAssessment, days int) domain.Assessment
}

// DailyForecast is one day of a forecast horizon
type DailyForecast struct {
	Day        int     `json:"day" msgpack:"day"`
	Date       string  `json:"date" msgpack:"date"`
	RiskScore  float64 `json:"risk_score" msgpack:"risk_score"`
	Volatility float64 `json:"volatility" msgpack:"volatility"`
	Confidence float64 `json:"confidence" msgpack:"confidence"`
}

// RiskForecast is the projected path of the combined score
type RiskForecast struct {
	Method          string          `json:"method" msgpack:"method"`
	CurrentRisk     float64         `json:"current_risk_prediction" msgpack:"current_risk_prediction"`
	CurrentVol      float64         `json:"current_volatility_prediction" msgpack:"current_volatility_prediction"`
	Daily           []DailyForecast `json:"daily_forecasts" msgpack:"daily_forecasts"`
	RiskLower       float64         `json:"risk_lower" msgpack:"risk_lower"`
	RiskUpper       float64         `json:"risk_upper" msgpack:"risk_upper"`
	ModelConfidence float64         `json:"model_confidence" msgpack:"model_confidence"`
}

// ScenarioStats summarises one stress scenario distribution
type ScenarioStats struct {
	MeanRisk            float64 `json:"mean_risk" msgpack:"mean_risk"`
	StdRisk             float64 `json:"std_risk" msgpack:"std_risk"`
	VaR95               float64 `json:"var_95" msgpack:"var_95"`
	VaR99               float64 `json:"var_99" msgpack:"var_99"`
	WorstCase           float64 `json:"worst_case" msgpack:"worst_case"`
	ProbabilityHighRisk float64 `json:"probability_high_risk" msgpack:"probability_high_risk"`
}

// Scenario names
const (
	ScenarioNormal         = "normal"
	ScenarioEarthquake     = "earthquake"
	ScenarioMarketCrash    = "market_crash"
	ScenarioCombinedCrisis = "combined_crisis"
)

// Features are named numeric observations used for anomaly scoring
type Features map[string]float64

// Contributor is a feature that pushed the anomaly score up
type Contributor struct {
	Feature string  `json:"feature" msgpack:"feature"`
	Value   float64 `json:"value" msgpack:"value"`
}

// AnomalyResult is the outcome of threshold anomaly scoring
type AnomalyResult struct {
	IsAnomaly      bool          `json:"is_anomaly" msgpack:"is_anomaly"`
	Score          float64       `json:"anomaly_score" msgpack:"anomaly_score"`
	Probability    float64       `json:"anomaly_probability" msgpack:"anomaly_probability"`
	Contributors   []Contributor `json:"top_contributors" msgpack:"top_contributors"`
	Recommendation string        `json:"recommendation" msgpack:"recommendation"`
}

// StatisticalForecaster uses random walks and fixed scenario models.
// Every call draws from a fresh source seeded with the same seed, so equal
// inputs give equal output. It is safe for concurrent use.
type StatisticalForecaster struct {
	seed  uint64
	clock domain.Clock
}

// NewStatisticalForecaster creates a forecaster whose draws are reproducible for a seed
func NewStatisticalForecaster(seed uint64, clock domain.Clock) *StatisticalForecaster {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &StatisticalForecaster{
		seed:  seed,
		clock: clock,
	}
}

// Name identifies the method
func (f *StatisticalForecaster) Name() string {
	return "statistical"
}

// draws is the random stream of a single call
type draws struct {
	rng *rand.Rand
}

func (f *StatisticalForecaster) draws() draws {
	return draws{rng: rand.New(rand.NewPCG(f.seed, f.seed))}
}

func (d draws) normal(mu, sigma float64) float64 {
	return mu + sigma*d.rng.NormFloat64()
}

func (d draws) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*d.rng.Float64()
}

// Forecast walks the combined score forward one day at a time around its
// current value.
func (f *StatisticalForecaster) Forecast(base CombinedAssessment, days int) RiskForecast {
	if days < 1 {
		days = DefaultForecastDays
	}
	start := base.Timestamp
	if start.IsZero() {
		start = f.clock.Now()
	}
	current := base.Combined.Score

	rnd := f.draws()
	daily := make([]DailyForecast, days)
	for d := range daily {
		daily[d] = DailyForecast{
			Day:        d + 1,
			Date:       start.AddDate(0, 0, d+1).Format("2006-01-02"),
			RiskScore:  formulas.Clamp(rnd.normal(current, 0.05), 0, 1),
			Volatility: rnd.normal(0.2, 0.02),
			Confidence: 0.5,
		}
	}

	return RiskForecast{
		Method:          f.Name(),
		CurrentRisk:     current,
		CurrentVol:      0.2,
		Daily:           daily,
		RiskLower:       current - 0.2,
		RiskUpper:       current + 0.2,
		ModelConfidence: 0.5,
	}
}

// Assess condenses a fresh forecast into a component assessment
func (f *StatisticalForecaster) Assess(base CombinedAssessment, days int) domain.Assessment {
	return SummarizeForecast(f.Forecast(base, days))
}

// SummarizeForecast scores a forecast by its mean projected risk
func SummarizeForecast(fc RiskForecast) domain.Assessment {
	scores := make([]float64, len(fc.Daily))
	for i, d := range fc.Daily {
		scores[i] = d.RiskScore
	}
	peak := 0.0
	for _, s := range scores {
		peak = math.Max(peak, s)
	}
	mean := formulas.Mean(scores)

	return domain.NewAssessment(mean,
		map[string]float64{
			"mean_forecast": mean,
			"peak_forecast": peak,
		},
		map[string]float64{
			"current_risk": fc.CurrentRisk,
			"horizon_days": float64(len(fc.Daily)),
		},
	)
}

// Scenarios draws n samples for each stress scenario and summarises them
func (f *StatisticalForecaster) Scenarios(n int) map[string]ScenarioStats {
	if n < 1 {
		n = DefaultScenarioCount
	}

	samples := map[string][]float64{
		ScenarioNormal:         make([]float64, n),
		ScenarioEarthquake:     make([]float64, n),
		ScenarioMarketCrash:    make([]float64, n),
		ScenarioCombinedCrisis: make([]float64, n),
	}

	rnd := f.draws()
	for i := 0; i < n; i++ {
		samples[ScenarioNormal][i] = formulas.Clamp(rnd.normal(0.15, 0.08), 0.05, 0.4)

		quake := 0.35
		switch magnitude := rnd.uniform(5.5, 7.5); {
		case magnitude > 7.0:
			quake += 0.15
		case magnitude > 6.5:
			quake += 0.1
		}
		samples[ScenarioEarthquake][i] = formulas.Clamp(rnd.normal(quake, 0.12), 0.1, 0.8)

		crash := 0.45 + rnd.uniform(0.1, 0.4)*0.5
		samples[ScenarioMarketCrash][i] = formulas.Clamp(rnd.normal(crash, 0.1), 0.2, 0.85)

		crisis := 0.65 + rnd.uniform(0.1, 0.25)
		samples[ScenarioCombinedCrisis][i] = formulas.Clamp(rnd.normal(crisis, 0.08), 0.4, 0.95)
	}

	out := make(map[string]ScenarioStats, len(samples))
	for name, s := range samples {
		out[name] = scenarioStats(s)
	}
	return out
}

func scenarioStats(samples []float64) ScenarioStats {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	high := 0
	for _, s := range sorted {
		if s > 0.7 {
			high++
		}
	}

	return ScenarioStats{
		MeanRisk:            stat.Mean(sorted, nil),
		StdRisk:             formulas.PopStdDev(sorted),
		VaR95:               stat.Quantile(0.95, stat.Empirical, sorted, nil),
		VaR99:               stat.Quantile(0.99, stat.Empirical, sorted, nil),
		WorstCase:           sorted[len(sorted)-1],
		ProbabilityHighRisk: float64(high) / float64(len(sorted)),
	}
}

// FeaturesFrom collects anomaly features from an assessment, the raw events
// and the market snapshot
func FeaturesFrom(a CombinedAssessment, events []domain.SeismicEvent, market domain.MarketSummary, now time.Time) Features {
	f := Features{}

	for _, entry := range market {
		if entry.Snapshot == nil {
			continue
		}
		f[entry.Key+"_change"] = entry.Snapshot.ChangePercent
		f[entry.Key+"_volatility"] = entry.Snapshot.Volatility
	}

	if len(events) > 0 {
		recent := MostSignificant(events, len(events))
		if len(recent) > 10 {
			recent = recent[:10]
		}
		count24, count72 := 0, 0
		max24 := 0.0
		var mags72 []float64
		for _, ev := range recent {
			if ev.Time.IsZero() {
				continue
			}
			age := now.Sub(ev.Time)
			if age < 24*time.Hour {
				count24++
				max24 = math.Max(max24, ev.Magnitude)
			}
			if age < 72*time.Hour {
				count72++
				mags72 = append(mags72, ev.Magnitude)
			}
		}
		f["quake_count_24h"] = float64(count24)
		f["quake_count_72h"] = float64(count72)
		f["max_magnitude_24h"] = max24
		f["avg_magnitude_72h"] = formulas.Mean(mags72)
	}

	f["earthquake_risk_score"] = a.Earthquake.Score
	f["market_risk_score"] = a.Market.Score
	f["correlation_risk_score"] = a.Correlation.Score
	f["combined_risk_score"] = a.Combined.Score

	return f
}

// DetectAnomalies scores threshold breaches. Features are scanned in name
// order so contributors are reproducible.
func (f *StatisticalForecaster) DetectAnomalies(features Features) AnomalyResult {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	score := 0.0
	contributors := []Contributor{}
	for _, name := range names {
		v := features[name]
		switch {
		case strings.Contains(name, "magnitude") && v > 6:
			score += 0.3
		case strings.Contains(name, "volatility") && v > 0.5:
			score += 0.2
		case strings.Contains(name, "risk_score") && v > 0.7:
			score += 0.2
		default:
			continue
		}
		contributors = append(contributors, Contributor{Feature: name, Value: v})
	}

	anomaly := score > 0.5
	rec := anomalyRecommendation(anomaly, contributors)
	if len(contributors) > 5 {
		contributors = contributors[:5]
	}

	return AnomalyResult{
		IsAnomaly:      anomaly,
		Score:          score,
		Probability:    math.Min(1, score),
		Contributors:   contributors,
		Recommendation: rec,
	}
}

func anomalyRecommendation(anomaly bool, contributors []Contributor) string {
	if !anomaly {
		return "No significant anomalies detected. Continue normal operations."
	}

	var recs []string
	for _, c := range contributors {
		switch {
		case strings.Contains(c.Feature, "magnitude"):
			recs = append(recs, "High seismic activity detected. Review earthquake hedging positions.")
		case strings.Contains(c.Feature, "volatility"):
			recs = append(recs, "Extreme market volatility. Consider reducing position sizes.")
		case strings.Contains(c.Feature, "risk_score"):
			recs = append(recs, "Elevated risk levels. Implement defensive strategies.")
		}
		if len(recs) == 2 {
			break
		}
	}
	if len(recs) == 0 {
		return "Anomaly detected. Review all positions."
	}
	return strings.Join(recs, " ")
}
