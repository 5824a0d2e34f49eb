package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tokyorisk/internal/domain"
)

// Component weights of the combined score
const (
	EarthquakeWeight  = 0.40
	MarketWeight      = 0.35
	CorrelationWeight = 0.25
)

// CombinedRisk is the weighted blend of the three components
type CombinedRisk struct {
	Score      float64          `json:"score" msgpack:"score"`
	Level      domain.RiskLevel `json:"level" msgpack:"level"`
	Confidence float64          `json:"confidence" msgpack:"confidence"`
}

// CombinedAssessment is one full integrated risk evaluation
type CombinedAssessment struct {
	Earthquake      EarthquakeAssessment    `json:"earthquake_risk" msgpack:"earthquake_risk"`
	Market          MarketAssessment        `json:"market_risk" msgpack:"market_risk"`
	Correlation     domain.Assessment       `json:"correlation_risk" msgpack:"correlation_risk"`
	Combined        CombinedRisk            `json:"combined_risk" msgpack:"combined_risk"`
	Recommendations []domain.Recommendation `json:"recommendations" msgpack:"recommendations"`
	Alerts          []domain.Alert          `json:"alert_triggers" msgpack:"alert_triggers"`
	Timestamp       time.Time               `json:"timestamp" msgpack:"timestamp"`
}

// Engine combines the three assessors
type Engine struct {
	earthquake  *EarthquakeAssessor
	market      *MarketAssessor
	correlation *CorrelationAssessor
	clock       domain.Clock
	log         zerolog.Logger
}

// NewEngine creates an integrated risk engine centred on Tokyo
func NewEngine(clock domain.Clock, log zerolog.Logger) *Engine {
	return NewEngineAt(TokyoLatitude, TokyoLongitude, clock, log)
}

// NewEngineAt creates an integrated risk engine for another reference point
func NewEngineAt(lat, lon float64, clock domain.Clock, log zerolog.Logger) *Engine {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Engine{
		earthquake:  NewEarthquakeAssessor(lat, lon, clock),
		market:      NewMarketAssessor(),
		correlation: NewCorrelationAssessor(),
		clock:       clock,
		log:         log.With().Str("component", "risk_engine").Logger(),
	}
}

// Assess runs every component and derives recommendations and alerts.
// The only error is a malformed correlation matrix.
func (e *Engine) Assess(events []domain.SeismicEvent, market domain.MarketSummary, matrix domain.CorrelationMatrix) (CombinedAssessment, error) {
	corr, err := e.correlation.Assess(matrix)
	if err != nil {
		e.log.Warn().Err(err).Msg("Rejected correlation matrix")
		return CombinedAssessment{}, fmt.Errorf("assess correlation risk: %w", err)
	}
	quake := e.earthquake.Assess(events)
	mkt := e.market.Assess(market)

	score := CombinedScore(quake.Score, mkt.Score, corr.Score)
	combined := CombinedRisk{
		Score:      score,
		Level:      domain.LevelFor(score),
		Confidence: confidence(quake.RecentActivity, market.Available()),
	}

	result := CombinedAssessment{
		Earthquake:      quake,
		Market:          mkt,
		Correlation:     corr,
		Combined:        combined,
		Recommendations: Recommendations(quake.Assessment, mkt.Assessment, corr, score),
		Alerts:          Alerts(score, quake.Level, mkt.Level),
		Timestamp:       e.clock.Now(),
	}

	e.log.Debug().
		Float64("score", score).
		Str("level", string(combined.Level)).
		Int("alerts", len(result.Alerts)).
		Msg("Integrated risk assessed")

	return result, nil
}

// CombinedScore weights the components and caps the result at 1
func CombinedScore(earthquake, market, correlation float64) float64 {
	return math.Min(earthquake*EarthquakeWeight+market*MarketWeight+correlation*CorrelationWeight, 1.0)
}

func confidence(recentQuakes, instruments int) float64 {
	c := 0.5
	if recentQuakes > 0 {
		c += 0.2
	}
	c += math.Min(float64(instruments)/10, 0.3)
	return math.Min(c, 1.0)
}

func recommendation(priority domain.RiskLevel, category, action, rationale string, sectors []string, timeline string) domain.Recommendation {
	return domain.Recommendation{
		ID:            domain.RecommendationID(category, action, priority),
		Priority:      priority,
		Category:      category,
		Action:        action,
		Rationale:     rationale,
		TargetSectors: sectors,
		Timeline:      timeline,
	}
}

// Recommendations applies the fixed templates to the component levels.
// A LOW monitoring recommendation is always last.
func Recommendations(quake, market, corr domain.Assessment, combined float64) []domain.Recommendation {
	var recs []domain.Recommendation

	if quake.Level.Elevated() {
		recs = append(recs, recommendation(domain.RiskHigh, "Earthquake Risk",
			"Consider hedging real estate and infrastructure positions",
			fmt.Sprintf("Elevated seismic activity detected (%.2f risk score)", quake.Score),
			[]string{"REITs", "Construction", "Insurance", "Utilities"},
			"24-48 hours"))
	}
	if market.Level.Elevated() {
		recs = append(recs, recommendation(domain.RiskMedium, "Market Volatility",
			"Reduce position sizes and increase cash allocation",
			fmt.Sprintf("High market volatility detected (%.2f risk score)", market.Score),
			[]string{"All equity positions"},
			"1-3 days"))
	}
	if corr.Level.Elevated() {
		recs = append(recs, recommendation(domain.RiskMedium, "Correlation Risk",
			"Diversify across uncorrelated assets and currencies",
			fmt.Sprintf("High cross-market correlation increases systemic risk (%.2f)", corr.Score),
			[]string{"Currency hedging", "Alternative assets"},
			"3-7 days"))
	}
	if combined >= domain.CriticalThreshold {
		recs = append(recs, recommendation(domain.RiskCritical, "Systemic Risk",
			"Implement comprehensive risk reduction strategy",
			fmt.Sprintf("Multiple risk factors elevated (combined score: %.2f)", combined),
			[]string{"Portfolio-wide review"},
			"Immediate"))
	}

	return append(recs, recommendation(domain.RiskLow, "Monitoring",
		"Continue enhanced monitoring of all risk factors",
		"Maintain situational awareness",
		[]string{"All"},
		"Ongoing"))
}

// Alerts returns every independently triggered alert
func Alerts(combined float64, quake, market domain.RiskLevel) []domain.Alert {
	alerts := []domain.Alert{}

	if combined >= 0.8 {
		alerts = append(alerts, domain.Alert{
			Level:          domain.RiskCritical,
			Type:           "Combined Risk",
			Message:        fmt.Sprintf("Multiple risk factors at critical levels (score: %.2f)", combined),
			RequiresAction: true,
		})
	}
	if quake == domain.RiskCritical {
		alerts = append(alerts, domain.Alert{
			Level:          domain.RiskHigh,
			Type:           "Seismic Activity",
			Message:        "Critical earthquake risk detected in Tokyo region",
			RequiresAction: true,
		})
	}
	if market == domain.RiskCritical {
		alerts = append(alerts, domain.Alert{
			Level:          domain.RiskHigh,
			Type:           "Market Volatility",
			Message:        "Extreme market volatility in Tokyo markets",
			RequiresAction: true,
		})
	}

	return alerts
}
