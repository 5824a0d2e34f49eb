package risk

import (
	"math"

	"github.com/aristath/tokyorisk/internal/domain"
)

// MarketAssessment is the market component
type MarketAssessment struct {
	domain.Assessment
	ProcessedMarkets int `json:"processed_markets" msgpack:"processed_markets"`
}

// MarketAssessor scores volatility, momentum and volume anomalies
type MarketAssessor struct{}

// NewMarketAssessor creates a market assessor
func NewMarketAssessor() *MarketAssessor {
	return &MarketAssessor{}
}

// Assess averages per-instrument contributions over the instruments with
// data. No data gives the 0.2 LOW baseline.
func (a *MarketAssessor) Assess(summary domain.MarketSummary) MarketAssessment {
	var volatility, momentum, volume float64
	processed := 0

	for _, entry := range summary {
		s := entry.Snapshot
		if s == nil {
			continue
		}
		volatility += math.Min(s.Volatility/0.5, 0.4)
		momentum += math.Min(math.Abs(s.ChangePercent)/10, 0.3)
		if s.AvgVolume > 0 {
			ratio := s.Volume / s.AvgVolume
			volume += math.Min(math.Abs(ratio-1), 0.2)
		}
		processed++
	}

	if processed == 0 {
		return MarketAssessment{
			Assessment: domain.Assessment{
				Score: 0.2,
				Level: domain.RiskLow,
				Factors: map[string]float64{
					"volatility": 0.1,
					"momentum":   0.1,
					"volume":     0,
				},
			},
		}
	}

	n := float64(processed)
	volatility /= n
	momentum /= n
	volume /= n

	return MarketAssessment{
		Assessment: domain.NewAssessment(
			volatility+momentum+volume,
			map[string]float64{
				"volatility": volatility,
				"momentum":   momentum,
				"volume":     volume,
			},
			map[string]float64{"processed_markets": n},
		),
		ProcessedMarkets: processed,
	}
}
