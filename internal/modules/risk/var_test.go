package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/tokyorisk/internal/domain"
)

func TestCalculateVaR(t *testing.T) {
	tests := []struct {
		name   string
		level  domain.RiskLevel
		days   int
		annual float64
		want   int
	}{
		{"low one day", domain.RiskLow, 1, 0.15, 1},
		{"critical ten days", domain.RiskCritical, 10, 0.50, 10},
		{"unknown level", domain.RiskLevel("SEVERE"), 5, 0.25, 5},
		{"non-positive horizon", domain.RiskMedium, 0, 0.25, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateVaR(1_000_000, tt.level, tt.days)

			daily := tt.annual / math.Sqrt(252)
			horizon := daily * math.Sqrt(float64(tt.want))
			assert.Equal(t, tt.want, got.HorizonDays)
			assert.InDelta(t, daily, got.DailyVolatility, 1e-12)
			assert.InDelta(t, 1_000_000*1.645*horizon, got.VaR95, 1e-6)
			assert.InDelta(t, 1_000_000*2.326*horizon, got.VaR99, 1e-6)
			assert.InDelta(t, got.VaR95*1.3, got.ExpectedShortfall95, 1e-6)
			assert.InDelta(t, got.VaR99*1.2, got.ExpectedShortfall99, 1e-6)
		})
	}
}

func TestCalculateVaR_OrdersByLevel(t *testing.T) {
	low := CalculateVaR(100, domain.RiskLow, 1)
	high := CalculateVaR(100, domain.RiskHigh, 1)

	assert.Less(t, low.VaR95, high.VaR95)
	assert.Less(t, high.VaR95, high.VaR99)
}
