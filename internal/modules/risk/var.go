package risk

import (
	"math"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

// Annual volatility assumed for each risk level
var levelVolatility = map[domain.RiskLevel]float64{
	domain.RiskLow:      0.15,
	domain.RiskMedium:   0.25,
	domain.RiskHigh:     0.35,
	domain.RiskCritical: 0.50,
}

// VaRMetrics are parametric loss estimates for a portfolio
type VaRMetrics struct {
	VaR95               float64          `json:"var_95" msgpack:"var_95"`
	VaR99               float64          `json:"var_99" msgpack:"var_99"`
	ExpectedShortfall95 float64          `json:"expected_shortfall_95" msgpack:"expected_shortfall_95"`
	ExpectedShortfall99 float64          `json:"expected_shortfall_99" msgpack:"expected_shortfall_99"`
	HorizonDays         int              `json:"time_horizon_days" msgpack:"time_horizon_days"`
	PortfolioValue      float64          `json:"portfolio_value" msgpack:"portfolio_value"`
	DailyVolatility     float64          `json:"daily_volatility" msgpack:"daily_volatility"`
	RiskLevel           domain.RiskLevel `json:"risk_level" msgpack:"risk_level"`
}

// CalculateVaR scales the level volatility to the horizon. Expected
// shortfall uses fixed multiples of VaR. Unknown levels use 25%.
func CalculateVaR(value float64, level domain.RiskLevel, days int) VaRMetrics {
	if days < 1 {
		days = 1
	}
	annual, ok := levelVolatility[level]
	if !ok {
		annual = 0.25
	}

	daily := annual / math.Sqrt(formulas.TradingDaysPerYear)
	horizon := daily * math.Sqrt(float64(days))
	var95 := value * 1.645 * horizon
	var99 := value * 2.326 * horizon

	return VaRMetrics{
		VaR95:               var95,
		VaR99:               var99,
		ExpectedShortfall95: var95 * 1.3,
		ExpectedShortfall99: var99 * 1.2,
		HorizonDays:         days,
		PortfolioValue:      value,
		DailyVolatility:     daily,
		RiskLevel:           level,
	}
}
