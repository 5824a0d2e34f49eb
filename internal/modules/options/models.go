package options

import "github.com/aristath/tokyorisk/internal/domain"

// Greeks are the option sensitivities. Theta is daily, vega and rho are per 1%.
type Greeks struct {
	DeltaCall float64 `json:"delta_call" msgpack:"delta_call"`
	DeltaPut  float64 `json:"delta_put" msgpack:"delta_put"`
	Gamma     float64 `json:"gamma" msgpack:"gamma"`
	ThetaCall float64 `json:"theta_call" msgpack:"theta_call"`
	ThetaPut  float64 `json:"theta_put" msgpack:"theta_put"`
	Vega      float64 `json:"vega" msgpack:"vega"`
	RhoCall   float64 `json:"rho_call" msgpack:"rho_call"`
	RhoPut    float64 `json:"rho_put" msgpack:"rho_put"`
}

// Pricing is the closed-form result for both option types
type Pricing struct {
	CallPrice float64 `json:"call_price" msgpack:"call_price"`
	PutPrice  float64 `json:"put_price" msgpack:"put_price"`
	Greeks    Greeks  `json:"greeks" msgpack:"greeks"`
}

// MonteCarloResult is the simulated price blended with the disaster scenario
type MonteCarloResult struct {
	StandardPrice         float64 `json:"standard_price" msgpack:"standard_price"`
	DisasterAdjustedPrice float64 `json:"disaster_adjusted_price" msgpack:"disaster_adjusted_price"`
	DisasterPrice         float64 `json:"disaster_price" msgpack:"disaster_price"`
	StandardError         float64 `json:"standard_error" msgpack:"standard_error"`
	ConvergenceRatio      float64 `json:"convergence_ratio" msgpack:"convergence_ratio"`
	NumPaths              int     `json:"num_paths" msgpack:"num_paths"`
}

// Position is one option holding in a portfolio
type Position struct {
	domain.OptionContract
	Type     domain.OptionType `json:"option_type" msgpack:"option_type"`
	Quantity float64           `json:"quantity" msgpack:"quantity"` // zero means one contract
	Short    bool              `json:"is_short" msgpack:"is_short"`
}

// PortfolioGreeks is the quantity-weighted sum of position Greeks
type PortfolioGreeks struct {
	Delta float64 `json:"portfolio_delta" msgpack:"portfolio_delta"`
	Gamma float64 `json:"portfolio_gamma" msgpack:"portfolio_gamma"`
	Theta float64 `json:"portfolio_theta" msgpack:"portfolio_theta"`
	Vega  float64 `json:"portfolio_vega" msgpack:"portfolio_vega"`
	Rho   float64 `json:"portfolio_rho" msgpack:"portfolio_rho"`
}

// DisasterScenario describes the deterministic earthquake re-pricing
type DisasterScenario struct {
	SpotDrop    float64 // fraction of spot lost
	BaseVol     float64 // assumed pre-shock volatility
	VolSpike    float64 // relative volatility increase
	Rate        float64 // crisis risk-free rate
	Probability float64 // blend weight of the disaster price
}

// DefaultDisasterScenario is a 20% crash with a 50% volatility spike off 25%
var DefaultDisasterScenario = DisasterScenario{
	SpotDrop:    0.20,
	BaseVol:     0.25,
	VolSpike:    0.50,
	Rate:        0.01,
	Probability: 0.05,
}
