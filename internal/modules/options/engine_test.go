package options

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tokyorisk/internal/domain"
)

func newTestEngine(opts ...EngineOption) *Engine {
	return NewEngine(zerolog.Nop(), opts...)
}

func TestEngine_PriceBoth(t *testing.T) {
	c := contract(33000, 33500, 30.0/365, 0.005, 0.25)
	p := newTestEngine().PriceBoth(c)
	m := NewModel(c)

	assert.Equal(t, m.CallPrice(), p.CallPrice)
	assert.Equal(t, m.PutPrice(), p.PutPrice)
	assert.Equal(t, m.Greeks(), p.Greeks)
}

func TestEngine_ImpliedVolatilityRecovery(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name  string
		c     domain.OptionContract
		typ   domain.OptionType
		sigma float64
	}{
		{"call", contract(100, 100, 0.5, 0.01, 0.3), domain.Call, 0.3},
		{"put", contract(33000, 32000, 60.0/365, 0.005, 0.22), domain.Put, 0.22},
		{"high vol call", contract(50, 55, 1, 0.02, 0.8), domain.Call, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := NewModel(tt.c).Price(tt.typ)
			iv := e.ImpliedVolatility(price, tt.c.Spot, tt.c.Strike, tt.c.TimeToMaturity, tt.c.RiskFreeRate, tt.typ)
			assert.InDelta(t, tt.sigma, iv, 1e-3)
		})
	}
}

func TestEngine_ImpliedVolatilityStaysInBounds(t *testing.T) {
	e := newTestEngine()

	// Below intrinsic value no volatility matches, the search ends at the lower bound
	iv := e.ImpliedVolatility(0.01, 150, 100, 0.5, 0.01, domain.Call)
	assert.GreaterOrEqual(t, iv, minVolatility)
	assert.LessOrEqual(t, iv, maxVolatility)
}

func TestEngine_ImpliedVolatilityFallsBackAtExpiry(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name string
		t    float64
		typ  domain.OptionType
	}{
		{"expired call", 0, domain.Call},
		{"expired put", 0, domain.Put},
		{"negative maturity", -0.1, domain.Call},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, FallbackVolatility, e.ImpliedVolatility(5, 105, 100, tt.t, 0.01, tt.typ))
		})
	}
}

func TestEngine_MonteCarloDeterministic(t *testing.T) {
	c := contract(33000, 33500, 30.0/365, 0.005, 0.25)

	first := newTestEngine().MonteCarloPrice(c, 10000, domain.Call)
	second := newTestEngine().MonteCarloPrice(c, 10000, domain.Call)

	assert.Equal(t, first.StandardPrice, second.StandardPrice)
	assert.Equal(t, first.StandardError, second.StandardError)
	assert.Equal(t, first, second)
	assert.Equal(t, 10000, first.NumPaths)
}

func TestEngine_MonteCarloSeedChangesDraws(t *testing.T) {
	c := contract(33000, 33500, 30.0/365, 0.005, 0.25)

	a := newTestEngine().MonteCarloPrice(c, 2000, domain.Call)
	b := newTestEngine(WithSeed(7)).MonteCarloPrice(c, 2000, domain.Call)

	assert.NotEqual(t, a.StandardPrice, b.StandardPrice)
}

func TestEngine_MonteCarloConvergesToClosedForm(t *testing.T) {
	c := contract(33000, 33500, 30.0/365, 0.005, 0.25)
	e := newTestEngine()

	for _, typ := range []domain.OptionType{domain.Call, domain.Put} {
		mc := e.MonteCarloPrice(c, 10000, typ)
		exact := NewModel(c).Price(typ)

		require.Greater(t, mc.StandardError, 0.0)
		// Five standard errors is far outside sampling noise
		assert.InDelta(t, exact, mc.StandardPrice, 5*mc.StandardError)
	}
}

func TestEngine_DisasterAdjustedWithinBounds(t *testing.T) {
	e := newTestEngine()
	cases := []domain.OptionContract{
		contract(33000, 33500, 30.0/365, 0.005, 0.25),
		contract(33000, 30000, 90.0/365, 0.005, 0.18),
		contract(100, 140, 1, 0.01, 0.4),
	}

	for _, c := range cases {
		for _, typ := range []domain.OptionType{domain.Call, domain.Put} {
			mc := e.MonteCarloPrice(c, 5000, typ)
			lo := math.Min(mc.StandardPrice, mc.DisasterPrice)
			hi := math.Max(mc.StandardPrice, mc.DisasterPrice)

			assert.GreaterOrEqual(t, mc.DisasterAdjustedPrice, lo-1e-9)
			assert.LessOrEqual(t, mc.DisasterAdjustedPrice, hi+1e-9)
			assert.InDelta(t, 0.95*mc.StandardPrice+0.05*mc.DisasterPrice, mc.DisasterAdjustedPrice, 1e-9)
		}
	}
}

func TestEngine_DisasterPriceUsesShockedInputs(t *testing.T) {
	c := contract(33000, 33500, 30.0/365, 0.005, 0.25)
	expected := NewModel(contract(26400, 33500, 30.0/365, 0.01, 0.375)).PutPrice()

	assert.InDelta(t, expected, newTestEngine().DisasterPrice(c, domain.Put), 1e-9)
}

func TestEngine_MonteCarloDefaultsAndDegenerate(t *testing.T) {
	e := newTestEngine()

	mc := e.MonteCarloPrice(contract(100, 100, 0.5, 0.01, 0.2), 0, domain.Call)
	assert.Equal(t, DefaultPaths, mc.NumPaths)

	// Deep out of the money call: every payoff is zero
	zero := e.MonteCarloPrice(contract(100, 1e6, 0.1, 0.01, 0.2), 1000, domain.Call)
	assert.Zero(t, zero.StandardPrice)
	assert.Zero(t, zero.StandardError)
	assert.Zero(t, zero.ConvergenceRatio)
}

func TestEngine_PortfolioGreeks(t *testing.T) {
	e := newTestEngine()
	c := contract(33000, 33500, 30.0/365, 0.005, 0.25)
	m := NewModel(c)

	t.Run("long and short cancel", func(t *testing.T) {
		g := e.PortfolioGreeks([]Position{
			{OptionContract: c, Type: domain.Call, Quantity: 2},
			{OptionContract: c, Type: domain.Call, Quantity: 2, Short: true},
		})
		assert.InDelta(t, 0, g.Delta, 1e-12)
		assert.InDelta(t, 0, g.Gamma, 1e-12)
		assert.InDelta(t, 0, g.Vega, 1e-12)
	})

	t.Run("mixed types", func(t *testing.T) {
		g := e.PortfolioGreeks([]Position{
			{OptionContract: c, Type: domain.Call, Quantity: 3},
			{OptionContract: c, Type: domain.Put},
		})
		assert.InDelta(t, 3*m.DeltaCall()+m.DeltaPut(), g.Delta, 1e-12)
		assert.InDelta(t, 4*m.Gamma(), g.Gamma, 1e-12)
		assert.InDelta(t, 3*m.ThetaCall()+m.ThetaPut(), g.Theta, 1e-12)
		assert.InDelta(t, 4*m.Vega(), g.Vega, 1e-12)
		assert.InDelta(t, 3*m.RhoCall()+m.RhoPut(), g.Rho, 1e-12)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, PortfolioGreeks{}, e.PortfolioGreeks(nil))
	})
}

func TestJapaneseVolatilityAdjustment(t *testing.T) {
	tests := []struct {
		level    domain.RiskLevel
		expected float64
	}{
		{domain.RiskLow, 0.20},
		{domain.RiskMedium, 0.23},
		{domain.RiskHigh, 0.27},
		{domain.RiskCritical, 0.33},
		{domain.RiskLevel("SEVERE"), 0.20},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, JapaneseVolatilityAdjustment(0.20, tt.level), 1e-12, string(tt.level))
	}
}
