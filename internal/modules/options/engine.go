package options

import (
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

const (
	// DefaultSeed makes Monte Carlo runs reproducible
	DefaultSeed uint64 = 42
	// DefaultPaths is used when a caller asks for zero paths
	DefaultPaths = 10000
	// FallbackVolatility is returned when implied volatility cannot be solved
	FallbackVolatility = 0.25

	minVolatility = 0.001
	maxVolatility = 5.0
)

var volatilityAdjustments = map[domain.RiskLevel]float64{
	domain.RiskLow:      1.0,
	domain.RiskMedium:   1.15,
	domain.RiskHigh:     1.35,
	domain.RiskCritical: 1.65,
}

// Engine orchestrates pricing, implied volatility, simulation and
// portfolio aggregation
type Engine struct {
	seed     uint64
	disaster DisasterScenario
	log      zerolog.Logger
}

// EngineOption customises an Engine
type EngineOption func(*Engine)

// WithSeed sets the Monte Carlo seed
func WithSeed(seed uint64) EngineOption {
	return func(e *Engine) { e.seed = seed }
}

// WithDisasterScenario replaces the default earthquake scenario
func WithDisasterScenario(s DisasterScenario) EngineOption {
	return func(e *Engine) { e.disaster = s }
}

// NewEngine creates an options engine
func NewEngine(log zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		seed:     DefaultSeed,
		disaster: DefaultDisasterScenario,
		log:      log.With().Str("component", "options_engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PriceBoth prices the call and the put and reports all Greeks
func (e *Engine) PriceBoth(c domain.OptionContract) Pricing {
	m := NewModel(c)
	return Pricing{
		CallPrice: m.CallPrice(),
		PutPrice:  m.PutPrice(),
		Greeks:    m.Greeks(),
	}
}

// ImpliedVolatility finds σ in [0.001, 5] whose model price matches
// marketPrice. Returns FallbackVolatility when the search fails or when the
// price does not depend on σ, as at or past expiry.
func (e *Engine) ImpliedVolatility(marketPrice, spot, strike, t, r float64, typ domain.OptionType) float64 {
	project := func(sigma float64) float64 {
		return formulas.Clamp(sigma, minVolatility, maxVolatility)
	}
	mismatch := func(sigma float64) float64 {
		m := NewModel(domain.OptionContract{
			Spot:           spot,
			Strike:         strike,
			TimeToMaturity: t,
			RiskFreeRate:   r,
			Volatility:     project(sigma),
		})
		return math.Abs(m.Price(typ) - marketPrice)
	}

	if t <= 0 || mismatch(minVolatility) == mismatch(maxVolatility) {
		e.log.Warn().
			Float64("market_price", marketPrice).
			Float64("time_to_maturity", t).
			Msg("Option price is insensitive to volatility, using fallback")
		return FallbackVolatility
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return mismatch(x[0])
		},
	}

	result, err := optimize.Minimize(problem, []float64{FallbackVolatility},
		&optimize.Settings{MajorIterations: 2000}, &optimize.NelderMead{})
	if err != nil || result == nil || result.Status.Early() {
		e.log.Warn().
			Err(err).
			Float64("market_price", marketPrice).
			Msg("Implied volatility search failed, using fallback")
		return FallbackVolatility
	}

	sigma := project(result.X[0])
	if !formulas.IsFinite(sigma) {
		return FallbackVolatility
	}
	return sigma
}

// MonteCarloPrice simulates terminal prices under geometric Brownian motion
// and blends the result with the disaster scenario price. Draws are
// sequential from a seeded PCG source, so equal inputs give identical output.
func (e *Engine) MonteCarloPrice(c domain.OptionContract, numPaths int, typ domain.OptionType) MonteCarloResult {
	if numPaths <= 0 {
		numPaths = DefaultPaths
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(e.seed, e.seed)}
	drift := (c.RiskFreeRate - 0.5*c.Volatility*c.Volatility) * c.TimeToMaturity
	diffusion := c.Volatility * math.Sqrt(math.Max(c.TimeToMaturity, 0))

	payoffs := make([]float64, numPaths)
	for i := range payoffs {
		st := c.Spot * math.Exp(drift+diffusion*normal.Rand())
		if typ == domain.Put {
			payoffs[i] = math.Max(c.Strike-st, 0)
		} else {
			payoffs[i] = math.Max(st-c.Strike, 0)
		}
	}

	standard := finite(math.Exp(-c.RiskFreeRate*c.TimeToMaturity) * stat.Mean(payoffs, nil))
	stdErr := finite(stat.PopStdDev(payoffs, nil) / math.Sqrt(float64(numPaths)))

	disasterPrice := e.DisasterPrice(c, typ)
	p := e.disaster.Probability
	adjusted := (1-p)*standard + p*disasterPrice

	ratio := 0.0
	if standard != 0 {
		ratio = math.Abs(adjusted-standard) / standard
	}

	return MonteCarloResult{
		StandardPrice:         standard,
		DisasterAdjustedPrice: adjusted,
		DisasterPrice:         disasterPrice,
		StandardError:         stdErr,
		ConvergenceRatio:      ratio,
		NumPaths:              numPaths,
	}
}

// DisasterPrice re-prices the contract after the earthquake shock
func (e *Engine) DisasterPrice(c domain.OptionContract, typ domain.OptionType) float64 {
	s := e.disaster
	shocked := domain.OptionContract{
		Spot:           c.Spot * (1 - s.SpotDrop),
		Strike:         c.Strike,
		TimeToMaturity: c.TimeToMaturity,
		RiskFreeRate:   s.Rate,
		Volatility:     s.BaseVol * (1 + s.VolSpike),
	}
	return NewModel(shocked).Price(typ)
}

// PortfolioGreeks sums position Greeks weighted by quantity, negated for shorts
func (e *Engine) PortfolioGreeks(positions []Position) PortfolioGreeks {
	var out PortfolioGreeks
	for _, p := range positions {
		m := NewModel(p.OptionContract)

		mult := p.Quantity
		if mult == 0 {
			mult = 1
		}
		if p.Short {
			mult = -mult
		}

		if p.Type == domain.Put {
			out.Delta += m.DeltaPut() * mult
			out.Theta += m.ThetaPut() * mult
			out.Rho += m.RhoPut() * mult
		} else {
			out.Delta += m.DeltaCall() * mult
			out.Theta += m.ThetaCall() * mult
			out.Rho += m.RhoCall() * mult
		}
		out.Gamma += m.Gamma() * mult
		out.Vega += m.Vega() * mult
	}
	return out
}

// JapaneseVolatilityAdjustment scales volatility by the earthquake risk level.
// Unknown levels leave it unchanged.
func JapaneseVolatilityAdjustment(baseVol float64, level domain.RiskLevel) float64 {
	factor, ok := volatilityAdjustments[level]
	if !ok {
		factor = 1.0
	}
	return baseVol * factor
}
