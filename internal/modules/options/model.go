// Package options prices European options with Black-Scholes, Monte Carlo and
// an earthquake disaster scenario for Japanese underlyings.
package options

import (
	"math"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

// DaysPerYear converts annual theta into daily decay
const DaysPerYear = 365.0

// Model is a closed-form Black-Scholes pricer for one contract.
// Every method returns 0 when the inputs produce a non-finite result.
type Model struct {
	c domain.OptionContract
}

// NewModel creates a pricer for the contract
func NewModel(c domain.OptionContract) Model {
	return Model{c: c}
}

// Contract returns the priced contract
func (m Model) Contract() domain.OptionContract {
	return m.c
}

func (m Model) expired() bool {
	return m.c.TimeToMaturity <= 0
}

// D1 returns (ln(S/K) + (r + σ²/2)T) / (σ√T)
func (m Model) D1() float64 {
	c := m.c
	return (math.Log(c.Spot/c.Strike) + (c.RiskFreeRate+0.5*c.Volatility*c.Volatility)*c.TimeToMaturity) /
		(c.Volatility * math.Sqrt(c.TimeToMaturity))
}

// D2 returns d1 - σ√T
func (m Model) D2() float64 {
	return m.D1() - m.c.Volatility*math.Sqrt(m.c.TimeToMaturity)
}

// d returns d1, d2 and whether both are finite
func (m Model) d() (float64, float64, bool) {
	d1 := m.D1()
	d2 := d1 - m.c.Volatility*math.Sqrt(m.c.TimeToMaturity)
	return d1, d2, formulas.IsFinite(d1) && formulas.IsFinite(d2)
}

func (m Model) discount() float64 {
	return math.Exp(-m.c.RiskFreeRate * m.c.TimeToMaturity)
}

// CallPrice returns the European call value
func (m Model) CallPrice() float64 {
	if m.expired() {
		return finite(math.Max(m.c.Spot-m.c.Strike, 0))
	}
	d1, d2, ok := m.d()
	if !ok {
		return 0
	}
	return finite(m.c.Spot*formulas.NormCDF(d1) - m.c.Strike*m.discount()*formulas.NormCDF(d2))
}

// PutPrice returns the European put value
func (m Model) PutPrice() float64 {
	if m.expired() {
		return finite(math.Max(m.c.Strike-m.c.Spot, 0))
	}
	d1, d2, ok := m.d()
	if !ok {
		return 0
	}
	return finite(m.c.Strike*m.discount()*formulas.NormCDF(-d2) - m.c.Spot*formulas.NormCDF(-d1))
}

// Price returns the call or put value
func (m Model) Price(t domain.OptionType) float64 {
	if t == domain.Put {
		return m.PutPrice()
	}
	return m.CallPrice()
}

// DeltaCall returns ∂C/∂S. At expiry it is 1 in the money, else 0.
func (m Model) DeltaCall() float64 {
	if m.expired() {
		if m.c.Spot > m.c.Strike {
			return 1
		}
		return 0
	}
	d1, _, ok := m.d()
	if !ok {
		return 0
	}
	return formulas.NormCDF(d1)
}

// DeltaPut returns ∂P/∂S. At expiry it is -1 in the money, else 0.
func (m Model) DeltaPut() float64 {
	if m.expired() {
		if m.c.Spot < m.c.Strike {
			return -1
		}
		return 0
	}
	d1, _, ok := m.d()
	if !ok {
		return 0
	}
	return -formulas.NormCDF(-d1)
}

// Gamma is shared by calls and puts
func (m Model) Gamma() float64 {
	if m.expired() {
		return 0
	}
	d1, _, ok := m.d()
	if !ok {
		return 0
	}
	return finite(formulas.NormPDF(d1) / (m.c.Spot * m.c.Volatility * math.Sqrt(m.c.TimeToMaturity)))
}

func (m Model) decay(d1 float64) float64 {
	return -m.c.Spot * formulas.NormPDF(d1) * m.c.Volatility / (2 * math.Sqrt(m.c.TimeToMaturity))
}

// ThetaCall returns the daily call decay
func (m Model) ThetaCall() float64 {
	if m.expired() {
		return 0
	}
	d1, d2, ok := m.d()
	if !ok {
		return 0
	}
	carry := -m.c.RiskFreeRate * m.c.Strike * m.discount() * formulas.NormCDF(d2)
	return finite((m.decay(d1) + carry) / DaysPerYear)
}

// ThetaPut returns the daily put decay
func (m Model) ThetaPut() float64 {
	if m.expired() {
		return 0
	}
	d1, d2, ok := m.d()
	if !ok {
		return 0
	}
	carry := m.c.RiskFreeRate * m.c.Strike * m.discount() * formulas.NormCDF(-d2)
	return finite((m.decay(d1) + carry) / DaysPerYear)
}

// Vega returns the price change per 1% volatility move
func (m Model) Vega() float64 {
	if m.expired() {
		return 0
	}
	d1, _, ok := m.d()
	if !ok {
		return 0
	}
	return finite(m.c.Spot * formulas.NormPDF(d1) * math.Sqrt(m.c.TimeToMaturity) / 100)
}

// RhoCall returns the call price change per 1% rate move
func (m Model) RhoCall() float64 {
	if m.expired() {
		return 0
	}
	_, d2, ok := m.d()
	if !ok {
		return 0
	}
	return finite(m.c.Strike * m.c.TimeToMaturity * m.discount() * formulas.NormCDF(d2) / 100)
}

// RhoPut returns the put price change per 1% rate move
func (m Model) RhoPut() float64 {
	if m.expired() {
		return 0
	}
	_, d2, ok := m.d()
	if !ok {
		return 0
	}
	return finite(-m.c.Strike * m.c.TimeToMaturity * m.discount() * formulas.NormCDF(-d2) / 100)
}

// Greeks collects all sensitivities of the contract
func (m Model) Greeks() Greeks {
	return Greeks{
		DeltaCall: m.DeltaCall(),
		DeltaPut:  m.DeltaPut(),
		Gamma:     m.Gamma(),
		ThetaCall: m.ThetaCall(),
		ThetaPut:  m.ThetaPut(),
		Vega:      m.Vega(),
		RhoCall:   m.RhoCall(),
		RhoPut:    m.RhoPut(),
	}
}

func finite(v float64) float64 {
	if !formulas.IsFinite(v) {
		return 0
	}
	return v
}
