package network

import (
	"math"
	"math/rand/v2"
	"sync"
)

// SyntheticDataSource supplies the placeholder attributes of sector and
// currency nodes, which have no live feed behind them
type SyntheticDataSource interface {
	// SectorExposure is the risk exposure attribute of a sector node
	SectorExposure(sector string) float64
	// SectorLink is the weight of the sector edge to the Nikkei node
	SectorLink(sector string) float64
	// CurrencyCorrelation is the JPY correlation attribute of a currency node
	CurrencyCorrelation(currency string) float64
	// CurrencyLink is the weight of the currency edge to the USD/JPY node
	CurrencyLink(currency string) float64
}

// RandomSource draws placeholder attributes from a seeded generator
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource creates a source whose draws are reproducible for a seed
func NewRandomSource(seed uint64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *RandomSource) uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + (hi-lo)*s.rng.Float64()
}

// SectorExposure draws from U(0.3, 0.8)
func (s *RandomSource) SectorExposure(string) float64 { return s.uniform(0.3, 0.8) }

// SectorLink draws from U(0.4, 0.7)
func (s *RandomSource) SectorLink(string) float64 { return s.uniform(0.4, 0.7) }

// CurrencyCorrelation draws from U(-0.5, 0.5)
func (s *RandomSource) CurrencyCorrelation(string) float64 { return s.uniform(-0.5, 0.5) }

// CurrencyLink draws |U(-0.6, 0.6)|
func (s *RandomSource) CurrencyLink(string) float64 { return math.Abs(s.uniform(-0.6, 0.6)) }

// FixedSource returns configured values, falling back to the midpoint of
// each random range
type FixedSource struct {
	Exposure     map[string]float64
	SectorWeight map[string]float64
	Correlation  map[string]float64
	CurrencyEdge map[string]float64
}

func lookup(m map[string]float64, key string, def float64) float64 {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func (s FixedSource) SectorExposure(sector string) float64 {
	return lookup(s.Exposure, sector, 0.55)
}

func (s FixedSource) SectorLink(sector string) float64 {
	return lookup(s.SectorWeight, sector, 0.55)
}

func (s FixedSource) CurrencyCorrelation(currency string) float64 {
	return lookup(s.Correlation, currency, 0)
}

func (s FixedSource) CurrencyLink(currency string) float64 {
	return lookup(s.CurrencyEdge, currency, 0.3)
}
