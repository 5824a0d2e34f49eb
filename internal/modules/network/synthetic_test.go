package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomSource_Ranges(t *testing.T) {
	src := NewRandomSource(7)
	for i := 0; i < 500; i++ {
		exposure := src.SectorExposure("Technology")
		assert.GreaterOrEqual(t, exposure, 0.3)
		assert.Less(t, exposure, 0.8)

		link := src.SectorLink("Technology")
		assert.GreaterOrEqual(t, link, 0.4)
		assert.Less(t, link, 0.7)

		corr := src.CurrencyCorrelation("EUR")
		assert.GreaterOrEqual(t, corr, -0.5)
		assert.Less(t, corr, 0.5)

		edge := src.CurrencyLink("EUR")
		assert.GreaterOrEqual(t, edge, 0.0)
		assert.LessOrEqual(t, edge, 0.6)
	}
}

func TestRandomSource_Reproducible(t *testing.T) {
	a, b := NewRandomSource(42), NewRandomSource(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.SectorExposure(""), b.SectorExposure(""))
	}
	assert.NotEqual(t, NewRandomSource(1).SectorLink(""), NewRandomSource(2).SectorLink(""))
}

func TestFixedSource_Defaults(t *testing.T) {
	src := FixedSource{Exposure: map[string]float64{"Financials": 0.9}}

	assert.Equal(t, 0.9, src.SectorExposure("Financials"))
	assert.Equal(t, 0.55, src.SectorExposure("Energy"))
	assert.Equal(t, 0.55, src.SectorLink("Energy"))
	assert.Equal(t, 0.0, src.CurrencyCorrelation("GBP"))
	assert.Equal(t, 0.3, src.CurrencyLink("GBP"))
}
