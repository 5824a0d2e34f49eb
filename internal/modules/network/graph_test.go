package network

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/modules/risk"
)

var testNow = time.Date(2024, 1, 1, 16, 10, 0, 0, time.UTC)

func newTestGraph() *Graph {
	return NewGraph(risk.TokyoLatitude, risk.TokyoLongitude, FixedSource{}, zerolog.Nop())
}

func coord(v float64) *float64 { return &v }

func testMarket() domain.MarketSummary {
	snap := func(price, vol, change float64) *domain.InstrumentSnapshot {
		return &domain.InstrumentSnapshot{Price: price, Volatility: vol, ChangePercent: change}
	}
	return domain.MarketSummary{
		{Key: "nikkei", Snapshot: snap(33000, 0.22, -1.2)},
		{Key: "topix", Snapshot: snap(2400, 0.18, -0.8)},
		{Key: "jpy_usd", Snapshot: snap(148, 0.09, 0.3)},
		{Key: "sony"},
	}
}

func testEvents() []domain.SeismicEvent {
	return []domain.SeismicEvent{
		{ID: "1", Time: testNow, Magnitude: 6.4, Latitude: coord(35.6762), Longitude: coord(139.6503), Location: "Tokyo Bay, Japan"},
		{ID: "2", Time: testNow.Add(-time.Hour), Magnitude: 4.1, Latitude: coord(36.1), Longitude: coord(139.4), Location: "Southern Saitama Prefecture"},
		{ID: "3", Time: testNow.Add(-2 * time.Hour), Magnitude: 5.5, Location: "Unknown"},
	}
}

func testMatrix(t *testing.T) domain.CorrelationMatrix {
	m, err := domain.NewCorrelationMatrix(
		[]string{"nikkei", "topix", "jpy_usd", "toyota"},
		[][]float64{
			{1, 0.92, -0.35, 0.6},
			{0.92, 1, -0.2, 0.55},
			{-0.35, -0.2, 1, 0.1},
			{0.6, 0.55, 0.1, 1},
		},
	)
	require.NoError(t, err)
	return m
}

func TestGraph_StartsEmpty(t *testing.T) {
	g := newTestGraph()
	assert.Equal(t, StateEmpty, g.State())
	assert.Equal(t, 0, g.NodeCount())
}

func TestGraph_Build(t *testing.T) {
	g := newTestGraph()
	require.NoError(t, g.Build(testMarket(), testEvents(), testMatrix(t)))
	assert.Equal(t, StateBuilt, g.State())

	// 3 markets, 3 quakes, 5 sectors, 3 currencies, toyota from the matrix
	assert.Equal(t, 15, g.NodeCount())

	_, ok := g.Node("sony")
	assert.False(t, ok, "instruments without data are skipped")

	toyota, ok := g.Node("toyota")
	require.True(t, ok)
	assert.Equal(t, NodeMarket, toyota.Type)

	major, ok := g.Node("Major Quake M6.4 (Tokyo Bay)")
	require.True(t, ok)
	assert.Equal(t, NodeEarthquake, major.Type)
	assert.Equal(t, 6.4, major.Attrs["magnitude"])

	// Epicentre at the reference point gives full weight
	w, ok := g.Weight("Major Quake M6.4 (Tokyo Bay)", "nikkei")
	require.True(t, ok)
	assert.InDelta(t, 1.0, w, 1e-9)

	// Moderate quakes and quakes without coordinates do not link to markets
	_, ok = g.Weight("Moderate Quake M4.1 (Southern Saitam...)", "nikkei")
	assert.False(t, ok)
	_, ok = g.Weight("Strong Quake M5.5", "nikkei")
	assert.False(t, ok)

	w, ok = g.Weight("real_estate", "nikkei")
	require.True(t, ok)
	assert.Equal(t, 0.55, w)

	w, ok = g.Weight("usd", "jpy_usd")
	require.True(t, ok)
	assert.Equal(t, 0.3, w)

	w, ok = g.Weight("nikkei", "topix")
	require.True(t, ok)
	assert.Equal(t, 0.92, w)

	w, ok = g.Weight("nikkei", "jpy_usd")
	require.True(t, ok)
	assert.Equal(t, 0.35, w)

	_, ok = g.Weight("topix", "jpy_usd")
	assert.False(t, ok, "weak correlations are not edges")
}

func TestGraph_BuildClearsPreviousState(t *testing.T) {
	g := newTestGraph()
	require.NoError(t, g.Build(testMarket(), testEvents(), testMatrix(t)))
	g.SystemicRisk()
	assert.Equal(t, StateAnalyzed, g.State())

	require.NoError(t, g.Build(nil, nil, domain.CorrelationMatrix{}))
	assert.Equal(t, StateBuilt, g.State())
	assert.Equal(t, len(Sectors)+len(Currencies), g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestGraph_BuildRejectsMalformedMatrix(t *testing.T) {
	g := newTestGraph()
	err := g.Build(testMarket(), nil, domain.CorrelationMatrix{
		Labels: []string{"a", "b"},
		Values: [][]float64{{1, 0.5}, {0.4, 1}},
	})

	assert.ErrorIs(t, err, domain.ErrMatrixFormat)
	assert.Equal(t, StateEmpty, g.State())
}

func TestGraph_DeterministicRebuild(t *testing.T) {
	a := newTestGraph()
	b := newTestGraph()
	require.NoError(t, a.Build(testMarket(), testEvents(), testMatrix(t)))
	require.NoError(t, b.Build(testMarket(), testEvents(), testMatrix(t)))

	assert.Equal(t, a.Snapshot(), b.Snapshot())

	require.NoError(t, a.Build(testMarket(), testEvents(), testMatrix(t)))
	assert.Equal(t, b.Snapshot(), a.Snapshot())
}

func TestGraph_RandomSourceReproducible(t *testing.T) {
	a := NewGraph(risk.TokyoLatitude, risk.TokyoLongitude, NewRandomSource(7), zerolog.Nop())
	b := NewGraph(risk.TokyoLatitude, risk.TokyoLongitude, NewRandomSource(7), zerolog.Nop())
	require.NoError(t, a.Build(testMarket(), nil, domain.CorrelationMatrix{}))
	require.NoError(t, b.Build(testMarket(), nil, domain.CorrelationMatrix{}))

	assert.Equal(t, a.Snapshot(), b.Snapshot())
	for _, n := range a.Snapshot().Nodes {
		switch n.Type {
		case NodeSector:
			assert.GreaterOrEqual(t, n.Attrs["risk_exposure"], 0.3)
			assert.Less(t, n.Attrs["risk_exposure"], 0.8)
		case NodeCurrency:
			assert.GreaterOrEqual(t, n.Attrs["correlation"], -0.5)
			assert.Less(t, n.Attrs["correlation"], 0.5)
		}
	}
}

func TestGraph_DuplicateEdgeKeepsLargerWeight(t *testing.T) {
	g := newTestGraph()
	g.addNode(Node{ID: "a", Type: NodeMarket})
	g.addNode(Node{ID: "b", Type: NodeMarket})

	g.addEdge("a", "b", 0.4)
	g.addEdge("b", "a", 0.7)
	g.addEdge("a", "b", 0.5)
	g.addEdge("a", "c", 0.9)

	w, ok := g.Weight("a", "b")
	require.True(t, ok)
	assert.Equal(t, 0.7, w)
	assert.Equal(t, 1, g.EdgeCount())

	g.addEdge("a", "b", 3)
	w, _ = g.Weight("a", "b")
	assert.Equal(t, 1.0, w)
}

func TestQuakeNodeName(t *testing.T) {
	tests := []struct {
		mag      float64
		location string
		want     string
	}{
		{7.1, "Off Fukushima, Japan", "Major Quake M7.1 (Off Fukushima)"},
		{5.0, "", "Strong Quake M5.0"},
		{3.2, "Unknown", "Moderate Quake M3.2"},
		{4.4, "Northern Ibaraki Prefecture", "Moderate Quake M4.4 (Northern Ibarak...)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, QuakeNodeName(tt.mag, tt.location))
	}
}
