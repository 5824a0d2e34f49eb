package network

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tokyorisk/internal/domain"
)

// diamond builds a-b-c triangle with a tail c-d
func diamond() *Graph {
	g := newTestGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.addNode(Node{ID: id, Type: NodeMarket, Attrs: map[string]float64{"volatility": 0.2}})
	}
	g.addEdge("a", "b", 0.9)
	g.addEdge("b", "c", 0.8)
	g.addEdge("a", "c", 0.5)
	g.addEdge("c", "d", 0.6)
	g.state = StateBuilt
	return g
}

func TestSystemicRisk_ZeroEdges(t *testing.T) {
	g := newTestGraph()
	require.NoError(t, g.Build(nil, nil, domain.CorrelationMatrix{}))

	got := g.SystemicRisk()

	assert.Equal(t, 0.0, got.Density)
	assert.Equal(t, 0.0, got.AvgClustering)
	assert.Equal(t, 0.0, got.Score)
	assert.Equal(t, domain.RiskLow, got.Level)
	assert.Empty(t, got.Betweenness)
	assert.Equal(t, StateAnalyzed, g.State())
}

func TestSystemicRisk_EmptyGraph(t *testing.T) {
	got := newTestGraph().SystemicRisk()
	assert.Equal(t, 0.0, got.Score)
	assert.Empty(t, got.CriticalNodes)
}

func TestSystemicRisk_Diamond(t *testing.T) {
	got := diamond().SystemicRisk()

	assert.InDelta(t, 4.0/6, got.Density, 1e-12)
	assert.InDelta(t, (1+1+1.0/3)/4, got.AvgClustering, 1e-12)
	assert.InDelta(t, 0.3*4.0/6+0.3*(7.0/12)+0.4, got.Score, 1e-12)
	assert.Equal(t, domain.RiskCritical, got.Level)

	require.Len(t, got.CriticalNodes, 4)
	names := []string{}
	for _, n := range got.CriticalNodes {
		names = append(names, n.Node)
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, names)
	assert.Equal(t, 1.0, got.CriticalNodes[0].Score)

	require.Len(t, got.Betweenness, 1)
	assert.Equal(t, "c", got.Betweenness[0].Node)
	assert.InDelta(t, 2.0/3, got.Betweenness[0].Score, 1e-12)
}

func TestSystemicRisk_CriticalNodesCapped(t *testing.T) {
	g := newTestGraph()
	require.NoError(t, g.Build(testMarket(), testEvents(), testMatrix(t)))

	got := g.SystemicRisk()
	assert.Len(t, got.CriticalNodes, CriticalNodeCount)
	assert.Equal(t, "nikkei", got.CriticalNodes[0].Node)
}

func TestFindContagionPaths(t *testing.T) {
	paths := diamond().FindContagionPaths("a", 0.35)

	require.Len(t, paths, 5)
	want := []struct {
		path   []string
		impact float64
	}{
		{[]string{"a", "b"}, 0.9},
		{[]string{"a", "b", "c"}, 0.72},
		{[]string{"a", "c"}, 0.5},
		{[]string{"a", "b", "c", "d"}, 0.432},
		{[]string{"a", "c", "b"}, 0.4},
	}
	for i, w := range want {
		assert.Equal(t, w.path, paths[i].Path)
		assert.InDelta(t, w.impact, paths[i].Impact, 1e-12)
		assert.Equal(t, len(w.path), paths[i].Length)
	}
}

func TestFindContagionPaths_NoPaths(t *testing.T) {
	g := newTestGraph()
	require.NoError(t, g.Build(nil, nil, domain.CorrelationMatrix{}))

	assert.Empty(t, g.FindContagionPaths("usd", DefaultContagionThreshold))
	assert.Empty(t, g.FindContagionPaths("does-not-exist", DefaultContagionThreshold))
}

func TestFindContagionPaths_HopLimitAndCap(t *testing.T) {
	g := newTestGraph()
	for i := 0; i < 8; i++ {
		g.addNode(Node{ID: fmt.Sprintf("n%d", i), Type: NodeMarket})
	}
	for i := 0; i < 8; i++ {
		for j := i + 1; j < 8; j++ {
			g.addEdge(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", j), 1)
		}
	}

	paths := g.FindContagionPaths("n0", 0)

	assert.Len(t, paths, MaxContagionPaths)
	for _, p := range paths {
		assert.LessOrEqual(t, p.Length, MaxContagionHops+1)
		assert.Equal(t, "n0", p.Path[0])
	}
}

func TestDetectClusters(t *testing.T) {
	g := newTestGraph()
	for _, id := range []string{"m1", "m2", "m3"} {
		g.addNode(Node{ID: id, Type: NodeMarket, Attrs: map[string]float64{"volatility": 0.3}})
	}
	for _, id := range []string{"c1", "c2", "c3"} {
		g.addNode(Node{ID: id, Type: NodeCurrency, Attrs: map[string]float64{"correlation": 0.4}})
	}
	for _, tri := range [][3]string{{"m1", "m2", "m3"}, {"c1", "c2", "c3"}} {
		g.addEdge(tri[0], tri[1], 0.8)
		g.addEdge(tri[1], tri[2], 0.8)
		g.addEdge(tri[0], tri[2], 0.8)
	}

	clusters := g.DetectClusters()

	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"m1", "m2", "m3"}, clusters[0].Nodes)
	assert.Equal(t, 3, clusters[0].Size)
	assert.InDelta(t, 0.9, clusters[0].RiskScore, 1e-12)
}

func TestDetectClusters_NoEdges(t *testing.T) {
	g := newTestGraph()
	g.addNode(Node{ID: "quake", Type: NodeEarthquake, Attrs: map[string]float64{"magnitude": 7}})
	g.addNode(Node{ID: "calm", Type: NodeSector, Attrs: map[string]float64{"risk_exposure": 0.3}})

	clusters := g.DetectClusters()

	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"quake"}, clusters[0].Nodes)
	assert.InDelta(t, 0.7, clusters[0].RiskScore, 1e-12)
}

func TestDetectAnomalies(t *testing.T) {
	t.Run("connected diamond", func(t *testing.T) {
		assert.Empty(t, diamond().DetectAnomalies())
	})

	t.Run("isolated component", func(t *testing.T) {
		g := diamond()
		g.addNode(Node{ID: "e", Type: NodeCurrency})
		g.addNode(Node{ID: "f", Type: NodeCurrency})
		g.addEdge("e", "f", 0.4)

		got := g.DetectAnomalies()

		require.Len(t, got, 1)
		assert.Equal(t, AnomalyIsolatedCluster, got[0].Type)
		assert.Equal(t, []string{"e", "f"}, got[0].Nodes)
		assert.Equal(t, domain.RiskMedium, got[0].Severity)
		assert.Equal(t, 2.0, got[0].Metric)
	})

	t.Run("hub", func(t *testing.T) {
		g := newTestGraph()
		g.addNode(Node{ID: "hub", Type: NodeMarket})
		for i := 0; i < 10; i++ {
			leaf := fmt.Sprintf("leaf%d", i)
			g.addNode(Node{ID: leaf, Type: NodeSector})
			g.addEdge("hub", leaf, 0.5)
		}

		got := g.DetectAnomalies()

		require.Len(t, got, 1)
		assert.Equal(t, AnomalyHighCentrality, got[0].Type)
		assert.Equal(t, "hub", got[0].Node)
		assert.Equal(t, domain.RiskHigh, got[0].Severity)
		assert.Equal(t, 1.0, got[0].Metric)
	})
}

func TestAnalyze(t *testing.T) {
	g := newTestGraph()
	require.NoError(t, g.Build(testMarket(), testEvents(), testMatrix(t)))

	a := g.Analyze()

	assert.Equal(t, StateAnalyzed, g.State())
	assert.GreaterOrEqual(t, a.Systemic.Score, 0.0)
	assert.NotNil(t, a.Clusters)
	assert.NotNil(t, a.Anomalies)
}
