package network

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	gnetwork "gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

const (
	// CriticalNodeCount is the number of most connected nodes reported
	CriticalNodeCount = 5
	// ClusterRiskThreshold is the smallest reported cluster risk
	ClusterRiskThreshold = 0.5
	// DefaultContagionThreshold is the default minimum path impact
	DefaultContagionThreshold = 0.3
	// MaxContagionHops bounds contagion path length in edges
	MaxContagionHops = 4
	// MaxContagionPaths caps the ranked contagion result
	MaxContagionPaths = 10

	communitySeed = 42
)

// NodeScore pairs a node with a centrality value
type NodeScore struct {
	Node  string  `json:"node" msgpack:"node"`
	Score float64 `json:"score" msgpack:"score"`
}

// SystemicRisk summarises how interconnected the network is
type SystemicRisk struct {
	Score         float64          `json:"systemic_risk_score" msgpack:"systemic_risk_score"`
	Level         domain.RiskLevel `json:"risk_level" msgpack:"risk_level"`
	Density       float64          `json:"network_density" msgpack:"network_density"`
	AvgClustering float64          `json:"avg_clustering" msgpack:"avg_clustering"`
	CriticalNodes []NodeScore      `json:"critical_nodes" msgpack:"critical_nodes"`
	Betweenness   []NodeScore      `json:"betweenness" msgpack:"betweenness"`
}

// Cluster is a community of nodes with its aggregated risk
type Cluster struct {
	Nodes     []string `json:"nodes" msgpack:"nodes"`
	RiskScore float64  `json:"risk_score" msgpack:"risk_score"`
	Size      int      `json:"size" msgpack:"size"`
}

// ContagionPath is one route a shock can travel from a source node
type ContagionPath struct {
	Path   []string `json:"path" msgpack:"path"`
	Impact float64  `json:"impact" msgpack:"impact"`
	Length int      `json:"length" msgpack:"length"`
}

// Anomaly types
const (
	AnomalyHighCentrality  = "high_centrality"
	AnomalyIsolatedCluster = "isolated_cluster"
)

// Anomaly is an unusual topological feature
type Anomaly struct {
	Type        string           `json:"type" msgpack:"type"`
	Node        string           `json:"node,omitempty" msgpack:"node,omitempty"`
	Nodes       []string         `json:"nodes,omitempty" msgpack:"nodes,omitempty"`
	Severity    domain.RiskLevel `json:"severity" msgpack:"severity"`
	Description string           `json:"description" msgpack:"description"`
	Metric      float64          `json:"metric" msgpack:"metric"`
}

// Analysis bundles every analysis of one build
type Analysis struct {
	Systemic  SystemicRisk `json:"systemic" msgpack:"systemic"`
	Clusters  []Cluster    `json:"clusters" msgpack:"clusters"`
	Anomalies []Anomaly    `json:"anomalies" msgpack:"anomalies"`
}

// Analyze runs the systemic, cluster and anomaly analyses
func (gr *Graph) Analyze() Analysis {
	return Analysis{
		Systemic:  gr.SystemicRisk(),
		Clusters:  gr.DetectClusters(),
		Anomalies: gr.DetectAnomalies(),
	}
}

func (gr *Graph) markAnalyzed() {
	if gr.state == StateBuilt {
		gr.state = StateAnalyzed
	}
}

// neighbours returns adjacent node ids in insertion order
func (gr *Graph) neighbours(id int64) []int64 {
	it := gr.g.From(id)
	out := make([]int64, 0, it.Len())
	for it.Next() {
		out = append(out, it.Node().ID())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// degreeCentrality is degree/(n-1) per node in insertion order
func (gr *Graph) degreeCentrality() []float64 {
	n := len(gr.nodes)
	c := make([]float64, n)
	if n < 2 {
		return c
	}
	for i := range c {
		c[i] = float64(gr.g.From(int64(i)).Len()) / float64(n-1)
	}
	return c
}

func (gr *Graph) density() float64 {
	n := float64(len(gr.nodes))
	if n < 2 {
		return 0
	}
	return 2 * float64(gr.EdgeCount()) / (n * (n - 1))
}

func (gr *Graph) localClustering(id int64) float64 {
	nbrs := gr.neighbours(id)
	k := len(nbrs)
	if k < 2 {
		return 0
	}
	links := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if gr.g.HasEdgeBetween(nbrs[i], nbrs[j]) {
				links++
			}
		}
	}
	return 2 * float64(links) / float64(k*(k-1))
}

func (gr *Graph) avgClustering() float64 {
	if len(gr.nodes) == 0 {
		return 0
	}
	sum := 0.0
	for i := range gr.nodes {
		sum += gr.localClustering(int64(i))
	}
	return sum / float64(len(gr.nodes))
}

// SystemicRisk scores density, clustering and the most connected node
func (gr *Graph) SystemicRisk() SystemicRisk {
	defer gr.markAnalyzed()

	centrality := gr.degreeCentrality()
	maxCentrality := 0.0
	ranked := make([]NodeScore, len(centrality))
	for i, c := range centrality {
		ranked[i] = NodeScore{Node: gr.nodes[i].ID, Score: c}
		if c > maxCentrality {
			maxCentrality = c
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > CriticalNodeCount {
		ranked = ranked[:CriticalNodeCount]
	}

	density := gr.density()
	clustering := gr.avgClustering()
	score := density*0.3 + clustering*0.3 + maxCentrality*0.4

	return SystemicRisk{
		Score:         score,
		Level:         domain.LevelFor(score),
		Density:       density,
		AvgClustering: clustering,
		CriticalNodes: ranked,
		Betweenness:   gr.betweenness(),
	}
}

// betweenness is normalised by the number of node pairs excluding the
// node itself, in insertion order, omitting zero scores
func (gr *Graph) betweenness() []NodeScore {
	n := len(gr.nodes)
	out := []NodeScore{}
	if n < 3 {
		return out
	}
	raw := gnetwork.Betweenness(gr.g)
	// Both directions of every pair are counted for undirected graphs
	norm := float64((n - 1) * (n - 2))
	for i, node := range gr.nodes {
		if b, ok := raw[int64(i)]; ok && b > 0 {
			out = append(out, NodeScore{Node: node.ID, Score: b / norm})
		}
	}
	return out
}

// nodeRisk is the cluster contribution of a node
func nodeRisk(n Node) float64 {
	switch n.Type {
	case NodeEarthquake:
		return n.Attrs["magnitude"] / 10
	case NodeMarket:
		return n.Attrs["volatility"]
	case NodeSector:
		return n.Attrs["risk_exposure"]
	default:
		return 0
	}
}

func (gr *Graph) sortedIDs(members []graph.Node) []int64 {
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID()
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// DetectClusters partitions the graph with Louvain modularity optimisation
// and reports communities whose risk exceeds 0.5, highest risk first
func (gr *Graph) DetectClusters() []Cluster {
	defer gr.markAnalyzed()

	clusters := []Cluster{}
	if len(gr.nodes) == 0 {
		return clusters
	}

	reduced := community.Modularize(gr.g, 1, rand.NewPCG(communitySeed, communitySeed))
	for _, members := range reduced.Communities() {
		ids := gr.sortedIDs(members)
		names := make([]string, len(ids))
		risk := 0.0
		for i, id := range ids {
			names[i] = gr.nodes[id].ID
			risk += nodeRisk(gr.nodes[id])
		}
		if risk > ClusterRiskThreshold {
			clusters = append(clusters, Cluster{Nodes: names, RiskScore: risk, Size: len(names)})
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].RiskScore != clusters[j].RiskScore {
			return clusters[i].RiskScore > clusters[j].RiskScore
		}
		return gr.index[clusters[i].Nodes[0]] < gr.index[clusters[j].Nodes[0]]
	})
	return clusters
}

// FindContagionPaths enumerates simple paths of up to four hops from source
// whose weight product is at least threshold. It returns the ten strongest.
// An unknown source yields no paths.
func (gr *Graph) FindContagionPaths(source string, threshold float64) []ContagionPath {
	defer gr.markAnalyzed()

	paths := []ContagionPath{}
	start, ok := gr.index[source]
	if !ok {
		return paths
	}

	visited := map[int64]bool{start: true}
	trail := []int64{start}

	var walk func(at int64, impact float64)
	walk = func(at int64, impact float64) {
		if len(trail) > MaxContagionHops {
			return
		}
		for _, next := range gr.neighbours(at) {
			if visited[next] {
				continue
			}
			w, _ := gr.g.Weight(at, next)
			product := impact * w
			// Weights never exceed 1, so impact only falls along a path
			if product < threshold {
				continue
			}

			trail = append(trail, next)
			visited[next] = true

			names := make([]string, len(trail))
			for i, id := range trail {
				names[i] = gr.nodes[id].ID
			}
			paths = append(paths, ContagionPath{Path: names, Impact: product, Length: len(names)})

			walk(next, product)

			visited[next] = false
			trail = trail[:len(trail)-1]
		}
	}
	walk(start, 1)

	sort.SliceStable(paths, func(i, j int) bool { return paths[i].Impact > paths[j].Impact })
	if len(paths) > MaxContagionPaths {
		paths = paths[:MaxContagionPaths]
	}
	return paths
}

// DetectAnomalies flags unusually central nodes and components cut off
// from the largest one
func (gr *Graph) DetectAnomalies() []Anomaly {
	defer gr.markAnalyzed()

	anomalies := []Anomaly{}
	if len(gr.nodes) == 0 {
		return anomalies
	}

	centrality := gr.degreeCentrality()
	cutoff := formulas.Mean(centrality) + 2*formulas.PopStdDev(centrality)
	for i, c := range centrality {
		if c > cutoff {
			anomalies = append(anomalies, Anomaly{
				Type:        AnomalyHighCentrality,
				Node:        gr.nodes[i].ID,
				Severity:    domain.RiskHigh,
				Description: fmt.Sprintf("%s has unusually high connectivity", gr.nodes[i].ID),
				Metric:      c,
			})
		}
	}

	components := topo.ConnectedComponents(gr.g)
	sorted := make([][]int64, len(components))
	for i, comp := range components {
		sorted[i] = gr.sortedIDs(comp)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i][0] < sorted[j][0]
	})

	for _, comp := range sorted[min(1, len(sorted)):] {
		names := make([]string, len(comp))
		for i, id := range comp {
			names[i] = gr.nodes[id].ID
		}
		anomalies = append(anomalies, Anomaly{
			Type:        AnomalyIsolatedCluster,
			Nodes:       names,
			Severity:    domain.RiskMedium,
			Description: fmt.Sprintf("Isolated risk cluster detected with %d nodes", len(comp)),
			Metric:      float64(len(comp)),
		})
	}

	return anomalies
}
