// Package network models Tokyo risk as a weighted graph of markets,
// earthquakes, sectors and currencies and analyses its topology.
package network

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/modules/risk"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

// NodeType classifies graph entities
type NodeType string

const (
	NodeMarket     NodeType = "market"
	NodeEarthquake NodeType = "earthquake"
	NodeSector     NodeType = "sector"
	NodeCurrency   NodeType = "currency"
)

// State is the lifecycle of a graph
type State string

const (
	StateEmpty    State = "empty"
	StateBuilt    State = "built"
	StateAnalyzed State = "analyzed"
)

// Fixed placeholder entities
var (
	Sectors    = []string{"real_estate", "insurance", "utilities", "construction", "tourism"}
	Currencies = []string{"usd", "eur", "cny"}
)

const (
	// MaxQuakeNodes caps the earthquake nodes added per build
	MaxQuakeNodes = 5
	// CorrelationEdgeThreshold is the smallest |corr| that becomes an edge
	CorrelationEdgeThreshold = 0.3

	nikkeiKey = "nikkei"
	jpyUSDKey = "jpy_usd"
)

// Node is one graph entity with its type-specific attributes
type Node struct {
	ID       string             `json:"id" msgpack:"id"`
	Type     NodeType           `json:"type" msgpack:"type"`
	Attrs    map[string]float64 `json:"attrs" msgpack:"attrs"`
	Location string             `json:"location,omitempty" msgpack:"location,omitempty"`
}

// Edge is an undirected weighted link
type Edge struct {
	From   string  `json:"from" msgpack:"from"`
	To     string  `json:"to" msgpack:"to"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// Graph is the risk network. It is rebuilt wholesale by Build and is not
// safe for concurrent use.
type Graph struct {
	g      *simple.WeightedUndirectedGraph
	nodes  []Node
	index  map[string]int64
	state  State
	lat    float64
	lon    float64
	source SyntheticDataSource
	log    zerolog.Logger
}

// NewGraph creates an empty graph whose earthquake distances are measured
// from lat/lon. A nil source uses FixedSource defaults.
func NewGraph(lat, lon float64, source SyntheticDataSource, log zerolog.Logger) *Graph {
	if source == nil {
		source = FixedSource{}
	}
	gr := &Graph{
		lat:    lat,
		lon:    lon,
		source: source,
		log:    log.With().Str("component", "risk_network").Logger(),
	}
	gr.reset()
	return gr
}

func (gr *Graph) reset() {
	gr.g = simple.NewWeightedUndirectedGraph(0, 0)
	gr.nodes = nil
	gr.index = make(map[string]int64)
	gr.state = StateEmpty
}

// State returns the lifecycle state
func (gr *Graph) State() State {
	return gr.state
}

// NodeCount returns the number of nodes
func (gr *Graph) NodeCount() int {
	return len(gr.nodes)
}

// EdgeCount returns the number of edges
func (gr *Graph) EdgeCount() int {
	return gr.g.Edges().Len()
}

// Node returns the node named id
func (gr *Graph) Node(id string) (Node, bool) {
	i, ok := gr.index[id]
	if !ok {
		return Node{}, false
	}
	return gr.nodes[i], true
}

// Weight returns the weight of the edge between a and b
func (gr *Graph) Weight(a, b string) (float64, bool) {
	ai, aok := gr.index[a]
	bi, bok := gr.index[b]
	if !aok || !bok || ai == bi {
		return 0, false
	}
	return gr.g.Weight(ai, bi)
}

func (gr *Graph) addNode(n Node) int64 {
	if id, ok := gr.index[n.ID]; ok {
		return id
	}
	id := int64(len(gr.nodes))
	gr.nodes = append(gr.nodes, n)
	gr.index[n.ID] = id
	gr.g.AddNode(simple.Node(id))
	return id
}

// addEdge clamps w to [0,1]. An existing edge keeps the larger weight.
func (gr *Graph) addEdge(a, b string, w float64) {
	ai, aok := gr.index[a]
	bi, bok := gr.index[b]
	if !aok || !bok || ai == bi || !formulas.IsFinite(w) {
		return
	}
	w = formulas.Clamp(w, 0, 1)
	if existing, ok := gr.g.Weight(ai, bi); ok && existing >= w {
		return
	}
	gr.g.SetWeightedEdge(gr.g.NewWeightedEdge(simple.Node(ai), simple.Node(bi), w))
}

// Build clears the graph and repopulates it from the inputs. The only
// error is a malformed correlation matrix, in which case the graph is left
// empty.
func (gr *Graph) Build(market domain.MarketSummary, events []domain.SeismicEvent, matrix domain.CorrelationMatrix) error {
	gr.reset()
	if err := matrix.Validate(); err != nil {
		return fmt.Errorf("build risk network: %w", err)
	}

	var marketKeys []string
	for _, entry := range market {
		s := entry.Snapshot
		if s == nil {
			continue
		}
		gr.addNode(Node{
			ID:   entry.Key,
			Type: NodeMarket,
			Attrs: map[string]float64{
				"volatility": s.Volatility,
				"price":      s.Price,
				"change_pct": s.ChangePercent,
			},
		})
		marketKeys = append(marketKeys, entry.Key)
	}

	located := risk.WithDistances(events, gr.lat, gr.lon)
	for _, ev := range risk.MostSignificant(located, MaxQuakeNodes) {
		attrs := map[string]float64{"magnitude": ev.Magnitude}
		if !math.IsInf(ev.DistanceKm, 1) {
			attrs["distance"] = ev.DistanceKm
		}
		name := QuakeNodeName(ev.Magnitude, ev.Location)
		gr.addNode(Node{ID: name, Type: NodeEarthquake, Attrs: attrs, Location: ev.Location})

		if ev.Magnitude > 5.0 && !math.IsInf(ev.DistanceKm, 1) {
			w := 1 / (1 + ev.DistanceKm/100)
			for _, key := range marketKeys {
				gr.addEdge(name, key, w)
			}
		}
	}

	_, hasNikkei := gr.index[nikkeiKey]
	for _, sector := range Sectors {
		gr.addNode(Node{
			ID:    sector,
			Type:  NodeSector,
			Attrs: map[string]float64{"risk_exposure": gr.source.SectorExposure(sector)},
		})
		if hasNikkei {
			gr.addEdge(sector, nikkeiKey, gr.source.SectorLink(sector))
		}
	}

	_, hasJPY := gr.index[jpyUSDKey]
	for _, currency := range Currencies {
		gr.addNode(Node{
			ID:    currency,
			Type:  NodeCurrency,
			Attrs: map[string]float64{"correlation": gr.source.CurrencyCorrelation(currency)},
		})
		if hasJPY {
			gr.addEdge(currency, jpyUSDKey, gr.source.CurrencyLink(currency))
		}
	}

	for i := 0; i < matrix.Size(); i++ {
		for j := i + 1; j < matrix.Size(); j++ {
			corr := math.Abs(matrix.Values[i][j])
			if corr <= CorrelationEdgeThreshold {
				continue
			}
			for _, label := range []string{matrix.Labels[i], matrix.Labels[j]} {
				if _, ok := gr.index[label]; !ok {
					gr.addNode(Node{ID: label, Type: NodeMarket, Attrs: map[string]float64{}})
				}
			}
			gr.addEdge(matrix.Labels[i], matrix.Labels[j], corr)
		}
	}

	gr.state = StateBuilt
	gr.log.Debug().
		Int("nodes", gr.NodeCount()).
		Int("edges", gr.EdgeCount()).
		Msg("Risk network built")
	return nil
}

// QuakeNodeName labels an earthquake by magnitude tier and a shortened location
func QuakeNodeName(magnitude float64, location string) string {
	tier := "Moderate"
	switch {
	case magnitude >= 6.0:
		tier = "Major"
	case magnitude >= 5.0:
		tier = "Strong"
	}
	name := fmt.Sprintf("%s Quake M%.1f", tier, magnitude)

	if location == "" || location == "Unknown" {
		return name
	}
	short, _, _ := strings.Cut(location, ",")
	if r := []rune(short); len(r) > 15 {
		short = string(r[:15]) + "..."
	}
	return fmt.Sprintf("%s (%s)", name, short)
}

// GraphSnapshot is a serialisable copy of the graph
type GraphSnapshot struct {
	State State  `json:"state" msgpack:"state"`
	Nodes []Node `json:"nodes" msgpack:"nodes"`
	Edges []Edge `json:"edges" msgpack:"edges"`
}

// Snapshot copies nodes in insertion order and edges ordered by endpoint
func (gr *Graph) Snapshot() GraphSnapshot {
	nodes := make([]Node, len(gr.nodes))
	for i, n := range gr.nodes {
		attrs := make(map[string]float64, len(n.Attrs))
		for k, v := range n.Attrs {
			attrs[k] = v
		}
		n.Attrs = attrs
		nodes[i] = n
	}

	edges := []Edge{}
	for i := range gr.nodes {
		for _, j := range gr.neighbours(int64(i)) {
			if j <= int64(i) {
				continue
			}
			w, _ := gr.g.Weight(int64(i), j)
			edges = append(edges, Edge{From: gr.nodes[i].ID, To: gr.nodes[j].ID, Weight: w})
		}
	}

	return GraphSnapshot{State: gr.state, Nodes: nodes, Edges: edges}
}
