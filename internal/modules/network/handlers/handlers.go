// Package handlers provides HTTP handlers for risk network analysis.
package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/tokyorisk/internal/modules/network"
	"github.com/aristath/tokyorisk/internal/monitor"
	"github.com/aristath/tokyorisk/pkg/render"
)

// NetworkSource exposes the latest analysed risk network
type NetworkSource interface {
	Latest() (*monitor.Snapshot, error)
	ContagionPaths(source string, threshold float64) ([]network.ContagionPath, error)
}

// Handler handles risk network HTTP requests
type Handler struct {
	source NetworkSource
	log    zerolog.Logger
}

// NewHandler creates a new risk network handler
func NewHandler(source NetworkSource, log zerolog.Logger) *Handler {
	return &Handler{
		source: source,
		log:    log.With().Str("handler", "network").Logger(),
	}
}

func (h *Handler) writeSourceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, monitor.ErrNoSnapshot):
		http.Error(w, "Risk network not available yet", http.StatusServiceUnavailable)
	default:
		h.log.Error().Err(err).Msg("Failed to load risk network")
		http.Error(w, "Failed to load risk network", http.StatusInternalServerError)
	}
}

func (h *Handler) latest(w http.ResponseWriter) (*monitor.Snapshot, bool) {
	snap, err := h.source.Latest()
	if err != nil {
		h.writeSourceError(w, err)
		return nil, false
	}
	return snap, true
}

// HandleGetSystemic handles GET /api/network/systemic
func (h *Handler) HandleGetSystemic(w http.ResponseWriter, r *http.Request) {
	if snap, ok := h.latest(w); ok {
		render.OK(w, r, snap.Network.Systemic, h.log)
	}
}

// HandleGetClusters handles GET /api/network/clusters
func (h *Handler) HandleGetClusters(w http.ResponseWriter, r *http.Request) {
	if snap, ok := h.latest(w); ok {
		render.OK(w, r, snap.Network.Clusters, h.log)
	}
}

// HandleGetAnomalies handles GET /api/network/anomalies
func (h *Handler) HandleGetAnomalies(w http.ResponseWriter, r *http.Request) {
	if snap, ok := h.latest(w); ok {
		render.OK(w, r, snap.Network.Anomalies, h.log)
	}
}

// HandleGetGraph handles GET /api/network/graph
func (h *Handler) HandleGetGraph(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}

	render.OK(w, r, map[string]interface{}{
		"graph":      snap.Graph,
		"node_count": len(snap.Graph.Nodes),
		"edge_count": len(snap.Graph.Edges),
		"updated_at": snap.UpdatedAt.Format(time.RFC3339),
	}, h.log)
}

// HandleGetContagion handles GET /api/network/contagion/{node}
func (h *Handler) HandleGetContagion(w http.ResponseWriter, r *http.Request) {
	node, err := url.PathUnescape(chi.URLParam(r, "node"))
	if err != nil || node == "" {
		http.Error(w, "Invalid node", http.StatusBadRequest)
		return
	}

	threshold := network.DefaultContagionThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || threshold <= 0 || threshold > 1 {
			http.Error(w, "threshold must be in (0, 1]", http.StatusBadRequest)
			return
		}
	}

	paths, err := h.source.ContagionPaths(node, threshold)
	if err != nil {
		h.writeSourceError(w, err)
		return
	}

	render.OK(w, r, map[string]interface{}{
		"source":    node,
		"threshold": threshold,
		"paths":     paths,
	}, h.log)
}
