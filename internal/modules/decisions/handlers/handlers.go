// Package handlers provides HTTP handlers for the decision queue.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/tokyorisk/internal/events"
	"github.com/aristath/tokyorisk/internal/modules/decisions"
	"github.com/aristath/tokyorisk/pkg/render"
)

// Handler handles decision queue HTTP requests
type Handler struct {
	queue *decisions.Queue
	bus   *events.Bus
	log   zerolog.Logger
}

// NewHandler creates a new decision queue handler. bus may be nil.
func NewHandler(queue *decisions.Queue, bus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		queue: queue,
		bus:   bus,
		log:   log.With().Str("handler", "decisions").Logger(),
	}
}

// HandleGetPending handles GET /api/decisions
func (h *Handler) HandleGetPending(w http.ResponseWriter, r *http.Request) {
	render.OK(w, r, h.queue.Pending(), h.log)
}

// HandleGetHistory handles GET /api/decisions/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	render.OK(w, r, h.queue.History(), h.log)
}

// HandleGetStats handles GET /api/decisions/stats
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	render.OK(w, r, h.queue.Stats(), h.log)
}

type decisionRequest struct {
	Note string `json:"note"`
}

// HandleApprove handles POST /api/decisions/{id}/approve
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.queue.Approve)
}

// HandleReject handles POST /api/decisions/{id}/reject
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.queue.Reject)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, decide func(id, note string) (decisions.Decision, error)) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing recommendation id", http.StatusBadRequest)
		return
	}

	var req decisionRequest
	if r.Body != nil {
		if err := render.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	decision, err := decide(id, strings.TrimSpace(req.Note))
	if err != nil {
		if errors.Is(err, decisions.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("id", id).Msg("Failed to record decision")
		http.Error(w, "Failed to record decision", http.StatusInternalServerError)
		return
	}

	if h.bus != nil {
		h.bus.Emit("decisions", &events.DecisionRecordedData{
			DecisionID:       decision.ID,
			RecommendationID: id,
			Outcome:          string(decision.Outcome),
			Note:             decision.Note,
		})
	}

	render.OK(w, r, decision, h.log)
}
