// Package decisions keeps the queue of risk recommendations awaiting a
// human approve or reject call, and the history of calls made.
package decisions

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/tokyorisk/internal/domain"
)

// Status of a queued recommendation
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// ErrNotFound is returned when no pending item has the requested ID
var ErrNotFound = errors.New("recommendation not pending")

// Item is a recommendation waiting for a decision
type Item struct {
	Recommendation domain.Recommendation `json:"recommendation" msgpack:"recommendation"`
	Status         Status                `json:"status" msgpack:"status"`
	QueuedAt       time.Time             `json:"queued_at" msgpack:"queued_at"`
	LastSeenAt     time.Time             `json:"last_seen_at" msgpack:"last_seen_at"`
}

// Decision records one approve or reject call
type Decision struct {
	ID             string                `json:"id" msgpack:"id"`
	Recommendation domain.Recommendation `json:"recommendation" msgpack:"recommendation"`
	Outcome        Status                `json:"outcome" msgpack:"outcome"`
	Note           string                `json:"note,omitempty" msgpack:"note,omitempty"`
	QueuedAt       time.Time             `json:"queued_at" msgpack:"queued_at"`
	DecidedAt      time.Time             `json:"decided_at" msgpack:"decided_at"`
}

// Stats summarises queue activity
type Stats struct {
	Pending      int     `json:"pending" msgpack:"pending"`
	Approved     int     `json:"approved" msgpack:"approved"`
	Rejected     int     `json:"rejected" msgpack:"rejected"`
	Decided      int     `json:"decided" msgpack:"decided"`
	ApprovalRate float64 `json:"approval_rate" msgpack:"approval_rate"`
}

var priorityRank = map[domain.RiskLevel]int{
	domain.RiskCritical: 0,
	domain.RiskHigh:     1,
	domain.RiskMedium:   2,
	domain.RiskLow:      3,
}

// Queue is an in-memory, thread-safe decision queue. Recommendations are
// keyed by their content ID, so a recommendation repeated across refresh
// cycles is queued once and one already decided is not queued again.
type Queue struct {
	pending map[string]*Item
	order   []string
	decided map[string]bool
	history []Decision
	clock   domain.Clock
	mu      sync.RWMutex
	log     zerolog.Logger
}

// NewQueue creates an empty queue
func NewQueue(clock domain.Clock, log zerolog.Logger) *Queue {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Queue{
		pending: make(map[string]*Item),
		decided: make(map[string]bool),
		clock:   clock,
		log:     log.With().Str("repository", "decision_queue").Logger(),
	}
}

// Submit queues recommendations not seen before and returns how many were added
func (q *Queue) Submit(recs []domain.Recommendation) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now().UTC()
	added := 0
	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = domain.RecommendationID(rec.Category, rec.Action, rec.Priority)
		}
		if q.decided[rec.ID] {
			continue
		}
		if existing, ok := q.pending[rec.ID]; ok {
			existing.LastSeenAt = now
			continue
		}
		q.pending[rec.ID] = &Item{
			Recommendation: rec,
			Status:         StatusPending,
			QueuedAt:       now,
			LastSeenAt:     now,
		}
		q.order = append(q.order, rec.ID)
		added++
	}

	if added > 0 {
		q.log.Debug().Int("added", added).Int("pending", len(q.pending)).Msg("Queued recommendations")
	}
	return added
}

// Pending returns waiting items, most urgent priority first, then oldest first
func (q *Queue) Pending() []Item {
	q.mu.RLock()
	defer q.mu.RUnlock()

	items := make([]Item, 0, len(q.order))
	for _, id := range q.order {
		items = append(items, *q.pending[id])
	}
	sort.SliceStable(items, func(i, j int) bool {
		return rank(items[i].Recommendation.Priority) < rank(items[j].Recommendation.Priority)
	})
	return items
}

func rank(p domain.RiskLevel) int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// Approve moves a pending recommendation into history as approved
func (q *Queue) Approve(id, note string) (Decision, error) {
	return q.decide(id, StatusApproved, note)
}

// Reject moves a pending recommendation into history as rejected
func (q *Queue) Reject(id, note string) (Decision, error) {
	return q.decide(id, StatusRejected, note)
}

func (q *Queue) decide(id string, outcome Status, note string) (Decision, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.pending[id]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	d := Decision{
		ID:             uuid.New().String(),
		Recommendation: item.Recommendation,
		Outcome:        outcome,
		Note:           note,
		QueuedAt:       item.QueuedAt,
		DecidedAt:      q.clock.Now().UTC(),
	}

	delete(q.pending, id)
	q.removeFromOrder(id)
	q.decided[id] = true
	q.history = append(q.history, d)

	q.log.Info().
		Str("recommendation_id", id).
		Str("outcome", string(outcome)).
		Msg("Recorded decision")

	return d, nil
}

func (q *Queue) removeFromOrder(id string) {
	for i, queued := range q.order {
		if queued == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}

// History returns decisions, most recent first
func (q *Queue) History() []Decision {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]Decision, len(q.history))
	for i, d := range q.history {
		out[len(q.history)-1-i] = d
	}
	return out
}

// Stats counts pending and decided items. ApprovalRate is zero before any decision.
func (q *Queue) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	s := Stats{Pending: len(q.pending), Decided: len(q.history)}
	for _, d := range q.history {
		if d.Outcome == StatusApproved {
			s.Approved++
		} else {
			s.Rejected++
		}
	}
	if s.Decided > 0 {
		s.ApprovalRate = float64(s.Approved) / float64(s.Decided)
	}
	return s
}
