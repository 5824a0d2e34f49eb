package events

import (
	"github.com/aristath/tokyorisk/internal/domain"
)

// EventType names a kind of event published on the bus
type EventType string

const (
	// AlertRaised is published once per alert produced by a refresh
	AlertRaised EventType = "AlertRaised"
	// AssessmentUpdated is published after every successful refresh
	AssessmentUpdated EventType = "AssessmentUpdated"
	// RefreshFailed is published when a refresh could not produce a snapshot
	RefreshFailed EventType = "RefreshFailed"
	// DecisionRecorded is published when a recommendation is approved or rejected
	DecisionRecorded EventType = "DecisionRecorded"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// AlertRaisedData contains data for AlertRaised events
type AlertRaisedData struct {
	Alert      domain.Alert `json:"alert"`
	Score      float64      `json:"combined_score"`
	AssessedAt string       `json:"assessed_at"`
}

// EventType returns the event type for AlertRaisedData
func (d *AlertRaisedData) EventType() EventType {
	return AlertRaised
}

// AssessmentUpdatedData contains data for AssessmentUpdated events
type AssessmentUpdatedData struct {
	Score           float64          `json:"combined_score"`
	Level           domain.RiskLevel `json:"level"`
	SystemicScore   float64          `json:"systemic_score"`
	Alerts          int              `json:"alerts"`
	Recommendations int              `json:"recommendations"`
	AssessedAt      string           `json:"assessed_at"`
}

// EventType returns the event type for AssessmentUpdatedData
func (d *AssessmentUpdatedData) EventType() EventType {
	return AssessmentUpdated
}

// RefreshFailedData contains data for RefreshFailed events
type RefreshFailedData struct {
	Error string `json:"error"`
	Stage string `json:"stage"`
}

// EventType returns the event type for RefreshFailedData
func (d *RefreshFailedData) EventType() EventType {
	return RefreshFailed
}

// DecisionRecordedData contains data for DecisionRecorded events
type DecisionRecordedData struct {
	DecisionID       string `json:"decision_id"`
	RecommendationID string `json:"recommendation_id"`
	Outcome          string `json:"outcome"`
	Note             string `json:"note,omitempty"`
}

// EventType returns the event type for DecisionRecordedData
func (d *DecisionRecordedData) EventType() EventType {
	return DecisionRecorded
}
