// Package domain provides the shared risk models and types.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"time"
)

// RiskLevel is the four-step severity scale used by every assessor
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Risk level cut-offs shared by all scores
const (
	CriticalThreshold = 0.7
	HighThreshold     = 0.5
	MediumThreshold   = 0.3
)

// LevelFor maps a score to its risk level
func LevelFor(score float64) RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return RiskCritical
	case score >= HighThreshold:
		return RiskHigh
	case score >= MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ParseRiskLevel normalises a level name. ok is false for unknown names.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskLow:
		return RiskLow, true
	case RiskMedium:
		return RiskMedium, true
	case RiskHigh:
		return RiskHigh, true
	case RiskCritical:
		return RiskCritical, true
	}
	return RiskLevel(s), false
}

// Elevated reports whether the level is HIGH or CRITICAL
func (l RiskLevel) Elevated() bool {
	return l == RiskHigh || l == RiskCritical
}

// OptionType selects call or put payoffs
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// OptionContract holds the five Black-Scholes inputs
type OptionContract struct {
	Spot           float64 `json:"spot" msgpack:"spot"`
	Strike         float64 `json:"strike" msgpack:"strike"`
	TimeToMaturity float64 `json:"time_to_maturity" msgpack:"time_to_maturity"` // years
	RiskFreeRate   float64 `json:"risk_free_rate" msgpack:"risk_free_rate"`
	Volatility     float64 `json:"volatility" msgpack:"volatility"`
}

// DataQuality describes how a seismic record was obtained
type DataQuality string

const (
	QualityParsed     DataQuality = "parsed"
	QualityIncomplete DataQuality = "incomplete"
	QualitySynthetic  DataQuality = "synthetic"
)

// SeismicEvent is one earthquake observation from a seismic feed
type SeismicEvent struct {
	ID             string      `json:"id" msgpack:"id"`
	Time           time.Time   `json:"time" msgpack:"time"`
	Magnitude      float64     `json:"magnitude" msgpack:"magnitude"`
	Latitude       *float64    `json:"latitude,omitempty" msgpack:"latitude,omitempty"`
	Longitude      *float64    `json:"longitude,omitempty" msgpack:"longitude,omitempty"`
	DepthKm        float64     `json:"depth_km" msgpack:"depth_km"`
	Location       string      `json:"location" msgpack:"location"`
	Intensity      float64     `json:"intensity" msgpack:"intensity"`
	TsunamiWarning bool        `json:"tsunami_warning" msgpack:"tsunami_warning"`
	DistanceKm     float64     `json:"distance_km" msgpack:"distance_km"`
	Quality        DataQuality `json:"quality" msgpack:"quality"`
}

// HasCoordinates reports whether both epicenter coordinates are known
func (e SeismicEvent) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil &&
		!math.IsNaN(*e.Latitude) && !math.IsNaN(*e.Longitude)
}

// InstrumentSnapshot is one observation of a tradable instrument
type InstrumentSnapshot struct {
	Symbol        string    `json:"symbol" msgpack:"symbol"`
	Price         float64   `json:"price" msgpack:"price"`
	PreviousClose float64   `json:"previous_close" msgpack:"previous_close"`
	ChangePercent float64   `json:"change_percent" msgpack:"change_percent"`
	Volatility    float64   `json:"volatility" msgpack:"volatility"`
	Volume        float64   `json:"volume" msgpack:"volume"`
	AvgVolume     float64   `json:"avg_volume" msgpack:"avg_volume"`
	High          float64   `json:"high" msgpack:"high"`
	Low           float64   `json:"low" msgpack:"low"`
	Timestamp     time.Time `json:"timestamp" msgpack:"timestamp"`
	Live          bool      `json:"live" msgpack:"live"`
}

// MarketEntry pairs an instrument key (e.g. "nikkei") with its snapshot
type MarketEntry struct {
	Key      string              `json:"key" msgpack:"key"`
	Snapshot *InstrumentSnapshot `json:"snapshot" msgpack:"snapshot"`
}

// MarketSummary is an ordered set of instrument snapshots. A nil snapshot
// marks an instrument the feed could not deliver.
type MarketSummary []MarketEntry

// Get returns the snapshot stored under key
func (m MarketSummary) Get(key string) (*InstrumentSnapshot, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Snapshot, e.Snapshot != nil
		}
	}
	return nil, false
}

// Available counts instruments with data
func (m MarketSummary) Available() int {
	n := 0
	for _, e := range m {
		if e.Snapshot != nil {
			n++
		}
	}
	return n
}

// Assessment is the result of one risk component
type Assessment struct {
	Score   float64            `json:"score" msgpack:"score"`
	Level   RiskLevel          `json:"level" msgpack:"level"`
	Factors map[string]float64 `json:"factors" msgpack:"factors"`
	Raw     map[string]float64 `json:"raw,omitempty" msgpack:"raw,omitempty"`
}

// NewAssessment builds an assessment and derives its level from score
func NewAssessment(score float64, factors, raw map[string]float64) Assessment {
	return Assessment{
		Score:   score,
		Level:   LevelFor(score),
		Factors: factors,
		Raw:     raw,
	}
}

// Recommendation is a rule-based action proposal
type Recommendation struct {
	ID            string    `json:"id" msgpack:"id"`
	Priority      RiskLevel `json:"priority" msgpack:"priority"`
	Category      string    `json:"category" msgpack:"category"`
	Action        string    `json:"action" msgpack:"action"`
	Rationale     string    `json:"rationale" msgpack:"rationale"`
	TargetSectors []string  `json:"target_sectors" msgpack:"target_sectors"`
	Timeline      string    `json:"timeline" msgpack:"timeline"`
}

// RecommendationID derives a stable identifier from the recommendation
// content so the same advice is recognised across refresh cycles
func RecommendationID(category, action string, priority RiskLevel) string {
	sum := sha256.Sum256([]byte(category + "|" + action + "|" + string(priority)))
	return hex.EncodeToString(sum[:8])
}

// Alert is raised when an assessment crosses an action threshold
type Alert struct {
	Level          RiskLevel `json:"level" msgpack:"level"`
	Type           string    `json:"type" msgpack:"type"`
	Message        string    `json:"message" msgpack:"message"`
	RequiresAction bool      `json:"requires_action" msgpack:"requires_action"`
}
