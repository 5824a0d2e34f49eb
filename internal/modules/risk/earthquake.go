// Package risk scores earthquake, market and correlation risk for Tokyo and
// blends them into a combined assessment with recommendations and alerts.
package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

// Tokyo reference point
const (
	TokyoLatitude  = 35.6762
	TokyoLongitude = 139.6503
)

const (
	// RegionRadiusKm bounds the events that count towards Tokyo risk
	RegionRadiusKm = 500.0
	// NearbyRadiusKm bounds the events reported as nearby
	NearbyRadiusKm = 200.0
	// RecentWindow is the activity window for the frequency factor
	RecentWindow = 7 * 24 * time.Hour
)

// EarthquakeAssessment is the seismic component with the events behind it
type EarthquakeAssessment struct {
	domain.Assessment
	RecentActivity    int                   `json:"recent_activity" msgpack:"recent_activity"`
	MaxMagnitude      float64               `json:"max_magnitude" msgpack:"max_magnitude"`
	ClosestDistanceKm *float64              `json:"closest_distance_km" msgpack:"closest_distance_km"`
	RegionEvents      []domain.SeismicEvent `json:"region_events" msgpack:"region_events"`
	NearbyEvents      []domain.SeismicEvent `json:"nearby_events" msgpack:"nearby_events"`
	Summary           string                `json:"summary" msgpack:"summary"`
}

// EarthquakeAssessor converts seismic events into a risk score for a reference point
type EarthquakeAssessor struct {
	lat   float64
	lon   float64
	clock domain.Clock
}

// NewEarthquakeAssessor creates an assessor centred on lat/lon
func NewEarthquakeAssessor(lat, lon float64, clock domain.Clock) *EarthquakeAssessor {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &EarthquakeAssessor{lat: lat, lon: lon, clock: clock}
}

// WithDistances returns copies of events with DistanceKm set to the
// great-circle distance from lat/lon. Missing coordinates give +Inf.
func WithDistances(events []domain.SeismicEvent, lat, lon float64) []domain.SeismicEvent {
	out := make([]domain.SeismicEvent, len(events))
	for i, ev := range events {
		if ev.HasCoordinates() {
			ev.DistanceKm = formulas.HaversineKm(lat, lon, *ev.Latitude, *ev.Longitude)
		} else {
			ev.DistanceKm = math.Inf(1)
		}
		out[i] = ev
	}
	return out
}

// Assess scores the events. An empty list gives the 0.1 LOW baseline.
func (a *EarthquakeAssessor) Assess(events []domain.SeismicEvent) EarthquakeAssessment {
	if len(events) == 0 {
		return EarthquakeAssessment{
			Assessment: domain.Assessment{
				Score: 0.1,
				Level: domain.RiskLow,
				Factors: map[string]float64{
					"magnitude": 0,
					"frequency": 0,
					"proximity": 0,
				},
			},
			RegionEvents: []domain.SeismicEvent{},
			NearbyEvents: []domain.SeismicEvent{},
			Summary:      "No recent seismic activity detected",
		}
	}

	now := a.clock.Now()
	region := make([]domain.SeismicEvent, 0, len(events))
	nearby := make([]domain.SeismicEvent, 0)
	recent := 0
	maxMag := 0.0
	closest := math.Inf(1)

	for _, ev := range WithDistances(events, a.lat, a.lon) {
		if !(ev.DistanceKm <= RegionRadiusKm) {
			continue
		}
		region = append(region, ev)
		if ev.DistanceKm <= NearbyRadiusKm {
			nearby = append(nearby, ev)
		}
		if !ev.Time.IsZero() && now.Sub(ev.Time) <= RecentWindow {
			recent++
		}
		maxMag = math.Max(maxMag, ev.Magnitude)
		closest = math.Min(closest, ev.DistanceKm)
	}

	magnitudeScore := math.Min(maxMag/10, 0.4)
	frequencyScore := math.Min(float64(recent)/20, 0.3)
	proximityScore := 0.0
	if !math.IsInf(closest, 1) {
		proximityScore = math.Max(0, 0.3-closest/RegionRadiusKm)
	}

	raw := map[string]float64{
		"event_count":   float64(recent),
		"max_magnitude": maxMag,
		"region_events": float64(len(region)),
	}
	var closestKm *float64
	if !math.IsInf(closest, 1) {
		raw["closest_distance_km"] = closest
		c := closest
		closestKm = &c
	}

	assessment := domain.NewAssessment(
		magnitudeScore+frequencyScore+proximityScore,
		map[string]float64{
			"magnitude": magnitudeScore,
			"frequency": frequencyScore,
			"proximity": proximityScore,
		},
		raw,
	)

	return EarthquakeAssessment{
		Assessment:        assessment,
		RecentActivity:    recent,
		MaxMagnitude:      maxMag,
		ClosestDistanceKm: closestKm,
		RegionEvents:      region,
		NearbyEvents:      nearby,
		Summary:           seismicSummary(assessment.Level, recent, maxMag, closest),
	}
}

func seismicSummary(level domain.RiskLevel, recent int, maxMag, closest float64) string {
	distance := "n/a"
	if !math.IsInf(closest, 1) {
		distance = fmt.Sprintf("%.2f km", closest)
	}

	switch level {
	case domain.RiskCritical:
		return fmt.Sprintf("Critical seismic risk. %d events in 7 days, max magnitude %.1f. Immediate market monitoring recommended. Closest event distance: %s.", recent, maxMag, distance)
	case domain.RiskHigh:
		return fmt.Sprintf("Elevated seismic activity. %d events recorded, max magnitude %.1f. Enhanced monitoring advised. Closest event distance: %s.", recent, maxMag, distance)
	case domain.RiskMedium:
		return fmt.Sprintf("Moderate seismic activity. %d recent events detected. Standard monitoring protocols in effect. Closest event distance: %s.", recent, distance)
	default:
		return fmt.Sprintf("Low seismic risk. Normal background activity levels. Closest event distance: %s.", distance)
	}
}

// MostSignificant orders events by magnitude then recency and returns at most n
func MostSignificant(events []domain.SeismicEvent, n int) []domain.SeismicEvent {
	sorted := make([]domain.SeismicEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Magnitude != sorted[j].Magnitude {
			return sorted[i].Magnitude > sorted[j].Magnitude
		}
		return sorted[i].Time.After(sorted[j].Time)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
