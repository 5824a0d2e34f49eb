package risk

import (
	"time"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

// PatternRadiusKm bounds the events included in historical patterns
const PatternRadiusKm = 300.0

// MagnitudeBuckets counts events per magnitude band
type MagnitudeBuckets struct {
	M3to4 int `json:"M3-4" msgpack:"M3-4"`
	M4to5 int `json:"M4-5" msgpack:"M4-5"`
	M5to6 int `json:"M5-6" msgpack:"M5-6"`
	M6up  int `json:"M6+" msgpack:"M6+"`
}

// SeismicPatterns summarises regional activity over a look-back window
type SeismicPatterns struct {
	TotalEvents       int              `json:"total_events" msgpack:"total_events"`
	AvgMagnitude      float64          `json:"avg_magnitude" msgpack:"avg_magnitude"`
	MaxMagnitude      float64          `json:"max_magnitude" msgpack:"max_magnitude"`
	AvgDepthKm        float64          `json:"avg_depth" msgpack:"avg_depth"`
	AvgDistanceKm     float64          `json:"avg_distance" msgpack:"avg_distance"`
	EventsByMagnitude MagnitudeBuckets `json:"events_by_magnitude" msgpack:"events_by_magnitude"`
}

// SectorSensitivity is the typical correlation of Tokyo assets with major quakes
var SectorSensitivity = map[string]float64{
	"nikkei":    -0.15,
	"reit":      -0.35,
	"jpy":       0.08,
	"utilities": -0.25,
	"insurance": -0.45,
}

// Patterns summarises events within 300 km of lat/lon during the last days.
// ok is false when no event qualifies.
func Patterns(events []domain.SeismicEvent, lat, lon float64, days int, now time.Time) (SeismicPatterns, bool) {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	var mags, depths, distances []float64
	var buckets MagnitudeBuckets
	for _, ev := range WithDistances(events, lat, lon) {
		if ev.Time.IsZero() || ev.Time.Before(cutoff) || !(ev.DistanceKm <= PatternRadiusKm) {
			continue
		}
		mags = append(mags, ev.Magnitude)
		depths = append(depths, ev.DepthKm)
		distances = append(distances, ev.DistanceKm)

		switch m := ev.Magnitude; {
		case m >= 6:
			buckets.M6up++
		case m >= 5:
			buckets.M5to6++
		case m >= 4:
			buckets.M4to5++
		case m >= 3:
			buckets.M3to4++
		}
	}

	if len(mags) == 0 {
		return SeismicPatterns{}, false
	}

	maxMag := mags[0]
	for _, m := range mags[1:] {
		if m > maxMag {
			maxMag = m
		}
	}

	return SeismicPatterns{
		TotalEvents:       len(mags),
		AvgMagnitude:      formulas.Mean(mags),
		MaxMagnitude:      maxMag,
		AvgDepthKm:        formulas.Mean(depths),
		AvgDistanceKm:     formulas.Mean(distances),
		EventsByMagnitude: buckets,
	}, true
}
