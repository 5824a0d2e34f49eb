// Package breaker wraps sony/gobreaker with the settings used by every feed client.
package breaker

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Trip thresholds
const (
	ConsecutiveFailures = 3
	MinRequests         = 20
	MaxFailureRatio     = 0.5
	OpenTimeout         = 60 * time.Second
)

// New creates a circuit breaker that opens after three consecutive failures,
// or when more than half of at least twenty requests in a window failed
func New(name string, log zerolog.Logger) *gobreaker.CircuitBreaker {
	logger := log.With().Str("breaker", name).Logger()
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= ConsecutiveFailures {
				return true
			}
			if counts.Requests < MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > MaxFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}
