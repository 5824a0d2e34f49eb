package domain

import (
	"context"
	"time"
)

// SeismicFeed delivers recent earthquake events
type SeismicFeed interface {
	FetchRecent(ctx context.Context, limit int) ([]SeismicEvent, error)
}

// MarketFeed delivers instrument snapshots and their return correlations
type MarketFeed interface {
	FetchSummary(ctx context.Context) (MarketSummary, error)
	FetchCorrelation(ctx context.Context) (CorrelationMatrix, error)
}

// Clock abstracts the current time so recency windows are testable
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns time.Now
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant
type FixedClock struct{ T time.Time }

// Now returns the fixed instant
func (c FixedClock) Now() time.Time { return c.T }
