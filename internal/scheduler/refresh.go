package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRefreshTimeout bounds one refresh cycle
const DefaultRefreshTimeout = 2 * time.Minute

// Refresher rebuilds the risk snapshot
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshJob periodically rebuilds the risk snapshot
type RefreshJob struct {
	log       zerolog.Logger
	refresher Refresher
	timeout   time.Duration
}

// NewRefreshJob creates a new refresh job
func NewRefreshJob(refresher Refresher, timeout time.Duration, log zerolog.Logger) *RefreshJob {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &RefreshJob{
		log:       log.With().Str("job", "risk_refresh").Logger(),
		refresher: refresher,
		timeout:   timeout,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "risk_refresh"
}

// Run executes one refresh cycle
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	if err := j.refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh risk snapshot: %w", err)
	}

	j.log.Debug().Dur("duration", time.Since(start)).Msg("Risk snapshot refreshed")
	return nil
}
