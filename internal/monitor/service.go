// Package monitor runs the refresh pipeline: fetch feeds, assess risk,
// analyse the risk network and publish an immutable snapshot.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/events"
	"github.com/aristath/tokyorisk/internal/modules/decisions"
	"github.com/aristath/tokyorisk/internal/modules/network"
	"github.com/aristath/tokyorisk/internal/modules/risk"
)

// ErrNoSnapshot is returned before the first successful refresh
var ErrNoSnapshot = errors.New("no risk snapshot yet")

// ErrFeedsDown is returned when neither feed delivered data
var ErrFeedsDown = errors.New("all feeds unavailable")


// Snapshot is the result of one refresh. It is never mutated after publication.
type Snapshot struct {
	Assessment  risk.CombinedAssessment  `json:"assessment" msgpack:"assessment"`
	Events      []domain.SeismicEvent    `json:"events" msgpack:"events"`
	Market      domain.MarketSummary     `json:"market" msgpack:"market"`
	Correlation domain.CorrelationMatrix `json:"correlation" msgpack:"correlation"`
	Network     network.Analysis         `json:"network" msgpack:"network"`
	Graph       network.GraphSnapshot    `json:"graph" msgpack:"graph"`
	Anomaly     risk.AnomalyResult       `json:"anomaly" msgpack:"anomaly"`
	FeedErrors  []string                 `json:"feed_errors,omitempty" msgpack:"feed_errors,omitempty"`
	UpdatedAt   time.Time                `json:"updated_at" msgpack:"updated_at"`
}

// Config holds the pipeline settings
type Config struct {
	Latitude     float64
	Longitude    float64
	SeismicLimit int
	// Source fills synthetic network attributes; nil uses network.FixedSource
	Source network.SyntheticDataSource
}

// Service owns the latest snapshot
type Service struct {
	seismic    domain.SeismicFeed
	market     domain.MarketFeed
	engine     *risk.Engine
	forecaster *risk.StatisticalForecaster
	queue      *decisions.Queue
	bus        *events.Bus
	metrics    *Metrics
	cfg        Config
	clock      domain.Clock
	log        zerolog.Logger

	refreshMu sync.Mutex

	mu       sync.RWMutex
	snapshot *Snapshot

	graphMu sync.Mutex
	graph   *network.Graph
}

// NewService wires the pipeline. bus and metrics may be nil.
func NewService(
	seismic domain.SeismicFeed,
	market domain.MarketFeed,
	forecaster *risk.StatisticalForecaster,
	queue *decisions.Queue,
	bus *events.Bus,
	metrics *Metrics,
	cfg Config,
	clock domain.Clock,
	log zerolog.Logger,
) *Service {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if cfg.SeismicLimit <= 0 {
		cfg.SeismicLimit = 100
	}
	return &Service{
		seismic:    seismic,
		market:     market,
		engine:     risk.NewEngineAt(cfg.Latitude, cfg.Longitude, clock, log),
		forecaster: forecaster,
		queue:      queue,
		bus:        bus,
		metrics:    metrics,
		cfg:        cfg,
		clock:      clock,
		log:        log.With().Str("component", "monitor").Logger(),
	}
}

// Latest returns the current snapshot
func (s *Service) Latest() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	return s.snapshot, nil
}

// Forecaster returns the forecaster used for anomaly scoring
func (s *Service) Forecaster() *risk.StatisticalForecaster {
	return s.forecaster
}

// Engine returns the integrated risk engine
func (s *Service) Engine() *risk.Engine {
	return s.engine
}

// Location returns the reference coordinates
func (s *Service) Location() (lat, lon float64) {
	return s.cfg.Latitude, s.cfg.Longitude
}

// ContagionPaths runs a contagion search on the latest network. A source
// missing from the network yields no paths.
func (s *Service) ContagionPaths(source string, threshold float64) ([]network.ContagionPath, error) {
	s.graphMu.Lock()
	defer s.graphMu.Unlock()

	if s.graph == nil {
		return nil, ErrNoSnapshot
	}
	return s.graph.FindContagionPaths(source, threshold), nil
}

// Refresh fetches both feeds and publishes a new snapshot. Feed failures
// degrade the snapshot; the call fails only when no feed delivered data or
// ctx ended.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	snap, result, err := s.build(ctx)
	if s.metrics != nil {
		s.metrics.Refreshes.WithLabelValues(result).Inc()
		s.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Refresh failed")
		s.emit(&events.RefreshFailedData{Error: err.Error(), Stage: "feeds"})
		return err
	}

	s.publish(snap)

	s.log.Info().
		Float64("combined_score", snap.Assessment.Combined.Score).
		Str("level", string(snap.Assessment.Combined.Level)).
		Float64("systemic_score", snap.Network.Systemic.Score).
		Str("result", result).
		Dur("duration", time.Since(start)).
		Msg("Risk snapshot refreshed")

	return nil
}

func (s *Service) build(ctx context.Context) (*Snapshot, string, error) {
	var feedErrors []string
	result := ResultOK

	quakes, err := s.seismic.FetchRecent(ctx, s.cfg.SeismicLimit)
	seismicDown := err != nil && len(quakes) == 0
	if err != nil {
		s.log.Warn().Err(err).Int("events", len(quakes)).Msg("Seismic feed degraded")
		feedErrors = append(feedErrors, "seismic: "+err.Error())
	}

	summary, err := s.market.FetchSummary(ctx)
	marketDown := err != nil && summary.Available() == 0
	if err != nil {
		s.log.Warn().Err(err).Msg("Market feed degraded")
		feedErrors = append(feedErrors, "market: "+err.Error())
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ResultFailed, fmt.Errorf("refresh cancelled: %w", ctxErr)
	}
	if seismicDown && marketDown {
		return nil, ResultFailed, ErrFeedsDown
	}

	matrix, err := s.market.FetchCorrelation(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Correlation unavailable")
		feedErrors = append(feedErrors, "correlation: "+err.Error())
		matrix = domain.CorrelationMatrix{}
	}

	assessment, err := s.engine.Assess(quakes, summary, matrix)
	if err != nil {
		feedErrors = append(feedErrors, "correlation: "+err.Error())
		matrix = domain.CorrelationMatrix{}
		if assessment, err = s.engine.Assess(quakes, summary, matrix); err != nil {
			return nil, ResultFailed, fmt.Errorf("assess risk: %w", err)
		}
	}

	graph := network.NewGraph(s.cfg.Latitude, s.cfg.Longitude, s.cfg.Source, s.log)
	if err := graph.Build(summary, quakes, matrix); err != nil {
		return nil, ResultFailed, fmt.Errorf("build risk network: %w", err)
	}
	analysis := graph.Analyze()

	now := s.clock.Now()
	anomaly := risk.AnomalyResult{}
	if s.forecaster != nil {
		anomaly = s.forecaster.DetectAnomalies(risk.FeaturesFrom(assessment, quakes, summary, now))
	}

	if len(feedErrors) > 0 {
		result = ResultDegraded
	}

	s.graphMu.Lock()
	s.graph = graph
	s.graphMu.Unlock()

	return &Snapshot{
		Assessment:  assessment,
		Events:      risk.WithDistances(quakes, s.cfg.Latitude, s.cfg.Longitude),
		Market:      summary,
		Correlation: matrix,
		Network:     analysis,
		Graph:       graph.Snapshot(),
		Anomaly:     anomaly,
		FeedErrors:  feedErrors,
		UpdatedAt:   now,
	}, result, nil
}

func (s *Service) publish(snap *Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	if s.queue != nil {
		s.queue.Submit(snap.Assessment.Recommendations)
	}

	a := snap.Assessment
	if s.metrics != nil {
		s.metrics.CombinedScore.Set(a.Combined.Score)
		s.metrics.ComponentScore.WithLabelValues("earthquake").Set(a.Earthquake.Score)
		s.metrics.ComponentScore.WithLabelValues("market").Set(a.Market.Score)
		s.metrics.ComponentScore.WithLabelValues("correlation").Set(a.Correlation.Score)
		s.metrics.SystemicScore.Set(snap.Network.Systemic.Score)
		for _, alert := range a.Alerts {
			s.metrics.Alerts.WithLabelValues(string(alert.Level)).Inc()
		}
		if s.queue != nil {
			s.metrics.PendingDecision.Set(float64(s.queue.Stats().Pending))
		}
	}

	assessedAt := a.Timestamp.Format(time.RFC3339)
	s.emit(&events.AssessmentUpdatedData{
		Score:           a.Combined.Score,
		Level:           a.Combined.Level,
		SystemicScore:   snap.Network.Systemic.Score,
		Alerts:          len(a.Alerts),
		Recommendations: len(a.Recommendations),
		AssessedAt:      assessedAt,
	})
	for _, alert := range a.Alerts {
		s.emit(&events.AlertRaisedData{
			Alert:      alert,
			Score:      a.Combined.Score,
			AssessedAt: assessedAt,
		})
	}
}

func (s *Service) emit(data events.EventData) {
	if s.bus != nil {
		s.bus.Emit("monitor", data)
	}
}
