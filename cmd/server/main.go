// Package main is the entry point for the Tokyo market risk service.
//
// The service periodically pulls seismic events and Tokyo market data,
// combines them into an integrated risk assessment, and serves the result
// over HTTP together with options pricing and risk network analysis.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aristath/tokyorisk/internal/clients/p2pquake"
	"github.com/aristath/tokyorisk/internal/clients/yahoo"
	"github.com/aristath/tokyorisk/internal/config"
	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/events"
	"github.com/aristath/tokyorisk/internal/modules/decisions"
	"github.com/aristath/tokyorisk/internal/modules/market_hours"
	"github.com/aristath/tokyorisk/internal/modules/network"
	"github.com/aristath/tokyorisk/internal/modules/options"
	"github.com/aristath/tokyorisk/internal/modules/risk"
	"github.com/aristath/tokyorisk/internal/monitor"
	"github.com/aristath/tokyorisk/internal/scheduler"
	"github.com/aristath/tokyorisk/internal/server"
	"github.com/aristath/tokyorisk/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	log.Info().Msg("Starting Tokyo risk monitor")

	clock := domain.SystemClock{}
	marketHours := market_hours.NewMarketHoursService()

	seismicFeed := p2pquake.NewClient(cfg.SeismicFeedURL, cfg.FeedTimeout, log)
	marketFeed := yahoo.NewClient(cfg.MarketFeedURL, cfg.MarketTickers, cfg.FeedTimeout, marketHours, clock, log)

	// SYNTHETIC_SEED=0 draws a fresh network seed each start
	syntheticSeed := cfg.SyntheticSeed
	if syntheticSeed == 0 {
		syntheticSeed = uint64(time.Now().UnixNano())
	}

	bus := events.NewBus(log)
	queue := decisions.NewQueue(clock, log)
	metrics := monitor.NewMetrics(prometheus.DefaultRegisterer)

	monitorSvc := monitor.NewService(
		seismicFeed,
		marketFeed,
		risk.NewStatisticalForecaster(cfg.MonteCarloSeed, clock),
		queue,
		bus,
		metrics,
		monitor.Config{
			Latitude:     cfg.ReferenceLat,
			Longitude:    cfg.ReferenceLon,
			SeismicLimit: cfg.SeismicFeedLimit,
			Source:       network.NewRandomSource(syntheticSeed),
		},
		clock,
		log,
	)

	optionsEngine := options.NewEngine(log, options.WithSeed(cfg.MonteCarloSeed))

	srv := server.New(server.Config{
		Log:             log,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
		Monitor:         monitorSvc,
		Options:         optionsEngine,
		MonteCarloPaths: cfg.MonteCarloPaths,
		Queue:           queue,
		Bus:             bus,
		MarketHours:     marketHours,
		Clock:           clock,
		Gatherer:        prometheus.DefaultGatherer,
	})

	refreshJob := scheduler.NewRefreshJob(monitorSvc, scheduler.DefaultRefreshTimeout, log)
	srv.SetRefreshJob(refreshJob)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.RefreshSchedule).Msg("Failed to register refresh job")
	}

	// First snapshot before the first tick; failures leave the API in "starting"
	go func() {
		if err := sched.RunNow(refreshJob); err != nil {
			log.Warn().Err(err).Msg("Initial refresh failed")
		}
	}()

	sched.Start()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
