// Package server provides the HTTP server and routing for the risk service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/events"
	"github.com/aristath/tokyorisk/internal/modules/decisions"
	decisionshandlers "github.com/aristath/tokyorisk/internal/modules/decisions/handlers"
	"github.com/aristath/tokyorisk/internal/modules/market_hours"
	markethourshandlers "github.com/aristath/tokyorisk/internal/modules/market_hours/handlers"
	networkhandlers "github.com/aristath/tokyorisk/internal/modules/network/handlers"
	"github.com/aristath/tokyorisk/internal/modules/options"
	optionshandlers "github.com/aristath/tokyorisk/internal/modules/options/handlers"
	riskhandlers "github.com/aristath/tokyorisk/internal/modules/risk/handlers"
	"github.com/aristath/tokyorisk/internal/monitor"
	"github.com/aristath/tokyorisk/internal/scheduler"
)

// RequestTimeout bounds every non-streaming request
const RequestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log     zerolog.Logger
	Port    int
	DevMode bool

	Monitor         *monitor.Service
	Options         *options.Engine
	MonteCarloPaths int
	Queue           *decisions.Queue
	Bus             *events.Bus
	MarketHours     *market_hours.MarketHoursService
	Clock           domain.Clock
	// Gatherer backs /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            Config
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.Clock == nil {
		cfg.Clock = domain.SystemClock{}
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.Monitor, cfg.Bus, cfg.Clock),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: event streams stay open; other routes use RequestTimeout
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// SetRefreshJob registers the refresh job for manual triggering via API
func (s *Server) SetRefreshJob(job scheduler.Job) {
	s.systemHandlers.SetRefreshJob(job)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS, dev mode only
	if devMode {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Link"},
			MaxAge:         300,
		}))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api", func(r chi.Router) {
		// Streams run without the request timeout
		r.Get("/events/stream", NewEventsStreamHandler(s.cfg.Bus, s.log).ServeHTTP)

		var origins []string
		if s.cfg.DevMode {
			origins = []string{"*"}
		}
		r.Get("/alerts/stream", NewAlertStreamHandler(s.cfg.Bus, origins, s.log).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(RequestTimeout))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			r.Route("/system", func(r chi.Router) {
				r.Get("/health", s.systemHandlers.HandleHealth)
				r.Post("/refresh", s.systemHandlers.HandleTriggerRefresh)
			})

			optionshandlers.NewHandler(s.cfg.Options, s.cfg.MonteCarloPaths, s.log).RegisterRoutes(r)
			riskhandlers.NewHandler(s.cfg.Monitor, s.cfg.Clock, s.log).RegisterRoutes(r)
			networkhandlers.NewHandler(s.cfg.Monitor, s.log).RegisterRoutes(r)
			decisionshandlers.NewHandler(s.cfg.Queue, s.cfg.Bus, s.log).RegisterRoutes(r)
			markethourshandlers.NewHandler(s.cfg.MarketHours, s.cfg.Clock, s.log).RegisterRoutes(r)
		})
	})
}

// handleHealth is a liveness probe
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		s.log.Error().Err(err).Msg("Failed to write health response")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
