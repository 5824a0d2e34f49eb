// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/tokyorisk/internal/clients/p2pquake"
	"github.com/aristath/tokyorisk/internal/clients/yahoo"
	"github.com/aristath/tokyorisk/internal/modules/risk"
	"github.com/aristath/tokyorisk/internal/scheduler"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	Port     int
	LogLevel string
	// LogPretty switches to the human readable console writer
	LogPretty bool
	// DevMode allows every CORS origin
	DevMode bool

	// RefreshSchedule is a cron spec or descriptor such as "@every 5m"
	RefreshSchedule string
	FeedTimeout     time.Duration

	SeismicFeedURL   string
	SeismicFeedLimit int
	MarketFeedURL    string
	MarketTickers    []yahoo.Ticker

	ReferenceLat float64
	ReferenceLon float64

	MonteCarloSeed  uint64
	MonteCarloPaths int
	// SyntheticSeed seeds placeholder network attributes. Zero seeds from the clock.
	SyntheticSeed uint64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	tickers := yahoo.DefaultTickers
	if raw := getEnv("MARKET_TICKERS", ""); raw != "" {
		parsed, err := yahoo.ParseTickers(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: MARKET_TICKERS: %v", ErrInvalid, err)
		}
		tickers = parsed
	}

	cfg := &Config{
		Port:             getEnvAsInt("PORT", 8080),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("LOG_PRETTY", true),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "@every 5m"),
		FeedTimeout:      getEnvAsDuration("FEED_TIMEOUT", 5*time.Second),
		SeismicFeedURL:   getEnv("SEISMIC_FEED_URL", p2pquake.DefaultBaseURL),
		SeismicFeedLimit: getEnvAsInt("SEISMIC_FEED_LIMIT", p2pquake.DefaultLimit),
		MarketFeedURL:    getEnv("MARKET_FEED_URL", yahoo.DefaultBaseURL),
		MarketTickers:    tickers,
		ReferenceLat:     getEnvAsFloat("REFERENCE_LAT", risk.TokyoLatitude),
		ReferenceLon:     getEnvAsFloat("REFERENCE_LON", risk.TokyoLongitude),
		MonteCarloSeed:   getEnvAsUint64("MC_SEED", 42),
		MonteCarloPaths:  getEnvAsInt("MC_PATHS", 10000),
		SyntheticSeed:    getEnvAsUint64("SYNTHETIC_SEED", 0),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: PORT %d out of range", ErrInvalid, c.Port)
	}
	if err := scheduler.ValidateSchedule(c.RefreshSchedule); err != nil {
		return fmt.Errorf("%w: REFRESH_SCHEDULE %q: %v", ErrInvalid, c.RefreshSchedule, err)
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("%w: FEED_TIMEOUT must be positive", ErrInvalid)
	}
	if c.SeismicFeedLimit < 1 || c.SeismicFeedLimit > p2pquake.MaxLimit {
		return fmt.Errorf("%w: SEISMIC_FEED_LIMIT must be between 1 and %d", ErrInvalid, p2pquake.MaxLimit)
	}
	if len(c.MarketTickers) == 0 {
		return fmt.Errorf("%w: MARKET_TICKERS is empty", ErrInvalid)
	}
	if c.ReferenceLat < -90 || c.ReferenceLat > 90 {
		return fmt.Errorf("%w: REFERENCE_LAT %v out of range", ErrInvalid, c.ReferenceLat)
	}
	if c.ReferenceLon < -180 || c.ReferenceLon > 180 {
		return fmt.Errorf("%w: REFERENCE_LON %v out of range", ErrInvalid, c.ReferenceLon)
	}
	if c.MonteCarloPaths <= 0 {
		return fmt.Errorf("%w: MC_PATHS must be positive", ErrInvalid)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
