package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/events"
	"github.com/aristath/tokyorisk/internal/monitor"
	"github.com/aristath/tokyorisk/internal/scheduler"
)

// Health states
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthStarting = "starting"
)

// SnapshotSource exposes the latest risk snapshot
type SnapshotSource interface {
	Latest() (*monitor.Snapshot, error)
}

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	source      SnapshotSource
	bus         *events.Bus
	clock       domain.Clock

	// Set after job registration in main.go
	refreshJob scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, source SnapshotSource, bus *events.Bus, clock domain.Clock) *SystemHandlers {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: clock.Now(),
		source:      source,
		bus:         bus,
		clock:       clock,
	}
}

// SetRefreshJob registers the refresh job for manual triggering
func (h *SystemHandlers) SetRefreshJob(job scheduler.Job) {
	h.refreshJob = job
}

// HostStats are resource readings of the machine
type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	Load1         float64 `json:"load_1"`
	Load5         float64 `json:"load_5"`
	Load15        float64 `json:"load_15"`
	Goroutines    int     `json:"goroutines"`
}

// getHostStats reads CPU, memory and load averages. Readings that fail stay zero.
func (h *SystemHandlers) getHostStats() HostStats {
	stats := HostStats{Goroutines: runtime.NumGoroutine()}

	// 100ms keeps the health call responsive
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		stats.MemoryPercent = memStat.UsedPercent
		stats.MemoryTotalMB = float64(memStat.Total) / 1024 / 1024
	}

	if avg, err := load.Avg(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get load average")
	} else {
		stats.Load1, stats.Load5, stats.Load15 = avg.Load1, avg.Load5, avg.Load15
	}

	return stats
}

// HandleHealth handles GET /api/system/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()
	response := map[string]interface{}{
		"status":         HealthOK,
		"uptime_seconds": now.Sub(h.startupTime).Seconds(),
		"host":           h.getHostStats(),
	}

	snap, err := h.source.Latest()
	switch {
	case errors.Is(err, monitor.ErrNoSnapshot):
		response["status"] = HealthStarting
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to load risk snapshot")
		response["status"] = HealthDegraded
	default:
		if len(snap.FeedErrors) > 0 {
			response["status"] = HealthDegraded
			response["feed_errors"] = snap.FeedErrors
		}
		response["snapshot_updated_at"] = snap.UpdatedAt.Format(time.RFC3339)
		response["snapshot_age_seconds"] = now.Sub(snap.UpdatedAt).Seconds()
		response["risk_level"] = snap.Assessment.Combined.Level
	}

	if h.bus != nil {
		response["event_bus"] = map[string]interface{}{
			"subscribers":    h.bus.Subscribers(),
			"dropped_events": h.bus.Dropped(),
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerRefresh runs the refresh job immediately
// POST /api/system/refresh
func (h *SystemHandlers) HandleTriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if h.refreshJob == nil {
		h.log.Warn().Msg("Refresh job not registered yet")
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "Refresh job not registered",
		})
		return
	}

	h.log.Info().Msg("Manual refresh triggered")

	if err := h.refreshJob.Run(); err != nil {
		h.log.Error().Err(err).Msg("Manual refresh failed")
		h.writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Risk snapshot refreshed",
	})
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
