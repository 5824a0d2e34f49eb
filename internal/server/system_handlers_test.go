package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/events"
	"github.com/aristath/tokyorisk/internal/modules/risk"
	"github.com/aristath/tokyorisk/internal/monitor"
)

type fakeSnapshots struct {
	snap *monitor.Snapshot
	err  error
}

func (f *fakeSnapshots) Latest() (*monitor.Snapshot, error) { return f.snap, f.err }

type fakeJob struct {
	err  error
	runs int
}

func (j *fakeJob) Run() error   { j.runs++; return j.err }
func (j *fakeJob) Name() string { return "fake" }

func healthOf(t *testing.T, h *SystemHandlers) map[string]interface{} {
	t.Helper()
	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/api/system/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleHealth_Starting(t *testing.T) {
	source := &fakeSnapshots{err: monitor.ErrNoSnapshot}
	h := NewSystemHandlers(zerolog.Nop(), source, events.NewBus(zerolog.Nop()), domain.FixedClock{T: testNow})

	body := healthOf(t, h)
	assert.Equal(t, HealthStarting, body["status"])
	assert.Contains(t, body, "host")
	assert.Contains(t, body, "event_bus")
	assert.NotContains(t, body, "risk_level")
}

func TestHandleHealth_OK(t *testing.T) {
	snap := &monitor.Snapshot{
		Assessment: risk.CombinedAssessment{Combined: risk.CombinedRisk{Score: 0.3, Level: domain.RiskMedium}},
		UpdatedAt:  testNow.Add(-90 * time.Second),
	}
	h := NewSystemHandlers(zerolog.Nop(), &fakeSnapshots{snap: snap}, nil, domain.FixedClock{T: testNow})

	body := healthOf(t, h)
	assert.Equal(t, HealthOK, body["status"])
	assert.Equal(t, string(domain.RiskMedium), body["risk_level"])
	assert.Equal(t, 90.0, body["snapshot_age_seconds"])
	assert.NotContains(t, body, "event_bus")
}

func TestHandleHealth_DegradedFeeds(t *testing.T) {
	snap := &monitor.Snapshot{
		FeedErrors: []string{"seismic: connection refused"},
		UpdatedAt:  testNow,
	}
	h := NewSystemHandlers(zerolog.Nop(), &fakeSnapshots{snap: snap}, nil, domain.FixedClock{T: testNow})

	body := healthOf(t, h)
	assert.Equal(t, HealthDegraded, body["status"])
	assert.Equal(t, []interface{}{"seismic: connection refused"}, body["feed_errors"])
}

func TestHandleTriggerRefresh(t *testing.T) {
	h := NewSystemHandlers(zerolog.Nop(), &fakeSnapshots{err: monitor.ErrNoSnapshot}, nil, nil)

	trigger := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.HandleTriggerRefresh(w, httptest.NewRequest(http.MethodPost, "/api/system/refresh", nil))
		return w
	}

	assert.Equal(t, http.StatusServiceUnavailable, trigger().Code)

	job := &fakeJob{}
	h.SetRefreshJob(job)
	assert.Equal(t, http.StatusOK, trigger().Code)
	assert.Equal(t, 1, job.runs)

	job.err = errors.New("all feeds unavailable")
	w := trigger()
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "all feeds unavailable")
	assert.Equal(t, 2, job.runs)
}
