package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes
const (
	ResultOK       = "ok"
	ResultDegraded = "degraded"
	ResultFailed   = "failed"
)

// Metrics are the prometheus series published by the refresh pipeline
type Metrics struct {
	CombinedScore   prometheus.Gauge
	ComponentScore  *prometheus.GaugeVec
	SystemicScore   prometheus.Gauge
	PendingDecision prometheus.Gauge
	Refreshes       *prometheus.CounterVec
	Alerts          *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
}

// NewMetrics registers the pipeline series with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CombinedScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tokyorisk_combined_score",
			Help: "Latest combined risk score in [0,1].",
		}),
		ComponentScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tokyorisk_component_score",
			Help: "Latest component risk score in [0,1].",
		}, []string{"component"}),
		SystemicScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tokyorisk_systemic_score",
			Help: "Latest risk network systemic score in [0,1].",
		}),
		PendingDecision: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tokyorisk_pending_decisions",
			Help: "Recommendations awaiting a decision.",
		}),
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tokyorisk_refresh_total",
			Help: "Refresh cycles by result.",
		}, []string{"result"}),
		Alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tokyorisk_alerts_total",
			Help: "Alerts raised by level.",
		}, []string{"level"}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tokyorisk_refresh_duration_seconds",
			Help:    "Refresh cycle duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}
