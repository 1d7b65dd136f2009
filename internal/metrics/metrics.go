// Package metrics exposes pipeline counters on a dedicated Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline groups the collectors updated by a pipeline run. A nil *Pipeline is a no-op.
type Pipeline struct {
	registry *prometheus.Registry

	records       *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	sourceErrors  *prometheus.CounterVec
	alertsStored  *prometheus.CounterVec
	runs          *prometheus.CounterVec
	scores        prometheus.Histogram
	notifications *prometheus.CounterVec
}

// NewPipeline registers all collectors on a fresh registry.
func NewPipeline() *Pipeline {
	m := &Pipeline{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentradar_records_total",
			Help: "Records that entered a pipeline stage",
		}, []string{"region", "stage"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentradar_records_dropped_total",
			Help: "Records dropped by a pipeline stage",
		}, []string{"region", "stage", "reason"}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentradar_source_errors_total",
			Help: "Collector failures that caused a source to be skipped",
		}, []string{"region", "source"}),
		alertsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentradar_alerts_stored_total",
			Help: "Alerts persisted by priority",
		}, []string{"region", "priority"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentradar_pipeline_runs_total",
			Help: "Pipeline runs by outcome",
		}, []string{"status"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentradar_opportunity_score",
			Help:    "Distribution of opportunity scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentradar_notifications_total",
			Help: "Notification deliveries by outcome",
		}, []string{"status"}),
	}
	m.registry.MustRegister(m.records, m.dropped, m.sourceErrors, m.alertsStored, m.runs, m.scores, m.notifications)
	return m
}

// Registry exposes the underlying registry (tests, custom exporters).
func (m *Pipeline) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Pipeline) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Pipeline) RecordStage(region, stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(region, stage).Add(float64(n))
}

func (m *Pipeline) RecordDrop(region, stage, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(region, stage, reason).Inc()
}

func (m *Pipeline) RecordSourceError(region, source string) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(region, source).Inc()
}

func (m *Pipeline) RecordAlert(region, priority string, score float64) {
	if m == nil {
		return
	}
	m.alertsStored.WithLabelValues(region, priority).Inc()
	m.scores.Observe(score)
}

func (m *Pipeline) RecordRun(success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.runs.WithLabelValues(status).Inc()
}

func (m *Pipeline) RecordNotification(status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(status).Inc()
}
