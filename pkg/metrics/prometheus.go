package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain/repository.Metrics using Prometheus.
type Recorder struct {
	pipelineRuns    *prometheus.CounterVec
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	chartLive       *prometheus.GaugeVec
	cacheLookups    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// New creates a Prometheus recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so recorders do not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		pipelineRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_pipeline_runs_total",
				Help: "Forecast pipeline runs by settled outcome",
			},
			[]string{"outcome"},
		),
		backendRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_backend_requests_total",
				Help: "Requests sent to the prediction backend",
			},
			[]string{"endpoint", "result"},
		),
		backendLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_backend_duration_seconds",
				Help:    "Prediction backend request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),
		chartLive: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_chart_live",
				Help: "Live chart instances per slot",
			},
			[]string{"slot"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_cache_lookups_total",
				Help: "Backend response cache lookups",
			},
			[]string{"endpoint", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordRun counts a settled pipeline run (success, partial, error, superseded).
func (r *Recorder) RecordRun(outcome string) {
	r.pipelineRuns.WithLabelValues(outcome).Inc()
}

// RecordBackendRequest records one backend call and its latency.
func (r *Recorder) RecordBackendRequest(endpoint, result string, seconds float64) {
	r.backendRequests.WithLabelValues(endpoint, result).Inc()
	r.backendLatency.WithLabelValues(endpoint).Observe(seconds)
}

// ChartCreated and ChartDestroyed track live chart instances.
func (r *Recorder) ChartCreated(slot string) {
	r.chartLive.WithLabelValues(slot).Inc()
}

func (r *Recorder) ChartDestroyed(slot string) {
	r.chartLive.WithLabelValues(slot).Dec()
}

// RecordCacheLookup records a hit or miss.
func (r *Recorder) RecordCacheLookup(endpoint string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(endpoint, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordRun(string) {}
func (Nop) RecordBackendRequest(string, string, float64) {}
func (Nop) ChartCreated(string) {}
func (Nop) ChartDestroyed(string) {}
func (Nop) RecordCacheLookup(string, bool) {}
func (Nop) RecordError(string) {}
