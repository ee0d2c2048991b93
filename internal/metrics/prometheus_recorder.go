package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	formatDuration    *prom.HistogramVec
	buildDuration     prom.Histogram
	formatResults     *prom.CounterVec
	buildOutcome      *prom.CounterVec
	diagramDuration   *prom.HistogramVec
	cacheDecisions    *prom.CounterVec
	workerConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.formatDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "autodoc",
			Name:      "format_duration_seconds",
			Help:      "Duration of individual format builds",
			Buckets:   prom.DefBuckets,
		}, []string{"format"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "autodoc",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.formatResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "autodoc",
			Name:      "format_results_total",
			Help:      "Format build results by outcome",
		}, []string{"format", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "autodoc",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.diagramDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "autodoc",
			Name:      "diagram_render_duration_seconds",
			Help:      "Duration of individual diagram renders",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.cacheDecisions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "autodoc",
			Name:      "cache_decisions_total",
			Help:      "Cache decisions by hit/miss",
		}, []string{"decision"})
		pr.workerConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: "autodoc",
			Name:      "worker_concurrency",
			Help:      "Configured format build concurrency",
		})
		reg.MustRegister(pr.formatDuration, pr.buildDuration, pr.formatResults,
			pr.buildOutcome, pr.diagramDuration, pr.cacheDecisions, pr.workerConcurrency)
	})
	return pr
}

func (pr *PrometheusRecorder) ObserveFormatDuration(format string, d time.Duration) {
	pr.formatDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	pr.buildDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncFormatResult(format string, result ResultLabel) {
	pr.formatResults.WithLabelValues(format, string(result)).Inc()
}

func (pr *PrometheusRecorder) IncBuildOutcome(outcome string) {
	pr.buildOutcome.WithLabelValues(outcome).Inc()
}

func (pr *PrometheusRecorder) ObserveDiagramRenderDuration(d time.Duration, success bool) {
	result := "success"
	if !success {
		result = "failed"
	}
	pr.diagramDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncCacheDecision(hit bool) {
	decision := "hit"
	if !hit {
		decision = "miss"
	}
	pr.cacheDecisions.WithLabelValues(decision).Inc()
}

func (pr *PrometheusRecorder) SetWorkerConcurrency(n int) {
	pr.workerConcurrency.Set(float64(n))
}
