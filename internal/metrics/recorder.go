// Package metrics provides observability hooks for document builds. The
// default NoopRecorder keeps call sites free of nil checks; a Prometheus
// implementation can be injected where metrics are wanted.
package metrics

import "time"

// ResultLabel enumerates build result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultSkipped  ResultLabel = "skipped"
	ResultWarning  ResultLabel = "warning"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for build metrics. Implementations may
// forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveFormatDuration(format string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncFormatResult(format string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|partial|failed|canceled
	ObserveDiagramRenderDuration(d time.Duration, success bool)
	IncCacheDecision(hit bool)
	SetWorkerConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFormatDuration(string, time.Duration)      {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)               {}
func (NoopRecorder) IncFormatResult(string, ResultLabel)              {}
func (NoopRecorder) IncBuildOutcome(string)                           {}
func (NoopRecorder) ObserveDiagramRenderDuration(time.Duration, bool) {}
func (NoopRecorder) IncCacheDecision(bool)                            {}
func (NoopRecorder) SetWorkerConcurrency(int)                         {}
