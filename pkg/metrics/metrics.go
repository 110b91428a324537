// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics defines metrics operations needed by the processor.
type PipelineMetrics interface {
	// Run metrics
	IncRunsStarted()
	IncRunsCompleted()
	IncRunsFailed(stage string)
	ObserveRunDuration(duration time.Duration)

	// Stage metrics
	ObserveStageDuration(stage string, duration time.Duration)
	IncStageFailures(stage string)

	// Detection metrics
	IncThreatsDetected(category string)
	IncPIIFindings(piiType string)
}

// Pipeline implements PipelineMetrics
type Pipeline struct {
	// Run metrics
	RunsStarted   prometheus.Counter
	RunsCompleted prometheus.Counter
	RunsFailed    *prometheus.CounterVec // labels: stage
	RunDuration   prometheus.Histogram

	// Stage metrics
	StageDuration *prometheus.HistogramVec // labels: stage
	StageFailures *prometheus.CounterVec   // labels: stage

	// Detection metrics
	ThreatsDetected *prometheus.CounterVec // labels: category
	PIIFindings     *prometheus.CounterVec // labels: pii_type
}

const namespace = "docpipeline"

// New creates a new Pipeline metrics instance registered on the default registerer.
func New() *Pipeline {
	return &Pipeline{
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of pipeline runs started",
		}),
		RunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Total number of pipeline runs completed successfully",
		}),
		RunsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Total number of pipeline runs failed, by failing stage",
		}, []string{"stage"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time taken to process one document end to end",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time taken per pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"stage"}),
		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Total number of stage failures",
		}, []string{"stage"}),
		ThreatsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threats_detected_total",
			Help:      "Total number of threat detections, by category",
		}, []string{"category"}),
		PIIFindings: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pii_findings_total",
			Help:      "Total number of PII findings, by type",
		}, []string{"pii_type"}),
	}
}

func (p *Pipeline) IncRunsStarted()   { p.RunsStarted.Inc() }
func (p *Pipeline) IncRunsCompleted() { p.RunsCompleted.Inc() }

func (p *Pipeline) IncRunsFailed(stage string) {
	p.RunsFailed.WithLabelValues(stage).Inc()
}

func (p *Pipeline) ObserveRunDuration(duration time.Duration) {
	p.RunDuration.Observe(duration.Seconds())
}

func (p *Pipeline) ObserveStageDuration(stage string, duration time.Duration) {
	p.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (p *Pipeline) IncStageFailures(stage string) {
	p.StageFailures.WithLabelValues(stage).Inc()
}

func (p *Pipeline) IncThreatsDetected(category string) {
	p.ThreatsDetected.WithLabelValues(category).Inc()
}

func (p *Pipeline) IncPIIFindings(piiType string) {
	p.PIIFindings.WithLabelValues(piiType).Inc()
}

var _ PipelineMetrics = (*Pipeline)(nil)

// Noop is a PipelineMetrics that records nothing. It keeps instrumentation
// optional in tests and library embedding.
type Noop struct{}

func (Noop) IncRunsStarted()                            {}
func (Noop) IncRunsCompleted()                          {}
func (Noop) IncRunsFailed(string)                       {}
func (Noop) ObserveRunDuration(time.Duration)           {}
func (Noop) ObserveStageDuration(string, time.Duration) {}
func (Noop) IncStageFailures(string)                    {}
func (Noop) IncThreatsDetected(string)                  {}
func (Noop) IncPIIFindings(string)                      {}

var _ PipelineMetrics = Noop{}
