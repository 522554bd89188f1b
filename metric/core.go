package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core pipeline-level metrics, registered once per
// Registry. Socket- and block-specific metrics register themselves under
// their own prefixes.
type Metrics struct {
	PipelineStatus *prometheus.GaugeVec
	PipelineRuns   *prometheus.CounterVec
	WorkersRunning *prometheus.GaugeVec
	ExecErrors     *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all core pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PipelineStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pipekit",
				Subsystem: "pipeline",
				Name:      "status",
				Help:      "Pipeline status (0=idle, 1=running)",
			},
			[]string{"pipeline"},
		),

		PipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pipekit",
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total number of pipeline runs by terminal status",
			},
			[]string{"pipeline", "status"},
		),

		WorkersRunning: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pipekit",
				Subsystem: "block",
				Name:      "workers_running",
				Help:      "Number of worker threads currently running per block",
			},
			[]string{"block"},
		),

		ExecErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pipekit",
				Subsystem: "block",
				Name:      "exec_errors_total",
				Help:      "Total number of task execution errors per block",
			},
			[]string{"block"},
		),
	}
}

// RecordPipelineStatus updates the pipeline status gauge
func (m *Metrics) RecordPipelineStatus(pipeline string, running bool) {
	value := 0.0
	if running {
		value = 1.0
	}
	m.PipelineStatus.WithLabelValues(pipeline).Set(value)
}

// RecordPipelineRun increments the run counter with a terminal status
func (m *Metrics) RecordPipelineRun(pipeline, status string) {
	m.PipelineRuns.WithLabelValues(pipeline, status).Inc()
}

// RecordWorkersRunning updates the per-block running worker gauge
func (m *Metrics) RecordWorkersRunning(block string, n int) {
	m.WorkersRunning.WithLabelValues(block).Set(float64(n))
}

// RecordExecError increments the per-block execution error counter
func (m *Metrics) RecordExecError(block string) {
	m.ExecErrors.WithLabelValues(block).Inc()
}
