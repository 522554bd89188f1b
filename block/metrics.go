package block

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/pipekit/metric"
)

// blockMetrics holds Prometheus metrics for one block. Iteration metrics
// are per-block collectors; worker and error counts go through the shared
// core vectors.
type blockMetrics struct {
	registry *metric.Registry
	name     string

	iterations   prometheus.Counter
	execDuration prometheus.Histogram
}

func newBlockMetrics(registry *metric.Registry, name string) (*blockMetrics, error) {
	m := &blockMetrics{
		registry: registry,
		name:     name,
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "pipekit",
			Subsystem:   "block",
			Name:        "iterations_total",
			ConstLabels: prometheus.Labels{"block": name},
			Help:        "Total number of completed worker loop iterations",
		}),
		execDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "pipekit",
			Subsystem:   "block",
			Name:        "exec_duration_seconds",
			ConstLabels: prometheus.Labels{"block": name},
			Help:        "Task execution latency per iteration",
			Buckets:     prometheus.ExponentialBuckets(0.000001, 4, 12),
		}),
	}

	if err := registry.RegisterCounter(name, "block_iterations", m.iterations); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram(name, "block_exec_duration", m.execDuration); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *blockMetrics) workerStarted() {
	m.registry.Core.WorkersRunning.WithLabelValues(m.name).Inc()
}

func (m *blockMetrics) workerStopped() {
	m.registry.Core.WorkersRunning.WithLabelValues(m.name).Dec()
}

func (m *blockMetrics) iteration(d time.Duration) {
	m.iterations.Inc()
	m.execDuration.Observe(d.Seconds())
}

func (m *blockMetrics) execError() {
	m.registry.Core.ExecErrors.WithLabelValues(m.name).Inc()
}
