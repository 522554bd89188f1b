package socket

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/pipekit/metric"
)

// socketMetrics holds Prometheus metrics for socket operations.
type socketMetrics struct {
	pushes prometheus.Counter
	pops   prometheus.Counter

	occupancy   prometheus.Gauge
	utilization prometheus.Gauge
}

// newSocketMetrics creates and registers socket metrics with the provided
// registry. The prefix identifies the socket (typically block and endpoint
// name) and becomes the "socket" label.
func newSocketMetrics(registry *metric.Registry, prefix string) (*socketMetrics, error) {
	m := &socketMetrics{
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "pipekit",
			Subsystem:   "socket",
			Name:        "pushes_total",
			ConstLabels: prometheus.Labels{"socket": prefix},
			Help:        "Total number of items pushed into the socket",
		}),
		pops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "pipekit",
			Subsystem:   "socket",
			Name:        "pops_total",
			ConstLabels: prometheus.Labels{"socket": prefix},
			Help:        "Total number of items popped from the socket",
		}),
		occupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "pipekit",
			Subsystem:   "socket",
			Name:        "occupancy",
			ConstLabels: prometheus.Labels{"socket": prefix},
			Help:        "Current number of in-flight items in the socket",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "pipekit",
			Subsystem:   "socket",
			Name:        "utilization",
			ConstLabels: prometheus.Labels{"socket": prefix},
			Help:        "Socket utilization as a fraction (0.0 to 1.0)",
		}),
	}

	if err := registry.RegisterCounter(prefix, "socket_pushes", m.pushes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "socket_pops", m.pops); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "socket_occupancy", m.occupancy); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "socket_utilization", m.utilization); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *socketMetrics) recordPush(occupancy, capacity int) {
	m.pushes.Inc()
	m.updateSize(occupancy, capacity)
}

func (m *socketMetrics) recordPop(occupancy, capacity int) {
	m.pops.Inc()
	m.updateSize(occupancy, capacity)
}

func (m *socketMetrics) updateSize(occupancy, capacity int) {
	m.occupancy.Set(float64(occupancy))
	m.utilization.Set(float64(occupancy) / float64(capacity))
}
