// Package metrics exposes harness lifecycle events as prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lnharness/internal/harness"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "lnharness"

// Collector implements harness.Observer on a private registry.
type Collector struct {
	events        *prometheus.CounterVec
	readyDuration prometheus.Histogram
	readyPolls    prometheus.Histogram
	earlyExits    *prometheus.CounterVec
	runningNodes  prometheus.Gauge

	registry *prometheus.Registry
}

// NewCollector creates a collector whose metrics are prefixed with namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
	}

	c.events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launch_events_total",
			Help:      "Total number of lightningd lifecycle events by kind",
		},
		[]string{"kind"},
	)

	c.readyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ready_duration_seconds",
			Help:      "Time from spawn until the control socket answered getinfo",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	c.readyPolls = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ready_polls",
			Help:      "Readiness polls needed before the control socket answered",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	c.earlyExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "early_exits_total",
			Help:      "Processes that exited before becoming ready, by attempt number",
		},
		[]string{"attempt"},
	)

	c.runningNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_nodes",
			Help:      "Ready nodes that have not been closed",
		},
	)

	c.registry.MustRegister(
		c.events,
		c.readyDuration,
		c.readyPolls,
		c.earlyExits,
		c.runningNodes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Observe updates the metrics for e.
func (c *Collector) Observe(e harness.Event) {
	c.events.WithLabelValues(string(e.Kind)).Inc()
	switch e.Kind {
	case harness.EventReady:
		c.readyDuration.Observe(e.Elapsed.Seconds())
		c.readyPolls.Observe(float64(e.Polls))
		c.runningNodes.Inc()
	case harness.EventEarlyExit:
		c.earlyExits.WithLabelValues(attemptLabel(e.Attempt)).Inc()
	case harness.EventClosed:
		c.runningNodes.Dec()
	}
}

var _ harness.Observer = (*Collector)(nil)

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func attemptLabel(attempt int) string {
	switch {
	case attempt <= 0:
		return "0"
	case attempt >= 5:
		return "5+"
	default:
		return strconv.Itoa(attempt)
	}
}
