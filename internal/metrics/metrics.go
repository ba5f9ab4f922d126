// Package metrics exposes sequencer activity as Prometheus metrics.
//
// The collector never touches the sequencer directly; it subscribes to the
// event bus and counts what it sees.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peterM/HangFixer/internal/event"
)

const namespace = "hangfixer"

// Collector holds the metric vectors and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	transitions      *prometheus.CounterVec
	sentinelOps      *prometheus.CounterVec
	staleDetected    prometheus.Counter
	recoveries       prometheus.Counter
	recoveredTargets prometheus.Counter
	recoveryFailures prometheus.Counter
	recoveryDuration prometheus.Histogram
	ioFailures       *prometheus.CounterVec

	subscription string
}

// New creates a Collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "phase_transitions_total",
				Help:      "Lifecycle notifications handled, by trigger and whether they arrived in order",
			},
			[]string{"trigger", "in_order"},
		),
		sentinelOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sentinel_operations_total",
				Help:      "Successful sentinel arm and disarm operations",
			},
			[]string{"op"},
		),
		staleDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_sentinels_detected_total",
			Help:      "Primary loads that found a sentinel from an unfinished attempt",
		}),
		recoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recoveries_total",
			Help:      "Recovery passes run",
		}),
		recoveredTargets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_targets_deleted_total",
			Help:      "Cache directories and session files deleted by recovery",
		}),
		recoveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_targets_failed_total",
			Help:      "Recovery targets that could not be deleted",
		}),
		recoveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recovery_duration_seconds",
			Help:      "Wall time of a recovery pass",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		ioFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "io_failures_total",
				Help:      "Filesystem failures absorbed, by operation and kind",
			},
			[]string{"op", "kind"},
		),
	}

	c.registry.MustRegister(
		c.transitions,
		c.sentinelOps,
		c.staleDetected,
		c.recoveries,
		c.recoveredTargets,
		c.recoveryFailures,
		c.recoveryDuration,
		c.ioFailures,
	)
	return c
}

// Registry returns the registry the collector's metrics are registered in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Attach subscribes the collector to bus. Calling it twice is a no-op.
func (c *Collector) Attach(bus *event.Bus) {
	if bus == nil || c.subscription != "" {
		return
	}
	c.subscription = bus.SubscribeAll(c.observe)
}

// Detach removes the subscription created by Attach.
func (c *Collector) Detach(bus *event.Bus) {
	if bus == nil || c.subscription == "" {
		return
	}
	bus.Unsubscribe(c.subscription)
	c.subscription = ""
}

func (c *Collector) observe(e event.Event) {
	switch ev := e.(type) {
	case event.PhaseChangedEvent:
		c.transitions.WithLabelValues(ev.Trigger, strconv.FormatBool(ev.InOrder)).Inc()
	case event.SentinelArmedEvent:
		c.sentinelOps.WithLabelValues("arm").Inc()
	case event.SentinelDisarmedEvent:
		c.sentinelOps.WithLabelValues("disarm").Inc()
	case event.StaleDetectedEvent:
		c.staleDetected.Inc()
	case event.RecoveryCompletedEvent:
		c.recoveries.Inc()
		c.recoveredTargets.Add(float64(ev.Deleted))
		c.recoveryFailures.Add(float64(ev.Failed))
		c.recoveryDuration.Observe(ev.Duration.Seconds())
	case event.IOFailedEvent:
		c.ioFailures.WithLabelValues(ev.Op, ev.Kind).Inc()
	}
}
