// Package metrics exposes loader activity as Prometheus collectors.
//
// A Collector is registered on its own registry so that several sessions (or
// tests) never collide on the global default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/modload/internal/fetch"
	"github.com/specialistvlad/modload/internal/loaderr"
)

const namespace = "modload"

// Collector implements fetch.Observer and the session observer.
type Collector struct {
	registry *prometheus.Registry

	started       prometheus.Counter
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	discarded     prometheus.Counter
	pending       prometheus.Gauge
	bootstraps    prometheus.Counter
	errors        *prometheus.CounterVec
}

// New creates a Collector with a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_started_total",
			Help:      "Resource fetches started.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Settled resource fetches by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time from fetch start until it settled.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"outcome"}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_discarded_total",
			Help:      "Fetch results dropped because they arrived after a timeout or reset.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_claims",
			Help:      "Claims not yet released.",
		}),
		bootstraps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstraps_total",
			Help:      "Application bootstraps fired.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Loader errors by kind.",
		}, []string{"kind"}),
	}
	c.registry.MustRegister(
		c.started, c.fetches, c.fetchDuration, c.discarded,
		c.pending, c.bootstraps, c.errors,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// FetchStarted implements fetch.Observer.
func (c *Collector) FetchStarted(string) { c.started.Inc() }

// FetchFinished implements fetch.Observer.
func (c *Collector) FetchFinished(_ string, outcome fetch.Outcome, d time.Duration) {
	c.fetches.WithLabelValues(outcome.String()).Inc()
	c.fetchDuration.WithLabelValues(outcome.String()).Observe(d.Seconds())
}

// FetchDiscarded implements fetch.Observer.
func (c *Collector) FetchDiscarded(string) { c.discarded.Inc() }

// SetPending records the current pending claim count.
func (c *Collector) SetPending(n int) { c.pending.Set(float64(n)) }

// Bootstrapped counts a fired bootstrap.
func (c *Collector) Bootstrapped() { c.bootstraps.Inc() }

// Error counts an error of the given kind.
func (c *Collector) Error(kind loaderr.Kind) {
	label := "other"
	if kind != 0 {
		label = kind.String()
	}
	c.errors.WithLabelValues(label).Inc()
}
