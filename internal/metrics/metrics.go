package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	visitStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pagewatch",
			Subsystem: "visit",
			Name:      "starts_total",
			Help:      "Number of page visit timings started.",
		},
	)
	visitStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pagewatch",
			Subsystem: "visit",
			Name:      "stops_total",
			Help:      "Number of page visit timings finalized.",
		},
	)
	visitsTracked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pagewatch",
			Subsystem: "visit",
			Name:      "tracked_total",
			Help:      "Number of previous-page durations handed to the reporting callback.",
		},
	)
	visitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pagewatch",
			Subsystem: "visit",
			Name:      "duration_seconds",
			Help:      "Observed page visit durations.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)
	swallowedWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagewatch",
			Subsystem: "visit",
			Name:      "swallowed_warnings_total",
			Help:      "Internal failures converted to warnings at the timer boundary.",
		}, []string{"op"},
	)
	timing = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pagewatch",
			Subsystem: "visit",
			Name:      "timing",
			Help:      "Whether a page visit is currently being timed (1) or the slot is idle (0).",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{visitStarts, visitStops, visitsTracked, visitDuration, swallowedWarnings, timing}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncStart() {
	if regOK.Load() {
		visitStarts.Inc()
		timing.Set(1)
	}
}

func IncStop() {
	if regOK.Load() {
		visitStops.Inc()
		timing.Set(0)
	}
}

func IncTracked() {
	if regOK.Load() {
		visitsTracked.Inc()
	}
}

func ObserveVisitDuration(seconds float64) {
	if regOK.Load() {
		visitDuration.Observe(seconds)
	}
}

func IncSwallowedWarning(op string) {
	if regOK.Load() {
		swallowedWarnings.WithLabelValues(op).Inc()
	}
}
