package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskr",
			Name:      "operation_total",
			Help:      "Number of store operations by outcome (ok, error, not_found).",
		}, []string{"op", "outcome"},
	)
	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskr",
			Name:      "operation_duration_seconds",
			Help:      "Time spent serving a store operation, persistence included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"},
	)
	persists = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskr",
			Subsystem: "store",
			Name:      "persist_total",
			Help:      "Snapshot writes and loads by backend and outcome.",
		}, []string{"backend", "outcome"},
	)
	storeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taskr",
			Subsystem: "store",
			Name:      "sessions",
			Help:      "Sessions currently held in memory.",
		},
	)
	storeTodos = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "taskr",
			Subsystem: "store",
			Name:      "todos",
			Help:      "Todos currently held in memory per status.",
		}, []string{"status"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskr",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP API requests by method, route and status code.",
		}, []string{"method", "route", "code"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{operations, operationDuration, persists, storeSessions, storeTodos, httpRequests}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// already registered with the default registry
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
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func ObserveOperation(op, outcome string, seconds float64) {
	if regOK.Load() {
		operations.WithLabelValues(op, outcome).Inc()
		operationDuration.WithLabelValues(op).Observe(seconds)
	}
}

func ObservePersist(backend, outcome string) {
	if regOK.Load() {
		persists.WithLabelValues(backend, outcome).Inc()
	}
}

// SetStoreSize publishes the session count and the todo count per status.
func SetStoreSize(sessions int, todosByStatus map[string]int) {
	if !regOK.Load() {
		return
	}
	storeSessions.Set(float64(sessions))
	for status, n := range todosByStatus {
		storeTodos.WithLabelValues(status).Set(float64(n))
	}
}

func IncHTTPRequest(method, route string, code int) {
	if regOK.Load() {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	}
}
