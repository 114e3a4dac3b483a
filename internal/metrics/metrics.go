// Package metrics exposes prometheus instrumentation for optimization runs.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugenenazirov/kegsizer/internal/geometry"
	"github.com/eugenenazirov/kegsizer/internal/optimizer"
	"github.com/eugenenazirov/kegsizer/internal/thermal"
)

const namespace = "kegsizer"

// Metrics owns a private registry so tests and multiple apps never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the optimization collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizations_total",
			Help:      "Enclosure optimizations by search method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimization_duration_seconds",
			Help:      "Wall time spent optimizing one enclosure.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"method"}),
	}
	m.registry.MustRegister(m.runs, m.duration)
	return m
}

// ObserveRun records one optimization.
func (m *Metrics) ObserveRun(method string, err error, elapsed time.Duration) {
	m.runs.WithLabelValues(method, Outcome(err)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome maps an optimization error to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, geometry.ErrInvalidGeometry):
		return "invalid_geometry"
	case errors.Is(err, thermal.ErrInvalidThermalInput):
		return "invalid_thermal_input"
	case errors.Is(err, optimizer.ErrOptimizationDidNotConverge):
		return "did_not_converge"
	default:
		return "error"
	}
}
