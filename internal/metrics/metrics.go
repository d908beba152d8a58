// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Save outcomes for surface saves.
const (
	ResultOK          = "ok"
	ResultInvalid     = "invalid"
	ResultTaken       = "taken"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	reg *prometheus.Registry

	profileViews   prometheus.Counter
	surfaceSaves   *prometheus.CounterVec
	usernameChecks *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	liveSessions   prometheus.Gauge
}

// New registers every collector on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		profileViews: f.NewCounter(prometheus.CounterOpts{
			Name: "biotree_profile_views_total",
			Help: "Public profile pages served.",
		}),
		surfaceSaves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "biotree_surface_saves_total",
			Help: "Profile saves by editing surface and outcome.",
		}, []string{"surface", "result"}),
		usernameChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "biotree_username_checks_total",
			Help: "Username availability checks by result.",
		}, []string{"result"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biotree_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		liveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "biotree_live_sessions",
			Help: "Open live editing sessions.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) ProfileViewed() {
	if m == nil {
		return
	}
	m.profileViews.Inc()
}

func (m *Metrics) SurfaceSaved(surface, result string) {
	if m == nil {
		return
	}
	m.surfaceSaves.WithLabelValues(surface, result).Inc()
}

func (m *Metrics) UsernameChecked(result string) {
	if m == nil {
		return
	}
	m.usernameChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func (m *Metrics) LiveSessionOpened() {
	if m == nil {
		return
	}
	m.liveSessions.Inc()
}

func (m *Metrics) LiveSessionClosed() {
	if m == nil {
		return
	}
	m.liveSessions.Dec()
}
