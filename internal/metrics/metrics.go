// Package metrics implements the observability hooks with Prometheus
// collectors and exposes them over HTTP.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/stickersmash/pkg/observability"
)

const namespace = "stickersmash"

// Metrics holds the application's collectors in their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	acquisitions   *prometheus.CounterVec
	acquireSeconds *prometheus.HistogramVec
	acquireActive  prometheus.Gauge

	exports       *prometheus.CounterVec
	exportSeconds *prometheus.HistogramVec
	exportBytes   *prometheus.HistogramVec

	settingsLaunches *prometheus.CounterVec

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "location",
			Name:      "acquisitions_total",
			Help:      "Location acquisitions by resulting state.",
		}, []string{"state"}),
		acquireSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "location",
			Name:      "acquisition_duration_seconds",
			Help:      "Duration of location acquisitions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"state"}),
		acquireActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "location",
			Name:      "acquisitions_in_flight",
			Help:      "Location acquisitions currently running.",
		}),

		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "exports_total",
			Help:      "Image exports by strategy and outcome.",
		}, []string{"strategy", "success"}),
		exportSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Duration of image exports.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"strategy"}),
		exportBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "size_bytes",
			Help:      "Encoded size of exported images.",
			Buckets:   prometheus.ExponentialBuckets(4096, 2, 10), // 4KB to ~2MB
		}, []string{"strategy"}),

		settingsLaunches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settings",
			Name:      "launches_total",
			Help:      "OS settings launches by platform and outcome.",
		}, []string{"platform", "success"}),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
	}

	m.Registry.MustRegister(
		m.acquisitions, m.acquireSeconds, m.acquireActive,
		m.exports, m.exportSeconds, m.exportBytes,
		m.settingsLaunches,
		m.httpInFlight, m.httpRequests, m.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Install registers m as the global location, export and settings hooks.
func (m *Metrics) Install() {
	observability.SetLocationHooks(m)
	observability.SetExportHooks(m)
	observability.SetSettingsHooks(m)
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// =============================================================================
// Hooks
// =============================================================================

// OnAcquireStart implements observability.LocationHooks.
func (m *Metrics) OnAcquireStart(context.Context) {
	m.acquireActive.Inc()
}

// OnAcquireComplete implements observability.LocationHooks.
func (m *Metrics) OnAcquireComplete(_ context.Context, state string, d time.Duration) {
	m.acquireActive.Dec()
	m.acquisitions.WithLabelValues(state).Inc()
	m.acquireSeconds.WithLabelValues(state).Observe(d.Seconds())
}

// OnExportStart implements observability.ExportHooks.
func (m *Metrics) OnExportStart(context.Context, string) {}

// OnExportComplete implements observability.ExportHooks.
func (m *Metrics) OnExportComplete(_ context.Context, strategy string, size int, d time.Duration, err error) {
	m.exports.WithLabelValues(strategy, strconv.FormatBool(err == nil)).Inc()
	m.exportSeconds.WithLabelValues(strategy).Observe(d.Seconds())
	if err == nil {
		m.exportBytes.WithLabelValues(strategy).Observe(float64(size))
	}
}

// OnSettingsLaunch implements observability.SettingsHooks.
func (m *Metrics) OnSettingsLaunch(_ context.Context, platform string, err error) {
	m.settingsLaunches.WithLabelValues(platform, strconv.FormatBool(err == nil)).Inc()
}

// =============================================================================
// HTTP
// =============================================================================

// Instrument wraps next with request metrics labelled by chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

var (
	_ observability.LocationHooks = (*Metrics)(nil)
	_ observability.ExportHooks   = (*Metrics)(nil)
	_ observability.SettingsHooks = (*Metrics)(nil)
)
