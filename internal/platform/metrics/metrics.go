package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the playback sync engine.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	errorsTotal          prometheus.Counter
	resyncsTotal         prometheus.Counter
	segmentAdvancesTotal prometheus.Counter
	seeksTotal           prometheus.Counter
	autoplayBlockedTotal prometheus.Counter
	mountedEvents        prometheus.Gauge
	connectedSurfaces    prometheus.Gauge
}

// New creates and registers Prometheus metrics for the sync engine.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	resyncsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_resyncs_total",
		Help: "Total number of surfaces snapped back to the reference position",
	})
	segmentAdvancesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_segment_advances_total",
		Help: "Total number of unified multi-segment advances",
	})
	seeksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_seeks_total",
		Help: "Total number of seek-all operations applied",
	})
	autoplayBlockedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_autoplay_blocked_total",
		Help: "Total number of playback starts rejected by the host",
	})
	mountedEvents := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_mounted_events",
		Help: "Number of event sections currently mounted",
	})
	connectedSurfaces := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_connected_surfaces",
		Help: "Number of media surfaces currently connected over the bridge",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		resyncsTotal,
		segmentAdvancesTotal,
		seeksTotal,
		autoplayBlockedTotal,
		mountedEvents,
		connectedSurfaces,
	)

	return &Metrics{
		registry:             registry,
		requestsTotal:        requestsTotal,
		errorsTotal:          errorsTotal,
		resyncsTotal:         resyncsTotal,
		segmentAdvancesTotal: segmentAdvancesTotal,
		seeksTotal:           seeksTotal,
		autoplayBlockedTotal: autoplayBlockedTotal,
		mountedEvents:        mountedEvents,
		connectedSurfaces:    connectedSurfaces,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// AddResyncs adds the number of surfaces corrected in one resync pass.
func (m *Metrics) AddResyncs(n int) {
	m.resyncsTotal.Add(float64(n))
}

// IncSegmentAdvances increments the segment-advance counter.
func (m *Metrics) IncSegmentAdvances() {
	m.segmentAdvancesTotal.Inc()
}

// IncSeeks increments the seek counter.
func (m *Metrics) IncSeeks() {
	m.seeksTotal.Inc()
}

// IncAutoplayBlocked increments the blocked-playback counter.
func (m *Metrics) IncAutoplayBlocked() {
	m.autoplayBlockedTotal.Inc()
}

// SetMountedEvents sets the mounted events gauge.
func (m *Metrics) SetMountedEvents(n int) {
	m.mountedEvents.Set(float64(n))
}

// SetConnectedSurfaces sets the connected surfaces gauge.
func (m *Metrics) SetConnectedSurfaces(n int) {
	m.connectedSurfaces.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
