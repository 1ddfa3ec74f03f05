package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the renderer control layer.
// All methods are safe to call on a nil receiver, so components can run
// without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	pushDelivered   prometheus.Counter
	pushQueued      prometheus.Counter
	pushPolled      prometheus.Counter
	channelAttaches prometheus.Counter
	queueDepth      prometheus.Gauge

	sessionsStarted prometheus.Counter
	sessionsStopped prometheus.Counter
	foldersCleaned  prometheus.Counter
	cleanupFailures prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		pushDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendermux_push_delivered_total",
			Help: "Messages delivered over a live channel",
		}),
		pushQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendermux_push_queued_total",
			Help: "Messages appended to the push queue",
		}),
		pushPolled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendermux_push_polled_total",
			Help: "Messages drained through the polling endpoint",
		}),
		channelAttaches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendermux_channel_attaches_total",
			Help: "Live channel attach operations",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rendermux_push_queue_depth",
			Help: "Messages currently waiting in push queues",
		}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendermux_sessions_started_total",
			Help: "Playback sessions started",
		}),
		sessionsStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendermux_sessions_stopped_total",
			Help: "Playback sessions stopped",
		}),
		foldersCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendermux_transcode_folders_cleaned_total",
			Help: "Transcode session folders removed",
		}),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendermux_transcode_cleanup_failures_total",
			Help: "Transcode folder removals that failed",
		}),
	}

	registry.MustRegister(
		m.pushDelivered,
		m.pushQueued,
		m.pushPolled,
		m.channelAttaches,
		m.queueDepth,
		m.sessionsStarted,
		m.sessionsStopped,
		m.foldersCleaned,
		m.cleanupFailures,
	)

	return m
}

// IncPushDelivered increments the delivered message counter.
func (m *Metrics) IncPushDelivered() {
	if m == nil {
		return
	}
	m.pushDelivered.Inc()
}

// IncPushQueued increments the queued message counter.
func (m *Metrics) IncPushQueued() {
	if m == nil {
		return
	}
	m.pushQueued.Inc()
}

// AddPushPolled adds to the polled message counter.
func (m *Metrics) AddPushPolled(n int) {
	if m == nil {
		return
	}
	m.pushPolled.Add(float64(n))
}

// IncChannelAttaches increments the attach counter.
func (m *Metrics) IncChannelAttaches() {
	if m == nil {
		return
	}
	m.channelAttaches.Inc()
}

// AddQueueDepth adjusts the queue depth gauge by delta.
func (m *Metrics) AddQueueDepth(delta int) {
	if m == nil {
		return
	}
	m.queueDepth.Add(float64(delta))
}

// IncSessionsStarted increments the sessions started counter.
func (m *Metrics) IncSessionsStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

// IncSessionsStopped increments the sessions stopped counter.
func (m *Metrics) IncSessionsStopped() {
	if m == nil {
		return
	}
	m.sessionsStopped.Inc()
}

// IncFoldersCleaned increments the folders cleaned counter.
func (m *Metrics) IncFoldersCleaned() {
	if m == nil {
		return
	}
	m.foldersCleaned.Inc()
}

// IncCleanupFailures increments the cleanup failure counter.
func (m *Metrics) IncCleanupFailures() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

// Handler returns an http.Handler that serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
