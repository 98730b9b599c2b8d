// Package metrics provides Prometheus metrics for the karma bot.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every collector of the bot on its own registry.
// Components receive it (or a narrower interface it satisfies) at construction.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	runtime          bool
	constLabels      prometheus.Labels
	registry         *prometheus.Registry

	// Karma
	karma           *prometheus.GaugeVec
	snapshotWrites  *prometheus.CounterVec
	snapshotLatency prometheus.Histogram

	// Chat
	messages *prometheus.CounterVec
	dms      *prometheus.CounterVec
	pings    *prometheus.CounterVec
	pongs    *prometheus.CounterVec
	votes    *prometheus.CounterVec

	// Plugins
	pluginsLoaded  prometheus.Gauge
	pluginLoads    *prometheus.CounterVec
	pluginErrors   *prometheus.CounterVec
	pluginDuration *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.karma = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "karma",
		Help:        "vox populi",
		ConstLabels: m.constLabels,
	}, []string{"term"})
	m.snapshotWrites = m.counterVec("snapshot_writes_total", "Snapshot file writes by result", "result")
	m.snapshotLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_write_seconds",
		Help:        "Time spent writing the snapshot file",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.messages = m.counterVec("messages", "all messages", "command")
	m.dms = m.counterVec("dms", "messages directed at us", "from", "respondee")
	m.pings = m.counterVec("pings", "from server", "server")
	m.pongs = m.counterVec("pongs", "to server", "server")
	m.votes = m.counterVec("votes_total", "Karma votes parsed from chat", "direction")

	m.pluginsLoaded = m.gauge("plugins_loaded", "Number of plugin instances in the registry")
	m.pluginLoads = m.counterVec("plugin_loads_total", "Plugin load attempts by result", "result")
	m.pluginErrors = m.counterVec("plugin_dispatch_errors_total", "Plugin invocation failures", "plugin")
	m.pluginDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "plugin_dispatch_seconds",
		Help:        "Time one plugin instance spent on a dispatch call",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"plugin"})

	m.queueSize = m.gauge("queue_size", "Current number of buffered chat messages")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of buffered chat messages")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Chat messages accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Chat messages taken off the queue")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Chat messages rejected by the queue")

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_processing_seconds",
		Help:        "Time spent handling one chat message",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
	m.workerErrors = m.counter("worker_errors_total", "Chat messages whose handling failed")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request duration in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
}

// SetScore publishes the latest score of a term. Safe to call redundantly.
func (m *Manager) SetScore(term string, value int64) {
	m.karma.WithLabelValues(term).Set(float64(value))
}

// RecordSnapshotWrite records one snapshot write and how long it took.
func (m *Manager) RecordSnapshotWrite(ok bool, seconds float64) {
	m.snapshotWrites.WithLabelValues(result(ok)).Inc()
	m.snapshotLatency.Observe(seconds)
}

// RecordMessage counts an inbound protocol message by command.
func (m *Manager) RecordMessage(command string) {
	m.messages.WithLabelValues(command).Inc()
}

// RecordDM counts a message addressed to the bot.
func (m *Manager) RecordDM(from, respondee string) {
	m.dms.WithLabelValues(from, respondee).Inc()
}

// RecordPing counts a PING from a server.
func (m *Manager) RecordPing(server string) {
	m.pings.WithLabelValues(server).Inc()
}

// RecordPong counts a PONG from a server.
func (m *Manager) RecordPong(server string) {
	m.pongs.WithLabelValues(server).Inc()
}

// RecordVote counts a parsed vote; delta sign picks the direction.
func (m *Manager) RecordVote(delta int64) {
	direction := "up"
	if delta < 0 {
		direction = "down"
	}
	m.votes.WithLabelValues(direction).Inc()
}

// SetPluginsLoaded sets the registry size gauge.
func (m *Manager) SetPluginsLoaded(n int) {
	m.pluginsLoaded.Set(float64(n))
}

// RecordPluginLoad counts one load attempt.
func (m *Manager) RecordPluginLoad(ok bool) {
	m.pluginLoads.WithLabelValues(result(ok)).Inc()
}

// RecordPluginError counts a failed invocation of the named plugin.
func (m *Manager) RecordPluginError(plugin string) {
	m.pluginErrors.WithLabelValues(plugin).Inc()
}

// RecordPluginDuration records the time one plugin spent on a dispatch call.
func (m *Manager) RecordPluginDuration(plugin string, seconds float64) {
	m.pluginDuration.WithLabelValues(plugin).Observe(seconds)
}

// UpdateQueueSize sets the current queue size.
func (m *Manager) UpdateQueueSize(size int) {
	m.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func (m *Manager) UpdateQueueCapacity(capacity int) {
	m.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func (m *Manager) RecordQueueEnqueue() {
	m.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func (m *Manager) RecordQueueDequeue() {
	m.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func (m *Manager) RecordQueueEnqueueError() {
	m.queueEnqueueErrors.Inc()
}

// RecordWorkerProcessingLatency records how long one message took to handle.
func (m *Manager) RecordWorkerProcessingLatency(seconds float64) {
	m.workerLatency.Observe(seconds)
}

// RecordWorkerError increments the worker error counter.
func (m *Manager) RecordWorkerError() {
	m.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method string, statusCode int, seconds float64) {
	code := strconv.Itoa(statusCode)
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(seconds)
}

// Registry returns the registry every collector is registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
