// Package metrics provides Prometheus metrics for the FitScore service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the FitScore service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Submission flow
	submissions      *prometheus.CounterVec
	submissionErrors *prometheus.CounterVec
	formsActive      prometheus.Gauge
	identitySignIns  *prometheus.CounterVec

	// Document store
	storeWriteLatency    prometheus.Histogram
	storeSnapshotLatency prometheus.Histogram
	storeRecords         prometheus.Gauge

	// Roster subscriptions
	subscriptionsActive prometheus.Gauge
	snapshotsDelivered  prometheus.Counter
	snapshotsCoalesced  prometheus.Counter

	// Notification queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	notificationsDispatched *prometheus.CounterVec
	notificationErrors      prometheus.Counter
	dispatchLatency         prometheus.Histogram
	workerCount             prometheus.Gauge
	reportsGenerated        prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fitscore",
		subsystem:        "service",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	m.submissions = m.counterVec("submissions_total",
		"Candidate evaluations persisted, by classification", "classification")
	m.submissionErrors = m.counterVec("submission_errors_total",
		"Failed submissions by error kind (validation, auth, write, conflict)", "kind")
	m.formsActive = m.gauge("forms_active", "Form instances currently held in the registry")
	m.identitySignIns = m.counterVec("identity_sign_ins_total",
		"Anonymous sign-in attempts by result", "result")

	m.storeWriteLatency = m.histogram("store_write_latency_milliseconds",
		"Latency of document store create calls")
	m.storeSnapshotLatency = m.histogram("store_snapshot_latency_milliseconds",
		"Latency of building a full collection snapshot")
	m.storeRecords = m.gauge("store_records", "Records in the most recently built snapshot")

	m.subscriptionsActive = m.gauge("subscriptions_active", "Open roster subscriptions")
	m.snapshotsDelivered = m.counter("snapshots_delivered_total", "Snapshots handed to subscribers")
	m.snapshotsCoalesced = m.counter("snapshots_coalesced_total",
		"Undelivered snapshots replaced by a newer one")

	m.queueSize = m.gauge("notification_queue_size", "Notifications waiting for a worker")
	m.queueCapacity = m.gauge("notification_queue_capacity", "Maximum notification queue size")
	m.queueEnqueued = m.counter("notification_enqueued_total", "Notifications accepted by the queue")
	m.queueEnqueueErrors = m.counter("notification_enqueue_errors_total",
		"Notifications rejected by the queue (full or closed)")
	m.notificationsDispatched = m.counterVec("notifications_dispatched_total",
		"Notifications delivered to the sink, by kind", "kind")
	m.notificationErrors = m.counter("notification_errors_total", "Sink delivery failures")
	m.dispatchLatency = m.histogram("notification_dispatch_latency_milliseconds",
		"Latency of a single sink delivery")
	m.workerCount = m.gauge("worker_count", "Notification workers running")
	m.reportsGenerated = m.counter("reports_generated_total", "Approved-candidate reports generated")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and error type", "endpoint", "method", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Errors by type and severity", "error_type", "severity")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause time")
}

// RecordSubmission counts a persisted evaluation.
func RecordSubmission(classification string) {
	globalManager.submissions.WithLabelValues(classification).Inc()
}

// RecordSubmissionError counts a failed submission by kind.
func RecordSubmissionError(kind string) {
	globalManager.submissionErrors.WithLabelValues(kind).Inc()
}

// UpdateFormsActive sets the number of mounted form instances.
func UpdateFormsActive(count int) {
	globalManager.formsActive.Set(float64(count))
}

// RecordSignIn counts an anonymous sign-in attempt ("ok" or "error").
func RecordSignIn(result string) {
	globalManager.identitySignIns.WithLabelValues(result).Inc()
}

// RecordStoreWriteLatency records a create call latency in milliseconds.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordStoreSnapshot records snapshot build latency and size.
func RecordStoreSnapshot(latencyMs float64, records int) {
	globalManager.storeSnapshotLatency.Observe(latencyMs)
	globalManager.storeRecords.Set(float64(records))
}

// AddSubscriptions adjusts the open subscription gauge by delta.
func AddSubscriptions(delta int) {
	globalManager.subscriptionsActive.Add(float64(delta))
}

// RecordSnapshotDelivered counts a snapshot handed to a subscriber.
func RecordSnapshotDelivered() {
	globalManager.snapshotsDelivered.Inc()
}

// RecordSnapshotCoalesced counts a snapshot dropped in favour of a newer one.
func RecordSnapshotCoalesced() {
	globalManager.snapshotsCoalesced.Inc()
}

// UpdateQueueSize sets the current notification queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordNotificationDispatched counts a delivered notification and its latency.
func RecordNotificationDispatched(kind string, latencyMs float64) {
	globalManager.notificationsDispatched.WithLabelValues(kind).Inc()
	globalManager.dispatchLatency.Observe(latencyMs)
}

// RecordNotificationError counts a failed delivery.
func RecordNotificationError() {
	globalManager.notificationErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordReportGenerated counts a generated report.
func RecordReportGenerated() {
	globalManager.reportsGenerated.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
