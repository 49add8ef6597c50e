// Package metrics provides Prometheus metrics for the pulselog service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every pulselog collector.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Engine
	evaluations       *prometheus.CounterVec
	evaluationLatency prometheus.Histogram
	insightsGenerated *prometheus.CounterVec
	readiness         *prometheus.CounterVec
	logsRecorded      prometheus.Counter
	athletesTotal     prometheus.Gauge

	// Restatement and delivery
	summaryOutcomes *prometheus.CounterVec
	summaryLatency  prometheus.Histogram
	digests         *prometheus.CounterVec

	// Store
	storeLatency *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueWait          prometheus.Histogram
	refreshCoalesced   prometheus.Counter

	// Worker
	workerCount   prometheus.Gauge
	workerActive  prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pulselog",
		subsystem:        "insights",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
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

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.evaluations = m.counterVec("evaluations_total", "Engine evaluations by caller", "source")
	m.evaluationLatency = m.histogram("evaluation_latency_milliseconds", "Snapshot load plus rule evaluation latency")
	m.insightsGenerated = m.counterVec("insights_generated_total", "Insights produced by type and severity", "type", "severity")
	m.readiness = m.counterVec("readiness_total", "Readiness states served", "severity")
	m.logsRecorded = m.counter("logs_recorded_total", "Daily logs stored")
	m.athletesTotal = m.gauge("athletes", "Athletes known to the store")

	m.summaryOutcomes = m.counterVec("summary_outcomes_total", "Restatement outcomes (generated, cached, fallback, rejected)", "kind", "outcome")
	m.summaryLatency = m.histogram("summary_latency_milliseconds", "Restatement latency including cache lookups")
	m.digests = m.counterVec("digests_total", "Weekly digests by outcome", "outcome")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency", "op")

	m.queueSize = m.gauge("queue_size", "Refresh jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Refresh queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Refresh queue fill ratio (0-1)")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Refresh jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Refresh jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Refresh jobs rejected by backpressure or shutdown")
	m.queueWait = m.histogram("queue_wait_milliseconds", "Time a refresh job waited before a worker took it")
	m.refreshCoalesced = m.counter("refresh_coalesced_total", "Refresh requests merged into an already pending job")

	m.workerCount = m.gauge("worker_count", "Configured refresh workers")
	m.workerActive = m.gauge("worker_active", "Workers currently refreshing")
	m.workerLatency = m.histogram("worker_latency_milliseconds", "Refresh job processing latency")
	m.workerErrors = m.counter("worker_errors_total", "Refresh jobs that failed")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Live goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Most recent GC pause")
}

// RecordEvaluation counts one engine run and its latency.
func RecordEvaluation(source string, latencyMs float64) {
	globalManager.evaluations.WithLabelValues(source).Inc()
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordInsight counts a produced insight.
func RecordInsight(insightType, severity string) {
	globalManager.insightsGenerated.WithLabelValues(insightType, severity).Inc()
}

// RecordReadiness counts a readiness state served to a client.
func RecordReadiness(severity string) {
	globalManager.readiness.WithLabelValues(severity).Inc()
}

// RecordLogRecorded increments the stored log counter.
func RecordLogRecorded() {
	globalManager.logsRecorded.Inc()
}

// UpdateAthletesTotal sets the athlete count.
func UpdateAthletesTotal(count int) {
	globalManager.athletesTotal.Set(float64(count))
}

// RecordSummaryOutcome counts a restatement attempt.
func RecordSummaryOutcome(kind, outcome string, latencyMs float64) {
	globalManager.summaryOutcomes.WithLabelValues(kind, outcome).Inc()
	globalManager.summaryLatency.Observe(latencyMs)
}

// RecordDigest counts a weekly digest delivery attempt.
func RecordDigest(outcome string) {
	globalManager.digests.WithLabelValues(outcome).Inc()
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueWait records how long a job waited in the queue.
func RecordQueueWait(latencyMs float64) {
	globalManager.queueWait.Observe(latencyMs)
}

// RecordRefreshCoalesced counts a refresh request merged into a pending one.
func RecordRefreshCoalesced() {
	globalManager.refreshCoalesced.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordWorkerProcessingLatency records refresh job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records one HTTP request and its duration.
func RecordHTTPRequest(endpoint, method string, statusCode int, durationMs float64) {
	code := strconv.Itoa(statusCode)
	globalManager.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
