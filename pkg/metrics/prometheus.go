// Package metrics provides Prometheus metrics for the tweetcast notification service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery and batch outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
	OutcomeSkipped = "skipped"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Registry state
	topicsCreated        prometheus.Counter
	subscriptionsCreated *prometheus.CounterVec
	subscriptionsDeleted prometheus.Counter

	// Batch pipeline
	batches            *prometheus.CounterVec
	batchSize          prometheus.Histogram
	batchLatency       prometheus.Histogram
	eventsArchived     prometheus.Counter
	eventsDuplicate    prometheus.Counter
	deliveries         *prometheus.CounterVec
	deliveryLatency    *prometheus.HistogramVec
	broadcastPublishes *prometheus.CounterVec

	// Storage
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount       prometheus.Gauge
	workerActiveCount prometheus.Gauge
	workerErrors      prometheus.Counter

	// Kafka ingestion
	kafkaMessages *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tweetcast",
		subsystem:        "notifier",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.topicsCreated = m.counter("topics_created_total", "Topics created in the registry")
	m.subscriptionsCreated = m.counterVec("subscriptions_created_total", "Subscriptions created by channel type", "channel")
	m.subscriptionsDeleted = m.counter("subscriptions_deleted_total", "Subscriptions deleted")

	m.batches = m.counterVec("batches_total", "Classified batches processed by outcome", "outcome")
	m.batchSize = m.histogram("batch_size_events", "Events per classified batch", []float64{1, 5, 10, 25, 50, 100, 250, 500})
	m.batchLatency = m.histogram("batch_latency_milliseconds", "End-to-end batch processing latency in milliseconds", m.histogramBuckets)
	m.eventsArchived = m.counter("events_archived_total", "Events written to the archive")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Events dropped by the ingestion dedupe window")
	m.deliveries = m.counterVec("deliveries_total", "Delivery attempts by channel and outcome", "channel", "outcome")
	m.deliveryLatency = m.histogramVec("delivery_latency_milliseconds", "Delivery latency in milliseconds", "channel")
	m.broadcastPublishes = m.counterVec("broadcast_publishes_total", "Topic broadcast publishes by outcome", "outcome")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Storage operation latency in milliseconds", "backend", "op")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Batches waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Batches enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Batches dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Rejected enqueue attempts")

	m.workerCount = m.gauge("worker_count", "Configured workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a batch")
	m.workerErrors = m.counter("worker_errors_total", "Batches whose processing returned an error")

	m.kafkaMessages = m.counterVec("kafka_messages_total", "Kafka messages consumed by outcome", "outcome")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
}

// RecordTopicCreated increments the topics created counter.
func RecordTopicCreated() {
	globalManager.topicsCreated.Inc()
}

// RecordSubscriptionCreated increments the per-channel subscription counter.
func RecordSubscriptionCreated(channel string) {
	globalManager.subscriptionsCreated.WithLabelValues(channel).Inc()
}

// RecordSubscriptionDeleted increments the subscriptions deleted counter.
func RecordSubscriptionDeleted() {
	globalManager.subscriptionsDeleted.Inc()
}

// RecordBatch records a processed batch with its size and latency.
func RecordBatch(outcome string, size int, latencyMs float64) {
	globalManager.batches.WithLabelValues(outcome).Inc()
	globalManager.batchSize.Observe(float64(size))
	globalManager.batchLatency.Observe(latencyMs)
}

// RecordEventsArchived adds n to the archived events counter.
func RecordEventsArchived(n int) {
	globalManager.eventsArchived.Add(float64(n))
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordDelivery records one delivery attempt.
func RecordDelivery(channel, outcome string, latencyMs float64) {
	globalManager.deliveries.WithLabelValues(channel, outcome).Inc()
	globalManager.deliveryLatency.WithLabelValues(channel).Observe(latencyMs)
}

// RecordBroadcast records one topic broadcast publish.
func RecordBroadcast(outcome string) {
	globalManager.broadcastPublishes.WithLabelValues(outcome).Inc()
}

// RecordStoreLatency records a storage operation latency for a backend.
func RecordStoreLatency(backend, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
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

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordKafkaMessage records a consumed Kafka message by outcome.
func RecordKafkaMessage(outcome string) {
	globalManager.kafkaMessages.WithLabelValues(outcome).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
