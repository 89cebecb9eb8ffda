package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ consume latency in milliseconds.
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// Sync pass duration in seconds.
	SyncPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_pass_duration_seconds",
			Help:    "Duration of one email sync pass in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~100s
		},
		[]string{"trigger"}, // trigger: manual, scheduled, event
	)

	// Database query latency in seconds.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Emails parsed, by vendor parser and extracted status.
	EmailsParsedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_parsed_count",
			Help: "Total number of emails successfully parsed",
		},
		[]string{"vendor", "status"}, // status: ordered, shipped, delivered
	)

	// Emails that no registered parser could interpret.
	EmailsUnparsedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_unparsed_count",
			Help: "Total number of emails no parser could interpret",
		},
	)

	// Reconciliation outcomes.
	ReconcileOutcomeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_outcome_count",
			Help: "Total number of reconciliation outcomes",
		},
		[]string{"action"}, // action: created, updated, skipped, failed
	)

	// Extraction confidence distribution, diagnostic only.
	ExtractionConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extraction_confidence",
			Help:    "Confidence score distribution of successful extractions",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"vendor"},
	)

	// Inventory increments applied on delivery transitions.
	InventoryIncrementCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_increment_count",
			Help: "Total number of inventory increments applied",
		},
	)
)

// RecordMQConsumeLatency records MQ consume latency.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordSyncPassDuration records the duration of one sync pass.
func RecordSyncPassDuration(trigger string, duration time.Duration) {
	SyncPassDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordDBQueryDuration records database query latency.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementEmailsParsed counts a successful extraction.
func IncrementEmailsParsed(vendor, status string) {
	EmailsParsedCount.WithLabelValues(vendor, status).Inc()
}

// IncrementReconcileOutcome counts a reconciliation outcome.
func IncrementReconcileOutcome(action string) {
	ReconcileOutcomeCount.WithLabelValues(action).Inc()
}

// ObserveConfidence records an extraction confidence score.
func ObserveConfidence(vendor string, confidence float64) {
	ExtractionConfidence.WithLabelValues(vendor).Observe(confidence)
}
