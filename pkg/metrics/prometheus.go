// Package metrics provides Prometheus metrics for the commitquest service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook outcomes recorded by RecordWebhookOutcome.
const (
	OutcomeCredited         = "credited"
	OutcomeNoXP             = "no_xp"
	OutcomeRepoSkipped      = "repo_skipped"
	OutcomeUnknownActor     = "unknown_actor"
	OutcomeDuplicate        = "duplicate"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeBadPayload       = "bad_payload"
	OutcomeStoreError       = "store_error"
)

// LatencyBucketsMs are the default latency histogram bounds, in milliseconds.
var LatencyBucketsMs = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // read-only bounds

// ElapsedMs returns the time since start in fractional milliseconds.
func ElapsedMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion
	webhooksReceived *prometheus.CounterVec
	webhookOutcomes  *prometheus.CounterVec
	xpAwarded        *prometheus.CounterVec
	creditLatency    prometheus.Histogram

	// Community
	awayDecisions  *prometheus.CounterVec
	messagesPosted prometheus.Counter
	goalsAssigned  prometheus.Counter
	usersTotal     prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "commitquest",
		subsystem:        "xp",
		histogramBuckets: LatencyBucketsMs,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.webhooksReceived = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "webhooks_received_total",
		Help:      "Webhook deliveries received by GitHub event type",
	}, []string{"event_type"})

	m.webhookOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "webhook_outcomes_total",
		Help:      "Webhook deliveries by processing outcome",
	}, []string{"outcome"})

	m.xpAwarded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "awarded_total",
		Help:      "Experience points credited, by event type",
	}, []string{"event_type"})

	m.creditLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "credit_latency_milliseconds",
		Help:      "Latency of the append-and-increment transaction",
		Buckets:   m.histogramBuckets,
	})

	m.awayDecisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "away_decisions_total",
		Help:      "Away period decisions by resulting status",
	}, []string{"status"})

	m.messagesPosted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chat_messages_total",
		Help:      "Chat messages posted",
	})

	m.goalsAssigned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "goals_assigned_total",
		Help:      "Weekly goals assigned by administrators",
	})

	m.usersTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "users",
		Help:      "Registered users",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "Errors by endpoint",
	}, []string{"endpoint", "method", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_type_total",
		Help:      "Errors by type and severity",
	}, []string{"error_type", "severity"})
}

// RecordWebhookReceived counts an inbound delivery.
func RecordWebhookReceived(eventType string) {
	if eventType == "" {
		eventType = "unknown"
	}
	globalManager.webhooksReceived.WithLabelValues(eventType).Inc()
}

// RecordWebhookOutcome counts how a delivery was handled.
func RecordWebhookOutcome(outcome string) {
	globalManager.webhookOutcomes.WithLabelValues(outcome).Inc()
}

// RecordXPAwarded adds credited XP for an event type.
func RecordXPAwarded(eventType string, xp int64) {
	globalManager.xpAwarded.WithLabelValues(eventType).Add(float64(xp))
}

// RecordCreditLatency records the crediting transaction latency in milliseconds.
func RecordCreditLatency(latencyMs float64) {
	globalManager.creditLatency.Observe(latencyMs)
}

// RecordAwayDecision counts an away period decision.
func RecordAwayDecision(status string) {
	globalManager.awayDecisions.WithLabelValues(status).Inc()
}

// RecordMessagePosted counts a chat message.
func RecordMessagePosted() {
	globalManager.messagesPosted.Inc()
}

// RecordGoalAssigned counts a weekly goal assignment.
func RecordGoalAssigned() {
	globalManager.goalsAssigned.Inc()
}

// UpdateUsersTotal sets the registered users gauge.
func UpdateUsersTotal(count int64) {
	globalManager.usersTotal.Set(float64(count))
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
