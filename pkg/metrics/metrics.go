package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoutingMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_messages_total",
			Help: "Total number of messages processed by the router (count)",
		},
		[]string{"status"},
	)

	RoutingProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routing_processing_duration_ms",
			Help:    "Duration of routing a single message in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	RoutingStreamMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_stream_matches_total",
			Help: "Total number of times a stream matched a message (count)",
		},
		[]string{"stream_id"},
	)

	RoutingRuleFaultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_rule_faults_total",
			Help: "Total number of stream rules that failed to evaluate (count)",
		},
		[]string{"rule_type", "reason"},
	)

	StreamCacheRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_cache_refresh_total",
			Help: "Total number of stream snapshot refresh attempts (count)",
		},
		[]string{"status"},
	)

	StreamCacheRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream_cache_refresh_duration_ms",
			Help:    "Duration of stream snapshot refreshes in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	StreamCacheInvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_cache_invalidations_total",
			Help: "Total number of stream cache invalidations (count)",
		},
		[]string{"source"},
	)

	StreamCacheStaleServedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_cache_stale_served_total",
			Help: "Total number of times a stale snapshot was served after a failed refresh (count)",
		},
	)

	StreamCacheActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_cache_active_streams",
			Help: "Number of enabled streams in the current snapshot (count)",
		},
	)

	PatternCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pattern_cache_lookups_total",
			Help: "Total number of compiled pattern cache lookups (count)",
		},
		[]string{"kind", "result"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (difference between latest offset and committed offset) (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

func RegisterRoutingMetrics() {
	prometheus.MustRegister(RoutingMessagesTotal)
	prometheus.MustRegister(RoutingProcessingDuration)
	prometheus.MustRegister(RoutingStreamMatchesTotal)
	prometheus.MustRegister(RoutingRuleFaultsTotal)
	prometheus.MustRegister(StreamCacheRefreshTotal)
	prometheus.MustRegister(StreamCacheRefreshDuration)
	prometheus.MustRegister(StreamCacheInvalidationsTotal)
	prometheus.MustRegister(StreamCacheStaleServedTotal)
	prometheus.MustRegister(StreamCacheActiveStreams)
	prometheus.MustRegister(PatternCacheLookupsTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaConsumerLag)
	prometheus.MustRegister(KafkaReadDuration)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterManagementMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func ObserveRoutingDuration(duration time.Duration, status string) {
	RoutingProcessingDuration.WithLabelValues(status).Observe(float64(duration.Microseconds()) / 1000)
}

func IncRoutingMessages(status string) {
	RoutingMessagesTotal.WithLabelValues(status).Inc()
}

func IncStreamMatch(streamID string) {
	RoutingStreamMatchesTotal.WithLabelValues(streamID).Inc()
}

func IncRuleFault(ruleType, reason string) {
	RoutingRuleFaultsTotal.WithLabelValues(ruleType, reason).Inc()
}

func IncStreamCacheRefresh(status string) {
	StreamCacheRefreshTotal.WithLabelValues(status).Inc()
}

func ObserveStreamCacheRefreshDuration(duration time.Duration) {
	StreamCacheRefreshDuration.Observe(float64(duration.Milliseconds()))
}

func IncStreamCacheInvalidation(source string) {
	StreamCacheInvalidationsTotal.WithLabelValues(source).Inc()
}

func IncStreamCacheStaleServed() {
	StreamCacheStaleServedTotal.Inc()
}

func SetStreamCacheActiveStreams(count int) {
	StreamCacheActiveStreams.Set(float64(count))
}

func IncPatternCacheLookup(kind, result string) {
	PatternCacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}
