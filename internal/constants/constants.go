package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultInputTopic  = "gelf_messages"
	DefaultOutputTopic = "routed_messages"
)

const (
	DefaultMongoDBName          = "streamrouter"
	StreamsCollection           = "streams"
	StreamRulesCollection       = "streamrules"
	AuditCollection             = "stream_audit_log"
	SnapshotCacheKey            = "streams:enabled"
	SnapshotGenerationKey       = "streams:enabled:gen"
	DefaultSnapshotL2TTL        = 15 * time.Second
	DefaultFetchTimeout         = 10 * time.Second
	DefaultRefreshErrorBackoff  = time.Second
	DefaultPatternCacheTTL      = time.Hour
	DefaultPatternCacheCleanup  = 10 * time.Minute
	SnapshotSingleflightKey     = "enabled-streams"
	CircuitBreakerStreamFetcher = "stream-fetcher"
)

const (
	StorageBackendMongoDB  = "mongodb"
	StorageBackendPostgres = "postgres"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)
