// Package config loads and validates runtime configuration for the scan
// service: cache storage, token encryption, job queue sizing, maintenance
// cadences, and ambient concerns (logging, metrics, event sink).
package config

import "time"

// RetryBackoffMode selects the backoff curve used for transient cache/clone
// failures.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// EventSinkKind selects where job lifecycle events are published.
type EventSinkKind string

const (
	EventSinkNone EventSinkKind = "none"
	EventSinkNATS EventSinkKind = "nats"
)

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	// Repository cache (C2).
	CacheRoot      string
	MaxCacheSizeGB int
	CacheTTLHours  int

	// Token vault (C1).
	TokenEncryptionKey string // base64, 32 bytes once decoded; empty => generate
	Production         bool  // when true, refuse to run with a generated key

	// Job queue (C6).
	JobQueueWorkers    int
	JobQueueSize       int
	JobRetentionMaxAge time.Duration

	// Maintenance loop (C7).
	CacheSweepInterval     time.Duration
	AutoSyncInterval       time.Duration
	HealthSnapshotInterval time.Duration
	FullCycleInterval      time.Duration
	AutoSyncBatchSize      int

	// Event sink (C6 expansion).
	EventSink EventSinkKind
	NATSURL   string

	// Ambient.
	MetricsAddr string
	LogLevel    string
	LogFormat   string // "json" | "text"

	RetryBackoff   RetryBackoffMode
	RetryInitial   time.Duration
	RetryMax       time.Duration
	RetryMaxTries  int
}
