package config

import "time"

// Defaults returns the baseline configuration before any env overlay.
func Defaults() Config {
	return Config{
		CacheRoot:      "./cache/repositories",
		MaxCacheSizeGB: 10,
		CacheTTLHours:  24,

		Production: false,

		JobQueueWorkers:    4,
		JobQueueSize:       100,
		JobRetentionMaxAge: 24 * time.Hour,

		CacheSweepInterval:     6 * time.Hour,
		AutoSyncInterval:       time.Hour,
		HealthSnapshotInterval: 4 * time.Hour,
		FullCycleInterval:      24 * time.Hour,
		AutoSyncBatchSize:      10,

		EventSink: EventSinkNone,

		MetricsAddr: ":9090",
		LogLevel:    "info",
		LogFormat:   "json",

		RetryBackoff:  RetryBackoffLinear,
		RetryInitial:  time.Second,
		RetryMax:      30 * time.Second,
		RetryMaxTries: 2,
	}
}
