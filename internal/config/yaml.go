package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors Config with every field optional, so a config file only
// needs to set what it means to override; process environment variables
// applied after it in Load always win.
type yamlConfig struct {
	CacheRoot      *string `yaml:"cache_root"`
	MaxCacheSizeGB *int    `yaml:"max_cache_size_gb"`
	CacheTTLHours  *int    `yaml:"cache_ttl_hours"`

	TokenEncryptionKey *string `yaml:"token_encryption_key"`
	Production         *bool   `yaml:"production"`

	JobQueueWorkers    *int           `yaml:"job_queue_workers"`
	JobQueueSize       *int           `yaml:"job_queue_size"`
	JobRetentionMaxAge *time.Duration `yaml:"job_retention_max_age"`

	CacheSweepInterval     *time.Duration `yaml:"cache_sweep_interval"`
	AutoSyncInterval       *time.Duration `yaml:"auto_sync_interval"`
	HealthSnapshotInterval *time.Duration `yaml:"health_snapshot_interval"`
	FullCycleInterval      *time.Duration `yaml:"full_cycle_interval"`
	AutoSyncBatchSize      *int           `yaml:"auto_sync_batch_size"`

	EventSink *EventSinkKind `yaml:"event_sink"`
	NATSURL   *string        `yaml:"nats_url"`

	MetricsAddr *string `yaml:"metrics_addr"`
	LogLevel    *string `yaml:"log_level"`
	LogFormat   *string `yaml:"log_format"`

	RetryBackoff  *RetryBackoffMode `yaml:"retry_backoff"`
	RetryInitial  *time.Duration    `yaml:"retry_initial"`
	RetryMax      *time.Duration    `yaml:"retry_max"`
	RetryMaxTries *int              `yaml:"retry_max_tries"`
}

// loadYAMLFile reads path, if it exists, and overlays every field it sets
// onto cfg. A missing file is not an error; CONFIG_FILE is optional.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: could not read %s: %w", path, err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return fmt.Errorf("config: could not parse %s: %w", path, err)
	}
	y.applyTo(cfg)
	return nil
}

func (y yamlConfig) applyTo(cfg *Config) {
	setIf(&cfg.CacheRoot, y.CacheRoot)
	setIf(&cfg.MaxCacheSizeGB, y.MaxCacheSizeGB)
	setIf(&cfg.CacheTTLHours, y.CacheTTLHours)

	setIf(&cfg.TokenEncryptionKey, y.TokenEncryptionKey)
	setIf(&cfg.Production, y.Production)

	setIf(&cfg.JobQueueWorkers, y.JobQueueWorkers)
	setIf(&cfg.JobQueueSize, y.JobQueueSize)
	setIf(&cfg.JobRetentionMaxAge, y.JobRetentionMaxAge)

	setIf(&cfg.CacheSweepInterval, y.CacheSweepInterval)
	setIf(&cfg.AutoSyncInterval, y.AutoSyncInterval)
	setIf(&cfg.HealthSnapshotInterval, y.HealthSnapshotInterval)
	setIf(&cfg.FullCycleInterval, y.FullCycleInterval)
	setIf(&cfg.AutoSyncBatchSize, y.AutoSyncBatchSize)

	setIf(&cfg.EventSink, y.EventSink)
	setIf(&cfg.NATSURL, y.NATSURL)

	setIf(&cfg.MetricsAddr, y.MetricsAddr)
	setIf(&cfg.LogLevel, y.LogLevel)
	setIf(&cfg.LogFormat, y.LogFormat)

	setIf(&cfg.RetryBackoff, y.RetryBackoff)
	setIf(&cfg.RetryInitial, y.RetryInitial)
	setIf(&cfg.RetryMax, y.RetryMax)
	setIf(&cfg.RetryMaxTries, y.RetryMaxTries)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
