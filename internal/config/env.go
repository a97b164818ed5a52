package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aidino/aicode-reviewer/internal/foundation/normalization"
)

var eventSinkNormalizer = normalization.NewEnumNormalizer("EVENT_SINK", map[string]EventSinkKind{
	"none": EventSinkNone,
	"nats": EventSinkNATS,
}, EventSinkNone)

var retryBackoffNormalizer = normalization.NewEnumNormalizer("RETRY_BACKOFF", map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, RetryBackoffLinear)

// Load resolves configuration from defaults, an optional YAML config file,
// an optional .env file, and process environment variables, in that order,
// then validates the result. Later sources win: a YAML config file fills in
// over the defaults, and individual process environment variables fill in
// over the file, so an operator can commit a shared docbuilder-style config
// file and still override a single value per deployment without editing it.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "config: .env present but could not be loaded: %v\n", err)
	}

	if err := overlayEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlayEnv(cfg *Config) error {
	str(&cfg.CacheRoot, "REPO_CACHE_ROOT")
	intv(&cfg.MaxCacheSizeGB, "MAX_CACHE_SIZE_GB")
	intv(&cfg.CacheTTLHours, "DEFAULT_CACHE_TTL_HOURS")

	str(&cfg.TokenEncryptionKey, "REPOSITORY_TOKEN_ENCRYPTION_KEY")
	boolv(&cfg.Production, "PRODUCTION")

	intv(&cfg.JobQueueWorkers, "JOB_QUEUE_WORKERS")
	intv(&cfg.JobQueueSize, "JOB_QUEUE_SIZE")
	durv(&cfg.JobRetentionMaxAge, "JOB_RETENTION_MAX_AGE")

	durv(&cfg.CacheSweepInterval, "MAINTENANCE_CACHE_SWEEP_INTERVAL")
	durv(&cfg.AutoSyncInterval, "MAINTENANCE_AUTO_SYNC_INTERVAL")
	durv(&cfg.HealthSnapshotInterval, "MAINTENANCE_HEALTH_SNAPSHOT_INTERVAL")
	durv(&cfg.FullCycleInterval, "MAINTENANCE_FULL_CYCLE_INTERVAL")
	intv(&cfg.AutoSyncBatchSize, "MAINTENANCE_AUTO_SYNC_BATCH_SIZE")

	if v := os.Getenv("EVENT_SINK"); v != "" {
		parsed, err := eventSinkNormalizer.NormalizeWithValidation(v)
		if err != nil {
			return err
		}
		cfg.EventSink = parsed
	}
	str(&cfg.NATSURL, "NATS_URL")

	str(&cfg.MetricsAddr, "METRICS_ADDR")
	str(&cfg.LogLevel, "LOG_LEVEL")
	str(&cfg.LogFormat, "LOG_FORMAT")

	if v := os.Getenv("RETRY_BACKOFF"); v != "" {
		parsed, err := retryBackoffNormalizer.NormalizeWithValidation(v)
		if err != nil {
			return err
		}
		cfg.RetryBackoff = parsed
	}
	durv(&cfg.RetryInitial, "RETRY_INITIAL")
	durv(&cfg.RetryMax, "RETRY_MAX")
	intv(&cfg.RetryMaxTries, "RETRY_MAX_TRIES")
	return nil
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func intv(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func boolv(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func durv(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
