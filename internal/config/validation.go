package config

import "github.com/aidino/aicode-reviewer/internal/foundation"

func positive(field string) foundation.Validator[int] {
	return foundation.Custom(field, "positive", field+" must be positive", func(v int) bool { return v > 0 })
}

// Validate checks invariants that every consumer of Config relies on.
func Validate(cfg Config) error {
	result := foundation.StringNotEmpty("cache_root")(cfg.CacheRoot).
		Combine(positive("max_cache_size_gb")(cfg.MaxCacheSizeGB)).
		Combine(positive("cache_ttl_hours")(cfg.CacheTTLHours)).
		Combine(positive("job_queue_workers")(cfg.JobQueueWorkers)).
		Combine(positive("job_queue_size")(cfg.JobQueueSize)).
		Combine(foundation.OneOf("event_sink", []EventSinkKind{EventSinkNone, EventSinkNATS})(cfg.EventSink))

	if cfg.EventSink == EventSinkNATS && cfg.NATSURL == "" {
		result = result.Combine(foundation.Invalid(
			foundation.NewValidationError("nats_url", "required", "NATS_URL is required when EVENT_SINK=nats")))
	}

	return result.ToError()
}
