package metrics

import "time"

// JobOutcomeLabel is the terminal status a completed scan job recorded.
type JobOutcomeLabel string

const (
	JobOutcomeSuccess   JobOutcomeLabel = "completed"
	JobOutcomeFailed    JobOutcomeLabel = "failed"
	JobOutcomeCancelled JobOutcomeLabel = "cancelled"
)

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for the scan pipeline: orchestrator
// stage timings (C5), job queue outcomes and depth (C6), repository cache
// clone/sync/eviction counters (C2), and token vault operations (C1).
// Implementations may forward to Prometheus, OpenTelemetry, etc. All
// methods must be safe to call on the zero value of NoopRecorder.
type Recorder interface {
	// Orchestrator (C5).
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)

	// Job queue (C6).
	ObserveJobDuration(d time.Duration)
	IncJobOutcome(outcome JobOutcomeLabel)
	SetQueueDepth(n int)
	SetActiveWorkers(n int)
	IncJobRetention(removed int)

	// Repository cache (C2).
	ObserveCloneDuration(repo string, d time.Duration, success bool)
	IncCloneResult(success bool)
	IncCacheEviction(reason string)
	SetCacheSizeMB(n int)

	// Token vault (C1).
	IncVaultOperation(op string, success bool)

	// Retry (transient-failure backoff; only C2 retries, C6 has no retry).
	IncRetry(op string)
	IncRetryExhausted(op string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are
// not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)       {}
func (NoopRecorder) IncStageResult(string, ResultLabel)               {}
func (NoopRecorder) ObserveJobDuration(time.Duration)                 {}
func (NoopRecorder) IncJobOutcome(JobOutcomeLabel)                    {}
func (NoopRecorder) SetQueueDepth(int)                                {}
func (NoopRecorder) SetActiveWorkers(int)                             {}
func (NoopRecorder) IncJobRetention(int)                              {}
func (NoopRecorder) ObserveCloneDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncCloneResult(bool)                              {}
func (NoopRecorder) IncCacheEviction(string)                          {}
func (NoopRecorder) SetCacheSizeMB(int)                               {}
func (NoopRecorder) IncVaultOperation(string, bool)                   {}
func (NoopRecorder) IncRetry(string)                                  {}
func (NoopRecorder) IncRetryExhausted(string)                         {}
