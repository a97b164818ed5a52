// Package maintenance runs the periodic housekeeping tasks (C7): cache
// sweep, auto-sync, health snapshot, and the daily full cycle that chains
// all three. It generalizes the teacher's RepositoryMaintenanceJobs
// (original_source/.../background_jobs.py) from its single always-on
// service into four independently callable, independently schedulable
// operations over the Go port's Cache/Vault/ProjectStore.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/aidino/aicode-reviewer/internal/logfields"
	"github.com/aidino/aicode-reviewer/internal/metrics"
	"github.com/aidino/aicode-reviewer/internal/model"
	"github.com/aidino/aicode-reviewer/internal/reposcache"
	"github.com/aidino/aicode-reviewer/internal/vault"
)

// TaskStatus is the outcome of a single maintenance task run.
type TaskStatus string

const (
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// CacheSweepResult is the outcome of the cache-sweep task (§4.7): expired
// cache trees, expired tokens, and quota evictions.
type CacheSweepResult struct {
	Timestamp      time.Time
	Status         TaskStatus
	CachesCleaned  int
	TokensCleaned  int
	QuotaEvictions int
	Error          string
}

// SyncOutcome records the per-repository result of one auto-sync attempt.
type SyncOutcome struct {
	Repository string
	Status     string // "synced" | "failed"
	Path       string
	CommitHash string
	Error      string
}

// AutoSyncResult is the outcome of the auto-sync task (§4.7).
type AutoSyncResult struct {
	Timestamp       time.Time
	Status          TaskStatus
	TotalCandidates int
	SyncedCount     int
	FailedCount     int
	Results         []SyncOutcome
	Error           string
}

// HealthStatistics is the point-in-time snapshot computed by the health
// task (§4.7).
type HealthStatistics struct {
	TotalProjects        int
	CachedProjects       int
	CacheEfficiencyPct   float64
	TotalCacheSizeMB     int
	TotalCacheSizeGB     float64
	ProjectsWithTokens   int
	ExpiredCaches        int
	ExpiredTokens        int
}

// HealthResult is the outcome of the health-snapshot task (§4.7).
type HealthResult struct {
	Timestamp       time.Time
	Status          TaskStatus
	Statistics      HealthStatistics
	Recommendations []string
	Error           string
}

// FullCycleResult chains all three tasks back-to-back (§4.7).
type FullCycleResult struct {
	Timestamp       time.Time
	Status          TaskStatus
	DurationSeconds float64
	CacheSweep      CacheSweepResult
	AutoSync        AutoSyncResult
	Health          HealthResult
}

// Config configures a Loop.
type Config struct {
	AutoSyncBatchSize int
	// AutoSyncMinIdle is how long since a project's last sync before it
	// becomes an auto-sync candidate (§4.7: "last_synced_at > 1 h ago").
	AutoSyncMinIdle time.Duration
	// AutoSyncDelay is the pause between successive syncs within a batch,
	// to avoid hammering remote hosts (§4.7).
	AutoSyncDelay time.Duration
	// MaxCacheSizeGB feeds the health task's over-quota recommendation.
	MaxCacheSizeGB int
}

// Loop runs the four periodic maintenance tasks (C7) against a shared
// Cache, Vault, and ProjectStore. Each task is independently callable;
// Scheduler (scheduler.go) wires them onto their cadences via gocron.
type Loop struct {
	cfg   Config
	cache *reposcache.Cache
	vault *vault.Vault
	store *model.ProjectStore
	clock func() time.Time

	recorder metrics.Recorder
}

// Option configures a Loop at construction.
type Option func(*Loop)

// WithRecorder injects a metrics recorder (default metrics.NoopRecorder{}).
func WithRecorder(r metrics.Recorder) Option {
	return func(l *Loop) {
		if r != nil {
			l.recorder = r
		}
	}
}

// WithClock injects a clock, primarily for deterministic tests.
func WithClock(c func() time.Time) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// New constructs a Loop over cache, v, and store.
func New(cfg Config, cache *reposcache.Cache, v *vault.Vault, store *model.ProjectStore, opts ...Option) *Loop {
	if cfg.AutoSyncBatchSize <= 0 {
		cfg.AutoSyncBatchSize = 10
	}
	if cfg.AutoSyncMinIdle <= 0 {
		cfg.AutoSyncMinIdle = time.Hour
	}
	if cfg.AutoSyncDelay <= 0 {
		cfg.AutoSyncDelay = time.Second
	}
	if cfg.MaxCacheSizeGB <= 0 {
		cfg.MaxCacheSizeGB = 10
	}
	l := &Loop{
		cfg:      cfg,
		cache:    cache,
		vault:    v,
		store:    store,
		clock:    time.Now,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CacheSweep runs Cache.SweepExpired, Vault.SweepExpired, and
// Cache.EnforceQuota in sequence (§4.7 "Cache sweep").
func (l *Loop) CacheSweep(_ context.Context) CacheSweepResult {
	now := l.clock()
	slog.Info("maintenance: starting cache sweep")

	projects := l.store.All()
	caches := l.cache.SweepExpired(projects, now)
	tokens := l.vault.SweepExpired(projects, now)

	// Re-read: SweepExpired mutated cache fields on the projects it
	// touched, so re-fetch a fresh snapshot before enforcing quota.
	refreshed := l.store.All()
	quota := l.cache.EnforceQuota(refreshed, now)

	if caches > 0 {
		l.recorder.IncCacheEviction("expired")
	}
	if quota > 0 {
		l.recorder.IncCacheEviction("quota")
	}

	result := CacheSweepResult{
		Timestamp:      now,
		Status:         StatusCompleted,
		CachesCleaned:  caches,
		TokensCleaned:  tokens,
		QuotaEvictions: quota,
	}
	slog.Info("maintenance: cache sweep completed",
		slog.Int("caches_cleaned", caches),
		slog.Int("tokens_cleaned", tokens),
		slog.Int("quota_evictions", quota))
	return result
}

// AutoSync syncs projects with AutoSyncEnabled whose LastSyncedAt is older
// than cfg.AutoSyncMinIdle, oldest first (§4.7 "Auto-sync"). One run syncs
// at most cfg.AutoSyncBatchSize projects; candidates beyond that are not
// synced until a later run. ctx governs the inter-sync
// delay; cancellation stops the batch early without marking remaining
// candidates as failed.
func (l *Loop) AutoSync(ctx context.Context) AutoSyncResult {
	now := l.clock()
	slog.Info("maintenance: starting auto-sync", slog.Int("batch_size", l.cfg.AutoSyncBatchSize))

	candidates := l.syncCandidates(now)

	var (
		synced  int
		failed  int
		results []SyncOutcome
	)
syncLoop:
	for i, project := range candidates {
		if i > 0 {
			select {
			case <-ctx.Done():
				break syncLoop
			case <-time.After(l.cfg.AutoSyncDelay):
			}
		}
		slog.Info("maintenance: auto-syncing repository", logfields.Name(project.Name))
		path, err := l.cache.Sync(ctx, project.ID, l.clock())
		if err != nil {
			failed++
			results = append(results, SyncOutcome{Repository: project.Name, Status: "failed", Error: err.Error()})
			slog.Error("maintenance: auto-sync failed", logfields.Name(project.Name), logfields.Error(err))
			continue
		}
		synced++
		updated, _ := l.store.Get(project.ID)
		commit := ""
		if updated != nil {
			commit = shortHash(updated.LastCommitHash)
		}
		results = append(results, SyncOutcome{Repository: project.Name, Status: "synced", Path: path, CommitHash: commit})
	}

	result := AutoSyncResult{
		Timestamp:       now,
		Status:          StatusCompleted,
		TotalCandidates: len(candidates),
		SyncedCount:     synced,
		FailedCount:     failed,
		Results:         results,
	}
	slog.Info("maintenance: auto-sync completed", slog.Int("synced", synced), slog.Int("failed", failed))
	return result
}

// syncCandidates returns projects eligible for auto-sync, oldest
// last-synced first, capped at the configured batch size.
func (l *Loop) syncCandidates(now time.Time) []*model.Project {
	all := l.store.All()
	var candidates []*model.Project
	for _, p := range all {
		if !p.AutoSyncEnabled || p.CachedPath == "" {
			continue
		}
		if now.Sub(p.LastSyncedAt) < l.cfg.AutoSyncMinIdle {
			continue
		}
		candidates = append(candidates, p)
	}
	sortByLastSynced(candidates)
	if len(candidates) > l.cfg.AutoSyncBatchSize {
		candidates = candidates[:l.cfg.AutoSyncBatchSize]
	}
	return candidates
}

// HealthSnapshot computes cache/token statistics across all tracked
// projects and emits recommendations when thresholds are exceeded (§4.7
// "Health snapshot").
func (l *Loop) HealthSnapshot(_ context.Context) HealthResult {
	now := l.clock()
	slog.Info("maintenance: starting health snapshot")

	all := l.store.All()
	stats := HealthStatistics{TotalProjects: len(all)}

	for _, p := range all {
		if p.CachedPath != "" {
			stats.CachedProjects++
			stats.TotalCacheSizeMB += p.CacheSizeMB
			if !p.CacheExpiresAt.IsZero() && p.CacheExpiresAt.Before(now) {
				stats.ExpiredCaches++
			}
		}
		if len(p.EncryptedToken) > 0 {
			stats.ProjectsWithTokens++
			if !p.TokenExpiresAt.IsZero() && p.TokenExpiresAt.Before(now) {
				stats.ExpiredTokens++
			}
		}
	}
	if stats.TotalProjects > 0 {
		stats.CacheEfficiencyPct = round2(float64(stats.CachedProjects) / float64(stats.TotalProjects) * 100)
	}
	stats.TotalCacheSizeGB = round2(float64(stats.TotalCacheSizeMB) / 1024)

	var recs []string
	if stats.ExpiredCaches > 0 {
		recs = append(recs, "Run cleanup job - expired caches found")
	}
	if stats.ExpiredTokens > 0 {
		recs = append(recs, "Token cleanup needed - expired tokens found")
	}
	if stats.TotalCacheSizeMB > l.cfg.MaxCacheSizeGB*1024 {
		recs = append(recs, "Cache size over limit - consider quota management")
	}
	if stats.TotalProjects > 0 && stats.CacheEfficiencyPct < 50 {
		recs = append(recs, "Low cache efficiency - consider increasing TTL")
	}

	l.recorder.SetCacheSizeMB(stats.TotalCacheSizeMB)

	result := HealthResult{Timestamp: now, Status: StatusCompleted, Statistics: stats, Recommendations: recs}
	slog.Info("maintenance: health snapshot completed",
		slog.Float64("cache_efficiency_pct", stats.CacheEfficiencyPct),
		slog.Int("total_cache_mb", stats.TotalCacheSizeMB))
	return result
}

// FullCycle runs CacheSweep, AutoSync, and HealthSnapshot back-to-back
// (§4.7 "Full cycle"). A failure in one task never prevents the others —
// each is caught and recorded in its own result section.
func (l *Loop) FullCycle(ctx context.Context) FullCycleResult {
	start := l.clock()
	slog.Info("maintenance: starting full cycle")

	cache := l.runCacheSweepSafely(ctx)
	sync := l.runAutoSyncSafely(ctx)
	health := l.runHealthSnapshotSafely(ctx)

	end := l.clock()
	result := FullCycleResult{
		Timestamp:       end,
		Status:          StatusCompleted,
		DurationSeconds: end.Sub(start).Seconds(),
		CacheSweep:      cache,
		AutoSync:        sync,
		Health:          health,
	}
	slog.Info("maintenance: full cycle completed", slog.Float64("duration_seconds", result.DurationSeconds))
	return result
}

func (l *Loop) runCacheSweepSafely(ctx context.Context) (result CacheSweepResult) {
	defer func() {
		if r := recover(); r != nil {
			result = CacheSweepResult{Timestamp: l.clock(), Status: StatusFailed, Error: panicMessage(r)}
		}
	}()
	return l.CacheSweep(ctx)
}

func (l *Loop) runAutoSyncSafely(ctx context.Context) (result AutoSyncResult) {
	defer func() {
		if r := recover(); r != nil {
			result = AutoSyncResult{Timestamp: l.clock(), Status: StatusFailed, Error: panicMessage(r)}
		}
	}()
	return l.AutoSync(ctx)
}

func (l *Loop) runHealthSnapshotSafely(ctx context.Context) (result HealthResult) {
	defer func() {
		if r := recover(); r != nil {
			result = HealthResult{Timestamp: l.clock(), Status: StatusFailed, Error: panicMessage(r)}
		}
	}()
	return l.HealthSnapshot(ctx)
}
