package maintenance

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aidino/aicode-reviewer/internal/model"
	"github.com/aidino/aicode-reviewer/internal/reposcache"
	"github.com/aidino/aicode-reviewer/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeyBase64 = base64.StdEncoding.EncodeToString([]byte("a-fixed-32-byte-test-key-0000000"))

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New(vault.Config{EncryptionKey: testKeyBase64})
	require.NoError(t, err)
	return v
}

func newTestLoop(t *testing.T) (*Loop, *model.ProjectStore, string) {
	t.Helper()
	root := t.TempDir()
	store := model.NewProjectStore()
	cache := reposcache.New(reposcache.Config{Root: root, TTL: time.Hour, QuotaMB: 100}, store, testVault(t))
	loop := New(Config{MaxCacheSizeGB: 1}, cache, testVault(t), store)
	return loop, store, root
}

func TestCacheSweepRemovesExpiredCachesAndTokens(t *testing.T) {
	loop, store, root := newTestLoop(t)
	now := time.Now()

	expiredDir := filepath.Join(root, "expired")
	require.NoError(t, os.MkdirAll(expiredDir, 0o755))

	v := testVault(t)
	p := &model.Project{ID: "p1", Name: "demo", CachedPath: expiredDir, CacheExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, v.Store(p, "ghp_secret", 0, now.Add(-400*24*time.Hour)))
	store.Upsert(p)

	result := loop.CacheSweep(context.Background())

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.CachesCleaned)
	assert.Equal(t, 1, result.TokensCleaned)
	_, err := os.Stat(expiredDir)
	assert.True(t, os.IsNotExist(err))
}

func TestCacheSweepIsIdempotent(t *testing.T) {
	loop, store, root := newTestLoop(t)
	now := time.Now()
	dir := filepath.Join(root, "expired")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	store.Upsert(&model.Project{ID: "p1", CachedPath: dir, CacheExpiresAt: now.Add(-time.Hour)})

	first := loop.CacheSweep(context.Background())
	second := loop.CacheSweep(context.Background())

	assert.Equal(t, 1, first.CachesCleaned)
	assert.Equal(t, 0, second.CachesCleaned)
}

func TestHealthSnapshotComputesEfficiencyAndRecommendations(t *testing.T) {
	loop, store, _ := newTestLoop(t)
	now := time.Now()

	store.Upsert(&model.Project{ID: "p1", CachedPath: "/tmp/p1", CacheSizeMB: 10, CacheExpiresAt: now.Add(time.Hour)})
	store.Upsert(&model.Project{ID: "p2"}) // no cache

	result := loop.HealthSnapshot(context.Background())

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 2, result.Statistics.TotalProjects)
	assert.Equal(t, 1, result.Statistics.CachedProjects)
	assert.Equal(t, 50.0, result.Statistics.CacheEfficiencyPct)
	// 50% is not below the 50% threshold, so no low-efficiency recommendation.
	assert.NotContains(t, result.Recommendations, "Low cache efficiency - consider increasing TTL")
}

func TestHealthSnapshotOnEmptyStoreHasNoRecommendations(t *testing.T) {
	loop, _, _ := newTestLoop(t)
	result := loop.HealthSnapshot(context.Background())
	assert.Equal(t, 0, result.Statistics.TotalProjects)
	assert.Empty(t, result.Recommendations)
}

func TestAutoSyncSkipsProjectsNotDueAndDisabled(t *testing.T) {
	loop, store, root := newTestLoop(t)
	now := time.Now()
	loop.clock = func() time.Time { return now }

	dir := filepath.Join(root, "recent")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	store.Upsert(&model.Project{ID: "p1", Name: "recent", CachedPath: dir, AutoSyncEnabled: true, LastSyncedAt: now.Add(-5 * time.Minute)})
	store.Upsert(&model.Project{ID: "p2", Name: "disabled", CachedPath: dir, AutoSyncEnabled: false, LastSyncedAt: now.Add(-2 * time.Hour)})

	candidates := loop.syncCandidates(now)
	assert.Empty(t, candidates)
}

func TestAutoSyncOrdersOldestFirstAndCapsBatch(t *testing.T) {
	loop, store, root := newTestLoop(t)
	loop.cfg.AutoSyncBatchSize = 2
	now := time.Now()

	for i, age := range []time.Duration{3 * time.Hour, 5 * time.Hour, 2 * time.Hour} {
		dir := filepath.Join(root, "repo", string(rune('a'+i)))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		store.Upsert(&model.Project{
			ID: string(rune('a' + i)), Name: "r", CachedPath: dir,
			AutoSyncEnabled: true, LastSyncedAt: now.Add(-age),
		})
	}

	candidates := loop.syncCandidates(now)
	require.Len(t, candidates, 2)
	assert.Equal(t, "b", candidates[0].ID) // oldest (5h) first
	assert.Equal(t, "a", candidates[1].ID) // next oldest (3h)
}

func TestAutoSyncStopsBatchEarlyOnCancellation(t *testing.T) {
	loop, store, root := newTestLoop(t)
	now := time.Now()
	loop.clock = func() time.Time { return now }

	for i, age := range []time.Duration{3 * time.Hour, 5 * time.Hour, 2 * time.Hour} {
		dir := filepath.Join(root, "repo", string(rune('a'+i)))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		store.Upsert(&model.Project{
			ID: string(rune('a' + i)), Name: "r", CachedPath: dir,
			AutoSyncEnabled: true, LastSyncedAt: now.Add(-age),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := loop.AutoSync(ctx)

	assert.Equal(t, 3, result.TotalCandidates)
	assert.Equal(t, 1, result.SyncedCount+result.FailedCount,
		"cancellation before the second candidate's delay must stop the batch rather than run every remaining candidate")
}

func TestFullCycleAggregatesAllThreeTasks(t *testing.T) {
	loop, _, _ := newTestLoop(t)
	result := loop.FullCycle(context.Background())

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, StatusCompleted, result.CacheSweep.Status)
	assert.Equal(t, StatusCompleted, result.AutoSync.Status)
	assert.Equal(t, StatusCompleted, result.Health.Status)
}
