package reposcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aidino/aicode-reviewer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePathIsDeterministicAndCollisionFree(t *testing.T) {
	a := cachePath("/root", "p1", "demo repo", "https://example.com/a.git")
	b := cachePath("/root", "p1", "demo repo", "https://example.com/a.git")
	c := cachePath("/root", "p1", "demo repo", "https://example.com/b.git")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "p1_demo_repo", filepath.Base(a)[:len("p1_demo_repo")])
}

func newTestCache(t *testing.T) (*Cache, *model.ProjectStore, string) {
	t.Helper()
	root := t.TempDir()
	store := model.NewProjectStore()
	c := New(Config{Root: root, TTL: time.Hour, QuotaMB: 100}, store, nil)
	return c, store, root
}

func TestAcquireResyncsWhenLocalHeadDriftsFromBookkeeping(t *testing.T) {
	c, store, root := newTestCache(t)
	now := time.Now()

	dir := filepath.Join(root, "drifted")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("deadbeef\n"), 0o644))

	store.Upsert(&model.Project{
		ID: "p1", URL: "https://example.com/a.git", CachedPath: dir,
		CacheExpiresAt: now.Add(time.Hour), LastCommitHash: "stale-hash",
	})

	_, err := c.Acquire(context.Background(), "p1", now)

	// The on-disk HEAD ("deadbeef") disagrees with the stored
	// LastCommitHash ("stale-hash"), so Acquire must attempt a resync
	// rather than trust the cached path. The resync itself fails fast
	// here (dir isn't a real git repository opened by go-git) which is
	// enough to prove the remote-probe path was skipped in favor of it.
	assert.Error(t, err)
	p, _ := store.Get("p1")
	assert.Equal(t, "", p.CachedPath)
}

func TestSweepExpiredRemovesOnlyPastTTL(t *testing.T) {
	c, store, root := newTestCache(t)
	now := time.Now()

	expiredDir := filepath.Join(root, "expired")
	require.NoError(t, os.MkdirAll(expiredDir, 0o755))
	freshDir := filepath.Join(root, "fresh")
	require.NoError(t, os.MkdirAll(freshDir, 0o755))

	store.Upsert(&model.Project{ID: "p1", CachedPath: expiredDir, CacheExpiresAt: now.Add(-time.Hour)})
	store.Upsert(&model.Project{ID: "p2", CachedPath: freshDir, CacheExpiresAt: now.Add(time.Hour)})

	removed := c.SweepExpired(store.All(), now)

	assert.Equal(t, 1, removed)
	_, err := os.Stat(expiredDir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshDir)
	assert.NoError(t, err)
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	c, store, root := newTestCache(t)
	now := time.Now()
	dir := filepath.Join(root, "expired")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	store.Upsert(&model.Project{ID: "p1", CachedPath: dir, CacheExpiresAt: now.Add(-time.Hour)})

	first := c.SweepExpired(store.All(), now)
	second := c.SweepExpired(store.All(), now)

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
}

func TestEnforceQuotaEvictsLeastRecentlySyncedUntil80Percent(t *testing.T) {
	c, store, root := newTestCache(t)
	now := time.Now()

	mk := func(id string, ageAgo time.Duration, sizeMB int) *model.Project {
		dir := filepath.Join(root, id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		return &model.Project{
			ID: id, CachedPath: dir, CacheSizeMB: sizeMB,
			LastSyncedAt: now.Add(-ageAgo),
		}
	}

	store.Upsert(mk("oldest", 3*time.Hour, 40))
	store.Upsert(mk("middle", 2*time.Hour, 40))
	store.Upsert(mk("newest", time.Hour, 40))

	removed := c.EnforceQuota(store.All(), now)

	assert.Equal(t, 1, removed)

	var total int
	for _, p := range store.All() {
		total += p.CacheSizeMB
	}
	assert.LessOrEqual(t, float64(total), 0.8*100)

	oldest, _ := store.Get("oldest")
	assert.Equal(t, "", oldest.CachedPath)
	newest, _ := store.Get("newest")
	assert.NotEqual(t, "", newest.CachedPath)
}

func TestEnforceQuotaNoopWhenUnderQuota(t *testing.T) {
	c, store, root := newTestCache(t)
	now := time.Now()
	dir := filepath.Join(root, "only")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	store.Upsert(&model.Project{ID: "p1", CachedPath: dir, CacheSizeMB: 10, LastSyncedAt: now})

	removed := c.EnforceQuota(store.All(), now)
	assert.Equal(t, 0, removed)
}

func TestEnforceQuotaTieBreaksByProjectIDAscending(t *testing.T) {
	c, store, root := newTestCache(t)
	now := time.Now()
	sameSync := now.Add(-time.Hour)

	mk := func(id string, sizeMB int) *model.Project {
		dir := filepath.Join(root, id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		return &model.Project{ID: id, CachedPath: dir, CacheSizeMB: sizeMB, LastSyncedAt: sameSync}
	}
	store.Upsert(mk("b-project", 60))
	store.Upsert(mk("a-project", 60))

	removed := c.EnforceQuota(store.All(), now)

	assert.Equal(t, 1, removed)
	aProject, _ := store.Get("a-project")
	assert.Equal(t, "", aProject.CachedPath, "tie-break must evict lowest ProjectID first")
}
