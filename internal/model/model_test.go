package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphStateTerminal(t *testing.T) {
	gs := NewGraphState(ScanRequest{RepoURL: "https://example.com/r.git"})
	assert.False(t, gs.Terminal())

	gs.CurrentStep = StepCompleted
	assert.True(t, gs.Terminal())

	gs.CurrentStep = StepErrorHandled
	assert.True(t, gs.Terminal())
}

func TestProjectCacheAndTokenValidity(t *testing.T) {
	now := time.Now()
	p := &Project{
		CachedPath:     "/cache/x",
		CacheExpiresAt: now.Add(time.Hour),
		EncryptedToken: []byte("ct"),
		TokenExpiresAt: now.Add(-time.Minute),
	}
	assert.True(t, p.IsCacheValid(now))
	assert.False(t, p.IsTokenValid(now), "expired token must be invalid")
}

func TestProjectStoreMutateIsAtomic(t *testing.T) {
	store := NewProjectStore()
	store.Upsert(&Project{ID: "p1", Name: "demo"})

	updated, ok := store.Mutate("p1", func(p *Project) {
		p.CachedPath = "/cache/p1"
		p.CacheSizeMB = 12
	})
	require.True(t, ok)
	assert.Equal(t, "/cache/p1", updated.CachedPath)

	fetched, ok := store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 12, fetched.CacheSizeMB)
}

func TestJobStoreSweepOldDeletesOnlyTerminalPastTTL(t *testing.T) {
	store := NewJobStore()
	now := time.Now()

	oldCreated := now.Add(-48 * time.Hour)
	store.Put(&Job{JobID: "j1", Status: JobCompleted, CreatedAt: oldCreated})

	recentCreated := now.Add(-time.Minute)
	store.Put(&Job{JobID: "j2", Status: JobFailed, CreatedAt: recentCreated})

	store.Put(&Job{JobID: "j3", Status: JobRunning, CreatedAt: oldCreated})

	removed := store.SweepOld(24*time.Hour, now)
	assert.Equal(t, 1, removed)

	_, ok := store.Get("j1")
	assert.False(t, ok)
	_, ok = store.Get("j2")
	assert.True(t, ok)
	_, ok = store.Get("j3")
	assert.True(t, ok, "a non-terminal job must survive the sweep regardless of age")
}

func TestJobStoreSweepOldIsIdempotent(t *testing.T) {
	store := NewJobStore()
	now := time.Now()
	oldCreated := now.Add(-48 * time.Hour)
	store.Put(&Job{JobID: "j1", Status: JobCompleted, CreatedAt: oldCreated})

	first := store.SweepOld(24*time.Hour, now)
	second := store.SweepOld(24*time.Hour, now)

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
}
