// Package reposcache hands out local filesystem working trees of tracked
// repositories, cloning or syncing them on demand, bounded by a TTL and a
// total-size quota (C2).
package reposcache

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/aidino/aicode-reviewer/internal/foundation/errors"
	"github.com/aidino/aicode-reviewer/internal/git"
	"github.com/aidino/aicode-reviewer/internal/logfields"
	"github.com/aidino/aicode-reviewer/internal/model"
	"github.com/aidino/aicode-reviewer/internal/retry"
	"github.com/aidino/aicode-reviewer/internal/vault"
)

// Cache hands out local working trees for tracked repositories.
type Cache struct {
	root    string
	ttl     time.Duration
	quotaMB int

	client      *git.Client
	vault       *vault.Vault
	store       *model.ProjectStore
	retryPolicy retry.Policy

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Config configures cache construction.
type Config struct {
	Root    string
	TTL     time.Duration
	QuotaMB int

	// RetryPolicy governs backoff for transient clone/pull failures
	// (network errors, rate limits). Zero value falls back to
	// retry.DefaultPolicy().
	RetryPolicy retry.Policy
}

// New constructs a Cache backed by store for project metadata and v for
// credential lookup.
func New(cfg Config, store *model.ProjectStore, v *vault.Vault) *Cache {
	policy := cfg.RetryPolicy
	if policy.Validate() != nil {
		policy = retry.DefaultPolicy()
	}
	return &Cache{
		root:        cfg.Root,
		ttl:         cfg.TTL,
		quotaMB:     cfg.QuotaMB,
		client:      git.NewClient(),
		vault:       v,
		store:       store,
		retryPolicy: policy,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (c *Cache) lockFor(projectID string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	l, ok := c.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[projectID] = l
	}
	return l
}

// Acquire hands out a current local working tree for projectID, cloning
// or syncing as needed. Concurrent Acquire calls for the same project
// serialize; different projects proceed in parallel (§4.2, §5).
func (c *Cache) Acquire(ctx context.Context, projectID string, now time.Time) (string, error) {
	lock := c.lockFor(projectID)
	lock.Lock()
	defer lock.Unlock()

	project, ok := c.store.Get(projectID)
	if !ok {
		return "", errors.CacheError("unknown project").WithContext("project_id", projectID).Build()
	}

	if project.IsCacheValid(now) && pathExists(project.CachedPath) {
		if localHead, err := git.ReadRepoHead(project.CachedPath); err == nil && localHead != project.LastCommitHash {
			// The working tree on disk no longer agrees with our own
			// bookkeeping (e.g. a prior sync updated the checkout but
			// crashed before persisting LastCommitHash). Resync rather
			// than trust a remote probe against a hash we know is stale.
			return c.sync(ctx, project, now)
		}

		token := c.plaintextToken(project, now)
		remote, err := c.remoteHash(ctx, project.URL, project.DefaultBranch, token)
		if err != nil || remote != project.LastCommitHash {
			return c.sync(ctx, project, now)
		}
		return project.CachedPath, nil
	}

	if project.CachedPath != "" {
		_ = os.RemoveAll(project.CachedPath)
	}
	return c.cloneFresh(ctx, project, now)
}

// Sync pulls project's cached working tree and refreshes its bookkeeping.
// On failure the local path is removed and the cache fields cleared.
func (c *Cache) Sync(ctx context.Context, projectID string, now time.Time) (string, error) {
	lock := c.lockFor(projectID)
	lock.Lock()
	defer lock.Unlock()

	project, ok := c.store.Get(projectID)
	if !ok {
		return "", errors.CacheError("unknown project").WithContext("project_id", projectID).Build()
	}
	return c.sync(ctx, project, now)
}

func (c *Cache) sync(ctx context.Context, project *model.Project, now time.Time) (string, error) {
	token := c.plaintextToken(project, now)
	result, err := c.retryableClone(func() (git.CloneResult, error) {
		return c.client.Pull(project.CachedPath, project.URL, project.DefaultBranch, git.TokenAuth(token))
	})
	if err != nil {
		_ = os.RemoveAll(project.CachedPath)
		c.store.Mutate(project.ID, func(p *model.Project) {
			p.CachedPath = ""
			p.CacheExpiresAt = time.Time{}
		})
		return "", err
	}

	sizeMB, _ := git.DirSizeMB(result.Path)
	updated, _ := c.store.Mutate(project.ID, func(p *model.Project) {
		p.LastCommitHash = result.CommitSHA
		p.LastSyncedAt = now
		p.CacheExpiresAt = now.Add(c.ttl)
		p.CacheSizeMB = sizeMB
	})
	slog.Info("repository synced", logfields.Name(project.Name), slog.String("commit", result.CommitSHA))
	return updated.CachedPath, nil
}

// CloneFresh removes any stale cache directory and clones project anew.
func (c *Cache) CloneFresh(ctx context.Context, projectID string, now time.Time) (string, error) {
	lock := c.lockFor(projectID)
	lock.Lock()
	defer lock.Unlock()

	project, ok := c.store.Get(projectID)
	if !ok {
		return "", errors.CacheError("unknown project").WithContext("project_id", projectID).Build()
	}
	if project.CachedPath != "" {
		_ = os.RemoveAll(project.CachedPath)
	}
	return c.cloneFresh(ctx, project, now)
}

func (c *Cache) cloneFresh(ctx context.Context, project *model.Project, now time.Time) (string, error) {
	dest := cachePath(c.root, project.ID, project.Name, project.URL)
	token := c.plaintextToken(project, now)

	result, err := c.retryableClone(func() (git.CloneResult, error) {
		return c.client.Clone(dest, project.URL, project.DefaultBranch, git.TokenAuth(token))
	})
	if err != nil {
		return "", err
	}

	sizeMB, _ := git.DirSizeMB(result.Path)
	updated, _ := c.store.Mutate(project.ID, func(p *model.Project) {
		p.CachedPath = result.Path
		p.LastCommitHash = result.CommitSHA
		p.CacheSizeMB = sizeMB
		p.CacheExpiresAt = now.Add(c.ttl)
		p.LastSyncedAt = now
	})
	slog.Info("repository cloned fresh", logfields.Name(project.Name), slog.String("commit", result.CommitSHA))
	return updated.CachedPath, nil
}

// SweepExpired removes working trees for every project whose cache has
// expired and returns the count removed.
func (c *Cache) SweepExpired(projects []*model.Project, now time.Time) int {
	count := 0
	for _, p := range projects {
		if p.CachedPath == "" || !p.CacheExpiresAt.Before(now) {
			continue
		}
		lock := c.lockFor(p.ID)
		lock.Lock()
		_ = os.RemoveAll(p.CachedPath)
		c.store.Mutate(p.ID, func(mp *model.Project) {
			mp.CachedPath = ""
			mp.CacheExpiresAt = time.Time{}
			mp.CacheSizeMB = 0
		})
		lock.Unlock()
		count++
	}
	return count
}

// EnforceQuota removes working trees, least-recently-synced first, until
// total usage falls to 80% of the configured quota. Ties in LastSyncedAt
// break by ProjectID ascending for determinism.
func (c *Cache) EnforceQuota(projects []*model.Project, now time.Time) int {
	var cached []*model.Project
	var totalMB int
	for _, p := range projects {
		if p.CachedPath != "" {
			cached = append(cached, p)
			totalMB += p.CacheSizeMB
		}
	}
	if totalMB <= c.quotaMB {
		return 0
	}

	sort.Slice(cached, func(i, j int) bool {
		if !cached[i].LastSyncedAt.Equal(cached[j].LastSyncedAt) {
			return cached[i].LastSyncedAt.Before(cached[j].LastSyncedAt)
		}
		return cached[i].ID < cached[j].ID
	})

	target := int(float64(c.quotaMB) * 0.8)
	count := 0
	for _, p := range cached {
		if totalMB <= target {
			break
		}
		lock := c.lockFor(p.ID)
		lock.Lock()
		_ = os.RemoveAll(p.CachedPath)
		totalMB -= p.CacheSizeMB
		c.store.Mutate(p.ID, func(mp *model.Project) {
			mp.CachedPath = ""
			mp.CacheExpiresAt = time.Time{}
			mp.CacheSizeMB = 0
		})
		lock.Unlock()
		count++
	}
	return count
}

// retryableClone runs op, retrying with the cache's backoff policy when
// the failure is classified as transient (network errors, rate limits
// surfaced by git.ClassifyGitError). Auth and not-found failures never
// retry — CanRetry() is false for them.
func (c *Cache) retryableClone(op func() (git.CloneResult, error)) (git.CloneResult, error) {
	var result git.CloneResult
	var err error
	for attempt := 0; ; attempt++ {
		result, err = op()
		if err == nil {
			return result, nil
		}
		classified, ok := errors.AsClassified(err)
		if !ok || !classified.CanRetry() || attempt >= c.retryPolicy.MaxRetries {
			return result, err
		}
		time.Sleep(c.retryPolicy.Delay(attempt + 1))
	}
}

func (c *Cache) plaintextToken(project *model.Project, now time.Time) string {
	if c.vault == nil {
		return ""
	}
	opt := c.vault.Get(project, now)
	return opt.UnwrapOr("")
}

func pathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
