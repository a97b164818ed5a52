package git

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/aidino/aicode-reviewer/internal/auth/providers"
	"github.com/aidino/aicode-reviewer/internal/logfields"
)

// Client performs clone and pull operations for the repository cache.
type Client struct{}

// NewClient returns a Client.
func NewClient() *Client { return &Client{} }

// CloneResult carries the outcome of a successful clone or pull.
type CloneResult struct {
	Path       string
	CommitSHA  string
	CommitDate time.Time
}

// Clone clones url's branch into destPath, replacing any existing
// directory there first.
func (c *Client) Clone(destPath, url, branch string, auth *providers.AuthConfig) (CloneResult, error) {
	slog.Debug("cloning repository", logfields.URL(url), logfields.Path(destPath), slog.String("branch", branch))

	if err := os.RemoveAll(destPath); err != nil {
		return CloneResult{}, fmt.Errorf("failed to remove stale cache directory: %w", err)
	}

	opts := &git.CloneOptions{URL: url}
	if branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + branch)
		opts.SingleBranch = true
	}
	if auth != nil {
		method, err := c.getAuth(auth)
		if err != nil {
			return CloneResult{}, fmt.Errorf("failed to construct authentication: %w", err)
		}
		opts.Auth = method
	}

	repo, err := git.PlainClone(destPath, false, opts)
	if err != nil {
		return CloneResult{}, classifyCloneError(url, err)
	}

	result := CloneResult{Path: destPath}
	ref, herr := repo.Head()
	if herr != nil {
		return result, nil
	}
	result.CommitSHA = ref.Hash().String()
	if commit, cerr := repo.CommitObject(ref.Hash()); cerr == nil {
		result.CommitDate = commit.Author.When
	}

	slog.Info("repository cloned", logfields.URL(url), logfields.Path(destPath),
		slog.String("commit", shortSHA(result.CommitSHA)))
	return result, nil
}

// Pull fast-forwards an existing working tree at path against branch,
// reconfiguring the remote URL first so a token rotation takes effect
// immediately.
func (c *Client) Pull(path, url, branch string, auth *providers.AuthConfig) (CloneResult, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return CloneResult{}, fmt.Errorf("failed to open cached working tree: %w", err)
	}

	if err := c.setRemoteURL(repo, url); err != nil {
		return CloneResult{}, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return CloneResult{}, fmt.Errorf("failed to open worktree: %w", err)
	}

	opts := &git.PullOptions{RemoteName: "origin", SingleBranch: true}
	if branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + branch)
	}
	if auth != nil {
		method, authErr := c.getAuth(auth)
		if authErr != nil {
			return CloneResult{}, fmt.Errorf("failed to construct authentication: %w", authErr)
		}
		opts.Auth = method
	}

	if err := wt.Pull(opts); err != nil && err != git.NoErrAlreadyUpToDate {
		return CloneResult{}, classifyFetchError(url, err)
	}

	result := CloneResult{Path: path}
	ref, herr := repo.Head()
	if herr != nil {
		return result, nil
	}
	result.CommitSHA = ref.Hash().String()
	if commit, cerr := repo.CommitObject(ref.Hash()); cerr == nil {
		result.CommitDate = commit.Author.When
	}
	slog.Info("repository synced", logfields.URL(url), logfields.Path(path),
		slog.String("commit", shortSHA(result.CommitSHA)))
	return result, nil
}

func (c *Client) setRemoteURL(repo *git.Repository, url string) error {
	remote, err := repo.Remote("origin")
	if err != nil {
		return fmt.Errorf("failed to load origin remote: %w", err)
	}
	cfg := remote.Config()
	if len(cfg.URLs) > 0 && cfg.URLs[0] == url {
		return nil
	}
	if err := repo.DeleteRemote("origin"); err != nil {
		return fmt.Errorf("failed to reconfigure origin remote: %w", err)
	}
	newCfg := *cfg
	newCfg.URLs = []string{url}
	if _, err := repo.CreateRemote(&newCfg); err != nil {
		return fmt.Errorf("failed to recreate origin remote: %w", err)
	}
	return nil
}

func classifyCloneError(url string, err error) error {
	return ClassifyGitError(err, "clone", url)
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// DirSizeMB walks path and sums file sizes, in megabytes.
func DirSizeMB(path string) (int, error) {
	var total int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(total / (1024 * 1024)), nil
}
