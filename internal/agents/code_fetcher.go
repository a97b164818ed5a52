package agents

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	appErrors "github.com/aidino/aicode-reviewer/internal/foundation/errors"
)

// sourceExtensions bounds GetProjectFiles to text source the rest of the
// pipeline knows how to parse; anything else is skipped rather than failing
// the scan.
var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".rb": true, ".rs": true, ".c": true, ".h": true, ".cpp": true,
	".hpp": true, ".cs": true, ".md": true, ".yaml": true, ".yml": true, ".json": true,
}

// GitCodeFetcher reads PR diffs and project files out of a locally cached
// working tree (the path a repository cache hands back).
type GitCodeFetcher struct{}

// NewGitCodeFetcher constructs a GitCodeFetcher.
func NewGitCodeFetcher() *GitCodeFetcher { return &GitCodeFetcher{} }

// GetPRDiff opens the repository at repoURL (a local working tree path) and
// returns the unified diff from targetBranch to sourceBranch.
func (f *GitCodeFetcher) GetPRDiff(repoURL, prID, targetBranch, sourceBranch string) (string, error) {
	repo, err := git.PlainOpen(repoURL)
	if err != nil {
		return "", appErrors.FetchError("failed to open repository").WithContext("repo", repoURL).Build()
	}

	target, err := resolveCommit(repo, targetBranch)
	if err != nil {
		return "", appErrors.FetchError("target branch not found").WithContext("branch", targetBranch).Build()
	}
	source, err := resolveCommit(repo, sourceBranch)
	if err != nil {
		return "", appErrors.FetchError("source branch not found").WithContext("branch", sourceBranch).Build()
	}

	patch, err := target.Patch(source)
	if err != nil {
		return "", appErrors.FetchError("failed to compute diff").WithContext("pr_id", prID).Build()
	}
	return patch.String(), nil
}

func resolveCommit(repo *git.Repository, branch string) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return nil, err
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	return commit, nil
}

// GetProjectFiles walks the working tree at repoURL for branch (assumed
// already checked out there) and returns every recognized source file's
// text content keyed by its path relative to the tree root.
func (f *GitCodeFetcher) GetProjectFiles(repoURL, branch string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.Walk(repoURL, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		content, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil // unreadable file, skip rather than fail the batch
		}
		rel, rerr := filepath.Rel(repoURL, path)
		if rerr != nil {
			rel = path
		}
		files[rel] = string(content)
		return nil
	})
	if err != nil {
		return nil, appErrors.FetchError("failed to walk project files").WithContext("repo", repoURL).Build()
	}
	return files, nil
}

// GetChangedFilesFromDiff extracts the ordered list of files touched by a
// unified diff.
func (f *GitCodeFetcher) GetChangedFilesFromDiff(diff string) ([]string, error) {
	return ParseChangedFilesFromDiff(diff), nil
}
