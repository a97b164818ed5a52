package git

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/aidino/aicode-reviewer/internal/auth/providers"
)

// RemoteBranchHash returns the commit hash branch currently points to on
// the remote, without cloning. This is the VCS-tool fallback probe used
// by the repository cache when the hosting platform's REST API isn't
// recognized or fails (§4.2).
func (c *Client) RemoteBranchHash(url, branch string, auth *providers.AuthConfig) (string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})

	listOptions := &git.ListOptions{}
	if auth != nil {
		method, err := c.getAuth(auth)
		if err != nil {
			return "", fmt.Errorf("failed to construct authentication: %w", err)
		}
		listOptions.Auth = method
	}

	refs, err := remote.List(listOptions)
	if err != nil {
		return "", classifyFetchError(url, err)
	}

	target := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == target {
			return ref.Hash().String(), nil
		}
	}
	return "", fmt.Errorf("branch %q not found on remote %s", branch, url)
}
