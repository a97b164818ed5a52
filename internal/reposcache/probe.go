package reposcache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aidino/aicode-reviewer/internal/git"
)

const probeTimeout = 10 * time.Second

var githubURLPattern = regexp.MustCompile(`github\.com[:/]+([^/]+)/([^/.]+?)(\.git)?/?$`)

// remoteHash resolves the commit hash repoURL's branch currently points to.
// It prefers the hosting platform's REST API when the host is recognized
// (a single bounded GET); otherwise it falls back to a remote-refs listing
// via the git client. Any failure here biases the caller toward a sync
// attempt rather than trusting the cache (§4.2).
func (c *Cache) remoteHash(ctx context.Context, repoURL, branch, token string) (string, error) {
	if owner, repo, ok := parseGitHubURL(repoURL); ok {
		hash, err := githubCommitHash(ctx, owner, repo, branch, token)
		if err == nil {
			return hash, nil
		}
	}

	return c.client.RemoteBranchHash(repoURL, branch, git.TokenAuth(token))
}

func parseGitHubURL(repoURL string) (owner, repo string, ok bool) {
	m := githubURLPattern.FindStringSubmatch(repoURL)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func githubCommitHash(ctx context.Context, owner, repo, branch, token string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("https://api.github.com/repos/%s/%s/commits/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github commits API returned %s", resp.Status)
	}

	var payload struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.SHA) == "" {
		return "", fmt.Errorf("github commits API returned an empty sha")
	}
	return payload.SHA, nil
}
