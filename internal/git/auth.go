package git

import (
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/aidino/aicode-reviewer/internal/auth"
	"github.com/aidino/aicode-reviewer/internal/auth/providers"
)

func (c *Client) getAuth(authCfg *providers.AuthConfig) (transport.AuthMethod, error) {
	return auth.CreateAuth(authCfg)
}

// TokenAuth builds an AuthConfig for a bearer-style personal access token,
// the only credential shape the repository cache stores (C1).
func TokenAuth(token string) *providers.AuthConfig {
	if token == "" {
		return &providers.AuthConfig{Type: providers.AuthTypeNone}
	}
	return &providers.AuthConfig{Type: providers.AuthTypeToken, Token: token}
}
