// Package vault persists per-repository credentials at rest with
// authenticated symmetric encryption, returning plaintext on demand and
// invalidating lazily on expiry or decryption failure (C1).
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/aidino/aicode-reviewer/internal/foundation"
	"github.com/aidino/aicode-reviewer/internal/foundation/errors"
	"github.com/aidino/aicode-reviewer/internal/model"
)

const (
	keySize   = 32
	nonceSize = 24

	// DefaultTTLDays is used when Store is called without an explicit TTL.
	DefaultTTLDays = 365
)

// Vault encrypts and decrypts per-project credentials with a process-wide
// symmetric key.
type Vault struct {
	key [keySize]byte
}

// Config configures vault construction.
type Config struct {
	// EncryptionKey is the base64-encoded key material read from the environment. If
	// empty, a fresh key is generated and logged once, unless Production is
	// set.
	EncryptionKey string
	// Production refuses to fall back to a generated key when
	// EncryptionKey is empty.
	Production bool
}

// New constructs a Vault per cfg. Returns an error when Production is set
// and no encryption key was supplied, when the supplied key is not valid
// base64, or when a key cannot be generated.
func New(cfg Config) (*Vault, error) {
	var key [keySize]byte

	if cfg.EncryptionKey == "" {
		if cfg.Production {
			return nil, errors.VaultError("no encryption key configured in production mode").
				WithContext("hint", "set REPOSITORY_TOKEN_ENCRYPTION_KEY").
				Build()
		}
		generated := make([]byte, keySize)
		if _, err := rand.Read(generated); err != nil {
			return nil, errors.WrapError(err, errors.CategoryVault, "failed to generate encryption key").Fatal().Build()
		}
		copy(key[:], generated)
		slog.Warn("generated a new token encryption key; set REPOSITORY_TOKEN_ENCRYPTION_KEY for production",
			"generated_key_base64", encodeKey(generated))
	} else {
		decoded, err := normalizeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryVault,
				"REPOSITORY_TOKEN_ENCRYPTION_KEY must be valid base64").Fatal().Build()
		}
		copy(key[:], decoded)
	}

	return &Vault{key: key}, nil
}

// Store encrypts plaintext and writes it into project in place, setting
// TokenExpiresAt ttlDays from now (DefaultTTLDays if ttlDays <= 0). Fails
// only if plaintext is empty or encryption errors.
func (v *Vault) Store(project *model.Project, plaintext string, ttlDays int, now time.Time) error {
	if strings.TrimSpace(plaintext) == "" {
		return errors.VaultError("cannot store empty access token").Build()
	}
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}

	ciphertext, err := v.encrypt(plaintext)
	if err != nil {
		return errors.WrapError(err, errors.CategoryVault, "failed to encrypt token").Fatal().Build()
	}

	project.EncryptedToken = ciphertext
	project.TokenExpiresAt = now.AddDate(0, 0, ttlDays)
	project.TokenLastUsedAt = now
	return nil
}

// Get decrypts and returns the stored token if present, unexpired, and
// decryptable. On expiry or decryption failure, the stored token is
// invalidated in place and None is returned rather than an error.
func (v *Vault) Get(project *model.Project, now time.Time) foundation.Option[string] {
	if len(project.EncryptedToken) == 0 {
		return foundation.None[string]()
	}

	if !project.TokenExpiresAt.IsZero() && project.TokenExpiresAt.Before(now) {
		v.Invalidate(project)
		return foundation.None[string]()
	}

	plaintext, err := v.decrypt(project.EncryptedToken)
	if err != nil {
		v.Invalidate(project)
		return foundation.None[string]()
	}

	project.TokenLastUsedAt = now
	return foundation.Some(plaintext)
}

// Invalidate clears a project's stored token.
func (v *Vault) Invalidate(project *model.Project) {
	project.EncryptedToken = nil
	project.TokenExpiresAt = time.Time{}
}

// IsValid is a pure predicate on token presence and expiry.
func (v *Vault) IsValid(project *model.Project, now time.Time) bool {
	return project.IsTokenValid(now)
}

// RefreshIfChanged replaces the stored token if it differs from
// newPlaintext, otherwise just bumps TokenLastUsedAt. Returns whether a
// replacement happened.
func (v *Vault) RefreshIfChanged(project *model.Project, newPlaintext string, now time.Time) (bool, error) {
	current := v.Get(project, now)
	if current.IsSome() && current.Unwrap() == newPlaintext {
		project.TokenLastUsedAt = now
		return false, nil
	}
	if err := v.Store(project, newPlaintext, DefaultTTLDays, now); err != nil {
		return false, err
	}
	return true, nil
}

// SweepExpired invalidates every expired token across projects and returns
// the count cleared.
func (v *Vault) SweepExpired(projects []*model.Project, now time.Time) int {
	count := 0
	for _, p := range projects {
		if len(p.EncryptedToken) > 0 && !p.TokenExpiresAt.IsZero() && p.TokenExpiresAt.Before(now) {
			v.Invalidate(p)
			count++
		}
	}
	return count
}

func (v *Vault) encrypt(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &v.key)
	return sealed, nil
}

func (v *Vault) decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) < nonceSize {
		return "", errors.VaultError("ciphertext too short").Build()
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &v.key)
	if !ok {
		return "", errors.VaultError("decryption failed").Build()
	}
	return string(plaintext), nil
}

// normalizeKey base64-decodes raw (the format documented for
// REPOSITORY_TOKEN_ENCRYPTION_KEY, e.g. the output of `openssl rand -base64
// 32`) and pads or truncates the result to keySize bytes.
func normalizeKey(raw string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	padded := make([]byte, keySize)
	copy(padded, decoded)
	return padded, nil
}

func encodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}
