package vault

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/aidino/aicode-reviewer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKeyBase64 is a 32-byte key the way an operator would actually supply
// one (e.g. the output of `openssl rand -base64 32`).
var testKeyBase64 = base64.StdEncoding.EncodeToString([]byte("a-fixed-32-byte-test-key-0000000"))

func testVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(Config{EncryptionKey: testKeyBase64})
	require.NoError(t, err)
	return v
}

func TestStoreThenGetRoundtrips(t *testing.T) {
	v := testVault(t)
	now := time.Now()
	p := &model.Project{ID: "p1", Name: "demo"}

	require.NoError(t, v.Store(p, "ghp_secret123", 0, now))

	got := v.Get(p, now)
	require.True(t, got.IsSome())
	assert.Equal(t, "ghp_secret123", got.Unwrap())
}

func TestStoreRejectsEmptyToken(t *testing.T) {
	v := testVault(t)
	p := &model.Project{ID: "p1"}
	err := v.Store(p, "   ", 0, time.Now())
	assert.Error(t, err)
}

func TestGetReturnsNoneWhenNoToken(t *testing.T) {
	v := testVault(t)
	p := &model.Project{ID: "p1"}
	assert.True(t, v.Get(p, time.Now()).IsNone())
}

func TestGetInvalidatesExpiredToken(t *testing.T) {
	v := testVault(t)
	now := time.Now()
	p := &model.Project{ID: "p1"}
	require.NoError(t, v.Store(p, "secret", 1, now.Add(-48*time.Hour)))

	got := v.Get(p, now)
	assert.True(t, got.IsNone())
	assert.Nil(t, p.EncryptedToken)
}

func TestGetInvalidatesOnDecryptionFailure(t *testing.T) {
	v := testVault(t)
	now := time.Now()
	p := &model.Project{ID: "p1", EncryptedToken: []byte("not-valid-ciphertext-at-all")}

	got := v.Get(p, now)
	assert.True(t, got.IsNone())
	assert.Nil(t, p.EncryptedToken)
}

func TestRefreshIfChangedOnlyReplacesWhenDifferent(t *testing.T) {
	v := testVault(t)
	now := time.Now()
	p := &model.Project{ID: "p1"}
	require.NoError(t, v.Store(p, "secret-a", 0, now))
	firstCiphertext := p.EncryptedToken

	changed, err := v.RefreshIfChanged(p, "secret-a", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, firstCiphertext, p.EncryptedToken)

	changed, err = v.RefreshIfChanged(p, "secret-b", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)

	got := v.Get(p, now.Add(3*time.Minute))
	require.True(t, got.IsSome())
	assert.Equal(t, "secret-b", got.Unwrap())
}

func TestSweepExpiredClearsOnlyPastTTL(t *testing.T) {
	v := testVault(t)
	now := time.Now()

	expired := &model.Project{ID: "p1"}
	require.NoError(t, v.Store(expired, "secret", 1, now.Add(-48*time.Hour)))

	fresh := &model.Project{ID: "p2"}
	require.NoError(t, v.Store(fresh, "secret", 30, now))

	count := v.SweepExpired([]*model.Project{expired, fresh}, now)

	assert.Equal(t, 1, count)
	assert.Nil(t, expired.EncryptedToken)
	assert.NotNil(t, fresh.EncryptedToken)
}

func TestNewRefusesGeneratedKeyInProduction(t *testing.T) {
	_, err := New(Config{Production: true})
	assert.Error(t, err)
}

func TestNewGeneratesKeyOutsideProduction(t *testing.T) {
	v, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestNewRejectsNonBase64Key(t *testing.T) {
	_, err := New(Config{EncryptionKey: "not-valid-base64-!!!"})
	assert.Error(t, err)
}

func TestNewDecodesBase64KeyRoundtrip(t *testing.T) {
	v1, err := New(Config{EncryptionKey: testKeyBase64})
	require.NoError(t, err)
	v2, err := New(Config{EncryptionKey: testKeyBase64})
	require.NoError(t, err)

	p := &model.Project{ID: "p1"}
	now := time.Now()
	require.NoError(t, v1.Store(p, "secret", 0, now))

	got := v2.Get(p, now)
	require.True(t, got.IsSome())
	assert.Equal(t, "secret", got.Unwrap())
}
