package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/raphaelgruber/compere-go/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	store := session.NewFileStore(path)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token, "missing file means anonymous")

	require.NoError(t, store.Save("abc"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "compere_token: abc")

	token, err = session.NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestFileStorePreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("theme: dark\n"), 0o600))

	store := session.NewFileStore(path)
	require.NoError(t, store.Save("abc"))
	require.NoError(t, store.Clear())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "theme: dark")
	assert.NotContains(t, string(data), session.TokenKey)
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))

	_, err := session.New(session.NewFileStore(path))
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	store := session.NewMemoryStore("persisted")
	sess, err := session.New(store)
	require.NoError(t, err)

	assert.True(t, sess.Authenticated(), "hydrated from persisted value")
	assert.Equal(t, "persisted", sess.Token())

	require.NoError(t, sess.SetToken("fresh"))
	persisted, _ := store.Load()
	assert.Equal(t, "fresh", persisted)

	require.NoError(t, sess.Clear())
	assert.False(t, sess.Authenticated())
	persisted, _ = store.Load()
	assert.Empty(t, persisted)
}

type failingStore struct {
	*session.MemoryStore
}

func (failingStore) Save(string) error { return errors.New("disk full") }

func TestSessionSetTokenKeepsPreviousOnSaveFailure(t *testing.T) {
	sess, err := session.New(failingStore{session.NewMemoryStore("old")})
	require.NoError(t, err)

	err = sess.SetToken("new")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, "old", sess.Token())
}

func TestClaimsExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, session.Claims{}.Expired(now), "no expiry never expires")
	assert.False(t, session.Claims{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, session.Claims{ExpiresAt: now.Add(-time.Minute)}.Expired(now))
}

func TestSessionClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": exp.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	sess, err := session.New(session.NewMemoryStore(signed))
	require.NoError(t, err)

	claims, err := sess.Claims()
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(exp))
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Minute)))
}

func TestSessionClaimsAnonymous(t *testing.T) {
	sess, err := session.New(nil)
	require.NoError(t, err)

	_, err = sess.Claims()
	assert.ErrorIs(t, err, session.ErrNoToken)
}

func TestSessionClaimsOpaqueToken(t *testing.T) {
	sess, err := session.New(session.NewMemoryStore("not-a-jwt"))
	require.NoError(t, err)

	_, err = sess.Claims()
	assert.Error(t, err)
}
