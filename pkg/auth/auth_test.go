package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/ssh"

	"github.com/marmos91/sftpbox/pkg/controlplane/models"
	"github.com/marmos91/sftpbox/pkg/controlplane/store"
)

const testSecret = "test-secret-key-must-be-32-chars!"

func newKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func writeAuthorizedKeys(t *testing.T, path string, keys ...ssh.PublicKey) {
	t.Helper()
	var data []byte
	data = append(data, "# managed by tests\n\n"...)
	for _, k := range keys {
		data = append(data, ssh.MarshalAuthorizedKey(k)...)
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "accept", Accept.String())
	assert.Equal(t, "reject", Reject.String())
	assert.Equal(t, Reject, Result(0), "zero value must reject")
}

func TestStaticCredential(t *testing.T) {
	ctx := context.Background()
	v, err := NewStaticCredential([]StaticUser{
		{Username: "alice", PasswordHash: hash(t, "wonderland")},
		{Username: "bob", PasswordHash: hash(t, "builder")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	tests := []struct {
		user, password string
		want           Result
	}{
		{"alice", "wonderland", Accept},
		{"bob", "builder", Accept},
		{"alice", "builder", Reject},
		{"alice", "", Reject},
		{"carol", "wonderland", Reject},
	}
	for _, tt := range tests {
		t.Run(tt.user+"/"+tt.password, func(t *testing.T) {
			got, err := v.VerifyPassword(ctx, tt.user, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("public keys are never accepted", func(t *testing.T) {
		got, err := v.VerifyPublicKey(ctx, "alice", newKey(t))
		require.NoError(t, err)
		assert.Equal(t, Reject, got)
	})
}

func TestNewStaticCredentialErrors(t *testing.T) {
	_, err := NewStaticCredential([]StaticUser{{Username: "alice", PasswordHash: "plaintext"}})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = NewStaticCredential([]StaticUser{{PasswordHash: hash(t, "x")}})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	h := hash(t, "x")
	_, err = NewStaticCredential([]StaticUser{{Username: "a", PasswordHash: h}, {Username: "a", PasswordHash: h}})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPublicKeyTrustStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	aliceKey, bobKey, strangerKey := newKey(t), newKey(t), newKey(t)

	alicePath := filepath.Join(dir, "alice_keys")
	bobPath := filepath.Join(dir, "bob_keys")
	writeAuthorizedKeys(t, alicePath, aliceKey)
	writeAuthorizedKeys(t, bobPath, bobKey)

	ts, err := NewPublicKeyTrustStore([]AuthorizedKeysFile{
		{Username: "alice", AuthorizedKeys: alicePath},
		{Username: "bob", AuthorizedKeys: bobPath},
	})
	require.NoError(t, err)

	check := func(user string, key ssh.PublicKey) Result {
		res, err := ts.VerifyPublicKey(ctx, user, key)
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, Accept, check("alice", aliceKey))
	assert.Equal(t, Accept, check("bob", bobKey))
	assert.Equal(t, Reject, check("alice", bobKey), "keys are per user")
	assert.Equal(t, Reject, check("alice", strangerKey))
	assert.Equal(t, Reject, check("carol", aliceKey))
	assert.Equal(t, Reject, check("alice", nil))

	res, err := ts.VerifyPassword(ctx, "alice", "anything")
	require.NoError(t, err)
	assert.Equal(t, Reject, res)

	t.Run("reload picks up changes", func(t *testing.T) {
		writeAuthorizedKeys(t, alicePath, strangerKey)
		ts.Reload()
		assert.Equal(t, Accept, check("alice", strangerKey))
		assert.Equal(t, Reject, check("alice", aliceKey))
	})

	t.Run("reload of a removed file trusts nothing", func(t *testing.T) {
		require.NoError(t, os.Remove(bobPath))
		ts.Reload()
		assert.Equal(t, Reject, check("bob", bobKey))
		assert.Equal(t, 0, ts.KeyCount("bob"))
	})
}

func TestNewPublicKeyTrustStoreErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewPublicKeyTrustStore([]AuthorizedKeysFile{
		{Username: "alice", AuthorizedKeys: filepath.Join(dir, "missing")},
	})
	assert.True(t, errors.Is(err, os.ErrNotExist))

	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(bad, []byte("ssh-ed25519 not-base64!\n"), 0o600))
	_, err = NewPublicKeyTrustStore([]AuthorizedKeysFile{{Username: "alice", AuthorizedKeys: bad}})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPublicKeyTrustStoreWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authorized_keys")
	oldKey, newK := newKey(t), newKey(t)
	writeAuthorizedKeys(t, path, oldKey)

	ts, err := NewPublicKeyTrustStore([]AuthorizedKeysFile{{Username: "alice", AuthorizedKeys: path}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Watch(ctx) }()

	// Rewrite until the watcher has been registered and reloads.
	content := append(ssh.MarshalAuthorizedKey(oldKey), ssh.MarshalAuthorizedKey(newK)...)
	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, content, 0o600); err != nil {
			return false
		}
		res, _ := ts.VerifyPublicKey(context.Background(), "alice", newK)
		return res == Accept
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestTokenVerifier(t *testing.T) {
	ctx := context.Background()
	v, err := NewTokenVerifier(TokenConfig{Secret: testSecret})
	require.NoError(t, err)

	token, err := v.Issue("alice", time.Hour)
	require.NoError(t, err)

	claims, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "sftpbox", claims.Issuer)
	assert.Equal(t, []string{"sftp"}, []string(claims.Audience))

	res, err := v.VerifyPassword(ctx, "alice", token)
	require.NoError(t, err)
	assert.Equal(t, Accept, res)

	t.Run("subject must match user", func(t *testing.T) {
		res, err := v.VerifyPassword(ctx, "bob", token)
		require.NoError(t, err)
		assert.Equal(t, Reject, res)
	})

	t.Run("plain passwords are rejected", func(t *testing.T) {
		res, err := v.VerifyPassword(ctx, "alice", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, Reject, res)
	})

	t.Run("expired token", func(t *testing.T) {
		past, err := NewTokenVerifier(TokenConfig{Secret: testSecret})
		require.NoError(t, err)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, err := past.Issue("alice", time.Hour)
		require.NoError(t, err)

		res, err := v.VerifyPassword(ctx, "alice", old)
		require.NoError(t, err)
		assert.Equal(t, Reject, res)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewTokenVerifier(TokenConfig{Secret: testSecret + "x"})
		require.NoError(t, err)
		forged, err := other.Issue("alice", time.Hour)
		require.NoError(t, err)

		res, err := v.VerifyPassword(ctx, "alice", forged)
		require.NoError(t, err)
		assert.Equal(t, Reject, res)
	})

	t.Run("other audience", func(t *testing.T) {
		other, err := NewTokenVerifier(TokenConfig{Secret: testSecret, Audience: "api"})
		require.NoError(t, err)
		tok, err := other.Issue("alice", time.Hour)
		require.NoError(t, err)

		res, err := v.VerifyPassword(ctx, "alice", tok)
		require.NoError(t, err)
		assert.Equal(t, Reject, res)
	})

	t.Run("public keys are never accepted", func(t *testing.T) {
		res, err := v.VerifyPublicKey(ctx, "alice", newKey(t))
		require.NoError(t, err)
		assert.Equal(t, Reject, res)
	})
}

func TestTokenConfig(t *testing.T) {
	_, err := NewTokenVerifier(TokenConfig{Secret: "short"})
	assert.Error(t, err)

	cfg := TokenConfig{Enabled: false, Secret: "short"}
	assert.NoError(t, cfg.Validate(), "disabled tokens need no secret")

	v, err := NewTokenVerifier(TokenConfig{Secret: testSecret})
	require.NoError(t, err)
	_, err = v.Issue("", time.Hour)
	assert.Error(t, err)
	_, err = v.Issue("alice", 0)
	assert.Error(t, err)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreVerifier(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: hash(t, "wonderland"), Enabled: true})
	require.NoError(t, err)

	aliceKey := newKey(t)
	pk, err := models.ParsePublicKey(string(ssh.MarshalAuthorizedKey(aliceKey)), "laptop")
	require.NoError(t, err)
	_, err = s.AddPublicKey(ctx, "alice", pk)
	require.NoError(t, err)

	v, err := NewStoreVerifier(s)
	require.NoError(t, err)

	res, err := v.VerifyPassword(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, Accept, res)

	user, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLogin, "successful login is recorded")

	res, err = v.VerifyPassword(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.Equal(t, Reject, res)

	res, err = v.VerifyPassword(ctx, "nobody", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, Reject, res)

	res, err = v.VerifyPublicKey(ctx, "alice", aliceKey)
	require.NoError(t, err)
	assert.Equal(t, Accept, res)

	res, err = v.VerifyPublicKey(ctx, "alice", newKey(t))
	require.NoError(t, err)
	assert.Equal(t, Reject, res)

	t.Run("disabled user", func(t *testing.T) {
		require.NoError(t, s.SetUserEnabled(ctx, "alice", false))
		res, err := v.VerifyPassword(ctx, "alice", "wonderland")
		require.NoError(t, err)
		assert.Equal(t, Reject, res)

		res, err = v.VerifyPublicKey(ctx, "alice", aliceKey)
		require.NoError(t, err)
		assert.Equal(t, Reject, res)
	})

	_, err = NewStoreVerifier(nil)
	assert.ErrorIs(t, err, ErrNoVerifier)
}

// stubVerifier answers with fixed results.
type stubVerifier struct {
	name  string
	res   Result
	err   error
	calls int
}

func (s *stubVerifier) Name() string { return s.name }

func (s *stubVerifier) VerifyPassword(context.Context, string, string) (Result, error) {
	s.calls++
	return s.res, s.err
}

func (s *stubVerifier) VerifyPublicKey(context.Context, string, ssh.PublicKey) (Result, error) {
	s.calls++
	return s.res, s.err
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("empty chain rejects", func(t *testing.T) {
		c := NewChain()
		res, err := c.VerifyPassword(ctx, "alice", "x")
		require.NoError(t, err)
		assert.Equal(t, Reject, res)

		res, err = NewChain(nil, nil).VerifyPublicKey(ctx, "alice", newKey(t))
		require.NoError(t, err)
		assert.Equal(t, Reject, res)
	})

	t.Run("first accept wins", func(t *testing.T) {
		first := &stubVerifier{name: "a", res: Reject}
		second := &stubVerifier{name: "b", res: Accept}
		third := &stubVerifier{name: "c", res: Accept}
		c := NewChain(first, second, third)

		res, err := c.VerifyPassword(ctx, "alice", "x")
		require.NoError(t, err)
		assert.Equal(t, Accept, res)
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 1, second.calls)
		assert.Equal(t, 0, third.calls)
		assert.Equal(t, "chain(a,b,c)", c.Name())
	})

	t.Run("errors count as reject", func(t *testing.T) {
		broken := &stubVerifier{name: "broken", res: Accept, err: errors.New("database down")}
		c := NewChain(broken)
		res, err := c.VerifyPublicKey(ctx, "alice", newKey(t))
		require.NoError(t, err)
		assert.Equal(t, Reject, res)

		ok := &stubVerifier{name: "ok", res: Accept}
		res, err = NewChain(broken, ok).VerifyPassword(ctx, "alice", "x")
		require.NoError(t, err)
		assert.Equal(t, Accept, res)
	})
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "authorized_keys")
	key := newKey(t)
	writeAuthorizedKeys(t, keyPath, key)

	_, err := Build(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoVerifier)

	_, err = Build(Config{Database: true}, nil)
	assert.ErrorIs(t, err, ErrNoVerifier)

	v, err := Build(Config{
		Static:     []StaticUser{{Username: "alice", PasswordHash: hash(t, "wonderland")}},
		PublicKeys: []AuthorizedKeysFile{{Username: "alice", AuthorizedKeys: keyPath}},
		Token:      TokenConfig{Enabled: true, Secret: testSecret},
		Database:   true,
	}, newTestStore(t))
	require.NoError(t, err)
	require.NotNil(t, v.TrustStore)
	assert.Equal(t, 4, v.Chain.Len())
	assert.Equal(t, "chain(static,authorized_keys,token,database)", v.Chain.Name())

	res, err := v.Chain.VerifyPublicKey(context.Background(), "alice", key)
	require.NoError(t, err)
	assert.Equal(t, Accept, res)
}
