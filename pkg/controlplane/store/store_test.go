package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

const (
	testKeyA = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8g"
	testKeyB = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAICEiIyQlJicoKSorLC0uLzAxMjM0NTY3ODk6Ozw9Pj9A"
)

// createTestStore creates an in-memory SQLite store for testing.
func createTestStore(t *testing.T) *GORMStore {
	t.Helper()
	store, err := New(&Config{
		Type:   DatabaseTypeSQLite,
		SQLite: SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createUser(t *testing.T, s Store, username, password string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Enabled: true}
	if password != "" {
		hash, err := models.HashPasswordWithCost(password, bcrypt.MinCost)
		require.NoError(t, err)
		user.PasswordHash = hash
	}
	_, err := s.CreateUser(context.Background(), user)
	require.NoError(t, err)
	return user
}

func mustParseKey(t *testing.T, line string) *models.PublicKey {
	t.Helper()
	key, err := models.ParsePublicKey(line, "")
	require.NoError(t, err)
	return key
}

func TestNew(t *testing.T) {
	t.Run("default config uses sqlite", func(t *testing.T) {
		config := &Config{}
		config.ApplyDefaults()
		assert.Equal(t, DatabaseTypeSQLite, config.Type)
	})

	t.Run("invalid config returns error", func(t *testing.T) {
		_, err := New(&Config{Type: "invalid"})
		assert.Error(t, err)
	})

	t.Run("creates in-memory store", func(t *testing.T) {
		store := createTestStore(t)
		assert.NoError(t, store.Healthcheck(context.Background()))
	})
}

func TestUserOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice", "alice-password")
	assert.NotEmpty(t, alice.ID)

	t.Run("duplicate user fails", func(t *testing.T) {
		_, err := store.CreateUser(ctx, &models.User{Username: "alice"})
		assert.ErrorIs(t, err, models.ErrDuplicateUser)
	})

	t.Run("invalid username fails", func(t *testing.T) {
		_, err := store.CreateUser(ctx, &models.User{Username: "bad name"})
		assert.Error(t, err)
	})

	t.Run("get user", func(t *testing.T) {
		got, err := store.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.True(t, got.Enabled)

		_, err = store.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})

	t.Run("list users is ordered", func(t *testing.T) {
		createUser(t, store, "zed", "")
		createUser(t, store, "bob", "")

		users, err := store.ListUsers(ctx)
		require.NoError(t, err)
		names := make([]string, len(users))
		for i, u := range users {
			names[i] = u.Username
		}
		assert.Equal(t, []string{"alice", "bob", "zed"}, names)
	})

	t.Run("validate credentials", func(t *testing.T) {
		user, err := store.ValidateCredentials(ctx, "alice", "alice-password")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)

		_, err = store.ValidateCredentials(ctx, "alice", "wrong-password")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)

		_, err = store.ValidateCredentials(ctx, "nobody", "alice-password")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)

		// bob has no password at all.
		_, err = store.ValidateCredentials(ctx, "bob", "")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("update password", func(t *testing.T) {
		hash, err := models.HashPasswordWithCost("new-password", bcrypt.MinCost)
		require.NoError(t, err)
		require.NoError(t, store.UpdatePassword(ctx, "alice", hash))

		_, err = store.ValidateCredentials(ctx, "alice", "alice-password")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
		_, err = store.ValidateCredentials(ctx, "alice", "new-password")
		assert.NoError(t, err)

		assert.ErrorIs(t, store.UpdatePassword(ctx, "nobody", hash), models.ErrUserNotFound)
	})

	t.Run("disabled user is rejected", func(t *testing.T) {
		require.NoError(t, store.SetUserEnabled(ctx, "alice", false))
		_, err := store.ValidateCredentials(ctx, "alice", "new-password")
		assert.ErrorIs(t, err, models.ErrUserDisabled)
		require.NoError(t, store.SetUserEnabled(ctx, "alice", true))
	})

	t.Run("update last login", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, store.UpdateLastLogin(ctx, "alice", now))

		got, err := store.GetUser(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, got.LastLogin)
		assert.True(t, now.Equal(got.LastLogin.UTC()))

		assert.ErrorIs(t, store.UpdateLastLogin(ctx, "nobody", now), models.ErrUserNotFound)
	})

	t.Run("delete user", func(t *testing.T) {
		require.NoError(t, store.DeleteUser(ctx, "zed"))
		_, err := store.GetUser(ctx, "zed")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
		assert.ErrorIs(t, store.DeleteUser(ctx, "zed"), models.ErrUserNotFound)
	})
}

func TestPublicKeyOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	createUser(t, store, "alice", "")
	createUser(t, store, "bob", "")

	keyA := mustParseKey(t, testKeyA+" alice@laptop")
	id, err := store.AddPublicKey(ctx, "alice", keyA)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	t.Run("duplicate fingerprint for same user fails", func(t *testing.T) {
		_, err := store.AddPublicKey(ctx, "alice", mustParseKey(t, testKeyA))
		assert.ErrorIs(t, err, models.ErrDuplicateKey)
	})

	t.Run("same key for another user is allowed", func(t *testing.T) {
		_, err := store.AddPublicKey(ctx, "bob", mustParseKey(t, testKeyA))
		assert.NoError(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := store.AddPublicKey(ctx, "nobody", mustParseKey(t, testKeyB))
		assert.ErrorIs(t, err, models.ErrUserNotFound)

		_, err = store.ListPublicKeys(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})

	t.Run("list and find", func(t *testing.T) {
		_, err := store.AddPublicKey(ctx, "alice", mustParseKey(t, testKeyB))
		require.NoError(t, err)

		keys, err := store.ListPublicKeys(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, keys, 2)

		user, key, err := store.FindPublicKey(ctx, "alice", keyA.Fingerprint)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "alice@laptop", key.Comment)

		_, _, err = store.FindPublicKey(ctx, "nobody", keyA.Fingerprint)
		assert.ErrorIs(t, err, models.ErrKeyNotFound)

		_, _, err = store.FindPublicKey(ctx, "alice", "SHA256:unknown")
		assert.ErrorIs(t, err, models.ErrKeyNotFound)
	})

	t.Run("find rejects disabled user", func(t *testing.T) {
		require.NoError(t, store.SetUserEnabled(ctx, "bob", false))
		_, _, err := store.FindPublicKey(ctx, "bob", keyA.Fingerprint)
		assert.ErrorIs(t, err, models.ErrUserDisabled)
	})

	t.Run("delete key", func(t *testing.T) {
		require.NoError(t, store.DeletePublicKey(ctx, "alice", keyA.Fingerprint))
		assert.ErrorIs(t, store.DeletePublicKey(ctx, "alice", keyA.Fingerprint), models.ErrKeyNotFound)
		assert.ErrorIs(t, store.DeletePublicKey(ctx, "nobody", keyA.Fingerprint), models.ErrKeyNotFound)

		keys, err := store.ListPublicKeys(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})

	t.Run("deleting a user removes its keys", func(t *testing.T) {
		require.NoError(t, store.DeleteUser(ctx, "alice"))

		var count int64
		require.NoError(t, store.DB().Model(&models.PublicKey{}).Count(&count).Error)
		assert.Equal(t, int64(1), count) // bob's copy of key A
	})
}
