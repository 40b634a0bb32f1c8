// Package store provides the sftpbox credential database.
//
// The store holds SFTP users and their authorized public keys. It never
// holds session state. Two backends are supported:
//   - SQLite (single-node, default)
//   - PostgreSQL (shared between several servers)
package store

import (
	"context"
	"time"

	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

// Store provides the credential persistence interface.
//
// Thread Safety: Implementations must be safe for concurrent use from multiple
// goroutines.
type Store interface {
	// ============================================
	// USER OPERATIONS
	// ============================================

	// GetUser returns a user by username, with its public keys loaded.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, username string) (*models.User, error)

	// ListUsers returns all users ordered by username.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// CreateUser creates a new user. The ID is generated if empty.
	// Returns models.ErrDuplicateUser if the username is taken.
	CreateUser(ctx context.Context, user *models.User) (string, error)

	// SetUserEnabled enables or disables a user.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	SetUserEnabled(ctx context.Context, username string, enabled bool) error

	// DeleteUser deletes a user and its public keys.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	DeleteUser(ctx context.Context, username string) error

	// UpdatePassword replaces a user's password hash. An empty hash disables
	// password authentication for the user.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	UpdatePassword(ctx context.Context, username, passwordHash string) error

	// UpdateLastLogin updates the user's last login timestamp.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	UpdateLastLogin(ctx context.Context, username string, timestamp time.Time) error

	// ValidateCredentials verifies username/password credentials.
	// Returns models.ErrInvalidCredentials for unknown users or wrong passwords
	// and models.ErrUserDisabled for disabled accounts.
	ValidateCredentials(ctx context.Context, username, password string) (*models.User, error)

	// ============================================
	// PUBLIC KEY OPERATIONS
	// ============================================

	// AddPublicKey registers a key for a user. The key's ID is generated.
	// Returns models.ErrUserNotFound if the user doesn't exist and
	// models.ErrDuplicateKey if the fingerprint is already registered for
	// the user.
	AddPublicKey(ctx context.Context, username string, key *models.PublicKey) (string, error)

	// ListPublicKeys returns the keys of a user.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	ListPublicKeys(ctx context.Context, username string) ([]*models.PublicKey, error)

	// DeletePublicKey removes a key of a user by fingerprint.
	// Returns models.ErrKeyNotFound if the user has no such key.
	DeletePublicKey(ctx context.Context, username, fingerprint string) error

	// FindPublicKey returns the enabled user owning a key with the given
	// fingerprint. Returns models.ErrKeyNotFound when no such key exists
	// for username and models.ErrUserDisabled for disabled users.
	FindPublicKey(ctx context.Context, username, fingerprint string) (*models.User, *models.PublicKey, error)

	// ============================================
	// HEALTH & LIFECYCLE
	// ============================================

	// Healthcheck verifies the database is reachable.
	Healthcheck(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}
