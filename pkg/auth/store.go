package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/pkg/controlplane/models"
	"github.com/marmos91/sftpbox/pkg/controlplane/store"
)

// StoreVerifier checks credentials against the credential database and
// records successful logins.
type StoreVerifier struct {
	store store.Store
}

// NewStoreVerifier wraps s.
func NewStoreVerifier(s store.Store) (*StoreVerifier, error) {
	if s == nil {
		return nil, ErrNoVerifier
	}
	return &StoreVerifier{store: s}, nil
}

func (v *StoreVerifier) Name() string { return "database" }

func (v *StoreVerifier) VerifyPassword(ctx context.Context, user, password string) (Result, error) {
	_, err := v.store.ValidateCredentials(ctx, user, password)
	switch {
	case err == nil:
		v.touch(ctx, user)
		return Accept, nil
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrUserDisabled):
		return Reject, nil
	default:
		return Reject, err
	}
}

func (v *StoreVerifier) VerifyPublicKey(ctx context.Context, user string, key ssh.PublicKey) (Result, error) {
	if key == nil {
		return Reject, nil
	}
	_, stored, err := v.store.FindPublicKey(ctx, user, ssh.FingerprintSHA256(key))
	switch {
	case err == nil:
	case errors.Is(err, models.ErrKeyNotFound), errors.Is(err, models.ErrUserDisabled):
		return Reject, nil
	default:
		return Reject, err
	}

	// The fingerprint matched; compare the full key as well.
	want, err := stored.SSHKey()
	if err != nil {
		return Reject, err
	}
	if string(want.Marshal()) != string(key.Marshal()) {
		return Reject, nil
	}
	v.touch(ctx, user)
	return Accept, nil
}

func (v *StoreVerifier) touch(ctx context.Context, user string) {
	if err := v.store.UpdateLastLogin(ctx, user, time.Now()); err != nil {
		logger.WarnCtx(ctx, "Failed to record last login", logger.Username(user), logger.Err(err))
	}
}
