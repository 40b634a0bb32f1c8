package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/ssh"
)

// StaticUser is one username with its bcrypt password hash.
type StaticUser struct {
	Username     string `mapstructure:"username" yaml:"username" validate:"required"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash" validate:"required"`
}

// StaticCredential verifies passwords against a fixed set of bcrypt hashes.
// It never accepts public keys.
type StaticCredential struct {
	hashes map[string][]byte
}

// unknownUserHash is compared against for usernames that do not exist.
var unknownUserHash, _ = bcrypt.GenerateFromPassword([]byte("sftpbox-unknown-user"), bcrypt.MinCost)

// NewStaticCredential builds a verifier for users. Every hash must be a
// valid bcrypt hash and usernames must be unique.
func NewStaticCredential(users []StaticUser) (*StaticCredential, error) {
	hashes := make(map[string][]byte, len(users))
	for _, u := range users {
		if u.Username == "" {
			return nil, fmt.Errorf("%w: static user without username", ErrInvalidCredentials)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("%w: user %q: %v", ErrInvalidCredentials, u.Username, err)
		}
		if _, dup := hashes[u.Username]; dup {
			return nil, fmt.Errorf("%w: duplicate static user %q", ErrInvalidCredentials, u.Username)
		}
		hashes[u.Username] = []byte(u.PasswordHash)
	}
	return &StaticCredential{hashes: hashes}, nil
}

func (s *StaticCredential) Name() string { return "static" }

func (s *StaticCredential) VerifyPassword(_ context.Context, user, password string) (Result, error) {
	hash, ok := s.hashes[user]
	if !ok {
		// Unknown users still pay for one comparison.
		_ = bcrypt.CompareHashAndPassword(unknownUserHash, []byte(password))
		return Reject, nil
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return Reject, nil
	}
	return Accept, nil
}

func (s *StaticCredential) VerifyPublicKey(context.Context, string, ssh.PublicKey) (Result, error) {
	return Reject, nil
}

// Len returns the number of configured users.
func (s *StaticCredential) Len() int { return len(s.hashes) }
