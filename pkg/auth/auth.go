// Package auth decides whether an SSH client may log in.
//
// The SSH adapter asks a Verifier about every password or public key a
// client presents. Implementations:
//
//   - StaticCredential: usernames with bcrypt password hashes from config
//   - PublicKeyTrustStore: per-user authorized_keys files, optionally
//     reloaded when they change
//   - TokenVerifier: the password is a signed JWT naming the user
//   - StoreVerifier: users and keys from the credential database
//   - Chain: tries several verifiers in order
//
// A nil Verifier, or one that knows nothing about a user, rejects. Nothing
// in this package accepts unconditionally.
package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/ssh"
)

// Result is the outcome of one verification.
type Result int

const (
	// Reject refuses the credential. The client may retry.
	Reject Result = iota

	// Accept authenticates the client.
	Accept
)

// String returns "accept" or "reject", the values used in logs and metrics.
func (r Result) String() string {
	if r == Accept {
		return "accept"
	}
	return "reject"
}

// Method names used in logs and metrics.
const (
	MethodPassword  = "password"
	MethodPublicKey = "publickey"
)

// Verifier checks credentials presented during the SSH handshake.
//
// An error means the verifier could not decide (database down, unreadable
// file); callers treat it as Reject. Implementations must be safe for
// concurrent use.
type Verifier interface {
	// VerifyPassword checks a password for user.
	VerifyPassword(ctx context.Context, user, password string) (Result, error)

	// VerifyPublicKey checks that key may log in as user.
	VerifyPublicKey(ctx context.Context, user string, key ssh.PublicKey) (Result, error)

	// Name identifies the verifier in logs.
	Name() string
}

// Standard authentication errors.
var (
	// ErrInvalidCredentials indicates that the credentials are malformed or
	// cannot be parsed (distinct from wrong credentials).
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrNoVerifier is returned by constructors given nothing to verify with.
	ErrNoVerifier = errors.New("auth: no verifier configured")
)
