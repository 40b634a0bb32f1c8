package models

import "errors"

// Common errors for credential database operations.
var (
	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
	ErrUserDisabled  = errors.New("user account is disabled")

	// Public key errors
	ErrKeyNotFound  = errors.New("public key not found")
	ErrDuplicateKey = errors.New("public key already registered")
)
