package handlers

import (
	"errors"
	"io"
	"io/fs"
	"syscall"

	"github.com/marmos91/sftpbox/internal/protocol/sftp"
	"github.com/marmos91/sftpbox/internal/sandbox"
)

var (
	// ErrAlreadyInitialized is returned by a second INIT. It is fatal to the
	// session.
	ErrAlreadyInitialized = errors.New("sftp session already initialized")

	// ErrNotInitialized is returned for any request received before INIT.
	// It is fatal to the session.
	ErrNotInitialized = errors.New("sftp session not initialized")
)

// mapGuardError maps a containment failure to a status: a path that does
// not exist is NoSuchFile, everything else (traversal, escape, invalid) is
// PermissionDenied.
func mapGuardError(err error) sftp.StatusCode {
	if errors.Is(err, sandbox.ErrNotFound) {
		return sftp.StatusNoSuchFile
	}
	return sftp.StatusPermissionDenied
}

// mapOSError maps a filesystem error to the closest status code. Used by
// operations whose failures are not deliberately collapsed.
func mapOSError(err error) sftp.StatusCode {
	switch {
	case err == nil:
		return sftp.StatusOK
	case errors.Is(err, io.EOF):
		return sftp.StatusEOF
	case errors.Is(err, fs.ErrNotExist):
		return sftp.StatusNoSuchFile
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EROFS):
		return sftp.StatusPermissionDenied
	case errors.Is(err, sandbox.ErrNotFound):
		return sftp.StatusNoSuchFile
	case errors.Is(err, sandbox.ErrEscape), errors.Is(err, sandbox.ErrTraversal), errors.Is(err, sandbox.ErrInvalidPath):
		return sftp.StatusPermissionDenied
	default:
		return sftp.StatusFailure
	}
}

// StatusError is an error paired with the SFTP status it is reported as.
// It satisfies adapter.ProtocolError.
type StatusError struct {
	Status sftp.StatusCode
	Err    error
}

// MapError wraps err with the status it maps to. Guard sentinels map the
// way path operations report them; other errors go through the filesystem
// mapping. Returns nil for a nil error.
func MapError(err error) *StatusError {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se
	}
	return &StatusError{Status: mapOSError(err), Err: err}
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return e.Status.String()
	}
	return e.Status.String() + ": " + e.Err.Error()
}

func (e *StatusError) Unwrap() error { return e.Err }

// Code returns the numeric SFTP status.
func (e *StatusError) Code() uint32 { return uint32(e.Status) }

// Message returns the status message sent on the wire.
func (e *StatusError) Message() string { return e.Status.Message() }
