package adapter

// ProtocolError is a domain error translated into a protocol status code.
//
// For SFTP the code is the SSH_FX_* status (NO_SUCH_FILE = 2,
// PERMISSION_DENIED = 3, ...). Unwrap returns the domain error so that
// errors.Is still matches the original sentinel.
type ProtocolError interface {
	error

	// Code returns the numeric protocol status code.
	Code() uint32

	// Message returns the human-readable message sent to the client.
	Message() string

	// Unwrap returns the underlying domain error.
	Unwrap() error
}
