// Package handlers implements the SFTP v3 operations of one filesystem
// session.
//
// A Handler is bound to a single SSH channel and is driven by exactly one
// goroutine (the protocol loop in internal/adapter/sftp), so it carries no
// locks. Every client path is resolved through a sandbox.Guard before any
// filesystem call; open files and directories are tracked in a per-session
// handle table keyed by opaque tokens.
package handlers

import (
	"context"
	"io/fs"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
	"github.com/marmos91/sftpbox/internal/sandbox"
)

const (
	// DefaultRootMode is applied to a sandbox root created at init.
	DefaultRootMode fs.FileMode = 0o775

	// DefaultMaxReadSize bounds the payload of a single READ reply.
	DefaultMaxReadSize uint32 = 256 * 1024

	// DefaultMaxHandles bounds the open handles of one session.
	DefaultMaxHandles = 1024

	defaultFileMode fs.FileMode = 0o644
	defaultDirMode  fs.FileMode = 0o755
)

// Config is the per-session configuration, built once at process start and
// shared read-only by every session.
type Config struct {
	// Root is the sandbox root directory. Relative paths are resolved
	// against the working directory at init.
	Root string

	// RootMode is applied when init has to create Root.
	RootMode fs.FileMode

	// MaxReadSize clamps the length of READ requests.
	MaxReadSize uint32

	// MaxHandles bounds concurrently open handles per session.
	MaxHandles int
}

func (c *Config) applyDefaults() {
	if c.Root == "" {
		c.Root = "."
	}
	if c.RootMode == 0 {
		c.RootMode = DefaultRootMode
	}
	if c.MaxReadSize == 0 {
		c.MaxReadSize = DefaultMaxReadSize
	}
	if c.MaxHandles <= 0 {
		c.MaxHandles = DefaultMaxHandles
	}
}

// HandlerContext carries request-scoped information into every operation.
type HandlerContext struct {
	// Context carries cancellation (server shutdown, channel close) and the
	// logger.LogContext of the request.
	Context context.Context

	// ClientAddr is the remote "IP:port" of the SSH connection.
	ClientAddr string

	// Username is the authenticated SSH user.
	Username string
}

// NewHandlerContext builds a HandlerContext.
func NewHandlerContext(ctx context.Context, clientAddr, username string) *HandlerContext {
	return &HandlerContext{Context: ctx, ClientAddr: clientAddr, Username: username}
}

func (c *HandlerContext) isContextCancelled() bool {
	select {
	case <-c.Context.Done():
		return true
	default:
		return false
	}
}

// Handler is the filesystem session state of one SFTP channel.
type Handler struct {
	config Config

	initialized bool
	version     uint32
	guard       *sandbox.Guard
	handles     *handleTable
}

// NewHandler creates an uninitialized session. Nothing touches the
// filesystem until Init.
func NewHandler(config Config) *Handler {
	config.applyDefaults()
	return &Handler{
		config:  config,
		handles: newHandleTable(config.MaxHandles),
	}
}

// Initialized reports whether version negotiation has completed.
func (h *Handler) Initialized() bool { return h.initialized }

// Version returns the negotiated protocol version (0 before Init).
func (h *Handler) Version() uint32 { return h.version }

// Root returns the canonical sandbox root, empty before Init.
func (h *Handler) Root() string {
	if h.guard == nil {
		return ""
	}
	return h.guard.Root()
}

// OpenHandles returns the number of handles currently open.
func (h *Handler) OpenHandles() int { return h.handles.len() }

// Release closes every open handle. Called by the protocol loop when the
// channel ends.
func (h *Handler) Release() error {
	n, err := h.handles.closeAll()
	if n > 0 {
		logger.Debug("SFTP session released handles", "count", n)
	}
	return err
}

func status(id uint32, code sftp.StatusCode) *sftp.StatusResponse {
	return sftp.NewStatus(id, code)
}

func statusMsg(id uint32, code sftp.StatusCode, msg string) *sftp.StatusResponse {
	return &sftp.StatusResponse{ID: id, Code: code, Message: msg, Language: "en"}
}
