package handlers

import (
	"errors"
	"io/fs"
	"os"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
	"github.com/marmos91/sftpbox/internal/sandbox"
)

const openWriteMask = sftp.OpenWrite | sftp.OpenAppend

// Open handles SSH_FXP_OPEN.
//
// With CREAT the path goes through creation-aware resolution and a missing
// file is created exclusively; otherwise the path must already exist. Every
// failure, containment included, is reported as PermissionDenied so clients
// cannot probe the real cause.
func (h *Handler) Open(ctx *HandlerContext, req *sftp.OpenRequest) sftp.Response {
	logger.DebugCtx(ctx.Context, "OPEN", logger.KeyPath, req.Filename, logger.KeyFlags, req.PFlags)

	if ctx.isContextCancelled() {
		return status(req.ID, sftp.StatusConnectionLost)
	}

	creating := req.PFlags&sftp.OpenCreate != 0

	var (
		path sandbox.ResolvedPath
		err  error
	)
	if creating {
		path, err = h.guard.ResolveForCreate(req.Filename)
	} else {
		path, err = h.guard.Resolve(req.Filename)
	}
	if err != nil {
		logger.DebugCtx(ctx.Context, "OPEN rejected", logger.KeyPath, req.Filename, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	f, err := openFile(path.String(), req.PFlags, createMode(req.Attrs, defaultFileMode))
	if err != nil {
		logger.DebugCtx(ctx.Context, "OPEN failed", logger.KeyPath, req.Filename, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	if info, err := f.Stat(); err != nil || info.IsDir() {
		_ = f.Close()
		logger.DebugCtx(ctx.Context, "OPEN refused non-regular file", logger.KeyPath, req.Filename)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	token, err := h.handles.add(&openHandle{kind: fileHandle, path: path, file: f, pflags: req.PFlags})
	if err != nil {
		_ = f.Close()
		logger.WarnCtx(ctx.Context, "OPEN failed", logger.KeyPath, req.Filename, logger.KeyError, err)
		return statusMsg(req.ID, sftp.StatusFailure, err.Error())
	}

	logger.DebugCtx(ctx.Context, "OPEN successful", logger.KeyPath, req.Filename, logger.KeyHandle, token)
	return &sftp.HandleResponse{ID: req.ID, Handle: token}
}

// openFile opens path for the requested SFTP flags. A CREAT request first
// tries an exclusive create and falls back to opening the existing file
// unless EXCL was also requested. APPEND is emulated by the write path
// because O_APPEND forbids positioned writes.
func openFile(path string, pflags uint32, mode fs.FileMode) (*os.File, error) {
	access := accessFlags(pflags)

	if pflags&sftp.OpenCreate != 0 {
		f, err := os.OpenFile(path, access|os.O_CREATE|os.O_EXCL, mode)
		if err == nil || pflags&sftp.OpenExcl != 0 || !errors.Is(err, fs.ErrExist) {
			return f, err
		}
	}

	if pflags&sftp.OpenTrunc != 0 && access != os.O_RDONLY {
		access |= os.O_TRUNC
	}
	return os.OpenFile(path, access, 0)
}

func accessFlags(pflags uint32) int {
	read := pflags&sftp.OpenRead != 0
	write := pflags&openWriteMask != 0
	switch {
	case read && write:
		return os.O_RDWR
	case write:
		return os.O_WRONLY
	default:
		return os.O_RDONLY
	}
}

// createMode picks the permission bits for a new entry: the client's
// requested permissions when present, masked to 0777, otherwise fallback.
func createMode(a sftp.Attrs, fallback fs.FileMode) fs.FileMode {
	if a.Has(sftp.AttrPermissions) {
		return fs.FileMode(a.Permissions & 0o777)
	}
	return fallback
}
