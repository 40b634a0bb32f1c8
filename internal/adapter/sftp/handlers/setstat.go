package handlers

import (
	"errors"
	"io/fs"
	"os"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Setstat handles SSH_FXP_SETSTAT. Size, permissions (masked to 0777) and
// times are applied; ownership changes are ignored since every file belongs
// to the server process. Failures answer PermissionDenied.
func (h *Handler) Setstat(ctx *HandlerContext, req *sftp.PathAttrsRequest) sftp.Response {
	if ctx.isContextCancelled() {
		return status(req.ID, sftp.StatusConnectionLost)
	}

	path, err := h.guard.Resolve(req.Path)
	if err != nil {
		logger.DebugCtx(ctx.Context, "SETSTAT rejected", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, mapGuardError(err))
	}

	if err := applyAttrs(path.String(), nil, req.Attrs); err != nil {
		logger.DebugCtx(ctx.Context, "SETSTAT failed", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	logger.DebugCtx(ctx.Context, "SETSTAT", logger.KeyPath, req.Path, logger.KeyFlags, req.Attrs.Flags)
	return status(req.ID, sftp.StatusOK)
}

// Fsetstat handles SSH_FXP_FSETSTAT on an open handle.
func (h *Handler) Fsetstat(ctx *HandlerContext, req *sftp.FsetstatRequest) sftp.Response {
	oh, ok := h.handles.get(req.Handle)
	if !ok {
		return status(req.ID, sftp.StatusNoSuchFile)
	}

	if err := applyAttrs(oh.path.String(), oh.file, req.Attrs); err != nil {
		logger.DebugCtx(ctx.Context, "FSETSTAT failed", logger.KeyHandle, req.Handle, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}
	return status(req.ID, sftp.StatusOK)
}

// applyAttrs applies the settable attributes. When f is non-nil size and
// mode go through the open descriptor.
func applyAttrs(path string, f *os.File, a sftp.Attrs) error {
	var errs []error

	if a.Has(sftp.AttrSize) {
		if f != nil {
			errs = append(errs, f.Truncate(int64(a.Size)))
		} else {
			errs = append(errs, os.Truncate(path, int64(a.Size)))
		}
	}
	if a.Has(sftp.AttrPermissions) {
		mode := fs.FileMode(a.Permissions & 0o777)
		if f != nil {
			errs = append(errs, f.Chmod(mode))
		} else {
			errs = append(errs, os.Chmod(path, mode))
		}
	}
	if a.Has(sftp.AttrACModTime) {
		errs = append(errs, os.Chtimes(path, a.AccessTime(), a.ModTime()))
	}

	return errors.Join(errs...)
}
