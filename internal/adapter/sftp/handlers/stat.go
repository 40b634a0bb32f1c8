package handlers

import (
	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
	"github.com/marmos91/sftpbox/internal/sandbox"
)

// Stat handles SSH_FXP_STAT, following a final symlink.
func (h *Handler) Stat(ctx *HandlerContext, req *sftp.PathRequest) sftp.Response {
	path, err := h.guard.Resolve(req.Path)
	return h.statPath(ctx, "STAT", req, path, err, false)
}

// Lstat handles SSH_FXP_LSTAT. A final symlink is described, not followed.
func (h *Handler) Lstat(ctx *HandlerContext, req *sftp.PathRequest) sftp.Response {
	path, err := h.guard.ResolveEntry(req.Path)
	return h.statPath(ctx, "LSTAT", req, path, err, true)
}

func (h *Handler) statPath(ctx *HandlerContext, op string, req *sftp.PathRequest, path sandbox.ResolvedPath, err error, lstat bool) sftp.Response {
	if err != nil {
		logger.DebugCtx(ctx.Context, op+" rejected", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, mapGuardError(err))
	}

	attrs, _, err := pathAttrs(path.String(), lstat)
	if err != nil {
		return status(req.ID, mapOSError(err))
	}

	logger.DebugCtx(ctx.Context, op, logger.KeyPath, req.Path, logger.KeySize, attrs.Size)
	return &sftp.AttrsResponse{ID: req.ID, Attrs: attrs}
}

// Fstat handles SSH_FXP_FSTAT on a file or directory handle.
func (h *Handler) Fstat(ctx *HandlerContext, req *sftp.HandleRequest) sftp.Response {
	oh, ok := h.handles.get(req.Handle)
	if !ok {
		return status(req.ID, sftp.StatusNoSuchFile)
	}

	var (
		attrs sftp.Attrs
		err   error
	)
	if oh.file != nil {
		attrs, err = fileAttrs(oh.file)
	} else {
		attrs, _, err = pathAttrs(oh.path.String(), false)
	}
	if err != nil {
		logger.DebugCtx(ctx.Context, "FSTAT failed", logger.KeyHandle, req.Handle, logger.KeyError, err)
		return status(req.ID, mapOSError(err))
	}
	return &sftp.AttrsResponse{ID: req.ID, Attrs: attrs}
}
