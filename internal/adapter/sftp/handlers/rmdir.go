package handlers

import (
	"os"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Rmdir handles SSH_FXP_RMDIR. A target that is not a directory (a symlink
// to one included) answers OpUnsupported. The sandbox root cannot be
// removed. Other failures, a non-empty directory included, are reported as
// PermissionDenied.
func (h *Handler) Rmdir(ctx *HandlerContext, req *sftp.PathRequest) sftp.Response {
	if ctx.isContextCancelled() {
		return status(req.ID, sftp.StatusConnectionLost)
	}

	path, err := h.guard.ResolveEntry(req.Path)
	if err != nil {
		logger.DebugCtx(ctx.Context, "RMDIR rejected", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	info, err := os.Lstat(path.String())
	if err != nil {
		return status(req.ID, sftp.StatusPermissionDenied)
	}
	if !info.IsDir() {
		logger.DebugCtx(ctx.Context, "RMDIR target is not a directory", logger.KeyPath, req.Path)
		return status(req.ID, sftp.StatusOpUnsupported)
	}
	if h.guard.IsRoot(path) {
		logger.WarnCtx(ctx.Context, "RMDIR of sandbox root refused", logger.KeyPath, req.Path)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	if err := os.Remove(path.String()); err != nil {
		logger.DebugCtx(ctx.Context, "RMDIR failed", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	logger.InfoCtx(ctx.Context, "RMDIR", logger.KeyPath, req.Path)
	return status(req.ID, sftp.StatusOK)
}
