package handlers

import (
	"os"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Remove handles SSH_FXP_REMOVE. A final symlink is unlinked, not followed.
// Directories are refused (RMDIR removes them) and every failure, a missing
// file included, is reported as PermissionDenied.
func (h *Handler) Remove(ctx *HandlerContext, req *sftp.PathRequest) sftp.Response {
	if ctx.isContextCancelled() {
		return status(req.ID, sftp.StatusConnectionLost)
	}

	path, err := h.guard.ResolveEntry(req.Path)
	if err != nil {
		logger.DebugCtx(ctx.Context, "REMOVE rejected", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	info, err := os.Lstat(path.String())
	if err != nil || info.IsDir() {
		logger.DebugCtx(ctx.Context, "REMOVE refused", logger.KeyPath, req.Path)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	if err := os.Remove(path.String()); err != nil {
		logger.DebugCtx(ctx.Context, "REMOVE failed", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	logger.InfoCtx(ctx.Context, "REMOVE", logger.KeyPath, req.Path)
	return status(req.ID, sftp.StatusOK)
}
