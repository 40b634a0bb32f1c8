package handlers

import (
	"errors"
	"io/fs"
	"os"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Rename handles SSH_FXP_RENAME. SFTP v3 semantics apply: an existing
// target is never overwritten (Failure). The source entry is moved itself,
// so a symlink is renamed rather than followed.
func (h *Handler) Rename(ctx *HandlerContext, req *sftp.RenameRequest) sftp.Response {
	if ctx.isContextCancelled() {
		return status(req.ID, sftp.StatusConnectionLost)
	}

	oldPath, err := h.guard.ResolveEntry(req.OldPath)
	if err != nil {
		logger.DebugCtx(ctx.Context, "RENAME source rejected", logger.KeyOldPath, req.OldPath, logger.KeyError, err)
		return status(req.ID, mapGuardError(err))
	}
	if h.guard.IsRoot(oldPath) {
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	newPath, err := h.guard.ResolveForCreate(req.NewPath)
	if err != nil {
		logger.DebugCtx(ctx.Context, "RENAME target rejected", logger.KeyNewPath, req.NewPath, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	if _, err := os.Lstat(newPath.String()); err == nil {
		return statusMsg(req.ID, sftp.StatusFailure, "target exists")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	if err := os.Rename(oldPath.String(), newPath.String()); err != nil {
		logger.DebugCtx(ctx.Context, "RENAME failed", logger.KeyOldPath, req.OldPath, logger.KeyNewPath, req.NewPath, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	logger.InfoCtx(ctx.Context, "RENAME", logger.KeyOldPath, req.OldPath, logger.KeyNewPath, req.NewPath)
	return status(req.ID, sftp.StatusOK)
}
