package handlers

import (
	"os"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Mkdir handles SSH_FXP_MKDIR: one level, never recursive. Failures,
// including an existing entry, are reported as PermissionDenied.
func (h *Handler) Mkdir(ctx *HandlerContext, req *sftp.PathAttrsRequest) sftp.Response {
	if ctx.isContextCancelled() {
		return status(req.ID, sftp.StatusConnectionLost)
	}

	path, err := h.guard.ResolveForCreate(req.Path)
	if err != nil {
		logger.DebugCtx(ctx.Context, "MKDIR rejected", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	mode := createMode(req.Attrs, defaultDirMode)
	if err := os.Mkdir(path.String(), mode); err != nil {
		logger.DebugCtx(ctx.Context, "MKDIR failed", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	logger.InfoCtx(ctx.Context, "MKDIR", logger.KeyPath, req.Path, logger.KeyMode, uint32(mode))
	return status(req.ID, sftp.StatusOK)
}
