package handlers

import (
	"os"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Opendir handles SSH_FXP_OPENDIR.
//
// Every call creates a fresh directory handle whose enumeration-exhausted
// flag is clear, so re-opening a directory always allows a full re-listing.
func (h *Handler) Opendir(ctx *HandlerContext, req *sftp.PathRequest) sftp.Response {
	if ctx.isContextCancelled() {
		return status(req.ID, sftp.StatusConnectionLost)
	}

	path, err := h.guard.Resolve(req.Path)
	if err != nil {
		logger.DebugCtx(ctx.Context, "OPENDIR rejected", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, mapGuardError(err))
	}

	info, err := os.Stat(path.String())
	if err != nil {
		return status(req.ID, mapOSError(err))
	}
	if !info.IsDir() {
		return statusMsg(req.ID, sftp.StatusFailure, "not a directory")
	}

	token, err := h.handles.add(&openHandle{kind: dirHandle, path: path})
	if err != nil {
		logger.WarnCtx(ctx.Context, "OPENDIR failed", logger.KeyPath, req.Path, logger.KeyError, err)
		return statusMsg(req.ID, sftp.StatusFailure, err.Error())
	}

	logger.DebugCtx(ctx.Context, "OPENDIR", logger.KeyPath, req.Path, logger.KeyHandle, token)
	return &sftp.HandleResponse{ID: req.ID, Handle: token}
}
