package handlers

import (
	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Close handles SSH_FXP_CLOSE. It always answers Ok; unknown tokens are
// logged and otherwise ignored so a double close is harmless.
func (h *Handler) Close(ctx *HandlerContext, req *sftp.HandleRequest) sftp.Response {
	known, err := h.handles.release(req.Handle)
	switch {
	case !known:
		logger.DebugCtx(ctx.Context, "CLOSE of unknown handle", logger.KeyHandle, req.Handle)
	case err != nil:
		logger.WarnCtx(ctx.Context, "CLOSE failed to release file", logger.KeyHandle, req.Handle, logger.KeyError, err)
	default:
		logger.DebugCtx(ctx.Context, "CLOSE", logger.KeyHandle, req.Handle)
	}
	return status(req.ID, sftp.StatusOK)
}
