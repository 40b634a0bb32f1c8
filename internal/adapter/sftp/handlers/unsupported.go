package handlers

import (
	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Unsupported answers OpUnsupported for requests the server decodes but
// refuses: READLINK and SYMLINK (link targets could point outside the
// sandbox) and all EXTENDED requests.
func (h *Handler) Unsupported(ctx *HandlerContext, op string, id uint32) sftp.Response {
	logger.DebugCtx(ctx.Context, "unsupported operation", logger.KeyOperation, op)
	return status(id, sftp.StatusOpUnsupported)
}
