package handlers

import (
	"io"
	"math"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Write handles SSH_FXP_WRITE.
//
// All bytes are written at offset, or at end of file for handles opened
// with APPEND. Unknown handles and handles not opened for writing answer
// PermissionDenied; I/O errors answer Failure. Nothing is rolled back after
// a partial write.
func (h *Handler) Write(ctx *HandlerContext, req *sftp.WriteRequest) sftp.Response {
	if ctx.isContextCancelled() {
		return status(req.ID, sftp.StatusConnectionLost)
	}

	oh, ok := h.handles.lookup(req.Handle, fileHandle)
	if !ok || !oh.writable() {
		logger.DebugCtx(ctx.Context, "WRITE refused", logger.KeyHandle, req.Handle, "known", ok)
		return status(req.ID, sftp.StatusPermissionDenied)
	}

	if req.Offset > math.MaxInt64 {
		return status(req.ID, sftp.StatusFailure)
	}

	var (
		n   int
		err error
	)
	if oh.pflags&sftp.OpenAppend != 0 {
		if _, err = oh.file.Seek(0, io.SeekEnd); err == nil {
			n, err = oh.file.Write(req.Data)
		}
	} else {
		n, err = oh.file.WriteAt(req.Data, int64(req.Offset))
	}

	if err != nil {
		logger.WarnCtx(ctx.Context, "WRITE failed",
			logger.KeyHandle, req.Handle, logger.KeyOffset, req.Offset,
			logger.KeyBytesWritten, n, logger.KeyError, err)
		return status(req.ID, sftp.StatusFailure)
	}

	logger.DebugCtx(ctx.Context, "WRITE",
		logger.KeyHandle, req.Handle, logger.KeyOffset, req.Offset, logger.KeyBytesWritten, n)
	return status(req.ID, sftp.StatusOK)
}
