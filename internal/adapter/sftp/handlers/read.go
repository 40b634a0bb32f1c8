package handlers

import (
	"errors"
	"io"
	"math"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Read handles SSH_FXP_READ.
//
// Returns exactly the bytes available at offset, up to the requested length
// clamped to MaxReadSize. A short read at end of file is a normal DATA
// reply; only a read that yields nothing at or past end of file answers
// Eof. Unknown handles answer NoSuchFile.
func (h *Handler) Read(ctx *HandlerContext, req *sftp.ReadRequest) sftp.Response {
	if ctx.isContextCancelled() {
		return status(req.ID, sftp.StatusConnectionLost)
	}

	oh, ok := h.handles.lookup(req.Handle, fileHandle)
	if !ok {
		logger.DebugCtx(ctx.Context, "READ unknown handle", logger.KeyHandle, req.Handle)
		return status(req.ID, sftp.StatusNoSuchFile)
	}

	if req.Offset > math.MaxInt64 {
		return status(req.ID, sftp.StatusEOF)
	}

	if req.Length == 0 {
		return &sftp.DataResponse{ID: req.ID}
	}

	length := min(req.Length, h.config.MaxReadSize)
	buf := make([]byte, length)
	n, err := oh.file.ReadAt(buf, int64(req.Offset))

	if n > 0 {
		logger.DebugCtx(ctx.Context, "READ",
			logger.KeyHandle, req.Handle, logger.KeyOffset, req.Offset,
			logger.KeyCount, req.Length, logger.KeyBytesRead, n)
		return &sftp.DataResponse{ID: req.ID, Data: buf[:n]}
	}

	if err == nil || errors.Is(err, io.EOF) {
		return status(req.ID, sftp.StatusEOF)
	}

	logger.WarnCtx(ctx.Context, "READ failed", logger.KeyHandle, req.Handle, logger.KeyOffset, req.Offset, logger.KeyError, err)
	return status(req.ID, sftp.StatusFailure)
}
