package handlers

import (
	"os"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Readdir handles SSH_FXP_READDIR.
//
// The whole directory is returned in a single batch ("." and ".." are not
// listed) and the handle is marked exhausted; every later call on the same
// handle answers Eof. An empty directory yields an empty batch first.
func (h *Handler) Readdir(ctx *HandlerContext, req *sftp.HandleRequest) sftp.Response {
	if ctx.isContextCancelled() {
		return status(req.ID, sftp.StatusConnectionLost)
	}

	oh, ok := h.handles.lookup(req.Handle, dirHandle)
	if !ok {
		logger.DebugCtx(ctx.Context, "READDIR unknown handle", logger.KeyHandle, req.Handle)
		return status(req.ID, sftp.StatusNoSuchFile)
	}

	if oh.exhausted {
		logger.DebugCtx(ctx.Context, "READDIR end of listing", logger.KeyHandle, req.Handle)
		return status(req.ID, sftp.StatusEOF)
	}

	dir := oh.path.String()
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.WarnCtx(ctx.Context, "READDIR failed", logger.KeyPath, h.guard.Rel(oh.path), logger.KeyError, err)
		return status(req.ID, mapOSError(err))
	}

	names := make([]sftp.NameEntry, 0, len(entries))
	for _, entry := range entries {
		ne, err := dirEntry(dir, entry)
		if err != nil {
			// Entry vanished between listing and stat
			logger.DebugCtx(ctx.Context, "READDIR skipped entry", "name", entry.Name(), logger.KeyError, err)
			continue
		}
		names = append(names, ne)
	}

	oh.exhausted = true

	logger.DebugCtx(ctx.Context, "READDIR", logger.KeyPath, h.guard.Rel(oh.path), logger.KeyEntries, len(names))
	return &sftp.NameResponse{ID: req.ID, Entries: names}
}
