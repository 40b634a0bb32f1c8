package handlers

import (
	"os"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Realpath handles SSH_FXP_REALPATH.
//
// The path is resolved through the guard so invalid or escaping paths are
// refused, but the answer is always the single entry "/" describing the
// sandbox root. Clients therefore never learn the server-side location of
// the sandbox or the layout below it. This is deliberate policy: clients
// that cd into subdirectories keep working with relative paths.
func (h *Handler) Realpath(ctx *HandlerContext, req *sftp.PathRequest) sftp.Response {
	if _, err := h.guard.Resolve(req.Path); err != nil {
		logger.DebugCtx(ctx.Context, "REALPATH rejected", logger.KeyPath, req.Path, logger.KeyError, err)
		return status(req.ID, mapGuardError(err))
	}

	entry := sftp.NameEntry{Filename: "/", Longname: "/"}
	if info, err := os.Stat(h.guard.Root()); err == nil {
		owner, _ := statOwner(h.guard.Root(), false)
		entry.Attrs = buildAttrs(info, owner)
	}

	logger.DebugCtx(ctx.Context, "REALPATH", logger.KeyPath, req.Path)
	return &sftp.NameResponse{ID: req.ID, Entries: []sftp.NameEntry{entry}}
}
