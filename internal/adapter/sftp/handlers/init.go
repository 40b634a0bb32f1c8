package handlers

import (
	"fmt"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
	"github.com/marmos91/sftpbox/internal/sandbox"
)

// Init handles SSH_FXP_INIT.
//
// The first call prepares the sandbox root (creating it with RootMode when
// missing), canonicalizes it and records min(client, 3) as the negotiated
// version. Any later call returns ErrAlreadyInitialized, which the protocol
// loop treats as fatal; the recorded version is left unchanged.
func (h *Handler) Init(ctx *HandlerContext, req *sftp.InitRequest) (*sftp.VersionResponse, error) {
	if h.initialized {
		logger.WarnCtx(ctx.Context, "INIT repeated", logger.KeyVersion, req.Version, "negotiated", h.version)
		return nil, ErrAlreadyInitialized
	}

	guard, err := sandbox.Prepare(h.config.Root, h.config.RootMode)
	if err != nil {
		return nil, fmt.Errorf("prepare sandbox: %w", err)
	}

	h.guard = guard
	h.version = min(req.Version, sftp.ProtocolVersion)
	h.initialized = true

	logger.InfoCtx(ctx.Context, "SFTP session initialized",
		logger.KeyVersion, h.version,
		"client_version", req.Version,
		logger.KeyRoot, guard.Root(),
		"extensions", len(req.Extensions))

	return &sftp.VersionResponse{Version: sftp.ProtocolVersion}, nil
}
