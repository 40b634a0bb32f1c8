package sftp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/sftpbox/internal/adapter/sftp/handlers"
	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
	"github.com/marmos91/sftpbox/internal/telemetry"
)

// ============================================================================
// Dispatch Table
// ============================================================================

// operation describes how one packet type is served. DecodeRequest
// guarantees the concrete request type each Handler asserts.
type operation struct {
	Name    string
	Handler func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response
}

var dispatchTable = map[sftp.PacketType]*operation{
	sftp.PacketOpen: {
		Name: "OPEN",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Open(ctx, req.(*sftp.OpenRequest))
		},
	},
	sftp.PacketClose: {
		Name: "CLOSE",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Close(ctx, req.(*sftp.HandleRequest))
		},
	},
	sftp.PacketRead: {
		Name: "READ",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Read(ctx, req.(*sftp.ReadRequest))
		},
	},
	sftp.PacketWrite: {
		Name: "WRITE",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Write(ctx, req.(*sftp.WriteRequest))
		},
	},
	sftp.PacketLstat: {
		Name: "LSTAT",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Lstat(ctx, req.(*sftp.PathRequest))
		},
	},
	sftp.PacketFstat: {
		Name: "FSTAT",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Fstat(ctx, req.(*sftp.HandleRequest))
		},
	},
	sftp.PacketSetstat: {
		Name: "SETSTAT",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Setstat(ctx, req.(*sftp.PathAttrsRequest))
		},
	},
	sftp.PacketFsetstat: {
		Name: "FSETSTAT",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Fsetstat(ctx, req.(*sftp.FsetstatRequest))
		},
	},
	sftp.PacketOpendir: {
		Name: "OPENDIR",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Opendir(ctx, req.(*sftp.PathRequest))
		},
	},
	sftp.PacketReaddir: {
		Name: "READDIR",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Readdir(ctx, req.(*sftp.HandleRequest))
		},
	},
	sftp.PacketRemove: {
		Name: "REMOVE",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Remove(ctx, req.(*sftp.PathRequest))
		},
	},
	sftp.PacketMkdir: {
		Name: "MKDIR",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Mkdir(ctx, req.(*sftp.PathAttrsRequest))
		},
	},
	sftp.PacketRmdir: {
		Name: "RMDIR",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Rmdir(ctx, req.(*sftp.PathRequest))
		},
	},
	sftp.PacketRealpath: {
		Name: "REALPATH",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Realpath(ctx, req.(*sftp.PathRequest))
		},
	},
	sftp.PacketStat: {
		Name: "STAT",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Stat(ctx, req.(*sftp.PathRequest))
		},
	},
	sftp.PacketRename: {
		Name: "RENAME",
		Handler: func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
			return h.Rename(ctx, req.(*sftp.RenameRequest))
		},
	},
	sftp.PacketReadlink: {
		Name:    "READLINK",
		Handler: unsupported("READLINK"),
	},
	sftp.PacketSymlink: {
		Name:    "SYMLINK",
		Handler: unsupported("SYMLINK"),
	},
	sftp.PacketExtended: {
		Name:    "EXTENDED",
		Handler: unsupported("EXTENDED"),
	},
}

func unsupported(op string) func(*handlers.Handler, *handlers.HandlerContext, sftp.Request) sftp.Response {
	return func(h *handlers.Handler, ctx *handlers.HandlerContext, req sftp.Request) sftp.Response {
		return h.Unsupported(ctx, op, req.RequestID())
	}
}

// ============================================================================
// Dispatch
// ============================================================================

// dispatch serves one request of an initialized session. It never fails:
// unknown packet types answer OpUnsupported and malformed payloads answer
// Failure, both against the request id found at the start of the payload.
func (s *Session) dispatch(ctx context.Context, pkt *sftp.Packet) sftp.Response {
	op, ok := dispatchTable[pkt.Type]
	if !ok {
		id, _ := sftp.PeekRequestID(pkt.Payload)
		logger.DebugCtx(ctx, "Unsupported SFTP packet", "type", uint8(pkt.Type), logger.KeyRequestID, id)
		s.recordRequest(pkt.Type.String(), 0, sftp.StatusOpUnsupported.String())
		return sftp.NewStatus(id, sftp.StatusOpUnsupported)
	}

	req, err := sftp.DecodeRequest(pkt.Type, pkt.Payload)
	if err != nil {
		id, _ := sftp.PeekRequestID(pkt.Payload)
		code := sftp.StatusFailure
		if errors.Is(err, sftp.ErrUnsupportedPacket) {
			code = sftp.StatusOpUnsupported
		}
		logger.DebugCtx(ctx, "Malformed SFTP request", logger.KeyOperation, op.Name, logger.KeyRequestID, id, logger.KeyError, err)
		s.recordRequest(op.Name, 0, code.String())
		return sftp.NewStatus(id, code)
	}

	ctx, span := telemetry.StartSFTPSpan(ctx, op.Name, req.RequestID())
	defer span.End()

	if lc := logger.FromContext(ctx); lc != nil {
		lc = lc.WithRequest(op.Name, req.RequestID())
		if telemetry.IsEnabled() {
			lc = lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
		}
		ctx = logger.WithContext(ctx, lc)
	}

	if s.metrics != nil {
		s.metrics.RecordRequestStart(op.Name)
		defer s.metrics.RecordRequestEnd(op.Name)
	}

	start := time.Now()
	resp := op.Handler(s.handler, handlers.NewHandlerContext(ctx, s.clientAddr, s.username), req)
	duration := time.Since(start)

	status := replyStatus(resp)
	span.SetAttributes(telemetry.SFTPStatus(status))
	if st, ok := resp.(*sftp.StatusResponse); ok && st.Code != sftp.StatusOK && st.Code != sftp.StatusEOF {
		span.SetStatus(codes.Error, status)
	}

	s.recordRequest(op.Name, duration, status)
	s.recordBytes(req, resp)

	logger.DebugCtx(ctx, "SFTP request complete",
		logger.KeyStatus, status,
		logger.KeyDurationMs, float64(duration.Microseconds())/1000.0)

	return resp
}

// replyStatus names the outcome of a reply for metrics: the status name of
// a STATUS reply, OK for any data-bearing reply.
func replyStatus(resp sftp.Response) string {
	if st, ok := resp.(*sftp.StatusResponse); ok {
		return st.Code.String()
	}
	return sftp.StatusOK.String()
}

func (s *Session) recordRequest(op string, d time.Duration, status string) {
	if s.metrics != nil {
		s.metrics.RecordRequest(op, d, status)
	}
}

func (s *Session) recordBytes(req sftp.Request, resp sftp.Response) {
	if s.metrics == nil {
		return
	}
	switch r := resp.(type) {
	case *sftp.DataResponse:
		s.metrics.RecordBytesTransferred("read", uint64(len(r.Data)))
	case *sftp.StatusResponse:
		if w, ok := req.(*sftp.WriteRequest); ok && r.Code == sftp.StatusOK {
			s.metrics.RecordBytesTransferred("write", uint64(len(w.Data)))
		}
	}
}
