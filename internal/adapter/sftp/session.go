// Package sftp runs the SFTP protocol loop of one channel: it frames
// packets off the stream, enforces version negotiation, dispatches each
// request to the filesystem session in internal/adapter/sftp/handlers and
// writes the reply.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/marmos91/sftpbox/internal/adapter/sftp/handlers"
	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/protocol/sftp"
	"github.com/marmos91/sftpbox/internal/telemetry"
	"github.com/marmos91/sftpbox/pkg/metrics"
)

// SessionConfig configures one protocol loop.
type SessionConfig struct {
	// Handler is the filesystem session configuration.
	Handler handlers.Config

	// MaxPacketSize bounds incoming packets. 0 selects
	// sftp.DefaultMaxPacketSize.
	MaxPacketSize uint32
}

// Session is the protocol loop bound to one channel stream. It is driven by
// a single goroutine and processes requests strictly in arrival order.
type Session struct {
	stream  io.ReadWriter
	config  SessionConfig
	handler *handlers.Handler
	metrics metrics.SFTPMetrics

	clientAddr string
	username   string
}

// NewSession creates a protocol loop over stream. metrics may be nil.
func NewSession(stream io.ReadWriter, config SessionConfig, m metrics.SFTPMetrics, clientAddr, username string) *Session {
	return &Session{
		stream:     stream,
		config:     config,
		handler:    handlers.NewHandler(config.Handler),
		metrics:    m,
		clientAddr: clientAddr,
		username:   username,
	}
}

// Handler exposes the filesystem session. Used by tests and the connection
// listing.
func (s *Session) Handler() *handlers.Handler { return s.handler }

// Serve reads and answers requests until the stream ends or a fatal protocol
// error occurs. A clean end of stream returns nil. Open handles are released
// before returning.
//
// ctx carries the logger.LogContext of the channel and is cancelled on
// server shutdown; in-flight requests then answer ConnectionLost.
func (s *Session) Serve(ctx context.Context) (err error) {
	ctx, span := telemetry.StartSessionSpan(ctx, connectionID(ctx), channelID(ctx), s.username)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "Panic in SFTP session", "error", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("sftp session panic: %v", r)
		}
		if relErr := s.handler.Release(); relErr != nil {
			logger.WarnCtx(ctx, "SFTP session release failed", logger.KeyError, relErr)
		}
		telemetry.RecordError(ctx, err)
	}()

	for {
		pkt, err := sftp.ReadPacket(s.stream, s.config.MaxPacketSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.DebugCtx(ctx, "SFTP stream closed by client")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		resp, err := s.handle(ctx, pkt)
		if err != nil {
			logger.WarnCtx(ctx, "SFTP protocol error", logger.KeyOperation, pkt.Type.String(), logger.KeyError, err)
			return err
		}

		if err := sftp.WriteResponse(s.stream, resp); err != nil {
			return fmt.Errorf("write %s reply: %w", resp.PacketType(), err)
		}
	}
}

// handle answers one packet. A non-nil error is fatal to the session.
func (s *Session) handle(ctx context.Context, pkt *sftp.Packet) (sftp.Response, error) {
	hctx := handlers.NewHandlerContext(ctx, s.clientAddr, s.username)

	if pkt.Type == sftp.PacketInit {
		req, err := sftp.DecodeInit(pkt.Payload)
		if err != nil {
			return nil, err
		}
		resp, err := s.handler.Init(hctx, req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	if !s.handler.Initialized() {
		return nil, fmt.Errorf("%w: received %s", handlers.ErrNotInitialized, pkt.Type)
	}

	return s.dispatch(ctx, pkt), nil
}

func connectionID(ctx context.Context) string {
	if lc := logger.FromContext(ctx); lc != nil {
		return lc.ConnectionID
	}
	return ""
}

func channelID(ctx context.Context) uint32 {
	if lc := logger.FromContext(ctx); lc != nil {
		return lc.Channel
	}
	return 0
}
