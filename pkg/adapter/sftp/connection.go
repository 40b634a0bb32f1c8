package sftp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	sftpsession "github.com/marmos91/sftpbox/internal/adapter/sftp"
	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/pkg/auth"
)

// Permission extensions set on successful authentication.
const (
	extAuthMethod  = "auth-method"
	extFingerprint = "pubkey-fp"
)

var errNoneAuth = errors.New("authentication required")

// ConnectionInfo describes an authenticated connection.
type ConnectionInfo struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	AuthMethod    string    `json:"auth_method"`
	RemoteAddr    string    `json:"remote_addr"`
	ClientVersion string    `json:"client_version"`
	ConnectedAt   time.Time `json:"connected_at"`
	OpenChannels  int       `json:"open_channels"`
	Sessions      int       `json:"sftp_sessions"`
}

// Connection is one SSH client. It owns the channel registry and the
// goroutines serving the connection's channels.
type Connection struct {
	adapter     *Adapter
	conn        net.Conn
	id          string
	connectedAt time.Time
	registry    *ChannelRegistry
	sessions    atomic.Int32

	// ctx is set at the start of Serve and used by the handshake callbacks.
	ctx context.Context

	mu            sync.Mutex
	username      string
	authMethod    string
	clientVersion string
}

func newConnection(a *Adapter, conn net.Conn) *Connection {
	return &Connection{
		adapter:     a,
		conn:        conn,
		id:          uuid.NewString(),
		connectedAt: time.Now(),
		registry:    NewChannelRegistry(),
		ctx:         context.Background(),
	}
}

// Info returns a snapshot of the connection.
func (c *Connection) Info() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionInfo{
		ID:            c.id,
		Username:      c.username,
		AuthMethod:    c.authMethod,
		RemoteAddr:    c.conn.RemoteAddr().String(),
		ClientVersion: c.clientVersion,
		ConnectedAt:   c.connectedAt,
		OpenChannels:  c.registry.Len(),
		Sessions:      int(c.sessions.Load()),
	}
}

// Serve runs the handshake and then accepts channels until the client
// disconnects or ctx is cancelled. It returns after every channel goroutine
// has finished.
func (c *Connection) Serve(ctx context.Context) {
	clientIP := c.conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(clientIP); err == nil {
		clientIP = host
	}
	lc := logger.NewLogContext(c.id, clientIP)
	ctx = logger.WithContext(ctx, lc)
	c.ctx = ctx

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "Panic in SSH connection", "error", r, "stack", string(debug.Stack()))
		}
	}()

	if t := c.adapter.config.Server.HandshakeTimeout; t > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(t))
	}
	sconn, chans, reqs, err := ssh.NewServerConn(c.conn, c.adapter.serverConfig(c))
	if err != nil {
		logger.DebugCtx(ctx, "SSH handshake failed", logger.Err(err))
		return
	}
	_ = c.conn.SetDeadline(time.Time{})
	defer func() { _ = sconn.Close() }()

	c.mu.Lock()
	c.username = sconn.User()
	c.clientVersion = string(sconn.ClientVersion())
	if sconn.Permissions != nil {
		c.authMethod = sconn.Permissions.Extensions[extAuthMethod]
	}
	c.mu.Unlock()

	ctx = logger.WithContext(ctx, lc.WithUser(sconn.User()))
	logger.InfoCtx(ctx, "SSH connection established",
		logger.KeyClientVer, string(sconn.ClientVersion()), logger.Auth(c.authMethod))

	c.adapter.connections.Store(c.id, c)
	defer c.adapter.connections.Delete(c.id)

	go ssh.DiscardRequests(reqs)

	// Shutdown closes the transport so blocked channel reads return.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = sconn.Close()
		case <-done:
		}
	}()

	var wg sync.WaitGroup
	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			logger.DebugCtx(ctx, "Rejecting channel", logger.KeyChannelType, newCh.ChannelType())
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			logger.DebugCtx(ctx, "Failed to accept channel", logger.Err(err))
			continue
		}
		wc := newWatchedChannel(ch)
		id := c.registry.Add(wc)
		wc.watch(func() { c.onChannelEOF(ctx, id) })
		logger.DebugCtx(ctx, "Channel opened", logger.Channel(id))

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.handleChannelRequests(ctx, id, chReqs, &wg)
		}()
	}

	wg.Wait()
	if n := c.registry.CloseAll(); n > 0 {
		logger.DebugCtx(ctx, "Closed unowned channels", logger.Count(uint32(n)))
	}
	logger.InfoCtx(ctx, "SSH connection closed")
}

// handleChannelRequests answers the requests of one channel. The request
// stream ends when the channel closes; a channel still in the registry at
// that point is removed and closed.
func (c *Connection) handleChannelRequests(ctx context.Context, id uint32, reqs <-chan *ssh.Request, wg *sync.WaitGroup) {
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithChannel(id))

	for req := range reqs {
		switch req.Type {
		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				reply(req, false)
				continue
			}
			if payload.Name != SubsystemName {
				logger.DebugCtx(ctx, "Unsupported subsystem", logger.KeySubsystem, payload.Name)
				reply(req, false)
				continue
			}

			ch, ok := c.registry.Take(id)
			if !ok {
				logger.DebugCtx(ctx, "Subsystem requested on a channel already in use")
				reply(req, false)
				continue
			}
			reply(req, true)

			wg.Add(1)
			go func() {
				defer wg.Done()
				c.runSFTP(ctx, ch)
			}()

		default:
			logger.DebugCtx(ctx, "Refusing channel request", logger.KeyRequestType, req.Type)
			reply(req, false)
		}
	}

	if ch, ok := c.registry.Take(id); ok {
		_ = ch.Close()
		logger.DebugCtx(ctx, "Channel closed before any subsystem started")
	}
}

// onChannelEOF closes a channel whose client finished sending before any
// subsystem took it. A channel owned by a session is left to the session,
// which sees the same EOF on its next read.
func (c *Connection) onChannelEOF(ctx context.Context, id uint32) {
	ch, ok := c.registry.Take(id)
	if !ok {
		return
	}
	_ = ch.Close()
	logger.DebugCtx(ctx, "Channel EOF before any subsystem started", logger.Channel(id))
}

// runSFTP runs a protocol loop on ch until the client ends it.
func (c *Connection) runSFTP(ctx context.Context, ch ssh.Channel) {
	m := c.adapter.metrics
	c.sessions.Add(1)
	if m != nil {
		m.RecordSessionStarted()
	}

	c.mu.Lock()
	username := c.username
	c.mu.Unlock()

	session := sftpsession.NewSession(ch, sftpsession.SessionConfig{
		Handler:       c.adapter.sessionConfig(),
		MaxPacketSize: uint32(c.adapter.config.Server.MaxPacketSize),
	}, m, c.conn.RemoteAddr().String(), username)

	logger.InfoCtx(ctx, "SFTP session started")
	err := session.Serve(ctx)

	reason := "eof"
	exitStatus := uint32(0)
	switch {
	case ctx.Err() != nil:
		reason = "shutdown"
	case err != nil:
		reason = "error"
		exitStatus = 1
	}
	if err != nil && reason == "error" {
		logger.WarnCtx(ctx, "SFTP session ended with error", logger.Err(err))
	} else {
		logger.InfoCtx(ctx, "SFTP session ended", "reason", reason)
	}

	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{exitStatus}))
	_ = ch.Close()

	c.sessions.Add(-1)
	if m != nil {
		m.RecordSessionEnded(reason)
	}
}

func reply(req *ssh.Request, ok bool) {
	if req.WantReply {
		_ = req.Reply(ok, nil)
	}
}

// ============================================================================
// Authentication
// ============================================================================

func (c *Connection) rejectNone(ssh.ConnMetadata) (*ssh.Permissions, error) {
	c.sleep(c.adapter.config.Server.AuthRejectionDelayInitial)
	return nil, errNoneAuth
}

func (c *Connection) verifyPassword(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
	res, err := c.adapter.verifier.VerifyPassword(c.ctx, meta.User(), string(password))
	return c.decide(meta, auth.MethodPassword, res, err, nil)
}

func (c *Connection) verifyPublicKey(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	res, err := c.adapter.verifier.VerifyPublicKey(c.ctx, meta.User(), key)
	return c.decide(meta, auth.MethodPublicKey, res, err, key)
}

// decide turns a verifier outcome into the handshake answer, recording the
// attempt and delaying rejections.
func (c *Connection) decide(meta ssh.ConnMetadata, method string, res auth.Result, err error, key ssh.PublicKey) (*ssh.Permissions, error) {
	args := []any{logger.Username(meta.User()), logger.Auth(method)}
	if key != nil {
		args = append(args, logger.KeyFingerprint, ssh.FingerprintSHA256(key))
	}

	outcome := res.String()
	if err != nil {
		outcome = "error"
		res = auth.Reject
		logger.WarnCtx(c.ctx, "Credential verification failed", append(args, logger.Err(err))...)
	}
	if m := c.adapter.metrics; m != nil {
		m.RecordAuthAttempt(method, outcome)
	}

	if res == auth.Accept {
		logger.InfoCtx(c.ctx, "Authentication accepted", args...)
		perms := &ssh.Permissions{Extensions: map[string]string{extAuthMethod: method}}
		if key != nil {
			perms.Extensions[extFingerprint] = ssh.FingerprintSHA256(key)
		}
		return perms, nil
	}

	logger.InfoCtx(c.ctx, "Authentication rejected", args...)
	c.sleep(c.adapter.config.Server.AuthRejectionDelay)
	return nil, fmt.Errorf("%s authentication rejected for %q", method, meta.User())
}

// sleep waits d unless the connection is being shut down.
func (c *Connection) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-c.ctx.Done():
	}
}
