// Package sftp serves the sandboxed filesystem over SSH.
//
// The adapter accepts TCP connections, runs the SSH handshake with
// golang.org/x/crypto/ssh, authenticates through an auth.Verifier and keeps a
// ChannelRegistry per connection. An "sftp" subsystem request takes its
// channel out of the registry and hands it to a fresh protocol loop from
// internal/adapter/sftp.
package sftp

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/marmos91/sftpbox/internal/adapter/sftp/handlers"
	"github.com/marmos91/sftpbox/pkg/adapter"
	"github.com/marmos91/sftpbox/pkg/auth"
	"github.com/marmos91/sftpbox/pkg/metrics"
)

// SubsystemName is the only subsystem the server runs.
const SubsystemName = "sftp"

// Adapter is the SSH/SFTP protocol adapter.
//
// It embeds BaseAdapter for the listener, connection limit and graceful
// shutdown, and implements ConnectionFactory to wrap every accepted TCP
// connection in a Connection.
type Adapter struct {
	*adapter.BaseAdapter

	config   Config
	verifier auth.Verifier
	metrics  metrics.SFTPMetrics
	hostKey  ssh.Signer

	// connections maps connection id to *Connection once the handshake has
	// completed.
	connections sync.Map
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a stopped adapter. Zero values in cfg are replaced with
// defaults. verifier decides every login and must not be nil; m may be nil.
func New(cfg Config, verifier auth.Verifier, m metrics.SFTPMetrics) (*Adapter, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid sftp config: %w", err)
	}
	if verifier == nil {
		return nil, auth.ErrNoVerifier
	}

	hostKey, err := LoadHostKey(cfg.Server.HostKeyPath)
	if err != nil {
		return nil, err
	}

	base := adapter.NewBaseAdapter(adapter.BaseConfig{
		BindAddress:        cfg.Server.BindAddress,
		Port:               cfg.Server.Port,
		MaxConnections:     cfg.Server.MaxConnections,
		ShutdownTimeout:    cfg.ShutdownTimeout,
		MetricsLogInterval: cfg.Server.MetricsLogInterval,
	}, "SFTP")
	if m != nil {
		base.Metrics = m
	}

	return &Adapter{
		BaseAdapter: base,
		config:      cfg,
		verifier:    verifier,
		metrics:     m,
		hostKey:     hostKey,
	}, nil
}

// Serve listens and serves SSH connections until ctx is cancelled.
func (a *Adapter) Serve(ctx context.Context) error {
	return a.ServeWithFactory(ctx, a, nil, nil)
}

// NewConnection implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return newConnection(a, conn)
}

// MapError translates a filesystem or containment error into the SFTP
// status it is reported as.
func (a *Adapter) MapError(err error) adapter.ProtocolError {
	se := handlers.MapError(err)
	if se == nil {
		return nil
	}
	return se
}

// HostKey returns the public host key.
func (a *Adapter) HostKey() ssh.PublicKey {
	return a.hostKey.PublicKey()
}

// Connections returns the authenticated connections, oldest first.
func (a *Adapter) Connections() []ConnectionInfo {
	var out []ConnectionInfo
	a.connections.Range(func(_, value any) bool {
		out = append(out, value.(*Connection).Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// serverConfig builds the handshake configuration for one connection. The
// callbacks close over c so rejection delays and logs are per connection.
func (a *Adapter) serverConfig(c *Connection) *ssh.ServerConfig {
	cfg := &ssh.ServerConfig{
		MaxAuthTries:  a.config.Server.MaxAuthTries,
		ServerVersion: a.config.Server.ServerVersion,

		// "none" goes through the callback so it can be delayed; it never
		// succeeds.
		NoClientAuth:         true,
		NoClientAuthCallback: c.rejectNone,

		PasswordCallback:  c.verifyPassword,
		PublicKeyCallback: c.verifyPublicKey,
	}
	cfg.AddHostKey(a.hostKey)
	return cfg
}

func (a *Adapter) sessionConfig() handlers.Config {
	return handlers.Config{
		Root:        a.config.Sandbox.Root,
		RootMode:    a.config.Sandbox.RootMode.FileMode(),
		MaxReadSize: uint32(a.config.Server.MaxReadSize),
		MaxHandles:  a.config.Server.MaxHandles,
	}
}
