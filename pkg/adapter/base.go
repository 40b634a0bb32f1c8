package adapter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/sftpbox/internal/logger"
)

// ConnectionHandler serves one accepted TCP connection. Serve blocks until
// the connection ends or ctx is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory wraps accepted TCP connections in a protocol handler.
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// BaseConfig holds the listener settings shared by protocol adapters.
type BaseConfig struct {
	// BindAddress is the IP address to bind to. Empty or "0.0.0.0" binds to
	// all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// MaxConnections limits concurrent clients. 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout bounds how long Stop waits for connections to drain.
	ShutdownTimeout time.Duration

	// MetricsLogInterval is the period of the connection count log line.
	// 0 disables it.
	MetricsLogInterval time.Duration
}

// ConnectionMetrics receives connection lifecycle events.
type ConnectionMetrics interface {
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)
}

// OnConnectionClose runs after a connection's handler returns, with the
// connection's remote address.
type OnConnectionClose func(addr string)

// BaseAdapter owns the TCP listener of a protocol adapter: the accept loop,
// the connection limit, connection tracking and graceful shutdown. Protocol
// adapters embed it and supply a ConnectionFactory.
//
// All exported methods are safe for concurrent use; shutdown is idempotent.
type BaseAdapter struct {
	Config BaseConfig

	// Metrics may be nil.
	Metrics ConnectionMetrics

	protocolName string

	listener      net.Listener
	listenerMu    sync.RWMutex
	ListenerReady chan struct{}

	activeConns   sync.WaitGroup
	connSemaphore chan struct{} // nil when unlimited
	ConnCount     atomic.Int32

	// ActiveConnections maps remote address to net.Conn.
	ActiveConnections sync.Map

	shutdownOnce sync.Once
	Shutdown     chan struct{}

	// ShutdownCtx is handed to every connection and cancelled on shutdown.
	ShutdownCtx    context.Context
	CancelRequests context.CancelFunc
}

// NewBaseAdapter creates a stopped adapter. Call ServeWithFactory to start.
func NewBaseAdapter(config BaseConfig, protocol string) *BaseAdapter {
	var sem chan struct{}
	if config.MaxConnections > 0 {
		sem = make(chan struct{}, config.MaxConnections)
		logger.Debug(protocol+" connection limit", "max_connections", config.MaxConnections)
	} else {
		logger.Debug(protocol+" connection limit", "max_connections", "unlimited")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BaseAdapter{
		Config:         config,
		protocolName:   protocol,
		Shutdown:       make(chan struct{}),
		connSemaphore:  sem,
		ShutdownCtx:    ctx,
		CancelRequests: cancel,
		ListenerReady:  make(chan struct{}),
	}
}

// ServeWithFactory listens on the configured address and hands every accepted
// connection to factory in its own goroutine. preAccept may veto a connection
// before it is tracked; onClose runs when its handler returns. Both may be nil.
//
// It returns nil after a graceful shutdown, and an error when the listener
// cannot be created or connections had to be force-closed.
func (b *BaseAdapter) ServeWithFactory(
	ctx context.Context,
	factory ConnectionFactory,
	preAccept func(net.Conn) bool,
	onClose OnConnectionClose,
) error {
	addr := net.JoinHostPort(b.Config.BindAddress, fmt.Sprintf("%d", b.Config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create %s listener on %s: %w", b.protocolName, addr, err)
	}

	b.listenerMu.Lock()
	b.listener = listener
	b.listenerMu.Unlock()
	close(b.ListenerReady)

	logger.Info(b.protocolName+" server listening", "address", listener.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			logger.Info(b.protocolName+" shutdown signal received", "error", ctx.Err())
			b.initiateShutdown()
		case <-b.Shutdown:
		}
	}()

	if b.Config.MetricsLogInterval > 0 {
		go b.logMetrics()
	}

	for {
		if b.connSemaphore != nil {
			select {
			case b.connSemaphore <- struct{}{}:
			case <-b.Shutdown:
				return b.gracefulShutdown()
			}
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			b.release()
			select {
			case <-b.Shutdown:
				return b.gracefulShutdown()
			default:
				logger.Debug("Error accepting "+b.protocolName+" connection", logger.Err(err))
				continue
			}
		}

		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.Err(err))
			}
		}

		if preAccept != nil && !preAccept(tcpConn) {
			_ = tcpConn.Close()
			b.release()
			continue
		}

		b.track(tcpConn, factory.NewConnection(tcpConn), onClose)
	}
}

// track registers conn and serves it in a new goroutine.
func (b *BaseAdapter) track(conn net.Conn, handler ConnectionHandler, onClose OnConnectionClose) {
	addr := conn.RemoteAddr().String()

	b.activeConns.Add(1)
	active := b.ConnCount.Add(1)
	b.ActiveConnections.Store(addr, conn)
	if b.Metrics != nil {
		b.Metrics.RecordConnectionAccepted()
		b.Metrics.SetActiveConnections(active)
	}
	logger.Debug(b.protocolName+" connection accepted", logger.ClientIP(addr), "active", active)

	go func() {
		defer func() {
			if onClose != nil {
				onClose(addr)
			}
			b.ActiveConnections.Delete(addr)
			_ = conn.Close()

			remaining := b.ConnCount.Add(-1)
			b.activeConns.Done()
			b.release()

			if b.Metrics != nil {
				b.Metrics.RecordConnectionClosed()
				b.Metrics.SetActiveConnections(remaining)
			}
			logger.Debug(b.protocolName+" connection closed", logger.ClientIP(addr), "active", remaining)
		}()

		handler.Serve(b.ShutdownCtx)
	}()
}

func (b *BaseAdapter) release() {
	if b.connSemaphore != nil {
		<-b.connSemaphore
	}
}

// initiateShutdown closes the listener, interrupts blocked reads and cancels
// ShutdownCtx. Only the first call has any effect.
func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		logger.Debug(b.protocolName + " shutdown initiated")
		close(b.Shutdown)

		b.listenerMu.Lock()
		if b.listener != nil {
			if err := b.listener.Close(); err != nil {
				logger.Debug("Error closing "+b.protocolName+" listener", logger.Err(err))
			}
		}
		b.listenerMu.Unlock()

		deadline := time.Now().Add(100 * time.Millisecond)
		b.ActiveConnections.Range(func(key, value any) bool {
			if err := value.(net.Conn).SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline", logger.ClientIP(key.(string)), logger.Err(err))
			}
			return true
		})

		b.CancelRequests()
	})
}

// gracefulShutdown waits up to ShutdownTimeout for connections to finish and
// force-closes whatever remains.
func (b *BaseAdapter) gracefulShutdown() error {
	logger.Info(b.protocolName+" graceful shutdown: waiting for active connections",
		"active", b.ConnCount.Load(), "timeout", b.Config.ShutdownTimeout)

	select {
	case <-b.drained():
		logger.Info(b.protocolName + " graceful shutdown complete")
		return nil

	case <-time.After(b.Config.ShutdownTimeout):
		remaining := b.ConnCount.Load()
		logger.Warn(b.protocolName+" shutdown timeout exceeded, forcing closure",
			"active", remaining, "timeout", b.Config.ShutdownTimeout)
		b.forceCloseConnections()
		return fmt.Errorf("%s shutdown timeout: %d connections force-closed", b.protocolName, remaining)
	}
}

func (b *BaseAdapter) drained() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()
	return done
}

func (b *BaseAdapter) forceCloseConnections() {
	closed := 0
	b.ActiveConnections.Range(func(key, value any) bool {
		if err := value.(net.Conn).Close(); err != nil {
			logger.Debug("Error force-closing connection", logger.ClientIP(key.(string)), logger.Err(err))
			return true
		}
		closed++
		if b.Metrics != nil {
			b.Metrics.RecordConnectionForceClosed()
		}
		return true
	})
	if closed > 0 {
		logger.Info("Force-closed connections", "count", closed)
	}
}

// Stop initiates shutdown and waits until every connection has ended or ctx
// is done. It may be called more than once and concurrently with
// ServeWithFactory.
func (b *BaseAdapter) Stop(ctx context.Context) error {
	b.initiateShutdown()
	if ctx == nil {
		return b.gracefulShutdown()
	}

	select {
	case <-b.drained():
		return nil
	case <-ctx.Done():
		logger.Warn(b.protocolName+" shutdown context cancelled",
			"active", b.ConnCount.Load(), logger.Err(ctx.Err()))
		b.forceCloseConnections()
		return ctx.Err()
	}
}

func (b *BaseAdapter) logMetrics() {
	ticker := time.NewTicker(b.Config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.Shutdown:
			return
		case <-ticker.C:
			logger.Info(b.protocolName+" metrics", "active_connections", b.ConnCount.Load())
		}
	}
}

// GetActiveConnections returns the number of connections being served.
func (b *BaseAdapter) GetActiveConnections() int32 {
	return b.ConnCount.Load()
}

// GetListenerAddr blocks until the listener exists and returns its address.
func (b *BaseAdapter) GetListenerAddr() string {
	<-b.ListenerReady

	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Port returns the configured TCP port.
func (b *BaseAdapter) Port() int {
	return b.Config.Port
}

// Protocol returns the protocol name used in logs.
func (b *BaseAdapter) Protocol() string {
	return b.protocolName
}
