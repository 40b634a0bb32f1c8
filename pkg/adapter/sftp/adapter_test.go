package sftp

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	pkgsftp "github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/ssh"

	"github.com/marmos91/sftpbox/internal/bytesize"
	"github.com/marmos91/sftpbox/pkg/auth"
)

// authMetrics records authentication and session events.
type authMetrics struct {
	mu       sync.Mutex
	attempts []string
	sessions []string
	accepted int
}

func (m *authMetrics) RecordAuthAttempt(method, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, method+":"+result)
}

func (m *authMetrics) RecordSessionEnded(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, reason)
}

func (m *authMetrics) RecordConnectionAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted++
}

func (m *authMetrics) RecordRequest(string, time.Duration, string) {}
func (m *authMetrics) RecordRequestStart(string)                   {}
func (m *authMetrics) RecordRequestEnd(string)                     {}
func (m *authMetrics) RecordBytesTransferred(string, uint64)       {}
func (m *authMetrics) RecordSessionStarted()                       {}
func (m *authMetrics) SetActiveConnections(int32)                  {}
func (m *authMetrics) RecordConnectionClosed()                     {}
func (m *authMetrics) RecordConnectionForceClosed()                {}

func (m *authMetrics) snapshot() (attempts, sessions []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.attempts...), append([]string(nil), m.sessions...)
}

type testServer struct {
	adapter *Adapter
	addr    string
	root    string
	metrics *authMetrics
}

func startServer(t *testing.T, verifier auth.Verifier) *testServer {
	t.Helper()
	root := t.TempDir()
	m := &authMetrics{}

	a, err := New(Config{
		Server: ServerConfig{
			BindAddress:        "127.0.0.1",
			AuthRejectionDelay: time.Millisecond,
			HandshakeTimeout:   5 * time.Second,
		},
		Sandbox:         SandboxConfig{Root: root},
		ShutdownTimeout: 5 * time.Second,
	}, verifier, m)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	})

	return &testServer{adapter: a, addr: a.GetListenerAddr(), root: root, metrics: m}
}

func (s *testServer) dial(user string, methods ...ssh.AuthMethod) (*ssh.Client, error) {
	return ssh.Dial("tcp", s.addr, &ssh.ClientConfig{
		User:            user,
		Auth:            methods,
		HostKeyCallback: ssh.FixedHostKey(s.adapter.HostKey()),
		Timeout:         5 * time.Second,
	})
}

func (s *testServer) mustDial(t *testing.T, user string, methods ...ssh.AuthMethod) *ssh.Client {
	t.Helper()
	client, err := s.dial(user, methods...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func staticVerifier(t *testing.T) auth.Verifier {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte("wonderland"), bcrypt.MinCost)
	require.NoError(t, err)
	v, err := auth.NewStaticCredential([]auth.StaticUser{{Username: "alice", PasswordHash: string(h)}})
	require.NoError(t, err)
	return v
}

func newSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

func TestNewRequiresVerifier(t *testing.T) {
	_, err := New(Config{Sandbox: SandboxConfig{Root: t.TempDir()}}, nil, nil)
	assert.ErrorIs(t, err, auth.ErrNoVerifier)
}

func TestPasswordLoginAndTransfer(t *testing.T) {
	srv := startServer(t, staticVerifier(t))
	client := srv.mustDial(t, "alice", ssh.Password("wonderland"))

	sc, err := pkgsftp.NewClient(client)
	require.NoError(t, err)
	defer sc.Close()

	wd, err := sc.Getwd()
	require.NoError(t, err)
	assert.Equal(t, "/", wd)

	f, err := sc.Create("/hello.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello over ssh"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(filepath.Join(srv.root, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello over ssh", string(data))

	require.NoError(t, sc.Mkdir("/docs"))
	entries, err := sc.ReadDir("/")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"docs", "hello.txt"}, names)

	r, err := sc.Open("/hello.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello over ssh", string(got))

	_, err = sc.Stat("/../../etc/passwd")
	assert.Error(t, err, "paths cannot leave the sandbox")

	attempts, _ := srv.metrics.snapshot()
	assert.Equal(t, []string{"password:accept"}, attempts)
}

func TestWrongPasswordRejected(t *testing.T) {
	srv := startServer(t, staticVerifier(t))

	_, err := srv.dial("alice", ssh.Password("looking-glass"))
	require.Error(t, err)

	_, err = srv.dial("mallory", ssh.Password("wonderland"))
	require.Error(t, err)

	attempts, _ := srv.metrics.snapshot()
	assert.Equal(t, []string{"password:reject", "password:reject"}, attempts)
	assert.Empty(t, srv.adapter.Connections())
}

func TestPublicKeyLogin(t *testing.T) {
	trusted, stranger := newSigner(t), newSigner(t)

	keyFile := filepath.Join(t.TempDir(), "authorized_keys")
	require.NoError(t, os.WriteFile(keyFile, ssh.MarshalAuthorizedKey(trusted.PublicKey()), 0o600))
	ts, err := auth.NewPublicKeyTrustStore([]auth.AuthorizedKeysFile{{Username: "alice", AuthorizedKeys: keyFile}})
	require.NoError(t, err)

	srv := startServer(t, auth.NewChain(staticVerifier(t), ts))

	_, err = srv.dial("alice", ssh.PublicKeys(stranger))
	require.Error(t, err, "unknown keys are rejected")

	_, err = srv.dial("bob", ssh.PublicKeys(trusted))
	require.Error(t, err, "keys are bound to their user")

	client := srv.mustDial(t, "alice", ssh.PublicKeys(trusted))
	sc, err := pkgsftp.NewClient(client)
	require.NoError(t, err)
	defer sc.Close()

	_, err = sc.Getwd()
	require.NoError(t, err)

	conns := srv.adapter.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, "alice", conns[0].Username)
	assert.Equal(t, auth.MethodPublicKey, conns[0].AuthMethod)
}

func TestNonSessionChannelRejected(t *testing.T) {
	srv := startServer(t, staticVerifier(t))
	client := srv.mustDial(t, "alice", ssh.Password("wonderland"))

	_, _, err := client.OpenChannel("direct-tcpip", nil)
	var openErr *ssh.OpenChannelError
	require.True(t, errors.As(err, &openErr))
	assert.Equal(t, ssh.UnknownChannelType, openErr.Reason)
}

func TestEOFClosesChannelWithoutSubsystem(t *testing.T) {
	srv := startServer(t, staticVerifier(t))
	client := srv.mustDial(t, "alice", ssh.Password("wonderland"))

	openChannels := func() int {
		conns := srv.adapter.Connections()
		if len(conns) != 1 {
			return -1
		}
		return conns[0].OpenChannels
	}

	ch, reqs, err := client.OpenChannel("session", nil)
	require.NoError(t, err)
	go ssh.DiscardRequests(reqs)
	require.Eventually(t, func() bool { return openChannels() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, ch.CloseWrite())
	require.Eventually(t, func() bool { return openChannels() == 0 }, 5*time.Second, 10*time.Millisecond)

	_, err = ch.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF, "server closed its side")
}

func TestOnlySFTPSubsystemIsServed(t *testing.T) {
	srv := startServer(t, staticVerifier(t))
	client := srv.mustDial(t, "alice", ssh.Password("wonderland"))

	t.Run("exec is refused", func(t *testing.T) {
		session, err := client.NewSession()
		require.NoError(t, err)
		defer session.Close()
		assert.Error(t, session.Run("ls /"))
	})

	t.Run("shell is refused", func(t *testing.T) {
		session, err := client.NewSession()
		require.NoError(t, err)
		defer session.Close()
		assert.Error(t, session.Shell())
	})

	t.Run("other subsystems are refused", func(t *testing.T) {
		session, err := client.NewSession()
		require.NoError(t, err)
		defer session.Close()
		assert.Error(t, session.RequestSubsystem("netconf"))
	})

	t.Run("second sftp request on a channel fails", func(t *testing.T) {
		session, err := client.NewSession()
		require.NoError(t, err)
		defer session.Close()

		require.NoError(t, session.RequestSubsystem(SubsystemName))
		assert.Error(t, session.RequestSubsystem(SubsystemName))
	})
}

func TestChannelsAreIndependent(t *testing.T) {
	srv := startServer(t, staticVerifier(t))
	client := srv.mustDial(t, "alice", ssh.Password("wonderland"))

	first, err := pkgsftp.NewClient(client)
	require.NoError(t, err)
	second, err := pkgsftp.NewClient(client)
	require.NoError(t, err)
	defer second.Close()

	require.Eventually(t, func() bool {
		conns := srv.adapter.Connections()
		return len(conns) == 1 && conns[0].Sessions == 2
	}, 5*time.Second, 10*time.Millisecond)

	f, err := first.Create("/a.txt")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, first.Close())

	_, err = second.Stat("/a.txt")
	require.NoError(t, err, "closing one channel leaves the other working")

	require.Eventually(t, func() bool {
		_, sessions := srv.metrics.snapshot()
		return len(sessions) == 1
	}, 5*time.Second, 10*time.Millisecond)
	_, sessions := srv.metrics.snapshot()
	assert.Equal(t, []string{"eof"}, sessions)
}

func TestStopEndsConnections(t *testing.T) {
	srv := startServer(t, staticVerifier(t))
	client := srv.mustDial(t, "alice", ssh.Password("wonderland"))
	sc, err := pkgsftp.NewClient(client)
	require.NoError(t, err)
	defer sc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.adapter.Stop(ctx))

	_, err = sc.Getwd()
	assert.Error(t, err)
	assert.Equal(t, int32(0), srv.adapter.GetActiveConnections())

	_, err = srv.dial("alice", ssh.Password("wonderland"))
	assert.Error(t, err, "listener is closed")
}

func TestAdapterMapError(t *testing.T) {
	srv := startServer(t, staticVerifier(t))

	assert.Nil(t, srv.adapter.MapError(nil))

	perr := srv.adapter.MapError(fs.ErrNotExist)
	require.NotNil(t, perr)
	assert.Equal(t, uint32(2), perr.Code())
	assert.ErrorIs(t, perr, fs.ErrNotExist)

	assert.Equal(t, "SFTP", srv.adapter.Protocol())
}

func TestSessionConfigCarriesLimits(t *testing.T) {
	a := &Adapter{config: Config{
		Server:  ServerConfig{MaxReadSize: 64 * bytesize.KiB, MaxHandles: 16},
		Sandbox: SandboxConfig{Root: "/srv/files", RootMode: FileMode(0o750)},
	}}

	hc := a.sessionConfig()
	assert.Equal(t, uint32(64*1024), hc.MaxReadSize)
	assert.Equal(t, 16, hc.MaxHandles)
	assert.Equal(t, "/srv/files", hc.Root)
	assert.Equal(t, fs.FileMode(0o750), hc.RootMode)
}
