package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
	"github.com/marmos91/sftpbox/pkg/controlplane/store"
)

type fakeLister []sftp.ConnectionInfo

func (l fakeLister) Connections() []sftp.ConnectionInfo { return l }

func newStore(t *testing.T) store.Store {
	t.Helper()
	cpStore, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: filepath.Join(t.TempDir(), "credentials.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cpStore.Close() })
	return cpStore
}

// startServer runs a server on an ephemeral loopback port.
func startServer(t *testing.T, lister fakeLister, cpStore store.Store) (*Server, string) {
	t.Helper()
	server := NewServer(APIConfig{Enabled: true}, lister, cpStore)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- server.Start(ctx) }()

	select {
	case <-server.Ready():
	case err := <-errChan:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errChan:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down in time")
		}
	})
	return server, "http://" + server.Addr()
}

func TestAPIServerDefaults(t *testing.T) {
	server := NewServer(APIConfig{Port: 9999}, nil, nil)
	assert.Equal(t, 9999, server.Port())
	assert.Equal(t, "127.0.0.1:9999", server.Addr())
	assert.Equal(t, 10*time.Second, server.config.ReadTimeout)
	assert.Equal(t, 60*time.Second, server.config.IdleTimeout)
}

func TestAPIServerEndpoints(t *testing.T) {
	lister := fakeLister{{ID: "c1", Username: "alice", AuthMethod: "publickey"}}
	_, base := startServer(t, lister, newStore(t))

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	resp, err = http.Get(base + "/health/ready")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/api/v1/connections")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var conns []sftp.ConnectionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conns))
	require.Len(t, conns, 1)
	assert.Equal(t, "alice", conns[0].Username)
	assert.Equal(t, "publickey", conns[0].AuthMethod)
}

func TestAPIServerRouting(t *testing.T) {
	_, base := startServer(t, nil, nil)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Get(base + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/health", resp.Header.Get("Location"))

	resp, err = http.Get(base + "/api/v1/users")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

	resp, err = http.Post(base+"/api/v1/connections", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPIServerStopIsIdempotent(t *testing.T) {
	server, _ := startServer(t, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
	require.NoError(t, server.Stop(ctx))
}
