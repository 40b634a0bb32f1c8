package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
	"github.com/marmos91/sftpbox/pkg/controlplane/api"
)

type fakeLister []sftp.ConnectionInfo

func (f fakeLister) Connections() []sftp.ConnectionInfo { return f }

type failingPinger struct{}

func (failingPinger) Healthcheck(context.Context) error { return errors.New("database is locked") }

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestNewTrimsSlash(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080", New("http://127.0.0.1:8080/").BaseURL())
}

func TestConnections(t *testing.T) {
	connectedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	client := newTestClient(t, api.NewRouter(fakeLister{
		{ID: "c1", Username: "alice", AuthMethod: "password", RemoteAddr: "10.0.0.5:50022", ConnectedAt: connectedAt, Sessions: 1},
	}, nil))
	ctx := context.Background()

	conns, err := client.ListConnections(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "alice", conns[0].Username)
	assert.Equal(t, 1, conns[0].Sessions)
	assert.True(t, connectedAt.Equal(conns[0].ConnectedAt))

	conn, err := client.GetConnection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:50022", conn.RemoteAddr)

	_, err = client.GetConnection(ctx, "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "Not Found", apiErr.Title)
}

func TestEmptyConnectionList(t *testing.T) {
	client := newTestClient(t, api.NewRouter(nil, nil))
	conns, err := client.ListConnections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestHealth(t *testing.T) {
	client := newTestClient(t, api.NewRouter(nil, nil))
	ctx := context.Background()

	live, err := client.Health(ctx)
	require.NoError(t, err)
	assert.True(t, live.Healthy())
	assert.Equal(t, "sftpbox", live.Data.Service)

	ready, err := client.Ready(ctx)
	require.NoError(t, err)
	assert.True(t, ready.Healthy())
	assert.Equal(t, "none", ready.Data.Database)
}

func TestReadyReportsUnavailableDatabase(t *testing.T) {
	client := newTestClient(t, api.NewRouter(nil, failingPinger{}))

	ready, err := client.Ready(context.Background())
	require.NoError(t, err)
	assert.False(t, ready.Healthy())
	assert.Contains(t, ready.Error, "database is locked")
}

func TestPlainTextErrors(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))

	_, err := client.Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Detail)
	assert.Equal(t, "Bad Gateway (502): upstream exploded", apiErr.Error())
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(addr).Health(context.Background())
	assert.Error(t, err)
}
