package apiclient

import (
	"context"
	"net/url"

	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
)

// ListConnections returns the authenticated SSH connections.
func (c *Client) ListConnections(ctx context.Context) ([]sftp.ConnectionInfo, error) {
	var conns []sftp.ConnectionInfo
	if err := c.get(ctx, "/api/v1/connections", &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// GetConnection returns one connection by id.
func (c *Client) GetConnection(ctx context.Context, id string) (*sftp.ConnectionInfo, error) {
	var conn sftp.ConnectionInfo
	if err := c.get(ctx, "/api/v1/connections/"+url.PathEscape(id), &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}
