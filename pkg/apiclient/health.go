package apiclient

import (
	"context"

	"github.com/marmos91/sftpbox/internal/cli/health"
)

// Health calls the liveness probe.
func (c *Client) Health(ctx context.Context) (*health.Response, error) {
	var resp health.Response
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ready calls the readiness probe. A 503 is not an error: the decoded
// response reports the failure.
func (c *Client) Ready(ctx context.Context) (*health.Response, error) {
	status, body, err := c.fetch(ctx, "/health/ready")
	if err != nil {
		return nil, err
	}
	var resp health.Response
	if err := decode(body, &resp); err != nil {
		if status >= 400 {
			return nil, newAPIError(status, body)
		}
		return nil, err
	}
	return &resp, nil
}
