package client

import (
	"context"
	"net/http"

	"github.com/voltgpu/volt/api"
)

// WhoAmI returns the user corresponding to the client's auth token.
func (c *Client) WhoAmI(ctx context.Context) (*api.User, error) {
	resp, err := c.sendRequest(ctx, http.MethodGet, "/api/v1/users/current", nil, nil)
	if err != nil {
		return nil, err
	}
	defer safeClose(resp.Body)

	var user api.User
	if err := parseResponse(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
