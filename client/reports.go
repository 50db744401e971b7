package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/voltgpu/volt/api"
)

// SpendSummary retrieves the user's spend report. The period is expressed in
// days of history; zero asks for the server default (30 days).
func (c *Client) SpendSummary(ctx context.Context, days int) (*api.SpendSummary, error) {
	var query map[string]string
	if days > 0 {
		query = map[string]string{"days": strconv.Itoa(days)}
	}

	resp, err := c.sendRequest(ctx, http.MethodGet, "/api/v1/reports/spend", query, nil)
	if err != nil {
		return nil, err
	}
	defer safeClose(resp.Body)

	var summary api.SpendSummary
	if err := parseResponse(resp, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
