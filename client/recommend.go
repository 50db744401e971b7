package client

import (
	"context"
	"net/http"

	"github.com/voltgpu/volt/api"
)

// Recommend asks the advisor service for offers suited to a workload.
func (c *Client) Recommend(
	ctx context.Context,
	req api.RecommendationRequest,
) (*api.Recommendation, error) {
	resp, err := c.sendRequest(ctx, http.MethodPost, "/api/v1/recommendations", nil, req)
	if err != nil {
		return nil, err
	}
	defer safeClose(resp.Body)

	var rec api.Recommendation
	if err := parseResponse(resp, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
