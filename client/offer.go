package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/voltgpu/volt/api"
)

// SearchOffers queries the marketplace for rentable offers matching the
// filters. Results are ranked by the server, cheapest first.
func (c *Client) SearchOffers(ctx context.Context, query api.OfferQuery) ([]api.Offer, error) {
	params := map[string]string{}
	if query.GPUName != "" {
		params["gpu_name"] = query.GPUName
	}
	if query.Region != "" {
		params["region"] = query.Region
	}
	if query.MaxDPH > 0 {
		params["max_dph"] = strconv.FormatFloat(query.MaxDPH, 'f', -1, 64)
	}
	if query.MinGPURAM > 0 {
		params["min_gpu_ram"] = strconv.FormatInt(query.MinGPURAM, 10)
	}
	if query.NumGPUs > 0 {
		params["num_gpus"] = strconv.Itoa(query.NumGPUs)
	}
	if query.Limit > 0 {
		params["limit"] = strconv.Itoa(query.Limit)
	}

	resp, err := c.sendRequest(ctx, http.MethodGet, instancesPath+"/offers", params, nil)
	if err != nil {
		return nil, err
	}
	defer safeClose(resp.Body)

	var page api.OfferPage
	if err := parseResponse(resp, &page); err != nil {
		return nil, err
	}
	return page.Offers, nil
}
