package client

import (
	"context"
	"net/http"
	"path"

	"github.com/pkg/errors"

	"github.com/voltgpu/volt/api"
)

const instancesPath = "/api/v1/instances"

// InstanceHandle provides operations on a provisioned instance.
type InstanceHandle struct {
	client *Client
	id     string
}

// CreateInstance provisions a new instance from an offer. The returned
// handle refers to the instance for the rest of its lifetime.
func (c *Client) CreateInstance(
	ctx context.Context,
	spec api.CreateInstanceSpec,
) (*InstanceHandle, error) {
	resp, err := c.sendRequest(ctx, http.MethodPost, instancesPath, nil, spec)
	if err != nil {
		return nil, err
	}
	defer safeClose(resp.Body)

	var result api.CreateInstanceResult
	if err := parseResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, errors.New("server returned no instance id")
	}

	return &InstanceHandle{client: c, id: result.ID}, nil
}

// ListInstances retrieves all of the user's instances.
func (c *Client) ListInstances(ctx context.Context) ([]api.Instance, error) {
	resp, err := c.sendRequest(ctx, http.MethodGet, instancesPath, nil, nil)
	if err != nil {
		return nil, err
	}
	defer safeClose(resp.Body)

	var page api.InstancePage
	if err := parseResponse(resp, &page); err != nil {
		return nil, err
	}
	return page.Instances, nil
}

// Instance gets a handle for an instance by ID without validating it.
func (c *Client) Instance(id string) *InstanceHandle {
	return &InstanceHandle{client: c, id: id}
}

// ID returns an instance's stable, unique ID.
func (h *InstanceHandle) ID() string {
	return h.id
}

// Get retrieves an instance's details.
func (h *InstanceHandle) Get(ctx context.Context) (*api.Instance, error) {
	p := path.Join(instancesPath, h.id)
	resp, err := h.client.sendRequest(ctx, http.MethodGet, p, nil, nil)
	if err != nil {
		return nil, err
	}
	defer safeClose(resp.Body)

	var instance api.Instance
	if err := parseResponse(resp, &instance); err != nil {
		return nil, err
	}
	return &instance, nil
}

// Delete destroys an instance. Billing stops once the server accepts the
// deletion.
func (h *InstanceHandle) Delete(ctx context.Context) error {
	p := path.Join(instancesPath, h.id)
	resp, err := h.client.sendRequest(ctx, http.MethodDelete, p, nil, nil)
	if err != nil {
		return err
	}
	defer safeClose(resp.Body)
	return errorFromResponse(resp)
}

// DeleteInstance destroys an instance by ID.
func (c *Client) DeleteInstance(ctx context.Context, id string) error {
	return c.Instance(id).Delete(ctx)
}
