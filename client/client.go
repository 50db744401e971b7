package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goware/urlx"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/voltgpu/volt/api"
)

// We encode the version as a manually-assigned constant for now. This must be
// updated with each material change to how a client makes requests, and is
// assumed to be monotonically increasing.
const version = "v20260828"

const versionHeader = "Volt-Version"

// Client is a marketplace HTTP client bound to a single user token.
type Client struct {
	baseURL url.URL
	token   string

	// Idempotent reads retry transient failures; mutating calls must not,
	// since a blindly retried create would double-provision a machine.
	readClient  *http.Client
	writeClient *http.Client
}

// NewClient creates a new marketplace client. The token is passed explicitly
// so nothing in the client reaches into ambient state for credentials.
func NewClient(address string, token string) (*Client, error) {
	u, err := urlx.ParseWithDefaultScheme(address, "https")
	if err != nil {
		return nil, err
	}

	if u.Path != "" || u.Opaque != "" || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return nil, errors.New("address must be base server address in the form [scheme://]host[:port]")
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.HTTPClient.Timeout = 30 * time.Second
	retry.Logger = nil

	return &Client{
		baseURL:     *u,
		token:       token,
		readClient:  retry.StandardClient(),
		writeClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Address returns a client's host and port.
func (c *Client) Address() string {
	return c.baseURL.String()
}

func (c *Client) sendRequest(
	ctx context.Context,
	method string,
	path string,
	query map[string]string,
	body interface{},
) (*http.Response, error) {
	b := new(bytes.Buffer)
	if body != nil {
		if err := json.NewEncoder(b).Encode(body); err != nil {
			return nil, err
		}
	}

	var q url.Values
	if len(query) != 0 {
		q = url.Values{}
		for k, v := range query {
			q.Add(k, v)
		}
	}

	u := url.URL{Scheme: c.baseURL.Scheme, Host: c.baseURL.Host, Path: path, RawQuery: q.Encode()}
	req, err := http.NewRequest(method, u.String(), b)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(versionHeader, version)
	if len(c.token) > 0 {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpClient := c.writeClient
	if method == http.MethodGet {
		httpClient = c.readClient
	}

	resp, err := httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, api.Error{Kind: api.KindNetwork, Message: err.Error()}
	}
	return resp, nil
}

// errorFromResponse creates an error from an HTTP response, or nil on success.
func errorFromResponse(resp *http.Response) error {
	// Anything less than 400 isn't an error, so don't produce one.
	if resp.StatusCode < 400 {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Errorf("failed to read response: %v", err)
	}

	var apiErr api.Error
	if err := json.Unmarshal(body, &apiErr); err != nil {
		// Not all upstream failures arrive as structured errors.
		return api.Error{Code: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
	}
	if apiErr.Code == 0 {
		apiErr.Code = resp.StatusCode
	}
	return apiErr
}

// parseResponse parses the response body and stores the result in the given
// value. The value parameter should be a pointer to the desired structure.
func parseResponse(resp *http.Response, value interface{}) error {
	if err := errorFromResponse(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, value)
}

// safeClose closes an object while safely handling nils.
func safeClose(closer io.Closer) {
	if closer == nil {
		return
	}
	_ = closer.Close()
}
