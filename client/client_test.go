package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltgpu/volt/api"
)

func TestParseClientAddress(t *testing.T) {
	cases := map[string]struct {
		address   string
		expected  string
		expectErr bool
	}{
		"Localhost": {
			address:  "localhost",
			expected: "https://localhost",
		},
		"IPv4": {
			address:  "127.0.0.1",
			expected: "https://127.0.0.1",
		},
		"IPv6": {
			address:  "[::1]",
			expected: "https://[::1]",
		},
		"Host": {
			address:  "example.com",
			expected: "https://example.com",
		},
		"HostAndPort": {
			address:  "example.com:80",
			expected: "https://example.com:80",
		},
		"SchemeHostAndPort": {
			address:  "http://example.com:443",
			expected: "http://example.com:443",
		},
		"BadIPv6": {
			address:   "::1",
			expectErr: true,
		},
		"Subpath": {
			address:   "https://example.com:443/path",
			expectErr: true,
		},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			client, err := NewClient(c.address, "")
			if c.expectErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, c.expected, client.Address())
			}
		})
	}
}

func TestListInstancesDecodesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/instances", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"instances":[
			{"id":"i-1","status":"running","actual_status":"loading","gpu_name":"RTX 4090"},
			{"id":"i-2","status":"running","actual_status":"running","ssh_host":"gpu.example.com","ssh_port":2222}
		]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	instances, err := c.ListInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, api.StatusLoading, instances[0].ActualStatus)
	assert.Equal(t, "gpu.example.com", instances[1].SSHHost)
	assert.Equal(t, 2222, instances[1].SSHPort)
}

func TestCreateInstanceReturnsHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"i-42"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	handle, err := c.CreateInstance(context.Background(), api.CreateInstanceSpec{
		OfferID:  "o-1",
		DiskSize: 32,
	})
	require.NoError(t, err)
	assert.Equal(t, "i-42", handle.ID())
}

func TestErrorResponseDecodesKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"message":"account balance too low"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	_, err = c.CreateInstance(context.Background(), api.CreateInstanceSpec{OfferID: "o-1"})
	require.Error(t, err)

	apiErr, ok := err.(api.Error)
	require.True(t, ok, "expected api.Error, got %T", err)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.Code)
	assert.Equal(t, api.KindInsufficientBalance, apiErr.ResolveKind())
}

func TestSearchOffersSendsFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/instances/offers", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "RTX 4090", q.Get("gpu_name"))
		assert.Equal(t, "1.25", q.Get("max_dph"))
		assert.Equal(t, "2", q.Get("num_gpus"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"offers":[{"id":"o-1","gpu_name":"RTX 4090","dph_total":0.8,"rentable":true}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	offers, err := c.SearchOffers(context.Background(), api.OfferQuery{
		GPUName: "RTX 4090",
		MaxDPH:  1.25,
		NumGPUs: 2,
	})
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "o-1", offers[0].ID)
}
