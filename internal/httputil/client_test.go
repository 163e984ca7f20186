// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/pdiddy/pubrecon/pkg/types"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(types.HTTPConfig{})
	assert.Equal(t, types.DefaultTimeout, c.HTTP.Timeout)
	assert.Equal(t, types.DefaultUserAgent, c.UserAgent)
	assert.Equal(t, rate.Inf, c.Limiter.Limit())
	assert.Equal(t, 0, c.MaxRetries)

	c = NewClient(types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "ua/1", RateLimit: 2, RateLimitRetries: 3})
	assert.Equal(t, 5*time.Second, c.HTTP.Timeout)
	assert.Equal(t, "ua/1", c.UserAgent)
	assert.Equal(t, rate.Limit(2), c.Limiter.Limit())
	assert.Equal(t, 3, c.MaxRetries)
}

func TestClientDoSetsUserAgent(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewClient(types.HTTPConfig{UserAgent: "pubrecon-test"})
	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "pubrecon-test", got)

	req.Header.Set("User-Agent", "explicit")
	resp, err = c.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "explicit", got)
}

func TestClientDoRespectsCancelledLimiterWait(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewClient(types.HTTPConfig{RateLimit: 0.001})
	require.True(t, c.Limiter.Allow(), "drain the single burst token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)
	_, err = c.Do(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientDoWithoutRetriesReturnsFirst429(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewClient(types.HTTPConfig{RateLimitRetries: 0})
	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 1, calls)
}
