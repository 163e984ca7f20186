// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/pdiddy/pubrecon/pkg/types"
)

// Client is a rate-limited HTTP client for one source. It is safe for
// concurrent use; all goroutines share the same token bucket.
type Client struct {
	HTTP       *http.Client
	Limiter    *rate.Limiter
	UserAgent  string
	MaxRetries int
}

// NewClient builds a Client from cfg. A non-positive RateLimit disables
// rate limiting. A zero Timeout falls back to types.DefaultTimeout.
func NewClient(cfg types.HTTPConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		Limiter:    rate.NewLimiter(limit, 1),
		UserAgent:  ua,
		MaxRetries: cfg.RateLimitRetries,
	}
}

// Do waits for the limiter, sets the User-Agent when the request has none,
// and sends req through DoWithRetry.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	if req.Header.Get("User-Agent") == "" && c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	return DoWithRetry(ctx, client, req, c.MaxRetries)
}
