// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orcid fetches a researcher's works and display name from the
// ORCID public API. The client obtains one client-credentials bearer token
// per run and reuses it for every request.
package orcid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/pdiddy/pubrecon/internal/fetch"
	"github.com/pdiddy/pubrecon/internal/httputil"
	"github.com/pdiddy/pubrecon/internal/normalize"
	"github.com/pdiddy/pubrecon/internal/payload"
	"github.com/pdiddy/pubrecon/pkg/types"
)

const (
	DefaultTokenURL   = "https://orcid.org/oauth/token"
	DefaultAPIBaseURL = "https://pub.orcid.org"

	apiVersion = "v3.0"
	readScope  = "/read-public"

	maxErrorBody = 64 << 10
)

// ErrMissingCredentials is returned when the client id or secret is empty.
var ErrMissingCredentials = errors.New("orcid client id and secret are required")

// Client implements fetch.Fetcher for the ORCID registry.
type Client struct {
	http         *httputil.Client
	tokenURL     string
	apiBaseURL   string
	clientID     string
	clientSecret string

	mu    sync.Mutex
	token string

	// tokenErr is a rejected exchange; later calls fail with it at once.
	tokenErr error
}

var _ fetch.Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http.HTTP = hc }
}

// WithToken seeds the bearer token so no exchange happens.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New builds a Client from cfg. Empty URLs fall back to the public ORCID
// endpoints.
func New(cfg types.RegistryConfig, opts ...Option) *Client {
	c := &Client{
		http:         httputil.NewClient(cfg.HTTPConfig),
		tokenURL:     cfg.TokenURL,
		apiBaseURL:   strings.TrimRight(cfg.APIBaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
	if c.tokenURL == "" {
		c.tokenURL = DefaultTokenURL
	}
	if c.apiBaseURL == "" {
		c.apiBaseURL = DefaultAPIBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source reports types.SourceRegistry.
func (c *Client) Source() types.Source { return types.SourceRegistry }

// Token returns the cached bearer token, exchanging the client credentials
// for one on first use. A rejected exchange is a fetch.KindAuth failure and
// is remembered, so concurrent and later callers fail without another
// exchange. Transient failures are retried on the next call.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	if c.tokenErr != nil {
		return "", c.tokenErr
	}
	token, err := c.exchange(ctx)
	if err != nil {
		if fetch.IsFatal(err) {
			c.tokenErr = err
		}
		return "", err
	}
	c.token = token
	return token, nil
}

// exchange performs the OAuth client-credentials grant.
func (c *Client) exchange(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", fetch.Fail(fetch.KindAuth, ErrMissingCredentials)
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {readScope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(ctx, req)
	if err != nil {
		var f *fetch.Failure
		if errors.As(err, &f) && f.Kind == fetch.KindUnexpected && f.StatusCode == http.StatusBadRequest {
			// ORCID answers 400 invalid_client for unknown credentials.
			f.Kind = fetch.KindAuth
		}
		return "", fmt.Errorf("orcid token exchange: %w", err)
	}

	token := body.String("access_token")
	if token == "" {
		return "", fmt.Errorf("orcid token exchange: %w", fetch.Fail(fetch.KindAuth, errors.New("response carries no access_token")))
	}
	return token, nil
}

// Fetch returns the researcher's display name and one raw work per
// element of the works "group" array.
func (c *Client) Fetch(ctx context.Context, id string) (fetch.Profile, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return fetch.Profile{}, err
	}

	works, err := c.get(ctx, token, id, "works")
	if err != nil {
		return fetch.Profile{}, fmt.Errorf("orcid works %s: %w", id, err)
	}
	person, err := c.get(ctx, token, id, "person")
	if err != nil {
		return fetch.Profile{}, fmt.Errorf("orcid person %s: %w", id, err)
	}

	group, _ := works.List("group")
	return fetch.Profile{
		Name:  normalize.ORCIDPersonName(person),
		Works: group,
	}, nil
}

func (c *Client) get(ctx context.Context, token, id, resource string) (payload.Value, error) {
	reqURL := fmt.Sprintf("%s/%s/%s/%s", c.apiBaseURL, apiVersion, url.PathEscape(id), resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return payload.Value{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(ctx, req)
}

// do sends req and decodes a JSON body. Non-2xx statuses become
// *fetch.Failure values carrying ORCID's user-facing message when present.
func (c *Client) do(ctx context.Context, req *http.Request) (payload.Value, error) {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return payload.Value{}, fetch.Wrap(err)
	}
	defer resp.Body.Close()

	if f := fetch.FromStatus(resp.StatusCode, ""); f != nil {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		f.Message = errorMessage(data)
		return payload.Value{}, f
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return payload.Value{}, fetch.Wrap(fmt.Errorf("reading response: %w", err))
	}
	v, err := payload.Decode(data)
	if err != nil {
		return payload.Value{}, fetch.Fail(fetch.KindUnexpected, err)
	}
	return v, nil
}

// errorMessage picks the most useful text out of an ORCID error body.
func errorMessage(data []byte) string {
	v, err := payload.Decode(data)
	if err != nil {
		return strings.TrimSpace(string(data))
	}
	for _, key := range []string{"user-message", "developer-message", "error_description", "error"} {
		if s := v.String(key); s != "" {
			return s
		}
	}
	return ""
}
