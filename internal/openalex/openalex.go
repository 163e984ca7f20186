// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package openalex fetches an author's works from the OpenAlex API. It is an
// alternative aggregator backend to Google Scholar: the aggregator id in the
// roster is an OpenAlex author id (A123…) or its URL.
package openalex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/pubrecon/internal/fetch"
	"github.com/pdiddy/pubrecon/internal/httputil"
	"github.com/pdiddy/pubrecon/internal/payload"
	"github.com/pdiddy/pubrecon/pkg/types"
)

const (
	DefaultBaseURL = "https://api.openalex.org"

	// PerPage is the largest page the works endpoint serves.
	PerPage = 200

	defaultMaxPages = 10

	authorURLPrefix = "https://openalex.org/"
)

// Client implements fetch.Fetcher for OpenAlex.
type Client struct {
	http     *httputil.Client
	baseURL  string
	email    string
	maxPages int
}

var _ fetch.Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http.HTTP = hc }
}

// New builds a Client from cfg.
func New(cfg types.AggregatorConfig, opts ...Option) *Client {
	c := &Client{
		http:     httputil.NewClient(cfg.HTTPConfig),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		email:    cfg.Email,
		maxPages: cfg.MaxPages,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.maxPages <= 0 {
		c.maxPages = defaultMaxPages
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source reports types.SourceAggregator.
func (c *Client) Source() types.Source { return types.SourceAggregator }

// AuthorKey strips the https://openalex.org/ prefix from an author id.
func AuthorKey(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), authorURLPrefix)
}

// Fetch returns the author's display name and all works, following
// meta.next_cursor until it runs out or the page limit is reached.
func (c *Client) Fetch(ctx context.Context, id string) (fetch.Profile, error) {
	key := AuthorKey(id)

	author, err := c.get(ctx, "/authors/"+url.PathEscape(key), nil)
	if err != nil {
		return fetch.Profile{}, fmt.Errorf("openalex author %s: %w", key, err)
	}
	profile := fetch.Profile{Name: strings.TrimSpace(author.String("display_name"))}

	cursor := "*"
	for page := 0; page < c.maxPages && cursor != ""; page++ {
		params := url.Values{
			"filter":   {"author.id:" + key},
			"per-page": {strconv.Itoa(PerPage)},
			"cursor":   {cursor},
		}
		body, err := c.get(ctx, "/works", params)
		if err != nil {
			return fetch.Profile{}, fmt.Errorf("openalex works %s: %w", key, err)
		}
		results, _ := body.List("results")
		profile.Works = append(profile.Works, results...)
		if len(results) == 0 {
			break
		}
		cursor = body.String("meta", "next_cursor")
	}
	return profile, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (payload.Value, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.email != "" {
		params.Set("mailto", c.email)
	}
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return payload.Value{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return payload.Value{}, fetch.Wrap(err)
	}
	defer resp.Body.Close()

	if f := fetch.FromStatus(resp.StatusCode, ""); f != nil {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if v, err := payload.Decode(data); err == nil {
			f.Message = v.String("message")
		}
		return payload.Value{}, f
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return payload.Value{}, fetch.Wrap(fmt.Errorf("reading response: %w", err))
	}
	v, err := payload.Decode(data)
	if err != nil {
		return payload.Value{}, fetch.Fail(fetch.KindUnexpected, fmt.Errorf("parsing OpenAlex response: %w", err))
	}
	return v, nil
}
