// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scholar fetches a researcher's publication list from a Google
// Scholar profile page. Each table row becomes a raw work tree shaped like
// {bib: {title, author, journal, pub_year}, author_pub_id, pub_url} so the
// normalizer's ScholarSchema can read it.
package scholar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/pubrecon/internal/fetch"
	"github.com/pdiddy/pubrecon/internal/httputil"
	"github.com/pdiddy/pubrecon/internal/payload"
	"github.com/pdiddy/pubrecon/pkg/types"
)

const (
	DefaultBaseURL = "https://scholar.google.com"

	// PageSize is the largest page the profile view serves.
	PageSize = 100

	defaultMaxPages = 10
)

// ErrBlocked is wrapped into a RateLimited failure when Scholar answers
// with a captcha or "unusual traffic" page instead of the profile.
var ErrBlocked = errors.New("google scholar served a captcha page")

// ErrUnrecognizedPage is wrapped into an Unexpected failure when the page
// has neither a profile header nor a captcha marker.
var ErrUnrecognizedPage = errors.New("page is not a google scholar profile")

// Client implements fetch.Fetcher for Google Scholar profiles.
type Client struct {
	http     *httputil.Client
	baseURL  string
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

// Fetch pages through the profile until a short page or the page limit.
func (c *Client) Fetch(ctx context.Context, id string) (fetch.Profile, error) {
	var profile fetch.Profile
	for page := 0; page < c.maxPages; page++ {
		p, err := c.fetchPage(ctx, id, page*PageSize)
		if err != nil {
			return fetch.Profile{}, fmt.Errorf("scholar profile %s: %w", id, err)
		}
		if page == 0 {
			profile.Name = p.name
		}
		profile.Works = append(profile.Works, p.works...)
		if len(p.works) < PageSize {
			break
		}
	}
	return profile, nil
}

type page struct {
	name  string
	works []payload.Value
}

func (c *Client) fetchPage(ctx context.Context, id string, start int) (page, error) {
	params := url.Values{
		"user":     {id},
		"hl":       {"en"},
		"cstart":   {strconv.Itoa(start)},
		"pagesize": {strconv.Itoa(PageSize)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/citations?"+params.Encode(), nil)
	if err != nil {
		return page{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return page{}, fetch.Wrap(err)
	}
	defer resp.Body.Close()

	if f := fetch.FromStatus(resp.StatusCode, ""); f != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return page{}, f
	}
	if strings.Contains(resp.Request.URL.Path, "/sorry/") {
		return page{}, fetch.Fail(fetch.KindRateLimited, ErrBlocked)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return page{}, fetch.Fail(fetch.KindUnexpected, fmt.Errorf("parsing profile page: %w", err))
	}
	return c.parsePage(doc)
}

func (c *Client) parsePage(doc *goquery.Document) (page, error) {
	if doc.Find("#gs_captcha_ccl, #gs_captcha_f, form#captcha-form").Length() > 0 {
		return page{}, fetch.Fail(fetch.KindRateLimited, ErrBlocked)
	}
	header := doc.Find("#gsc_prf_in")
	if header.Length() == 0 {
		return page{}, fetch.Fail(fetch.KindUnexpected, ErrUnrecognizedPage)
	}

	p := page{name: strings.TrimSpace(header.First().Text())}
	doc.Find("tr.gsc_a_tr").Each(func(_ int, row *goquery.Selection) {
		p.works = append(p.works, c.parseRow(row))
	})
	return p, nil
}

// parseRow turns one publication row into a raw work tree. Missing cells
// leave the corresponding keys out so the normalizer applies its defaults.
func (c *Client) parseRow(row *goquery.Selection) payload.Value {
	bib := map[string]any{}
	work := map[string]any{"bib": bib}

	link := row.Find("a.gsc_a_at").First()
	if title := strings.TrimSpace(link.Text()); title != "" {
		bib["title"] = title
	}
	if href, ok := link.Attr("href"); ok && href != "" {
		work["pub_url"] = c.absolute(href)
		if u, err := url.Parse(href); err == nil {
			if pubID := u.Query().Get("citation_for_view"); pubID != "" {
				work["author_pub_id"] = pubID
			}
		}
	}

	gray := row.Find("td.gsc_a_t div.gs_gray")
	if authors := strings.TrimSpace(gray.Eq(0).Text()); authors != "" {
		bib["author"] = authors
	}
	venue := gray.Eq(1).Clone()
	venue.Find(".gs_oph").Remove()
	if journal := strings.TrimSpace(venue.Text()); journal != "" {
		bib["journal"] = journal
	}

	if year := strings.TrimSpace(row.Find("td.gsc_a_y span").First().Text()); year != "" {
		bib["pub_year"] = year
	}
	return payload.Of(work)
}

func (c *Client) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return c.baseURL + "/" + strings.TrimLeft(href, "/")
}
