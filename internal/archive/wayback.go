// Package archive annotates active subdomains with historical URLs
// from the Wayback Machine CDX API. Strictly best-effort: every failure
// degrades to an empty annotation.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCDXURL  = "https://web.archive.org/cdx/search/cdx"
	waybackTimeout = 15 * time.Second
	waybackMaxBody = 4 * 1024 * 1024

	// maxURLsPerHost caps how many historical URLs one record keeps.
	maxURLsPerHost = 20
)

// Client queries the CDX API under a shared rate limit; the archive is
// a public service and a scan may annotate hundreds of hosts.
type Client struct {
	UserAgent string
	BaseURL   string // override for tests
	HTTP      *http.Client
	limiter   *rate.Limiter
}

// NewClient builds a wayback client throttled to one request per second.
func NewClient(userAgent string) *Client {
	return &Client{
		UserAgent: userAgent,
		HTTP:      &http.Client{Timeout: waybackTimeout},
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Annotate returns up to maxURLsPerHost archived URLs for the host.
// Any failure returns nil; nothing here is allowed to slow the scan
// beyond its own timeout or surface an error. When the shared limiter
// has no token, the annotation is skipped rather than queued so pool
// workers never stall behind each other on archive lookups.
func (c *Client) Annotate(ctx context.Context, name string) []string {
	if c.limiter != nil && !c.limiter.Allow() {
		return nil
	}

	base := c.BaseURL
	if base == "" {
		base = defaultCDXURL
	}
	q := url.Values{}
	q.Set("url", name+"/*")
	q.Set("output", "json")
	q.Set("fl", "original")
	q.Set("collapse", "urlkey")
	q.Set("limit", fmt.Sprintf("%d", maxURLsPerHost))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.UserAgent)

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, waybackMaxBody))
	if err != nil {
		return nil
	}

	// CDX JSON output is a row-oriented array; the first row is the
	// field header.
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var urls []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		u := row[0]
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
		if len(urls) >= maxURLsPerHost {
			break
		}
	}
	return urls
}
