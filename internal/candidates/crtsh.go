package candidates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	crtshBaseURL    = "https://crt.sh/?q=%%25.%s&output=json"
	crtshTimeout    = 30 * time.Second
	crtshMaxBody    = 50 * 1024 * 1024 // 50MB
	crtshRetryDelay = 3 * time.Second
)

// crt.sh is a shared public service; one query every few seconds is
// plenty for a pipeline that hits it once per scan.
var crtshLimiter = rate.NewLimiter(rate.Every(2*time.Second), 1)

type crtshEntry struct {
	NameValue string `json:"name_value"`
}

// CTClient queries a Certificate Transparency aggregator for every name
// certified under a domain.
type CTClient struct {
	UserAgent string
	BaseURL   string // override for tests; crt.sh format string otherwise
	Client    *http.Client
}

// Lookup returns the subdomains found in certificate SANs for the
// domain: lowercased, deduplicated, wildcards and the apex discarded.
// Failures are returned so the caller can degrade to an empty
// contribution; they never abort a scan.
func (c *CTClient) Lookup(ctx context.Context, domain string) ([]string, error) {
	base := c.BaseURL
	if base == "" {
		base = crtshBaseURL
	}
	url := fmt.Sprintf(base, domain)

	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("ct lookup for %s: %w", domain, err)
	}

	var entries []crtshEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("ct JSON parse for %s: %w", domain, err)
	}

	seen := make(map[string]bool)
	var hosts []string
	suffix := "." + strings.ToLower(domain)

	for _, entry := range entries {
		// name_value can contain multiple SANs separated by newlines.
		for _, name := range strings.Split(entry.NameValue, "\n") {
			name = strings.TrimSpace(strings.ToLower(name))
			if name == "" || strings.Contains(name, "*") {
				continue
			}
			// Keep strict subdomains only; the apex is not a candidate.
			if !strings.HasSuffix(name, suffix) {
				continue
			}
			if !seen[name] {
				seen[name] = true
				hosts = append(hosts, name)
			}
		}
	}

	return hosts, nil
}

func (c *CTClient) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := crtshLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.doRequest(ctx, url)
	if err == nil {
		return body, nil
	}

	// Rate limiting will not clear in one retry delay.
	if strings.Contains(err.Error(), "429") {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(crtshRetryDelay):
	}

	return c.doRequest(ctx, url)
}

func (c *CTClient) doRequest(ctx context.Context, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, crtshTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("ct aggregator rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ct aggregator returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, crtshMaxBody))
	if err != nil {
		return nil, fmt.Errorf("ct read body: %w", err)
	}

	return body, nil
}
