package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
)

const (
	// DefaultTimeout bounds each individual probe attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultHostInterval spaces probes of the same host.
	DefaultHostInterval = 100 * time.Millisecond

	// DefaultBodyLimit caps the retained response body; takeover
	// signatures appear well within the first 10,000 bytes.
	DefaultBodyLimit = 10000
)

// Prober implements engine.Prober: HTTPS first, HTTP only if HTTPS
// fails at the connection level. Each attempt carries its own hard
// timeout and degrades to no data rather than erroring.
type Prober struct {
	UserAgent    string
	Timeout      time.Duration
	BodyLimit    int
	Limiter      *HostLimiter
	SchemeHostFn func(scheme, name string) string // test hook

	client *http.Client
}

// NewProber builds a prober with the given per-attempt timeout, body
// cap and per-host limiter. Certificates are not verified: dangling and
// misconfigured hosts are exactly what the pipeline needs to see.
func NewProber(userAgent string, timeout time.Duration, bodyLimit int, limiter *HostLimiter) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}
	return &Prober{
		UserAgent: userAgent,
		Timeout:   timeout,
		BodyLimit: bodyLimit,
		Limiter:   limiter,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// Probe fetches https://name, falling back to http://name only when the
// HTTPS attempt fails entirely (a non-2xx status is still a response).
func (p *Prober) Probe(ctx context.Context, name string) *engine.ProbeResult {
	result := &engine.ProbeResult{}

	httpsResp, ok := p.attempt(ctx, "https", name, result)
	if ok {
		result.HTTPSStatus = httpsResp
		return result
	}

	httpResp, ok := p.attempt(ctx, "http", name, result)
	if ok {
		result.HTTPStatus = httpResp
	}
	return result
}

// attempt performs one rate-limited, timeout-bounded GET. It fills the
// raw header/cookie/body fields of result on success and reports the
// status code. A false return means connection-level failure.
func (p *Prober) attempt(ctx context.Context, scheme, name string, result *engine.ProbeResult) (int, bool) {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx, name); err != nil {
			return 0, false
		}
	}

	url := scheme + "://" + name
	if p.SchemeHostFn != nil {
		url = p.SchemeHostFn(scheme, name)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, false
	}
	req.Header.Set("User-Agent", p.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		// Timeout or connect failure: no data for this protocol.
		return 0, false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, int64(p.BodyLimit)))

	result.Server = resp.Header.Get("Server")
	result.BodySample = string(body)

	headers := make(map[string]string, len(resp.Header))
	for name, vals := range resp.Header {
		if len(vals) > 0 {
			headers[strings.ToLower(name)] = vals[0]
		}
	}
	result.Headers = headers

	for _, c := range resp.Cookies() {
		result.Cookies = append(result.Cookies, c.Name)
	}

	return resp.StatusCode, true
}
