// Package probe resolves candidate names and performs the rate-limited
// HTTP/HTTPS probing stage of the pipeline.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/guard"
)

const (
	// DefaultDoHURL is the DNS-over-HTTPS endpoint queried by default.
	DefaultDoHURL = "https://cloudflare-dns.com/dns-query"

	dohTimeout  = 5 * time.Second
	dohMaxBody  = 64 * 1024
	dohMimeType = "application/dns-message"
)

// Resolver implements engine.Resolver. Queries go over DNS-over-HTTPS
// when DoHURL is set; on transport failure it degrades to the system
// resolver rather than dropping the candidate.
type Resolver struct {
	DoHURL string
	Client *http.Client
}

// Resolve queries A and CNAME records for name. Private and reserved
// addresses are filtered from the answer. NXDOMAIN is not an error: the
// returned result simply has no presence.
func (r *Resolver) Resolve(ctx context.Context, name string) (*engine.ResolutionResult, error) {
	res := &engine.ResolutionResult{}

	ips, cname, err := r.lookup(ctx, name)
	if err != nil {
		if isNoSuchHost(err) {
			return res, nil
		}
		return nil, err
	}

	res.IPs = guard.FilterPublic(ips)
	if cname != "" {
		cname = strings.TrimSuffix(strings.ToLower(cname), ".")
		if cname != strings.ToLower(name) {
			res.CNAME = cname
		}
	}
	return res, nil
}

func (r *Resolver) lookup(ctx context.Context, name string) (ips []string, cname string, err error) {
	if r.DoHURL != "" {
		ips, cname, err = r.lookupDoH(ctx, name)
		if err == nil {
			return ips, cname, nil
		}
		// DoH transport trouble degrades to the system resolver.
	}
	return r.lookupSystem(ctx, name)
}

// lookupDoH performs A and CNAME queries as binary DNS messages over
// HTTPS POST (RFC 8484).
func (r *Resolver) lookupDoH(ctx context.Context, name string) ([]string, string, error) {
	msg, err := r.dohQuery(ctx, name, dns.TypeA)
	if err != nil {
		return nil, "", err
	}

	var ips []string
	var cname string
	for _, rr := range msg.Answer {
		switch v := rr.(type) {
		case *dns.A:
			ips = append(ips, v.A.String())
		case *dns.CNAME:
			cname = v.Target
		}
	}

	// The A answer section usually carries the CNAME chain, but ask
	// explicitly when it did not.
	if cname == "" && len(ips) == 0 {
		if cmsg, cerr := r.dohQuery(ctx, name, dns.TypeCNAME); cerr == nil {
			for _, rr := range cmsg.Answer {
				if v, ok := rr.(*dns.CNAME); ok {
					cname = v.Target
					break
				}
			}
		}
	}

	return ips, cname, nil
}

func (r *Resolver) dohQuery(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	packed, err := m.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack query for %s: %w", name, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, dohTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.DoHURL, bytes.NewReader(packed))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", dohMimeType)
	req.Header.Set("Accept", dohMimeType)

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("doh resolver returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, dohMaxBody))
	if err != nil {
		return nil, err
	}

	reply := new(dns.Msg)
	if err := reply.Unpack(body); err != nil {
		return nil, fmt.Errorf("unpack doh response: %w", err)
	}
	return reply, nil
}

func (r *Resolver) lookupSystem(ctx context.Context, name string) ([]string, string, error) {
	var cname string
	if cn, err := net.DefaultResolver.LookupCNAME(ctx, name); err == nil {
		cname = cn
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, name)
	if err != nil {
		if isNoSuchHost(err) && cname != "" {
			// Dangling CNAME: the chain exists but its target does not
			// resolve. The candidate survives on the CNAME alone.
			return nil, cname, nil
		}
		return nil, cname, err
	}
	return addrs, cname, nil
}

func isNoSuchHost(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such host")
}
