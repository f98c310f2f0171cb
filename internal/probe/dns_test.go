package probe

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/miekg/dns"
)

// dohServer answers RFC 8484 POST queries from a static record map.
func dohServer(t *testing.T, a map[string][]string, cname map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read query: %v", err)
			return
		}
		query := new(dns.Msg)
		if err := query.Unpack(body); err != nil {
			t.Errorf("unpack query: %v", err)
			return
		}

		reply := new(dns.Msg)
		reply.SetReply(query)
		q := query.Question[0]

		if target, ok := cname[q.Name]; ok {
			reply.Answer = append(reply.Answer, &dns.CNAME{
				Hdr:    dns.RR_Header{Name: q.Name, Rrtype: dns.TypeCNAME, Class: dns.ClassINET, Ttl: 300},
				Target: target,
			})
		}
		if q.Qtype == dns.TypeA {
			for _, ip := range a[q.Name] {
				reply.Answer = append(reply.Answer, &dns.A{
					Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 300},
					A:   net.ParseIP(ip),
				})
			}
		}

		packed, err := reply.Pack()
		if err != nil {
			t.Errorf("pack reply: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/dns-message")
		w.Write(packed)
	}))
}

func TestResolveFiltersPrivateIPs(t *testing.T) {
	srv := dohServer(t,
		map[string][]string{"www.example.com.": {"93.184.216.34", "10.0.0.5", "192.168.1.1"}},
		nil,
	)
	defer srv.Close()

	r := &Resolver{DoHURL: srv.URL, Client: srv.Client()}
	res, err := r.Resolve(context.Background(), "www.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.IPs) != 1 || res.IPs[0] != "93.184.216.34" {
		t.Errorf("ips = %v, want only the public address", res.IPs)
	}
	if !res.Exists() {
		t.Error("result should have presence")
	}
}

func TestResolveCNAME(t *testing.T) {
	srv := dohServer(t,
		nil,
		map[string]string{"app.example.com.": "MyApp.HerokuApp.com."},
	)
	defer srv.Close()

	r := &Resolver{DoHURL: srv.URL, Client: srv.Client()}
	res, err := r.Resolve(context.Background(), "app.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CNAME != "myapp.herokuapp.com" {
		t.Errorf("cname = %q, want lowercased without trailing dot", res.CNAME)
	}
	if !res.Exists() {
		t.Error("a pure CNAME still counts as presence")
	}
}

func TestResolveSelfCNAMEDropped(t *testing.T) {
	srv := dohServer(t,
		map[string][]string{"www.example.com.": {"93.184.216.34"}},
		map[string]string{"www.example.com.": "www.example.com."},
	)
	defer srv.Close()

	r := &Resolver{DoHURL: srv.URL, Client: srv.Client()}
	res, err := r.Resolve(context.Background(), "www.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CNAME != "" {
		t.Errorf("self-referential cname retained: %q", res.CNAME)
	}
}

func TestResolveNoPresence(t *testing.T) {
	srv := dohServer(t, nil, nil)
	defer srv.Close()

	r := &Resolver{DoHURL: srv.URL, Client: srv.Client()}
	res, err := r.Resolve(context.Background(), "ghost.example.com")
	if err != nil {
		t.Fatalf("no presence must not be an error: %v", err)
	}
	if res.Exists() {
		t.Errorf("result should be empty: %+v", res)
	}
}

func TestResolveOnlyPrivateIPsNoPresence(t *testing.T) {
	srv := dohServer(t,
		map[string][]string{"intra.example.com.": {"10.1.2.3", "172.16.0.9"}},
		nil,
	)
	defer srv.Close()

	r := &Resolver{DoHURL: srv.URL, Client: srv.Client()}
	res, err := r.Resolve(context.Background(), "intra.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Exists() {
		t.Errorf("private-only answers must leave no presence: %+v", res)
	}
}
