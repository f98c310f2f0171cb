package guard

import (
	"net"
	"testing"
)

func TestValidate_AcceptsPublicDomains(t *testing.T) {
	valid := []string{
		"example.com",
		"sub.example.co.uk",
		"a-b.example.org",
		"xn--espaol-zwa.example.net",
		"EXAMPLE.COM",
		"  example.com  ",
	}
	for _, d := range valid {
		if err := Validate(d); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", d, err)
		}
	}
}

func TestValidate_RejectsForbiddenTargets(t *testing.T) {
	tests := []struct {
		name   string
		domain string
	}{
		{"ipv4 literal", "192.168.1.1"},
		{"ipv6 literal", "::1"},
		{"colon in input", "example.com:8080"},
		{"reserved tld local", "server.local"},
		{"reserved tld internal", "db.internal"},
		{"reserved tld corp", "files.corp"},
		{"metadata ip", "169.254.169.254"},
		{"metadata ip embedded", "169.254.169.254.attacker.com"},
		{"metadata hostname", "metadata.google.internal"},
		{"leading hyphen", "-bad.com"},
		{"trailing hyphen", "bad-.com"},
		{"single label", "localhost"},
		{"empty", ""},
		{"numeric tld", "example.123"},
		{"one char tld", "example.c"},
		{"underscore", "bad_label.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.domain)
			if err == nil {
				t.Fatalf("Validate(%q) = nil, want rejection", tt.domain)
			}
			if err.Error() == "" {
				t.Error("rejection reason is empty")
			}
		})
	}
}

func TestValidate_RejectsOverlongDomain(t *testing.T) {
	long := ""
	for len(long) < 260 {
		long += "abcdefgh."
	}
	long += "com"
	if err := Validate(long); err == nil {
		t.Error("expected rejection for domain over 253 chars")
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{
		"10.0.0.1", "10.255.255.255",
		"172.16.0.1", "172.31.255.1",
		"192.168.0.1", "192.168.255.255",
		"127.0.0.1", "127.255.0.1",
		"169.254.169.254",
		"0.0.0.0",
		"224.0.0.1",
		"240.0.0.1",
		"::1",
		"fe80::1",
	}
	for _, s := range private {
		if !IsPrivateIP(net.ParseIP(s)) {
			t.Errorf("IsPrivateIP(%s) = false, want true", s)
		}
	}

	public := []string{"8.8.8.8", "1.1.1.1", "93.184.216.34", "172.32.0.1", "2606:4700::1111"}
	for _, s := range public {
		if IsPrivateIP(net.ParseIP(s)) {
			t.Errorf("IsPrivateIP(%s) = true, want false", s)
		}
	}
}

func TestFilterPublic(t *testing.T) {
	got := FilterPublic([]string{"8.8.8.8", "10.0.0.5", "garbage", "1.1.1.1", "192.168.1.1"})
	want := []string{"8.8.8.8", "1.1.1.1"}
	if len(got) != len(want) {
		t.Fatalf("FilterPublic = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FilterPublic[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
