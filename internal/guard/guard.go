// Package guard validates scan targets and filters private address
// space so the prober can never be steered at internal infrastructure.
package guard

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrIPLiteral   = errors.New("target must be a domain name, not an IP address")
	ErrMetadata    = errors.New("target references a cloud metadata service")
	ErrReservedTLD = errors.New("target ends with a reserved or internal TLD")
	ErrBadLabel    = errors.New("target is not a valid domain name")
	ErrTooLong     = errors.New("target exceeds the maximum domain length")
)

// metadataHosts are hostnames and addresses of cloud metadata services.
// A target containing any of them is rejected outright.
var metadataHosts = []string{
	"169.254.169.254",
	"metadata.google.internal",
	"metadata.goog",
	"instance-data",
}

// reservedTLDs never resolve on the public internet; a target under one
// of them is an attempt to scan internal names.
var reservedTLDs = []string{
	".local",
	".internal",
	".localhost",
	".lan",
	".home",
	".corp",
	".private",
}

const maxDomainLength = 253

// Guard implements the engine Validator.
type Guard struct{}

// Validate rejects targets that are IP literals, reference metadata
// services, sit under reserved TLDs, or fail the RFC-1035 label grammar.
func (Guard) Validate(domain string) error { return Validate(domain) }

// Validate checks a target domain before any resolution happens.
func Validate(domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return fmt.Errorf("%w: empty input", ErrBadLabel)
	}
	if len(domain) > maxDomainLength {
		return fmt.Errorf("%w: %d characters", ErrTooLong, len(domain))
	}

	// IPv4 literal, or anything with a colon (IPv6, ports).
	if strings.Contains(domain, ":") {
		return ErrIPLiteral
	}
	if ip := net.ParseIP(domain); ip != nil {
		return ErrIPLiteral
	}

	for _, h := range metadataHosts {
		if strings.Contains(domain, h) {
			return fmt.Errorf("%w: %s", ErrMetadata, h)
		}
	}

	for _, tld := range reservedTLDs {
		if strings.HasSuffix(domain, tld) {
			return fmt.Errorf("%w: %s", ErrReservedTLD, tld)
		}
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return fmt.Errorf("%w: need at least two labels", ErrBadLabel)
	}
	for _, label := range labels {
		if err := checkLabel(label); err != nil {
			return err
		}
	}

	// The final label must be a plausible TLD: alphabetic, length >= 2.
	tld := labels[len(labels)-1]
	if len(tld) < 2 || !alphabetic(tld) {
		return fmt.Errorf("%w: invalid TLD %q", ErrBadLabel, tld)
	}

	return nil
}

func checkLabel(label string) error {
	if len(label) == 0 || len(label) > 63 {
		return fmt.Errorf("%w: label %q", ErrBadLabel, label)
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return fmt.Errorf("%w: label %q has a leading or trailing hyphen", ErrBadLabel, label)
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return fmt.Errorf("%w: label %q contains %q", ErrBadLabel, label, string(c))
		}
	}
	return nil
}

func alphabetic(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// privateNets are the address ranges stripped from resolution results.
// DNS answers may legitimately mix public and private records, so a
// private IP is filtered rather than failing the candidate.
var privateNets = func() []*net.IPNet {
	cidrs := []string{
		"0.0.0.0/8",
		"10.0.0.0/8",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"224.0.0.0/8",
		"240.0.0.0/8",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}()

// IsPrivateIP reports whether ip belongs to loopback, RFC1918,
// link-local, multicast or otherwise reserved space.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	v4 := ip.To4()
	if v4 == nil {
		// Non-IPv4: rely on the stdlib classifications.
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
			ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified()
	}
	for _, n := range privateNets {
		if n.Contains(v4) {
			return true
		}
	}
	return false
}

// FilterPublic returns only the public addresses from raw IP strings.
func FilterPublic(ips []string) []string {
	var out []string
	for _, s := range ips {
		ip := net.ParseIP(s)
		if ip == nil || IsPrivateIP(ip) {
			continue
		}
		out = append(out, s)
	}
	return out
}
