package probe

import (
	"context"
	"sync"
	"time"
)

// HostLimiter spaces requests to the same host by a minimum interval.
// It throttles repeated probes of one name (HTTPS attempt then HTTP
// fallback) without limiting pool throughput across different hosts.
// State is per scan; limiters are never shared between concurrent scans.
type HostLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewHostLimiter creates a limiter with the given per-host interval.
func NewHostLimiter(interval time.Duration) *HostLimiter {
	return &HostLimiter{
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

// Wait blocks until at least the configured interval has passed since
// the previous request to host, or the context is done. The reserved
// slot is recorded before sleeping so concurrent callers for the same
// host queue behind each other.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || l.interval <= 0 {
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	next := now
	if prev, ok := l.last[host]; ok {
		if earliest := prev.Add(l.interval); earliest.After(now) {
			next = earliest
		}
	}
	l.last[host] = next
	l.mu.Unlock()

	delay := time.Until(next)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
