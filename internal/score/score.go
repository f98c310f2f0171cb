// Package score computes the deterministic additive risk score.
// Identical inputs always produce identical output; the score must be
// reproducible across scans of the same target for comparison.
package score

import "github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"

// Score weights. Additive, clamped to [0, 100].
const (
	weightTakeoverVerified   = 50
	weightTakeoverVulnerable = 30
	weightAnomaly            = 20
	weightNoHTTPS            = 15
	weightReachable          = 5
	weightCloudProvider      = 5
	weightSensitivePort      = 10
	weightServerHeader       = 2
	weightPerTechnology      = 2
	maxTechnologyPoints      = 6
	maxScore                 = 100
)

// sensitivePorts are services that should never face the internet.
var sensitivePorts = map[int]bool{
	22: true, 23: true, 3306: true, 5432: true,
	6379: true, 27017: true, 9200: true, 11211: true,
}

// Scorer implements engine.Scorer.
type Scorer struct{}

// Score computes the risk score for a record.
func (Scorer) Score(rec *engine.SubdomainRecord) int {
	return Compute(rec)
}

// Compute evaluates the additive scoring function over a record.
func Compute(rec *engine.SubdomainRecord) int {
	s := 0

	switch {
	case rec.TakeoverVerified:
		s += weightTakeoverVerified
	case rec.TakeoverVulnerable:
		s += weightTakeoverVulnerable
	}

	if rec.IsAnomaly {
		s += weightAnomaly
	}

	// Serving plain HTTP with no HTTPS at all.
	if rec.HTTPSStatus == 0 && rec.HTTPStatus != 0 {
		s += weightNoHTTPS
	}

	if rec.HTTPStatus == 200 || rec.HTTPSStatus == 200 {
		s += weightReachable
	}

	if rec.CloudProvider != "" {
		s += weightCloudProvider
	}

	for _, p := range rec.ExposedPorts {
		if sensitivePorts[p] {
			s += weightSensitivePort
		}
	}

	if rec.Server != "" {
		s += weightServerHeader
	}

	t := weightPerTechnology * len(rec.Technologies)
	if t > maxTechnologyPoints {
		t = maxTechnologyPoints
	}
	s += t

	if s > maxScore {
		s = maxScore
	}
	return s
}
