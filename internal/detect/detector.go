package detect

import (
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
)

// Detector implements engine.Detector over the pure heuristics.
type Detector struct{}

// Detect classifies a resolved/probed candidate. All inputs are data
// already collected by earlier stages; nothing here performs I/O.
func (Detector) Detect(name, domain string, res *engine.ResolutionResult, pr *engine.ProbeResult, opts engine.Options) engine.DetectionOutcome {
	var out engine.DetectionOutcome

	cname := ""
	if res != nil {
		cname = res.CNAME
	}

	out.CloudProvider = CloudProvider(name, cname)
	out.IsAnomaly, out.AnomalyReason = Anomaly(name, domain)

	if opts.TakeoverCheck {
		out.TakeoverVulnerable, out.TakeoverType = Takeover(cname)
		if out.TakeoverVulnerable && pr != nil {
			out.TakeoverVerified = VerifyTakeover(out.TakeoverType, pr.BodySample, pr.HTTPStatus, pr.HTTPSStatus)
		}
	}

	return out
}

// Technologies fingerprints the probe's raw response data.
func (Detector) Technologies(pr *engine.ProbeResult) []string {
	if pr == nil {
		return nil
	}
	headers := pr.Headers
	if headers == nil && pr.Server != "" {
		headers = map[string]string{"server": pr.Server}
	}
	return Fingerprint(headers, pr.Cookies, pr.BodySample)
}
