package output

import (
	"fmt"
	"io"

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
)

// WriteSummary prints the post-scan summary block.
func WriteSummary(w io.Writer, result *engine.ScanResult, noColor bool) {
	s := result.Summary

	fmt.Fprintln(w)
	if noColor {
		fmt.Fprintf(w, "Target: %s\n", result.Target)
		fmt.Fprintf(w, "Subdomains: %d found, %d active\n", s.Total, s.Active)
	} else {
		fmt.Fprintf(w, "\033[1mTarget:\033[0m %s\n", result.Target)
		fmt.Fprintf(w, "\033[1mSubdomains:\033[0m %d found, %d active\n", s.Total, s.Active)
	}
	fmt.Fprintf(w, "Anomalies: %d   Cloud assets: %d\n", s.Anomalies, s.CloudAssets)

	if s.TakeoverVulnerable > 0 {
		fmt.Fprintln(w)
		if noColor {
			fmt.Fprintf(w, "! %d potential subdomain takeovers\n", s.TakeoverVulnerable)
		} else {
			fmt.Fprintf(w, "\033[33m!\033[0m %d potential subdomain takeovers\n", s.TakeoverVulnerable)
		}
		for i := range result.Records {
			r := &result.Records[i]
			if !r.TakeoverVulnerable {
				continue
			}
			state := "unverified"
			if r.TakeoverVerified {
				state = "VERIFIED"
			}
			fmt.Fprintf(w, "  %s -> %s (%s, %s)\n", r.Name, r.CNAME, r.TakeoverType, state)
		}
	}

	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "! %s\n", warn)
	}
}
