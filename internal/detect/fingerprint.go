package detect

import (
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
)

//go:embed fingerprints.json
var fingerprintsJSON []byte

// FingerprintRule defines one technology signature: header patterns,
// body substrings and cookie names mapping to a human-readable label.
type FingerprintRule struct {
	Name     string        `json:"name"`
	Category string        `json:"category"`
	Headers  []headerMatch `json:"headers,omitempty"`
	Body     []string      `json:"body,omitempty"`
	Cookies  []string      `json:"cookies,omitempty"`
}

type headerMatch struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	regex   *regexp.Regexp
}

var (
	fingerprintRules []FingerprintRule
	fingerprintOnce  sync.Once
)

func loadFingerprints() {
	fingerprintOnce.Do(func() {
		if err := json.Unmarshal(fingerprintsJSON, &fingerprintRules); err != nil {
			return
		}
		for i := range fingerprintRules {
			for j := range fingerprintRules[i].Headers {
				h := &fingerprintRules[i].Headers[j]
				if h.Pattern != "" {
					h.regex, _ = regexp.Compile("(?i)" + h.Pattern)
				}
			}
		}
	})
}

// Fingerprint returns the technology labels matching the response
// headers (lowercased names), cookie names and body sample. Duplicates
// are suppressed; rule order defines output order.
func Fingerprint(headers map[string]string, cookies []string, body string) []string {
	loadFingerprints()

	seen := make(map[string]bool)
	var techs []string
	bodyLower := strings.ToLower(body)

	for _, rule := range fingerprintRules {
		if seen[rule.Name] {
			continue
		}
		if matchesRule(rule, headers, cookies, bodyLower) {
			seen[rule.Name] = true
			techs = append(techs, rule.Name)
		}
	}
	return techs
}

func matchesRule(rule FingerprintRule, headers map[string]string, cookies []string, bodyLower string) bool {
	for _, hm := range rule.Headers {
		val, exists := headers[strings.ToLower(hm.Name)]
		if !exists {
			continue
		}
		if hm.regex != nil && hm.regex.MatchString(val) {
			return true
		}
		if hm.Pattern == "" && val != "" {
			return true
		}
	}

	for _, substr := range rule.Body {
		if strings.Contains(bodyLower, strings.ToLower(substr)) {
			return true
		}
	}

	for _, want := range rule.Cookies {
		for _, c := range cookies {
			if strings.EqualFold(c, want) {
				return true
			}
		}
	}

	return false
}
