package detect

import "strings"

// anomalyTokens flag names that commonly expose forgotten or unhardened
// infrastructure. Checked in order; the first hit is surfaced verbatim
// as the reason.
var anomalyTokens = []string{
	"backup", "bak", "old", "temp", "tmp", "test", "dev",
	"staging", "internal", "admin", "debug", "legacy", "archive",
}

// Anomaly matches the candidate's bare name (the part in front of the
// apex domain) against the suspicious-token list, case-insensitively.
func Anomaly(name, domain string) (bool, string) {
	bare := strings.ToLower(name)
	if d := strings.ToLower(domain); d != "" {
		bare = strings.TrimSuffix(bare, "."+d)
	}
	for _, tok := range anomalyTokens {
		if strings.Contains(bare, tok) {
			return true, tok
		}
	}
	return false, ""
}
