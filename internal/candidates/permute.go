package candidates

import "fmt"

// permutationBases are the prefixes the permutation rules expand.
var permutationBases = []string{
	"api", "app", "dev", "staging", "test", "admin", "portal", "mail", "www",
}

// suffixVariants are appended to a base ("api" -> "api1", "api-dev", ...).
var suffixVariants = []string{
	"1", "2", "01", "02", "-dev", "-staging", "-test", "-v1", "-v2", "-new", "-old",
}

// prefixVariants are prepended to a base ("api" -> "dev-api", ...).
var prefixVariants = []string{
	"dev-", "staging-", "test-", "new-", "old-", "beta-",
}

// Permutations generates the fixed rule-based name variants for a
// domain. Variants that would just repeat the base token are skipped.
func Permutations(domain string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(prefix string) {
		name := fmt.Sprintf("%s.%s", prefix, domain)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, base := range permutationBases {
		for _, s := range suffixVariants {
			if s == "-"+base {
				continue
			}
			add(base + s)
		}
		for _, p := range prefixVariants {
			if p == base+"-" {
				continue
			}
			add(p + base)
		}
	}
	return out
}
