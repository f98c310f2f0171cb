// Package candidates synthesizes and discovers the candidate subdomain
// set for a target: wordlist concatenation, rule-based permutations and
// a passive Certificate Transparency lookup.
package candidates

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
)

// Source names recorded on candidates.
const (
	SourceWordlist    = "wordlist"
	SourcePermutation = "permutation"
	SourceCT          = "ct"
)

// Generator implements engine.CandidateGenerator. Each source is
// individually fault-tolerant: a failed source contributes nothing and
// is reported as a warning, never an error.
type Generator struct {
	CT       *CTClient
	Progress engine.ProgressReporter
}

// Generate merges the enabled sources into one candidate set keyed by
// name. Duplicate names collapse; every source that proposed a name is
// recorded on it.
func (g *Generator) Generate(ctx context.Context, domain string, opts engine.Options) ([]engine.Candidate, error) {
	domain = strings.ToLower(domain)
	nameSources := make(map[string][]string)
	var mu sync.Mutex

	add := func(names []string, source string) {
		mu.Lock()
		defer mu.Unlock()
		for _, n := range names {
			nameSources[n] = append(nameSources[n], source)
		}
	}

	if opts.WordlistBruteforce {
		var names []string
		for _, w := range Wordlist() {
			names = append(names, fmt.Sprintf("%s.%s", w, domain))
		}
		add(names, SourceWordlist)

		// Permutations ride the same toggle: both synthesize names
		// locally rather than discovering them.
		add(Permutations(domain), SourcePermutation)
	}

	if opts.CTLookup && g.CT != nil {
		// The CT query is the only networked source; it runs while the
		// local sources above have already been merged.
		hosts, err := g.CT.Lookup(ctx, domain)
		if err != nil {
			if g.Progress != nil {
				g.Progress.Warn(fmt.Sprintf("ct: %s", err))
			}
		} else {
			add(hosts, SourceCT)
			if g.Progress != nil {
				g.Progress.Detail(fmt.Sprintf("ct: %d subdomains", len(hosts)))
			}
		}
	}

	if !opts.WordlistBruteforce && !opts.CTLookup {
		return nil, fmt.Errorf("no candidate sources enabled for %s", domain)
	}
	// An enabled source that failed or found nothing contributes nothing;
	// zero candidates is a valid (empty) result, not an error.

	out := make([]engine.Candidate, 0, len(nameSources))
	for name, sources := range nameSources {
		out = append(out, engine.Candidate{Name: name, Sources: dedupe(sources)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func dedupe(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	var out []string
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
