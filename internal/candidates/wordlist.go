package candidates

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed subdomains.txt
var subdomainsFS embed.FS

// Wordlist returns the embedded common-prefix wordlist. Lines are
// trimmed; empty lines and comments are skipped.
func Wordlist() []string {
	data, err := subdomainsFS.ReadFile("subdomains.txt")
	if err != nil {
		return nil
	}

	var words []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words
}
