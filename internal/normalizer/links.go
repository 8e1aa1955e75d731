package normalizer

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`<?https?://[^\s<>]+>?`)

// trailing characters that belong to surrounding prose or markup, not the URL
const trailingJunk = `.,;:!?)]}>"'*`

// ExtractLinks scans raw message text for URL-like substrings. Platform
// link markup ("<url|label>") is unwrapped: the wrapper is stripped and only
// the URL portion before the label separator is kept. Trailing punctuation
// is trimmed from bare URLs.
func ExtractLinks(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var links []string
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		u := strings.TrimPrefix(m, "<")
		u = strings.TrimSuffix(u, ">")
		if i := strings.IndexByte(u, '|'); i >= 0 {
			u = u[:i]
		}
		u = strings.TrimRight(u, trailingJunk)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		links = append(links, u)
	}
	return links
}
