package ingest

import (
	"strings"
	"unicode"
)

// ParseURLList pulls http(s) URLs out of free text such as a pasted list
// of tabs. Tokens are split on whitespace and commas; duplicates are
// dropped keeping the first occurrence.
func ParseURLList(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})

	seen := make(map[string]struct{}, len(fields))
	var urls []string
	for _, f := range fields {
		lower := strings.ToLower(f)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		urls = append(urls, f)
	}
	return urls
}
