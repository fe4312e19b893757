package scraper

import (
	"net/url"
	"path"
	"strings"
)

// TitleFromURL synthesizes a readable title when a page offers none.
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return truncate(rawURL, 50)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := pathSegments(u.Path)

	if host == "github.com" && len(segments) >= 2 {
		return segments[0] + "/" + segments[1]
	}
	if strings.HasSuffix(host, "arxiv.org") {
		if id := ArxivID(host + u.Path); id != "" {
			return "arXiv:" + id
		}
	}

	if len(segments) > 0 {
		last := segments[len(segments)-1]
		if len(last) > 3 {
			last = strings.TrimSuffix(last, path.Ext(last))
			return strings.NewReplacer("-", " ", "_", " ").Replace(last)
		}
	}
	return host
}

func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
