package domain

import (
	"net/url"
	"strings"
)

// MediaType is a coarse content kind derived from a URL.
type MediaType string

const (
	MediaPaper   MediaType = "paper"
	MediaRepo    MediaType = "repo"
	MediaVideo   MediaType = "video"
	MediaDocs    MediaType = "docs"
	MediaTool    MediaType = "tool"
	MediaArticle MediaType = "article"
	MediaSocial  MediaType = "social"
	MediaOther   MediaType = "other"
)

type mediaRule struct {
	kind MediaType
	// domains match the host exactly or as a parent domain.
	domains []string
	// fragments match anywhere in the host.
	fragments []string
	suffixes  []string
	paths     []string
}

// Rules are checked in order; the first match wins.
var mediaRules = []mediaRule{
	{
		kind: MediaPaper,
		domains: []string{"arxiv.org", "semanticscholar.org", "paperswithcode.com", "openreview.net",
			"aclanthology.org", "biorxiv.org", "medrxiv.org", "ssrn.com", "researchgate.net", "academia.edu"},
		fragments: []string{"scholar.google"},
		suffixes:  []string{".pdf"},
	},
	{
		kind:    MediaRepo,
		domains: []string{"github.com", "gitlab.com", "bitbucket.org", "codeberg.org", "sr.ht", "huggingface.co"},
	},
	{
		kind:    MediaVideo,
		domains: []string{"youtube.com", "youtu.be", "vimeo.com", "twitch.tv", "loom.com", "wistia.com"},
	},
	{
		kind:      MediaDocs,
		domains:   []string{"devdocs.io"},
		fragments: []string{"docs.", "documentation.", ".readthedocs.io", "developer."},
		paths:     []string{"/docs/", "/documentation/", "/api/", "/reference/"},
	},
	{
		kind: MediaTool,
		domains: []string{"producthunt.com", "notion.so", "figma.com", "vercel.com", "netlify.com",
			"render.com", "supabase.com", "firebase.google.com", "anthropic.com", "openai.com"},
		fragments: []string{".app"},
	},
	{
		kind: MediaSocial,
		domains: []string{"twitter.com", "x.com", "linkedin.com", "reddit.com", "discord.com", "discord.gg",
			"slack.com", "threads.net", "bsky.app"},
		fragments: []string{"mastodon"},
	},
	{
		kind: MediaArticle,
		domains: []string{"medium.com", "substack.com", "dev.to", "news.ycombinator.com", "techcrunch.com",
			"theverge.com", "wired.com", "arstechnica.com"},
		fragments: []string{"hashnode.", "blog."},
		paths:     []string{"/blog/", "/post/", "/article/"},
	},
}

// DetectMediaType classifies a URL by host and path heuristics.
func DetectMediaType(raw string) MediaType {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return MediaOther
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	for _, rule := range mediaRules {
		if rule.matchesHost(host) {
			return rule.kind
		}
		for _, s := range rule.suffixes {
			if strings.HasSuffix(path, s) {
				return rule.kind
			}
		}
		for _, p := range rule.paths {
			if strings.Contains(path, p) {
				return rule.kind
			}
		}
	}
	return MediaOther
}

func (r mediaRule) matchesHost(host string) bool {
	for _, d := range r.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	for _, f := range r.fragments {
		if strings.Contains(host, f) {
			return true
		}
	}
	return false
}
