// Package urlnorm computes the canonical form of a URL used as the
// deduplication key for stored links.
package urlnorm

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are dropped from the query string. Keys are compared
// case-insensitively.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"_bhlid":       {},
	"ref":          {},
	"source":       {},
	"fbclid":       {},
	"gclid":        {},
	"msclkid":      {},
	"mc_cid":       {},
	"mc_eid":       {},
	"_hsenc":       {},
	"_hsmi":        {},
	"si":           {},
	"s":            {},
	"t":            {},
}

// Normalize returns the canonical form of raw. It never fails: input that
// does not parse as an absolute URL is returned lower-cased.
//
// Normalize(Normalize(x)) == Normalize(x) for every x.
func Normalize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" || u.Opaque != "" {
		return strings.ToLower(raw)
	}

	u.Scheme = "https"
	u.Host = normalizeHost(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	u.RawQuery = normalizeQuery(u.RawQuery)
	u.ForceQuery = false

	u.Path, u.RawPath = trimTrailingSlash(u.Path), trimTrailingSlash(u.RawPath)
	if u.Path == "" {
		u.Path, u.RawPath = "/", ""
	}

	return strings.ToLower(u.String())
}

func normalizeHost(host string) string {
	hostname, port := host, ""
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.HasSuffix(host, "]") {
		hostname, port = host[:i], host[i+1:]
	}
	// Repeated labels are stripped too, otherwise a second pass would
	// remove the next one.
	for len(hostname) > 4 && strings.EqualFold(hostname[:4], "www.") {
		hostname = hostname[4:]
	}
	if port == "" || port == "80" || port == "443" {
		return hostname
	}
	return hostname + ":" + port
}

// queryPair is one key=value segment. Segments whose key or value do not
// unescape are kept verbatim in raw.
type queryPair struct {
	key   string
	value string
	raw   string
}

func (p queryPair) String() string {
	if p.raw != "" {
		return p.raw
	}
	return url.QueryEscape(p.key) + "=" + url.QueryEscape(p.value)
}

// normalizeQuery drops tracking parameters and sorts the rest by key.
// Pairs are split by hand so one malformed segment does not stop the
// others from being cleaned.
func normalizeQuery(raw string) string {
	var pairs []queryPair
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(seg, "=")
		p := queryPair{key: rawKey}
		key, kerr := url.QueryUnescape(rawKey)
		value, verr := url.QueryUnescape(rawValue)
		if kerr != nil || verr != nil {
			p.raw = seg
		} else {
			p.key, p.value = key, value
		}
		if _, ok := trackingParams[strings.ToLower(p.key)]; ok {
			continue
		}
		pairs = append(pairs, p)
	}

	// Keys are ordered by their lower-cased form so the order survives
	// the final lower-casing. Values of one key keep their input order.
	sort.SliceStable(pairs, func(i, j int) bool {
		li, lj := strings.ToLower(pairs[i].key), strings.ToLower(pairs[j].key)
		if li == lj {
			return pairs[i].key < pairs[j].key
		}
		return li < lj
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.String()
	}
	return strings.Join(parts, "&")
}

// trimTrailingSlash removes trailing slashes while keeping a bare root.
func trimTrailingSlash(p string) string {
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}
