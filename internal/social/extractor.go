package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultOEmbedURL       = "https://publish.twitter.com/oembed"
	DefaultOEmbedTimeout   = 10 * time.Second
	DefaultRedirectTimeout = 5 * time.Second

	maxRedirects    = 5
	oembedByteLimit = 1 << 20
)

var shortLinkRe = regexp.MustCompile(`https?://t\.co/[a-zA-Z0-9]+`)

// Extractor turns a social-media post URL into the outbound links the post
// references. It never fails; an unreachable post yields no links.
type Extractor struct {
	oembedURL string
	oembed    *http.Client
	resolver  *http.Client
	log       logrus.FieldLogger
}

// NewExtractor creates an extractor using the oEmbed endpoint at oembedURL.
// Zero timeouts select the defaults and a nil client gets a default one.
func NewExtractor(oembedURL string, oembedTimeout, redirectTimeout time.Duration, client *http.Client, logger logrus.FieldLogger) *Extractor {
	if oembedURL == "" {
		oembedURL = DefaultOEmbedURL
	}
	if oembedTimeout <= 0 {
		oembedTimeout = DefaultOEmbedTimeout
	}
	if redirectTimeout <= 0 {
		redirectTimeout = DefaultRedirectTimeout
	}
	if client == nil {
		client = &http.Client{}
	}

	oembed := *client
	oembed.Timeout = oembedTimeout

	resolver := *client
	resolver.Timeout = redirectTimeout
	resolver.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	return &Extractor{
		oembedURL: oembedURL,
		oembed:    &oembed,
		resolver:  &resolver,
		log:       logger.WithField("component", "social"),
	}
}

// IsPostURL reports whether rawURL points at a single post on twitter.com
// or x.com.
func (e *Extractor) IsPostURL(rawURL string) bool {
	return IsPostURL(rawURL)
}

// IsPostURL reports whether rawURL points at a single post on twitter.com
// or x.com, including their subdomains.
func IsPostURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || !isPlatformHost(u.Hostname()) {
		return false
	}
	return strings.Contains(u.Path, "/status/")
}

// ExtractLinks returns the outbound links of a post in first-seen order.
func (e *Extractor) ExtractLinks(ctx context.Context, postURL string) []string {
	log := e.log.WithField("post_url", postURL)

	markup, err := e.fetchEmbed(ctx, toTwitterHost(postURL))
	if err != nil {
		log.WithError(err).Warn("Failed to fetch post embed")
		return nil
	}

	direct, short := scanAnchors(markup)

	links := make([]string, 0, len(direct)+len(short))
	seen := make(map[string]struct{})
	add := func(link string) {
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	for _, link := range direct {
		add(link)
	}
	for _, link := range short {
		final, err := e.resolve(ctx, link)
		if err != nil {
			log.WithError(err).WithField("short_url", link).Warn("Failed to resolve short link")
			continue
		}
		if isOutbound(final) {
			add(final)
		}
	}

	log.WithField("count", len(links)).Info("Extracted links from post")
	return links
}

type oembedResponse struct {
	HTML string `json:"html"`
}

func (e *Extractor) fetchEmbed(ctx context.Context, postURL string) (string, error) {
	endpoint := e.oembedURL + "?url=" + url.QueryEscape(postURL) + "&omit_script=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build oembed request: %w", err)
	}

	resp, err := e.oembed.Do(req)
	if err != nil {
		return "", fmt.Errorf("oembed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oembed returned status %d", resp.StatusCode)
	}

	var body oembedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, oembedByteLimit)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode oembed response: %w", err)
	}
	return body.HTML, nil
}

// resolve follows a short link with HEAD requests and returns where it ends
// up. When the redirect budget runs out the last Location is used.
func (e *Extractor) resolve(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, nil)
	if err != nil {
		return "", fmt.Errorf("build head request: %w", err)
	}

	resp, err := e.resolver.Do(req)
	if err != nil {
		return "", fmt.Errorf("head request: %w", err)
	}
	resp.Body.Close()

	final := resp.Request.URL
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc, err := final.Parse(resp.Header.Get("Location")); err == nil && loc.Host != "" {
			final = loc
		}
	}
	return final.String(), nil
}

// scanAnchors splits anchor targets into outbound links and short links
// still to be resolved. Short links mentioned in text are picked up too.
func scanAnchors(markup string) (direct, short []string) {
	seenShort := make(map[string]struct{})
	addShort := func(link string) {
		if _, ok := seenShort[link]; !ok {
			seenShort[link] = struct{}{}
			short = append(short, link)
		}
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return direct, short
		case html.TextToken:
			for _, link := range shortLinkRe.FindAllString(string(z.Text()), -1) {
				addShort(link)
			}
		case html.StartTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.A {
				continue
			}
			for _, a := range tok.Attr {
				if a.Key != "href" {
					continue
				}
				href := strings.TrimSpace(a.Val)
				switch {
				case !isHTTP(href):
				case isShortLink(href):
					addShort(href)
				case isOutbound(href):
					direct = append(direct, href)
				}
			}
		}
	}
}

func isHTTP(link string) bool {
	l := strings.ToLower(link)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// isOutbound reports whether link leaves the platform.
func isOutbound(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	return !isPlatformHost(host) && !isShortHost(host)
}

func isShortLink(link string) bool {
	u, err := url.Parse(link)
	return err == nil && isShortHost(u.Hostname())
}

func isPlatformHost(host string) bool {
	host = strings.ToLower(host)
	for _, d := range []string{"twitter.com", "x.com"} {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func isShortHost(host string) bool {
	return strings.EqualFold(host, "t.co")
}

// toTwitterHost rewrites x.com hosts to twitter.com, which the oEmbed
// endpoint expects.
func toTwitterHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "x.com":
		host = "twitter.com"
	case strings.HasSuffix(host, ".x.com"):
		host = strings.TrimSuffix(host, "x.com") + "twitter.com"
	default:
		return rawURL
	}
	if port := u.Port(); port != "" {
		host += ":" + port
	}
	u.Host = host
	return u.String()
}
