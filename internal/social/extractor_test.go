package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// hostRewriter sends every request to target while keeping the original
// Host header, so handlers can dispatch on r.Host.
type hostRewriter struct {
	target *url.URL
}

func (h hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = h.target.Scheme
	out.URL.Host = h.target.Host
	resp, err := http.DefaultTransport.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

func newTestExtractor(t *testing.T, handler http.Handler) *Extractor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client := &http.Client{Transport: hostRewriter{target: target}}
	return NewExtractor("https://publish.twitter.com/oembed", 0, 0, client, testLogger())
}

func TestIsPostURL(t *testing.T) {
	tests := map[string]bool{
		"https://x.com/user/status/123":               true,
		"https://twitter.com/user/status/123?s=20":    true,
		"https://mobile.twitter.com/user/status/1":    true,
		"https://x.com/user":                          false,
		"https://example.com/user/status/123":         false,
		"https://notx.com/user/status/123":            false,
		"https://twitter.com.evil.example/u/status/1": false,
		"::not a url":                                 false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsPostURL(in), in)
	}
}

func TestExtractLinks(t *testing.T) {
	var embedQuery url.Values
	e := newTestExtractor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Host {
		case "publish.twitter.com":
			embedQuery = r.URL.Query()
			markup := `<blockquote class="twitter-tweet"><p>Read this
<a href="https://blog.example.com/post">blog</a>
<a href="https://t.co/abc123">https://t.co/abc123</a>
<a href="https://twitter.com/hashtag/go">#go</a>
<a href="https://blog.example.com/post">again</a>
also https://t.co/loop1 and https://t.co/home1</p>
<a href="https://twitter.com/user/status/123">March 1</a></blockquote>`
			_ = json.NewEncoder(w).Encode(map[string]string{"html": markup})
		case "t.co":
			switch r.URL.Path {
			case "/abc123":
				http.Redirect(w, r, "https://docs.example.org/guide", http.StatusMovedPermanently)
			case "/home1":
				http.Redirect(w, r, "https://x.com/home", http.StatusFound)
			case "/loop1":
				http.Redirect(w, r, "https://t.co/loop1", http.StatusFound)
			}
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))

	links := e.ExtractLinks(context.Background(), "https://x.com/user/status/123")

	assert.Equal(t, []string{"https://blog.example.com/post", "https://docs.example.org/guide"}, links)
	assert.Equal(t, "https://twitter.com/user/status/123", embedQuery.Get("url"))
	assert.Equal(t, "true", embedQuery.Get("omit_script"))
}

func TestExtractLinks_EmbedFailureYieldsNothing(t *testing.T) {
	e := newTestExtractor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	assert.Empty(t, e.ExtractLinks(context.Background(), "https://twitter.com/user/status/404"))

	bad := newTestExtractor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	assert.Empty(t, bad.ExtractLinks(context.Background(), "https://twitter.com/user/status/1"))
}

func TestExtractLinks_OnlyInternalLinks(t *testing.T) {
	e := newTestExtractor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"html": `<p><a href="https://twitter.com/someone">@someone</a> <a href="https://pic.twitter.com/xyz">pic</a></p>`,
		})
	}))
	assert.Empty(t, e.ExtractLinks(context.Background(), "https://twitter.com/user/status/1"))
}

func TestToTwitterHost(t *testing.T) {
	assert.Equal(t, "https://twitter.com/a/status/1", toTwitterHost("https://x.com/a/status/1"))
	assert.Equal(t, "https://mobile.twitter.com/a/status/1", toTwitterHost("https://mobile.x.com/a/status/1"))
	assert.Equal(t, "https://twitter.com/a/status/1", toTwitterHost("https://twitter.com/a/status/1"))
}
