package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultFetchTimeout  = 15 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024
	maxRedirects         = 5

	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ErrServerStatus is returned by loaders when the page answered with 5xx.
var ErrServerStatus = errors.New("server error status")

// HTTPLoader fetches pages with a plain HTTP client that presents itself
// as a desktop browser.
type HTTPLoader struct {
	client    *http.Client
	bodyLimit int64
}

// NewHTTPLoader creates a loader with the given per-request timeout. A nil
// client gets a default one.
func NewHTTPLoader(timeout time.Duration, client *http.Client) *HTTPLoader {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	c := *client
	c.Timeout = timeout
	c.CheckRedirect = limitRedirects(maxRedirects)
	return &HTTPLoader{client: &c, bodyLimit: DefaultBodyByteLimit}
}

func (l *HTTPLoader) Load(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %d", ErrServerStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.bodyLimit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

func limitRedirects(max int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) > max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		return nil
	}
}
