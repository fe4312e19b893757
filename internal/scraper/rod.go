package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// RodLoader renders pages in headless Chromium, for sites that build their
// head tags with JavaScript.
type RodLoader struct {
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewRodLoader creates a loader that launches a browser per page.
func NewRodLoader(timeout time.Duration, logger logrus.FieldLogger) *RodLoader {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &RodLoader{
		timeout: timeout,
		log:     logger.WithField("component", "rod_loader"),
	}
}

// Load navigates to url and returns the rendered HTML. The browser does not
// expose the response status, so successful loads report 200.
func (l *RodLoader) Load(ctx context.Context, url string) (*Page, error) {
	log := l.log.WithField("url", url)

	path, exists := launcher.LookPath()
	if !exists {
		return nil, errors.New("rod browser dependency not found")
	}
	controlURL, err := launcher.New().Bin(path).Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Error closing rod browser instance")
		}
	}()

	tab, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer func() {
		if closeErr := tab.Close(); closeErr != nil {
			log.WithError(closeErr).Debug("Error closing rod page")
		}
	}()

	// tab keeps the untimed context so the deferred Close runs after cancel.
	pageCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	timed := tab.Context(pageCtx)

	if err := timed.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("page load timed out for %s: %w", url, pageCtx.Err())
		}
		return nil, fmt.Errorf("failed waiting for page load: %w", err)
	}

	html, err := timed.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered html: %w", err)
	}

	log.Debug("Rendered page with rod")
	return &Page{URL: url, StatusCode: 200, Body: []byte(html)}, nil
}
