package scraper

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// Service implements the Scraper interface. arXiv papers are looked up
// through the export API before any page is fetched.
type Service struct {
	loader PageLoader
	arxiv  *ArxivClient
	log    logrus.FieldLogger
}

// NewService creates a metadata fetcher. A nil arxiv client disables the
// paper fast path.
func NewService(loader PageLoader, arxiv *ArxivClient, logger logrus.FieldLogger) *Service {
	return &Service{
		loader: loader,
		arxiv:  arxiv,
		log:    logger.WithField("component", "scraper"),
	}
}

// FetchMetadata fetches the title and description of a URL.
func (s *Service) FetchMetadata(ctx context.Context, rawURL string) Metadata {
	log := s.log.WithField("url", rawURL)

	fetchURL := rawURL
	if strings.Contains(fetchURL, "arxiv.org/pdf/") {
		fetchURL = strings.TrimSuffix(strings.Replace(fetchURL, "/pdf/", "/abs/", 1), ".pdf")
		log.WithField("fetch_url", fetchURL).Debug("Rewrote arXiv PDF link to abstract page")
	}

	if id := ArxivID(fetchURL); id != "" && s.arxiv != nil {
		meta, err := s.arxiv.Lookup(ctx, id)
		switch {
		case err != nil:
			log.WithError(err).WithField("paper_id", id).Warn("arXiv API lookup failed, scraping page instead")
		case meta.Title != "" || meta.Description != "":
			log.WithField("paper_id", id).Info("Fetched arXiv metadata")
			return meta
		}
	}

	page, err := s.loader.Load(ctx, fetchURL)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch page, using URL as fallback title")
		return fallback(rawURL)
	}
	if page.StatusCode >= 400 {
		log.WithField("status", page.StatusCode).Warn("Page returned client error, using URL as fallback title")
		return fallback(rawURL)
	}

	doc, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		log.WithError(err).Warn("Failed to parse page, using URL as fallback title")
		return fallback(rawURL)
	}

	onArxiv := isArxivHost(rawURL)
	meta := Metadata{
		Title:       firstOf(doc, minTitleLen, titleChain(onArxiv)...),
		Description: firstOf(doc, 1, descriptionChain...),
	}
	if meta.Title == "" {
		meta.Title = TitleFromURL(rawURL)
	}
	if onArxiv && utf8.RuneCountInString(meta.Description) < minAbstractLen {
		if abstract := arxivAbstract(doc); utf8.RuneCountInString(abstract) > minAbstractLen {
			meta.Description = abstract
		}
	}

	log.WithField("title", meta.Title).Info("Metadata fetched")
	return meta
}

func fallback(rawURL string) Metadata {
	return Metadata{Title: TitleFromURL(rawURL)}
}

func isArxivHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), "arxiv.org")
}
