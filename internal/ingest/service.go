package ingest

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"parasight/internal/classifier"
	"parasight/internal/scraper"
	"parasight/internal/storage"
)

// minDescriptionLen is the length a fetched description must exceed to be
// preferred over the classifier summary.
const minDescriptionLen = 20

// LinkExtractor expands social-media posts into the links they reference.
type LinkExtractor interface {
	IsPostURL(url string) bool
	ExtractLinks(ctx context.Context, url string) []string
}

// Classifier files a link under a bucket.
type Classifier interface {
	Classify(ctx context.Context, in classifier.Input) (classifier.Classification, error)
}

// Result is the outcome of ingesting one submitted URL.
type Result struct {
	URL          string   `json:"url"`
	Success      bool     `json:"success"`
	LinkID       string   `json:"linkId,omitempty"`
	Error        string   `json:"error,omitempty"`
	ExpandedURLs []string `json:"extractedUrls,omitempty"`
}

// Service runs the ingestion pipeline: expand, fetch, classify, store.
type Service struct {
	scraper    scraper.Scraper
	extractor  LinkExtractor
	classifier Classifier
	repo       storage.Repository
	log        logrus.FieldLogger
}

func NewService(s scraper.Scraper, e LinkExtractor, c Classifier, repo storage.Repository, logger logrus.FieldLogger) *Service {
	return &Service{
		scraper:    s,
		extractor:  e,
		classifier: c,
		repo:       repo,
		log:        logger.WithField("component", "ingest"),
	}
}

// ProcessBatch ingests urls one after another in input order. A failing URL
// never stops the batch.
func (s *Service) ProcessBatch(ctx context.Context, urls []string, note string) []Result {
	results := make([]Result, 0, len(urls))
	for _, u := range urls {
		results = append(results, s.ProcessOne(ctx, u, note))
	}
	return results
}

// ProcessOne ingests a single URL. Social-media posts are replaced by the
// links they reference; the post itself is stored only when none of those
// could be saved.
func (s *Service) ProcessOne(ctx context.Context, rawURL, note string) (res Result) {
	log := s.log.WithField("url", rawURL)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Recovered from panic while processing URL")
			res = Result{URL: rawURL, Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	if err := ValidateURL(rawURL); err != nil {
		log.WithError(err).Warn("Rejected URL")
		return Result{URL: rawURL, Error: err.Error()}
	}

	if s.extractor != nil && s.extractor.IsPostURL(rawURL) {
		links := s.extractor.ExtractLinks(ctx, rawURL)
		if len(links) > 0 {
			if res, ok := s.processExpanded(ctx, rawURL, links, note); ok {
				return res
			}
			log.Warn("No expanded link could be saved, storing the post itself")
		} else {
			log.Info("No outbound links in post, storing the post itself")
		}
	}
	return s.processLink(ctx, rawURL, note)
}

func (s *Service) processExpanded(ctx context.Context, postURL string, links []string, note string) (Result, bool) {
	res := Result{URL: postURL, ExpandedURLs: links}
	via := provenanceNote(postURL, note)
	for _, link := range links {
		r := s.processLink(ctx, link, via)
		if r.Success && !res.Success {
			res.Success = true
			res.LinkID = r.LinkID
		}
	}
	return res, res.Success
}

// processLink runs fetch, classify and store for one concrete link.
func (s *Service) processLink(ctx context.Context, rawURL, note string) (res Result) {
	log := s.log.WithField("url", rawURL)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Recovered from panic while processing link")
			res = Result{URL: rawURL, Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	meta := s.scraper.FetchMetadata(ctx, rawURL)

	cls, err := s.classifier.Classify(ctx, classifier.Input{
		URL:         rawURL,
		Title:       meta.Title,
		Description: meta.Description,
		Note:        note,
	})
	classified := err == nil
	switch {
	case errors.Is(err, classifier.ErrNotConfigured):
		log.Debug("Classifier not configured, storing link unclassified")
	case err != nil:
		log.WithError(err).Warn("Classification failed, storing link unclassified")
	}

	id, err := s.repo.StoreIfAbsent(ctx, storage.NewLink{
		URL:         rawURL,
		Title:       meta.Title,
		Description: chooseDescription(meta.Description, cls.Summary, classified),
		SourceNote:  note,
	})
	if err != nil {
		log.WithError(err).Error("Failed to store link")
		return Result{URL: rawURL, Error: fmt.Sprintf("store link: %v", err)}
	}

	if classified {
		err := s.repo.ApplyClassification(ctx, id, storage.Classification{
			Para:        cls.Para,
			Tags:        cls.Tags,
			Subcategory: cls.Subcategory,
		})
		if err != nil {
			log.WithError(err).WithField("link_id", id).Warn("Failed to apply classification")
		}
	}

	log.WithField("link_id", id).Info("Link ingested")
	return Result{URL: rawURL, Success: true, LinkID: id}
}

func chooseDescription(fetched, summary string, classified bool) string {
	if utf8.RuneCountInString(fetched) > minDescriptionLen {
		return fetched
	}
	if classified && summary != "" {
		return summary
	}
	return fetched
}

func provenanceNote(postURL, note string) string {
	via := "via tweet " + postURL
	if note != "" {
		via += ": " + note
	}
	return via
}
