package main

import (
	"github.com/sirupsen/logrus"

	"parasight/internal/classifier"
	"parasight/internal/config"
	"parasight/internal/grouping"
	"parasight/internal/ingest"
	"parasight/internal/llm"
	"parasight/internal/scraper"
	"parasight/internal/social"
	"parasight/internal/storage"
)

// app bundles the wired components shared by all commands.
type app struct {
	repo     *storage.BadgerRepository
	ingester *ingest.Service
	grouper  *grouping.Service
}

func newApp(cfg config.Config, log *logrus.Logger) (*app, error) {
	repo, err := storage.NewBadgerRepository(cfg.BadgerDBPath, log)
	if err != nil {
		return nil, err
	}

	var loader scraper.PageLoader
	switch cfg.ScraperEngine {
	case "rod":
		loader = scraper.NewRodLoader(cfg.FetchTimeout, log)
	default:
		loader = scraper.NewHTTPLoader(cfg.FetchTimeout, nil)
	}
	fetcher := scraper.NewService(loader, scraper.NewArxivClient(cfg.ArxivAPIURL, scraper.DefaultArxivTimeout, nil), log)

	extractor := social.NewExtractor(cfg.OEmbedURL, social.DefaultOEmbedTimeout, cfg.RedirectTimeout, nil, log)

	var client llm.Client
	if cfg.AnthropicAPIKey != "" {
		client = llm.NewClient(cfg.AnthropicAPIKey)
	} else {
		log.Warn("ANTHROPIC_API_KEY not set, links will be stored unclassified")
	}
	cls := classifier.New(client, classifier.Config{
		Model:   cfg.AnthropicModel,
		Timeout: cfg.ClassifyTimeout,
	}, log)

	return &app{
		repo:     repo,
		ingester: ingest.NewService(fetcher, extractor, cls, repo, log),
		grouper:  grouping.NewService(repo, cls, log),
	}, nil
}

func (a *app) Close(log logrus.FieldLogger) {
	log.Info("Closing database...")
	if err := a.repo.Close(); err != nil {
		log.WithError(err).Error("Error closing database")
	}
}
