package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"parasight/internal/domain"
	"parasight/internal/llm"
)

const (
	DefaultTimeout     = 20 * time.Second
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 512

	groupMaxTokens = 100
	// FallbackGroupName is used whenever a group label cannot be generated.
	FallbackGroupName = "Grouped Items"
)

var (
	// ErrNotConfigured means no model credentials were supplied.
	ErrNotConfigured = errors.New("classifier not configured")
	// ErrClassificationFailed covers transport errors, timeouts and replies
	// that do not match the expected shape.
	ErrClassificationFailed = errors.New("classification failed")
)

// Input is what is known about a link before classification.
type Input struct {
	URL         string
	Title       string
	Description string
	Note        string
}

// Classification is a validated model verdict.
type Classification struct {
	Summary     string
	Tags        []string
	Subcategory string
	Para        domain.Para
}

// GroupCandidate describes one side of a manual grouping.
type GroupCandidate struct {
	Title       string
	Description string
}

type Config struct {
	Model   string
	Timeout time.Duration
	// Temperature defaults to DefaultTemperature when nil. Zero is a valid
	// setting.
	Temperature *float64
	MaxTokens   int64
}

// Service classifies links with a language model.
type Service struct {
	client llm.Client
	cfg    Config
	log    logrus.FieldLogger
}

// New creates a classifier. A nil client yields a classifier whose calls
// fail with ErrNotConfigured.
func New(client llm.Client, cfg Config, logger logrus.FieldLogger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature == nil {
		temp := DefaultTemperature
		cfg.Temperature = &temp
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Service{
		client: client,
		cfg:    cfg,
		log:    logger.WithField("component", "classifier"),
	}
}

// Classify asks the model to file a link under one bucket.
func (s *Service) Classify(ctx context.Context, in Input) (Classification, error) {
	if s.client == nil {
		return Classification{}, ErrNotConfigured
	}
	log := s.log.WithField("url", in.URL)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	temp := *s.cfg.Temperature
	resp, err := s.client.CreateMessage(ctx, llm.MessageRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		System:      classificationPrompt,
		Prompt:      linkPrompt(in, domain.DetectMediaType(in.URL)),
		Temperature: &temp,
	})
	if err != nil {
		log.WithError(err).Warn("Classification request failed")
		return Classification{}, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}

	r, err := parseReply(resp.Text())
	if err != nil {
		log.WithError(err).Warn("Model reply rejected")
		return Classification{}, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}

	c := Classification{
		Summary:     strings.TrimSpace(r.Summary),
		Tags:        r.Tags,
		Subcategory: strings.TrimSpace(deref(r.Subcategory)),
		Para: domain.Para{
			Bucket: domain.Bucket(r.Para.Bucket),
			Name:   strings.TrimSpace(deref(r.Para.Name)),
			Reason: strings.TrimSpace(deref(r.Para.Reason)),
		},
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}

	log.WithFields(logrus.Fields{
		"bucket":      c.Para.Bucket,
		"subcategory": c.Subcategory,
	}).Info("Link classified")
	return c, nil
}

// NameGroup asks the model for a short emoji-prefixed label covering both
// candidates. It never fails; FallbackGroupName stands in for any error.
func (s *Service) NameGroup(ctx context.Context, a, b GroupCandidate) string {
	if s.client == nil {
		return FallbackGroupName
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	temp := *s.cfg.Temperature
	resp, err := s.client.CreateMessage(ctx, llm.MessageRequest{
		Model:       s.cfg.Model,
		MaxTokens:   groupMaxTokens,
		Prompt:      groupPrompt(a, b),
		Temperature: &temp,
	})
	if err != nil {
		s.log.WithError(err).Warn("Group naming failed")
		return FallbackGroupName
	}

	name := strings.TrimSpace(strings.NewReplacer(`"`, "", "'", "").Replace(resp.Text()))
	if name == "" {
		return FallbackGroupName
	}
	s.log.WithField("group_name", name).Info("Generated group name")
	return name
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
