package grouping

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"parasight/internal/classifier"
	"parasight/internal/domain"
	"parasight/internal/storage"
)

// ErrSameLink is returned when a link is grouped with itself.
var ErrSameLink = errors.New("cannot group a link with itself")

// Namer synthesizes a label for two links. It must not fail.
type Namer interface {
	NameGroup(ctx context.Context, a, b classifier.GroupCandidate) string
}

// Service merges two stored links into one group.
type Service struct {
	repo  storage.Repository
	namer Namer
	log   logrus.FieldLogger
}

func NewService(repo storage.Repository, namer Namer, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:  repo,
		namer: namer,
		log:   logger.WithField("component", "grouping"),
	}
}

// Group gives the link dropped (idA) and the link it was dropped onto (idB)
// the same subcategory and moves both into one bucket. It returns the
// label applied.
func (s *Service) Group(ctx context.Context, idA, idB string) (string, error) {
	if idA == idB {
		return "", ErrSameLink
	}
	log := s.log.WithFields(logrus.Fields{"link_a": idA, "link_b": idB})

	a, err := s.repo.GetLink(ctx, idA)
	if err != nil {
		return "", fmt.Errorf("load link %s: %w", idA, err)
	}
	b, err := s.repo.GetLink(ctx, idB)
	if err != nil {
		return "", fmt.Errorf("load link %s: %w", idB, err)
	}

	var name string
	switch {
	case a.Subcategory != "" && b.Subcategory != "" && a.Subcategory != b.Subcategory:
		name = s.namer.NameGroup(ctx, candidate(a), candidate(b))
		log.WithField("group_name", name).Info("Links were in different groups, created a merged group")
	case b.Subcategory != "":
		name = b.Subcategory
		log.WithField("group_name", name).Info("Adding to existing group")
	case a.Subcategory != "":
		name = a.Subcategory
		log.WithField("group_name", name).Info("Using dragged link's group")
	default:
		name = s.namer.NameGroup(ctx, candidate(a), candidate(b))
		log.WithField("group_name", name).Info("Created new group")
	}

	update := storage.CategoryUpdate{Subcategory: &name}
	if bucket, ok := targetBucket(a, b); ok {
		update.Bucket = &bucket
	}
	if err := s.repo.UpdateCategory(ctx, []string{idA, idB}, update); err != nil {
		return "", fmt.Errorf("apply group: %w", err)
	}
	return name, nil
}

// targetBucket prefers the bucket of the link dropped onto.
func targetBucket(a, b domain.Link) (domain.Bucket, bool) {
	if b.Para != nil && b.Para.Bucket != "" {
		return b.Para.Bucket, true
	}
	if a.Para != nil && a.Para.Bucket != "" {
		return a.Para.Bucket, true
	}
	return "", false
}

func candidate(l domain.Link) classifier.GroupCandidate {
	return classifier.GroupCandidate{
		Title:       l.DisplayName(),
		Description: l.Description,
	}
}
