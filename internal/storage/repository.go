package storage

import (
	"context"
	"errors"

	"parasight/internal/domain"
)

// ErrNotFound is returned when a link ID does not exist.
var ErrNotFound = errors.New("link not found")

// NewLink carries the fields known when a link is first stored.
type NewLink struct {
	URL         string
	Title       string
	Description string
	SourceNote  string
}

// Classification is the category data written after a successful
// classifier run.
type Classification struct {
	Para        domain.Para
	Tags        []string
	Subcategory string
}

// CategoryUpdate changes the bucket and/or group of a link. Nil fields
// are left untouched.
type CategoryUpdate struct {
	Bucket      *domain.Bucket
	Subcategory *string
}

// DedupReport summarizes a bulk deduplication pass.
type DedupReport struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// Repository is the persistence boundary for links. It guarantees at most
// one record per normalized URL on the StoreIfAbsent path.
type Repository interface {
	// StoreIfAbsent inserts a new unclassified link unless one with the
	// same normalized URL exists, and returns the ID of the stored record.
	StoreIfAbsent(ctx context.Context, link NewLink) (string, error)

	// GetLink returns the link with the given ID or ErrNotFound.
	GetLink(ctx context.Context, id string) (domain.Link, error)

	// ListLinks returns every link, newest first.
	ListLinks(ctx context.Context) ([]domain.Link, error)

	// SaveLink writes a link as-is, bypassing the duplicate check. Used by
	// imports and maintenance.
	SaveLink(ctx context.Context, link domain.Link) error

	// DeleteLink removes a link. Deleting a missing link is not an error.
	DeleteLink(ctx context.Context, id string) error

	ApplyClassification(ctx context.Context, id string, c Classification) error

	// UpdateCategory applies the same update to every ID in one transaction.
	UpdateCategory(ctx context.Context, ids []string, update CategoryUpdate) error

	UpdateTitle(ctx context.Context, id, title string) error

	// RenameSubcategory renames a group within a bucket and returns the
	// number of links changed.
	RenameSubcategory(ctx context.Context, bucket domain.Bucket, from, to string) (int, error)

	// Dedup deletes all but the earliest record for every normalized URL.
	Dedup(ctx context.Context) (DedupReport, error)

	// Close gracefully shuts down the repository connection.
	Close() error
}
