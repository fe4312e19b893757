package domain

import (
	"fmt"
	"time"

	"parasight/internal/urlnorm"
)

// Bucket is one of the four top-level categories a link can be filed under.
type Bucket string

const (
	BucketProject  Bucket = "Project"
	BucketArea     Bucket = "Area"
	BucketResource Bucket = "Resource"
	BucketArchive  Bucket = "Archive"
)

// Buckets lists every valid bucket in display order.
var Buckets = []Bucket{BucketProject, BucketArea, BucketResource, BucketArchive}

// ParseBucket converts a literal into a Bucket. Matching is exact.
func ParseBucket(s string) (Bucket, error) {
	for _, b := range Buckets {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

// Valid reports whether b is one of the four known buckets.
func (b Bucket) Valid() bool {
	_, err := ParseBucket(string(b))
	return err == nil
}

// Para is the category assignment of a link. A nil *Para means the link
// has not been classified yet.
type Para struct {
	Bucket Bucket `json:"bucket"`
	// Name is a project/area name or resource subtopic.
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Link represents a saved bookmark.
type Link struct {
	// ID is a UUID assigned by the store on insert.
	ID string `json:"id"`

	// URL is the submitted address, kept verbatim for display and linking.
	URL string `json:"url"`

	// Title and Description come from the metadata fetch, or from the
	// classifier summary when the page had no usable description.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// SourceNote is a free-text annotation from the submitter.
	SourceNote string `json:"source_note,omitempty"`

	Para *Para    `json:"para"`
	Tags []string `json:"tags"`

	// Subcategory is the group label. Links sharing it form one group.
	Subcategory string `json:"subcategory,omitempty"`

	// CreatedAt is set once on insert.
	CreatedAt time.Time `json:"created_at"`
}

// NormalizedURL returns the deduplication key for the link.
func (l Link) NormalizedURL() string {
	return urlnorm.Normalize(l.URL)
}

// Classified reports whether a category has been assigned.
func (l Link) Classified() bool {
	return l.Para != nil
}

// DisplayName is the label used when a link is described to the model.
func (l Link) DisplayName() string {
	switch {
	case l.Title != "":
		return l.Title
	case l.Para != nil && l.Para.Name != "":
		return l.Para.Name
	default:
		return "Untitled"
	}
}

// Validate checks the structural invariants of a link.
func (l Link) Validate() error {
	if l.URL == "" {
		return fmt.Errorf("link has no url")
	}
	if l.Para != nil && !l.Para.Bucket.Valid() {
		return fmt.Errorf("link %s: invalid bucket %q", l.ID, l.Para.Bucket)
	}
	return nil
}
