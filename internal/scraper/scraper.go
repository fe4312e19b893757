package scraper

import "context"

// Metadata is the human-readable summary of a page. Empty fields mean the
// value could not be determined.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Scraper defines the interface for fetching metadata from a URL.
type Scraper interface {
	// FetchMetadata never fails: on any error it returns a title derived
	// from the URL and an empty description.
	FetchMetadata(ctx context.Context, url string) Metadata
}

// Page is a fetched document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// PageLoader retrieves the raw markup of a page.
type PageLoader interface {
	// Load returns an error for transport failures and server errors.
	// Client errors (4xx) are returned as a Page with that status.
	Load(ctx context.Context, url string) (*Page, error)
}
