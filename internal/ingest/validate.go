package ingest

import (
	"errors"
	"net/url"
)

var (
	// ErrInvalidURL is returned for input that is not an absolute URL.
	ErrInvalidURL = errors.New("invalid URL format")
	// ErrUnsupportedScheme is returned for absolute URLs that are not http(s).
	ErrUnsupportedScheme = errors.New("URL must start with http:// or https://")
)

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrUnsupportedScheme
	}
	return nil
}
