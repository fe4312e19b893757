package scraper

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultArxivAPIURL  = "https://export.arxiv.org/api/query"
	DefaultArxivTimeout = 12 * time.Second
)

var arxivIDRe = regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/([0-9]{4}\.[0-9]{4,5}(?:v[0-9]+)?)`)

// ArxivID extracts a paper identifier from an arXiv abstract or PDF URL.
func ArxivID(rawURL string) string {
	m := arxivIDRe.FindStringSubmatch(strings.ToLower(rawURL))
	if m == nil {
		return ""
	}
	return m[1]
}

// arxivFeed is the subset of the Atom response used here.
type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}

// ArxivClient queries the arXiv export API.
type ArxivClient struct {
	baseURL string
	client  *http.Client
}

// NewArxivClient creates a client for the API at baseURL.
func NewArxivClient(baseURL string, timeout time.Duration, client *http.Client) *ArxivClient {
	if baseURL == "" {
		baseURL = DefaultArxivAPIURL
	}
	if timeout <= 0 {
		timeout = DefaultArxivTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	c := *client
	c.Timeout = timeout
	return &ArxivClient{baseURL: baseURL, client: &c}
}

// Lookup returns the title and abstract of a paper. A paper that is not
// found yields empty Metadata and no error.
func (a *ArxivClient) Lookup(ctx context.Context, paperID string) (Metadata, error) {
	endpoint := a.baseURL + "?id_list=" + url.QueryEscape(paperID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("build arxiv request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("arxiv request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("arxiv api returned status %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, DefaultBodyByteLimit)).Decode(&feed); err != nil {
		return Metadata{}, fmt.Errorf("decode arxiv feed: %w", err)
	}

	for _, entry := range feed.Entries {
		// Unknown ids come back as a single error entry.
		if strings.Contains(entry.ID, "/api/errors") {
			continue
		}
		return Metadata{
			Title:       collapseSpace(entry.Title),
			Description: collapseSpace(entry.Summary),
		}, nil
	}
	return Metadata{}, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
