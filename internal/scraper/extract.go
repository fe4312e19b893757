package scraper

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	minTitleLen    = 3
	minAbstractLen = 50
)

// extractor pulls one candidate value out of a parsed document.
type extractor func(doc *html.Node) string

// firstOf runs extractors in order and returns the first result that is at
// least minLen characters long.
func firstOf(doc *html.Node, minLen int, chain ...extractor) string {
	for _, ex := range chain {
		if v := ex(doc); utf8.RuneCountInString(v) >= minLen {
			return v
		}
	}
	return ""
}

func titleChain(arxiv bool) []extractor {
	chain := []extractor{documentTitle}
	if arxiv {
		chain = []extractor{arxivDocumentTitle, arxivHeadingTitle}
	}
	return append(chain,
		metaContent("og:title"),
		metaContent("twitter:title"),
		firstHeading,
	)
}

var descriptionChain = []extractor{
	metaContent("description"),
	metaContent("og:description"),
	metaContent("twitter:description"),
}

func documentTitle(doc *html.Node) string {
	if n := find(doc, isElement(atom.Title)); n != nil {
		return textOf(n)
	}
	return ""
}

var arxivTitleRe = regexp.MustCompile(`^\[[0-9.v]+\]\s*(.*)$`)

// arxivDocumentTitle unwraps "[2401.00001] Actual Title". A title holding
// only the bracketed id yields nothing.
func arxivDocumentTitle(doc *html.Node) string {
	title := documentTitle(doc)
	if m := arxivTitleRe.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1])
	}
	return title
}

var titlePrefixRe = regexp.MustCompile(`(?i)^title:\s*`)

func arxivHeadingTitle(doc *html.Node) string {
	n := find(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.H1 && hasClass(n, "title")
	})
	if n == nil {
		return ""
	}
	return titlePrefixRe.ReplaceAllString(textOf(n), "")
}

var abstractPrefixRe = regexp.MustCompile(`(?i)^abstract:\s*`)

func arxivAbstract(doc *html.Node) string {
	n := find(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Blockquote && hasClass(n, "abstract")
	})
	if n == nil {
		return ""
	}
	return abstractPrefixRe.ReplaceAllString(textOf(n), "")
}

func firstHeading(doc *html.Node) string {
	if n := find(doc, isElement(atom.H1)); n != nil {
		return textOf(n)
	}
	return ""
}

// metaContent matches <meta name=key> as well as <meta property=key>.
func metaContent(key string) extractor {
	return func(doc *html.Node) string {
		n := find(doc, func(n *html.Node) bool {
			if n.Type != html.ElementNode || n.DataAtom != atom.Meta {
				return false
			}
			return strings.EqualFold(attr(n, "name"), key) || strings.EqualFold(attr(n, "property"), key)
		})
		if n == nil {
			return ""
		}
		return strings.TrimSpace(attr(n, "content"))
	}
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

// find returns the first node in document order matching pred.
func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpace(b.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
