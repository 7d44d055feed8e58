package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/bakinscan/internal/model"
)

// referencePathPrefix is the path every reference page lives under.
// The site occasionally links page names straight off the host root;
// those links are repaired before use.
const referencePathPrefix = "/csreference/doc/ja/"

// minDescriptionLen filters out stray fragments when hunting for
// description text.
const minDescriptionLen = 5

// minMeaningfulLen is the stricter bound used when scanning free
// paragraphs, where navigation text is common.
const minMeaningfulLen = 10

// Extractor parses reference pages into records.
//
// Design decision: We use goquery rather than walking x/net/html nodes
// by hand because:
//  1. The layered selector strategy maps directly to CSS selectors
//  2. Each fallback stays a one-line query instead of a nested walk
//  3. goquery tolerates the malformed markup real pages carry
type Extractor struct {
	// baseURL resolves links when a page carries no URL of its own.
	baseURL string

	// logger receives per-section debug lines.
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for per-section diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Extractor. baseURL is the crawl root used to resolve
// relative links on pages that do not record their own URL.
func New(baseURL string, opts ...Option) *Extractor {
	e := &Extractor{
		baseURL: baseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// parseDocument builds a goquery document from the fetched page body.
func parseDocument(page *model.Page) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmptyDocument, err)
	}
	return doc, nil
}

// requireTitle checks that the page carries its identity block. Pages
// without one cannot be attributed to a namespace or class and are
// rejected as a whole.
func requireTitle(doc *goquery.Document) error {
	if doc.Find("div.headertitle, div.title").Length() == 0 {
		return ErrMissingTitle
	}
	return nil
}

// pageTitle returns the cleaned heading of the page, falling back to
// the document title.
func pageTitle(doc *goquery.Document) string {
	if title := cleanText(doc.Find("div.title").First().Text()); title != "" {
		return title
	}
	return cleanText(doc.Find("title").First().Text())
}

// cleanText trims the string and collapses internal whitespace runs to
// single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// optionalText returns a pointer to the cleaned string, or nil when
// nothing meaningful remains.
func optionalText(s string) *string {
	cleaned := cleanText(s)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// longerThan reports whether text is longer than n runes. Length checks
// count runes, not bytes, because most of the site text is Japanese.
func longerThan(text string, n int) bool {
	return utf8.RuneCountInString(text) > n
}

// resolveHref makes href absolute against the page URL, then repairs
// links that bypass the reference path.
func (e *Extractor) resolveHref(pageURL, href string) string {
	if href == "" {
		return ""
	}
	base := pageURL
	if base == "" {
		base = e.baseURL
	}
	parsedBase, err := url.Parse(base)
	if err != nil {
		return href
	}
	parsedRef, err := url.Parse(href)
	if err != nil {
		return href
	}
	return repairReferenceURL(parsedBase.ResolveReference(parsedRef).String())
}

// repairReferenceURL reinserts the reference path into absolute links
// that point a page name straight at the host root.
func repairReferenceURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	if strings.Contains(parsed.Path, referencePathPrefix) {
		return raw
	}
	name := path.Base(parsed.Path)
	if strings.HasPrefix(name, "class_") || strings.HasPrefix(name, "namespace_") {
		parsed.Path = referencePathPrefix + name
		return parsed.String()
	}
	return raw
}

// rowDescription pulls the description cell out of the table row the
// link sits in. Directory tables keep the entry in the first cell and
// the description in the second.
func rowDescription(link *goquery.Selection) *string {
	row := link.Closest("tr")
	if row.Length() == 0 {
		return nil
	}
	if desc := row.Find("td.desc").First(); desc.Length() > 0 {
		return optionalText(desc.Text())
	}
	cells := row.Find("td")
	if cells.Length() > 1 {
		return optionalText(cells.Eq(1).Text())
	}
	return nil
}
