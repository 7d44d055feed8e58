package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// MaxBodySize caps how many bytes of a fetched page body are retained.
// Reference pages are at most a few hundred kilobytes, so anything larger
// is a misbehaving response and gets truncated rather than buffered
// without bound.
const MaxBodySize = 5 * 1024 * 1024

// Page represents one fetched reference page, the unit handed from the
// fetcher to the extractor.
type Page struct {
	// URL is the absolute URL the page was fetched from.
	URL string

	// Role identifies the page kind, which selects the extraction
	// strategy.
	Role PageRole

	// StatusCode is the HTTP status of the final attempt.
	StatusCode int

	// ContentType is the Content-Type response header, if present.
	ContentType string

	// Body is the page body decoded to UTF-8, capped at MaxBodySize.
	Body []byte

	// Hash is the hex encoded SHA-256 of Body, set by ComputeHash.
	Hash string

	// FetchedAt is when the successful attempt completed.
	FetchedAt time.Time

	// Attempts is how many HTTP attempts the fetch took, the successful
	// one included.
	Attempts int
}

// ComputeHash fills Hash from the current Body and returns it. The hash
// is persisted with the checkpoint entry, so a re-crawl can tell whether
// a page actually changed since the last run.
func (p *Page) ComputeHash() string {
	sum := sha256.Sum256(p.Body)
	p.Hash = hex.EncodeToString(sum[:])
	return p.Hash
}

// IsHTML reports whether the response declared an HTML content type. A
// missing Content-Type header counts as HTML because the reference
// server omits it on some pages.
func (p *Page) IsHTML() bool {
	if p.ContentType == "" {
		return true
	}
	contentType := strings.ToLower(p.ContentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

// Truncate drops body bytes beyond max and recomputes the hash if one was
// already set. A non-positive max leaves the page unchanged.
func (p *Page) Truncate(max int) {
	if max <= 0 || len(p.Body) <= max {
		return
	}
	p.Body = p.Body[:max]
	if p.Hash != "" {
		p.ComputeHash()
	}
}
