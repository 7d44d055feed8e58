package model

import (
	"net/url"
	"strings"
	"time"
)

// WorkItem is one unit of crawl work: a single URL with a known role. The
// checkpoint store persists one row per item, keyed by the canonical URL,
// and the orchestrator schedules items whose status is still Pending.
type WorkItem struct {
	// Key is the canonical form of URL, see CanonicalKey. Two URLs that
	// canonicalize identically are the same item.
	Key string

	// URL is the absolute URL as discovered on the site.
	URL string

	// Role identifies the page kind behind the URL.
	Role PageRole

	// NamespaceKey is the Key of the parent namespace item for class
	// items, empty otherwise. Finalizing uses it to attach class records
	// to their namespace.
	NamespaceKey string

	// Status is the current lifecycle state.
	Status Status

	// Attempts counts HTTP attempts spent on the item across all runs.
	Attempts int

	// ErrorKind classifies the failure when Status is Failed.
	ErrorKind ErrorKind

	// ErrorMessage is the human readable failure summary when Status is
	// Failed.
	ErrorMessage string

	// ContentHash is the SHA-256 of the fetched body when Status is Done.
	ContentHash string

	// UpdatedAt is when the row last changed.
	UpdatedAt time.Time
}

// NewWorkItem returns a Pending item for the URL with its key derived.
func NewWorkItem(role PageRole, rawURL, namespaceKey string) WorkItem {
	return WorkItem{
		Key:          CanonicalKey(rawURL),
		URL:          rawURL,
		Role:         role,
		NamespaceKey: namespaceKey,
		Status:       StatusPending,
	}
}

// CanonicalKey normalizes a URL into the deduplication key used by the
// checkpoint store: scheme and host are lowercased and the fragment is
// dropped. Path and query are kept as-is because the reference server
// treats path case as significant. Unparseable input falls back to the
// trimmed raw string so a malformed href still gets a stable key.
func CanonicalKey(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	parsed.Fragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed.String()
}
