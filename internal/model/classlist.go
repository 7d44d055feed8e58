package model

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// ClassListFileName is the fixed file name of the class list artifact.
// Unlike the dataset the class list is not timestamped; each run
// replaces it in place.
const ClassListFileName = "classes_list.json"

// ClassListMetadata is the metadata block of the class list artifact.
// The artifact predates the full dataset and keeps its original
// snake_case field names so existing consumers stay compatible.
type ClassListMetadata struct {
	GeneratedAt           string `json:"generated_at"`
	SourceURL             string `json:"source_url"`
	TotalNamespaces       int    `json:"total_namespaces"`
	NamespacesWithClasses int    `json:"namespaces_with_classes"`
	TotalClasses          int    `json:"total_classes"`
	Version               string `json:"version"`
}

// ClassListNamespace is one namespace entry in the class list artifact.
type ClassListNamespace struct {
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Description *string    `json:"description"`
	ClassCount  int        `json:"class_count"`
	Classes     []ClassRef `json:"classes"`
}

// ClassList is the lightweight class enumeration artifact. Unlike the
// full dataset it needs only discovery results, so it can be produced
// even when class page extraction is still incomplete.
type ClassList struct {
	Metadata   ClassListMetadata    `json:"metadata"`
	Namespaces []ClassListNamespace `json:"namespaces"`
}

// ClassListSkip records one class entry dropped while building the class
// list, with the human readable reason.
type ClassListSkip struct {
	// Item is the qualified "Namespace.Class" label of the dropped entry.
	Item string

	// Reason explains why the entry was dropped.
	Reason string
}

// ClassListReport carries the non-fatal issues found while building a
// class list. The caller decides how to log them.
type ClassListReport struct {
	// Skips lists duplicate entries that were removed.
	Skips []ClassListSkip

	// InvalidURLs lists entries whose URL failed validation. The entries
	// stay in the artifact; the report exists so the issue is visible.
	InvalidURLs []string
}

// BuildClassList assembles the class list artifact from namespace
// listings. Entries are cleaned, relative URLs are resolved against
// baseURL, duplicates are dropped with first occurrence winning, and the
// output is sorted so repeated builds produce identical bytes.
//
// Duplicate detection runs three checks in order, mirroring how the
// artifact has always been produced:
// 1. class name already seen within the same namespace
// 2. full name already seen anywhere
// 3. URL already seen anywhere
func BuildClassList(listings []NamespaceListing, generatedAt time.Time, sourceURL, baseURL string) (*ClassList, *ClassListReport) {
	report := &ClassListReport{}

	seenFullNames := map[string]bool{}
	seenURLs := map[string]bool{}

	namespaces := make([]ClassListNamespace, 0, len(listings))
	totalClasses := 0
	withClasses := 0

	for _, listing := range listings {
		seenNames := map[string]bool{}
		entry := ClassListNamespace{
			Name:        listing.Name,
			URL:         listing.URL,
			Description: listing.Description,
			Classes:     []ClassRef{},
		}

		for _, ref := range listing.Classes {
			cleaned := cleanClassRef(ref)
			cleaned.URL = resolveClassURL(baseURL, cleaned.URL)
			item := listing.Name + "." + cleaned.Name

			switch {
			case seenNames[cleaned.Name]:
				report.Skips = append(report.Skips, ClassListSkip{
					Item:   item,
					Reason: "Duplicate class name within namespace",
				})
				continue
			case seenFullNames[cleaned.FullName]:
				report.Skips = append(report.Skips, ClassListSkip{
					Item:   item,
					Reason: "Duplicate full class name globally",
				})
				continue
			case seenURLs[cleaned.URL]:
				report.Skips = append(report.Skips, ClassListSkip{
					Item:   item,
					Reason: "Duplicate class URL",
				})
				continue
			}

			if !validClassURL(cleaned.URL) {
				report.InvalidURLs = append(report.InvalidURLs, item+": "+cleaned.URL)
			}

			seenNames[cleaned.Name] = true
			seenFullNames[cleaned.FullName] = true
			seenURLs[cleaned.URL] = true
			entry.Classes = append(entry.Classes, cleaned)
		}

		entry.ClassCount = len(entry.Classes)
		totalClasses += entry.ClassCount
		if entry.ClassCount > 0 {
			withClasses++
		}
		namespaces = append(namespaces, entry)
	}

	sort.Slice(namespaces, func(i, j int) bool {
		return namespaces[i].Name < namespaces[j].Name
	})
	for i := range namespaces {
		classes := namespaces[i].Classes
		sort.Slice(classes, func(a, b int) bool {
			if classes[a].FullName != classes[b].FullName {
				return classes[a].FullName < classes[b].FullName
			}
			return classes[a].Name < classes[b].Name
		})
	}

	return &ClassList{
		Metadata: ClassListMetadata{
			GeneratedAt:           generatedAt.UTC().Format(time.RFC3339),
			SourceURL:             sourceURL,
			TotalNamespaces:       len(namespaces),
			NamespacesWithClasses: withClasses,
			TotalClasses:          totalClasses,
			Version:               DatasetVersion,
		},
		Namespaces: namespaces,
	}, report
}

// cleanClassRef trims whitespace from every field and collapses an empty
// description to nil.
func cleanClassRef(ref ClassRef) ClassRef {
	cleaned := ClassRef{
		Name:     strings.TrimSpace(ref.Name),
		FullName: strings.TrimSpace(ref.FullName),
		URL:      strings.TrimSpace(ref.URL),
	}
	if ref.Description != nil {
		if desc := strings.TrimSpace(*ref.Description); desc != "" {
			cleaned.Description = &desc
		}
	}
	return cleaned
}

// resolveClassURL turns a relative class URL into an absolute one against
// the crawl base. Already absolute URLs pass through unchanged.
func resolveClassURL(baseURL, rawURL string) string {
	if rawURL == "" || strings.HasPrefix(rawURL, "http") {
		return rawURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return rawURL
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return base.ResolveReference(ref).String()
}

// validClassURL reports whether the URL has a scheme, a host, and a path.
func validClassURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != "" && parsed.Path != ""
}
