package model

// NamespaceRef is one namespace entry discovered on the index page. It is
// enough to schedule the namespace page fetch and to carry the description
// into the final dataset.
type NamespaceRef struct {
	// Name is the namespace name.
	Name string `json:"name"`

	// URL is the absolute namespace page URL.
	URL string `json:"url"`

	// Description is the summary text next to the index entry, if any.
	Description *string `json:"description"`
}

// ClassRef is one class entry discovered on a namespace page. The full
// record is produced later by the class page extraction; the ref alone is
// enough for the class list artifact.
type ClassRef struct {
	// Name is the short class name.
	Name string `json:"name"`

	// FullName is the namespace qualified name derived from the URL.
	FullName string `json:"full_name"`

	// URL is the absolute class page URL.
	URL string `json:"url"`

	// Description is the summary text next to the entry, if any.
	Description *string `json:"description"`
}

// IndexListing is the extraction result of the root index page and the
// stored payload of the index work item.
type IndexListing struct {
	// SourceURL is the index page URL the listing came from.
	SourceURL string `json:"source_url"`

	// Namespaces lists every namespace found, in document order.
	Namespaces []NamespaceRef `json:"namespaces"`
}

// NamespaceListing is the extraction result of one namespace page and the
// stored payload of the namespace work item.
type NamespaceListing struct {
	// Name is the namespace name.
	Name string `json:"name"`

	// URL is the absolute namespace page URL.
	URL string `json:"url"`

	// Description is the namespace summary carried over from the index.
	Description *string `json:"description"`

	// Classes lists every class found on the page, in document order.
	Classes []ClassRef `json:"classes"`
}
