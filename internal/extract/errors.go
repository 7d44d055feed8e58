package extract

import "errors"

var (
	// ErrMissingTitle is returned when a page has no title block.
	// The title block is the page's identity; a document without one is
	// not a reference page we can attribute records to, so this is the
	// one extraction error that fails the whole page.
	ErrMissingTitle = errors.New("extract: page title block is missing")

	// ErrMissingListing is returned when the index page has neither the
	// namespace directory table nor any recognizable namespace links.
	// An index with zero namespaces in an intact container is valid;
	// a page without the container is not an index.
	ErrMissingListing = errors.New("extract: namespace listing container is missing")

	// ErrEmptyDocument is returned when the page body cannot be parsed
	// as HTML at all.
	ErrEmptyDocument = errors.New("extract: document could not be parsed")
)
