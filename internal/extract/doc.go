// Package extract turns fetched reference pages into structured records.
//
// The site has three page shapes and each gets its own entry point:
// Index lists every namespace, Namespace lists the classes under one
// namespace, and Class documents a single type with its members.
//
// Extraction is tolerant by design. Selectors are layered, primary
// structural selector first and positional or text heuristics after,
// and a section that cannot be parsed produces an empty list plus a
// warning instead of failing the page. Only a page whose title block
// is missing entirely is rejected, because without it the page cannot
// be identified at all.
package extract
