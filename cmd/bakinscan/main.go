// Package main provides the entry point for the bakinscan CLI.
//
// bakinscan crawls the RPG Developer Bakin C# API reference site and
// extracts every namespace, class, and member into a JSON dataset.
// Progress is checkpointed in SQLite after each page, so an interrupted
// crawl resumes where it stopped instead of refetching.
//
// Usage:
//
//	bakinscan scan
//	bakinscan status
//	bakinscan render output/namespaces_list_20260825_093000.json
//
// See --help for all available options.
package main

// main is the entry point for bakinscan.
func main() {
	Execute()
}
