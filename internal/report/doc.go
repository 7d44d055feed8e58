// Package report turns crawl results into user-facing output.
//
// This package contains two kinds of writers:
//   - Summary writers (SimpleWriter, JSONWriter, MarkdownWriter) render
//     the run summary for terminal display, tool integration, and
//     documentation.
//   - ArtifactWriter and DocRenderer produce the durable dataset files
//     and the per-namespace Markdown pages rendered from them.
//
// Design decision: We separate output formatting from the data
// structures (which are in the model package) to follow the single
// responsibility principle. This allows adding new output formats
// without modifying the core data structures.
//
// Summary writers implement the Writer interface, allowing them to be
// used interchangeably and composed for multi-format output.
package report
