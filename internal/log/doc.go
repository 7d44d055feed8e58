// Package log provides crawl-friendly logging built on top of the
// standard slog package.
//
// This package extends slog to provide:
//   - Automatic trimming of oversized attribute values (page bodies, raw HTML)
//   - Compact display of repetitive reference site URLs
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Trimming
//
// A crawl run logs thousands of lines, most of them carrying a URL and
// occasionally a fragment of the page being processed. The TrimHandler
// keeps those lines readable:
//   - String attributes longer than the configured limit are cut and
//     suffixed with the omitted byte count
//   - Attributes known to carry raw HTML (body, html, snippet) get a
//     much shorter limit than ordinary strings
//   - URLs under the crawl root are shortened to their path relative to
//     the root
//
// Even in verbose mode a log line never contains a full page body, so
// debug output stays greppable and log files stay small.
//
// # Usage
//
//	// Create a trimming logger
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("page fetched",
//	    "url", "https://rpgbakin.com/csreference/doc/ja/class_map_scene.html",
//	    "body", hugeHTML, // trimmed to a short prefix
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
