// Package config provides configuration structures and utilities for
// bakinscan. It defines the crawl options (request pacing, retries,
// concurrency), checkpoint and artifact locations, and render
// preferences.
package config
