// Package model defines the core data structures used throughout bakinscan.
//
// This package contains the following main types:
//   - Page: a fetched reference page with its raw body and content hash
//   - WorkItem: a unit of crawl work tracked by the checkpoint store
//   - Namespace, Class: extracted API reference records
//   - Dataset: the final artifact assembled from all extracted records
//   - CrawlState: the in-memory aggregate for a single crawl run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (fetch, extract, checkpoint, pipeline, report)
// need to use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for artifact output and
// checkpoint storage. Artifact field names and their order follow the published
// dataset schema, so renderers consuming the JSON never see key drift between
// runs.
package model
