// Package progress carries crawl progress events from the pipeline to
// pluggable sinks.
//
// The pipeline emits an Event at run boundaries, phase transitions, item
// completions, and artifact writes. Sinks are write-only observers: they
// must not influence scheduling or output, so a crawl behaves identically
// whether zero or several sinks are attached.
//
// Design decision: Sinks receive events synchronously and return no error
// because:
// 1. The crawl completes roughly one item per second, so there is no
//    backpressure to manage
// 2. A sink that could fail the crawl would break the write-only rule
// 3. Per-worker ordering stays the order of record calls, which keeps
//    the event stream debuggable
package progress
