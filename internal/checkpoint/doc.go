// Package checkpoint provides the durable crawl ledger for bakinscan.
//
// This package implements the Store, which records:
//   - One row per work item (index, namespace, or class URL) with its
//     lifecycle status and, once Done, the extracted record payload
//   - One row per crawl run with phase, counters, and artifact paths
//   - Store-level metadata such as the schema version
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of a
// flat progress file because:
// 1. One guarded UPDATE per completion is durable under WAL; a crash can
//    only lose the in-flight item, never a completed one
// 2. Resume is a single indexed query over the status column
// 3. The CGO-free driver keeps the tool a single static binary
//
// The store serializes all writers over a single connection. SQLite
// allows one writer at a time anyway, and the crawl completes roughly one
// item per second, so connection pooling would buy nothing.
package checkpoint
