// Package pipeline orchestrates a crawl run as a sequence of steps.
//
// A run moves through three stages over the fixed site topology: discovery
// walks the index and namespace pages and seeds the class work list,
// extraction drains that list through a bounded worker pool, and finalizing
// assembles the stored records into the dataset artifacts. Each stage is a
// Step that receives the shared crawl state, so an interrupted run can be
// re-entered at any point and every step finds the work its predecessors
// already committed to the checkpoint store.
//
// Design decision: We use a pipeline pattern instead of direct function
// calls because:
// 1. Each stage no-ops over work the checkpoint store already holds, which
//    makes resume a property of the structure rather than special casing
// 2. It provides consistent error handling and logging across stages
// 3. It supports cancellation via context for long-running crawls
// 4. Steps can be recombined, for example finalize-only over a finished
//    store
//
// The pipeline supports both single-root crawls and batch processing of
// several roots with concurrency control using errgroup.
package pipeline
