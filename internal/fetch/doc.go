// Package fetch retrieves reference pages over HTTP with request pacing
// and retry handling.
//
// This package provides:
//   - Fetcher: rate limited, retrying HTTP page retrieval
//   - FileSource: page retrieval from locally saved HTML files
//   - Error: classified fetch failures the orchestrator turns into
//     checkpoint entries
//
// # Pacing
//
// All workers share one token-paced gate: no two requests depart less
// than the configured interval apart, no matter how many workers run
// concurrently. Retries pass through the same gate, so a retrying worker
// cannot exceed the site's request budget either.
//
// # Retries
//
// Transport errors, HTTP 5xx, and HTTP 429 are retried with exponential
// backoff plus jitter. HTTP 404 and other client errors are terminal:
// the page does not exist and retrying would only waste the request
// budget.
package fetch
