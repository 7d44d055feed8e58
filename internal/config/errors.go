package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoRootURL is returned when the root URL list is empty.
	// The defaults always provide one, so this only happens when a caller
	// explicitly clears the list.
	ErrNoRootURL = errors.New("no root URL specified: provide at least one index page to crawl")

	// ErrInvalidRootURL is returned when a root URL is not an absolute
	// http or https URL.
	ErrInvalidRootURL = errors.New("invalid root URL: must be an absolute http(s) URL")

	// ErrInvalidTimeout is returned when the per-attempt timeout is not
	// positive. A timeout of zero or negative would cause immediate
	// request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetryCount is returned when the retry count is negative.
	// Use 0 to disable retries entirely.
	ErrInvalidRetryCount = errors.New("invalid retry count: must be non-negative")

	// ErrInvalidRetryDelay is returned when the retry base delay is
	// negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidRequestInterval is returned when the request interval is
	// negative. Use 0 to disable request pacing.
	ErrInvalidRequestInterval = errors.New("invalid request interval: must be non-negative")

	// ErrInvalidConcurrency is returned when the worker count is not
	// positive. Zero workers would stall the extraction phase.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no roots are processed.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidSnapshotInterval is returned when the snapshot interval
	// is negative. Use 0 to disable periodic snapshots.
	ErrInvalidSnapshotInterval = errors.New("invalid snapshot interval: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at a
	// time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is
	// negative. Use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
