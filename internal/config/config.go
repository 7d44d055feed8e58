package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are tuned for the Bakin C# reference site, which serves a
// few thousand small static pages and deserves polite pacing.
const (
	// DefaultRootURL is the Japanese namespace index of the Bakin C#
	// reference. The whole site topology hangs off this one page.
	DefaultRootURL = "https://rpgbakin.com/csreference/doc/ja/namespaces.html"

	// DefaultTimeout is the per-attempt HTTP timeout. The reference
	// server normally answers in well under a second; 30 seconds is
	// enough headroom for bad days without stalling the run forever.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is how many times a retryable fetch failure is
	// attempted again. With the exponential backoff this bounds a single
	// bad URL to four requests and about seven seconds of waiting.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the first retry backoff. Subsequent
	// retries double it, and a small jitter is added so concurrent
	// failures do not retry in lockstep.
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultRequestInterval is the minimum spacing between any two
	// requests to the site, shared across all workers. 1 second keeps a
	// full crawl around an hour while staying gentle on the origin.
	DefaultRequestInterval = 1 * time.Second

	// DefaultConcurrency is the number of extract workers. Workers share
	// the request gate, so more workers overlap parsing rather than
	// multiplying request rate.
	DefaultConcurrency = 4

	// DefaultBatchSize is the number of crawl roots processed
	// concurrently when several are given. Roots share the request gate,
	// so batching mainly overlaps extraction work.
	DefaultBatchSize = 2

	// DefaultSnapshotEvery is how many completed items trigger a dataset
	// snapshot flush. 0 disables periodic flushing; the final flush at
	// completion always happens.
	DefaultSnapshotEvery = 25

	// DefaultOutputDir is where dataset artifacts are written.
	DefaultOutputDir = "output"

	// AppName is the application name used for XDG directory paths.
	AppName = "bakinscan"

	// DefaultUserAgent identifies bakinscan in HTTP requests. A
	// descriptive User-Agent lets the site operator attribute crawler
	// traffic in their logs.
	DefaultUserAgent = "bakinscan/2.0 (+https://github.com/nao1215/bakinscan)"

	// DefaultMaxBodySize limits the response body size to read. 5MB is
	// far above any real reference page while preventing memory
	// exhaustion from a misbehaving response.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// CheckpointDBFile is the SQLite file name inside the checkpoint
	// directory.
	CheckpointDBFile = "checkpoint.db"
)

// Config holds all configuration options for bakinscan.
// This struct is designed to be populated from CLI flags and passed
// through the application via dependency injection rather than global
// state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FetchConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant
// benefit. If the configuration grows significantly, consider refactoring
// into sub-structs.
type Config struct {
	// RootURLs lists the index pages to crawl. Usually a single entry;
	// multiple entries are processed as a batch sharing one request gate.
	RootURLs []string

	// Timeout is the HTTP timeout for each individual attempt. Retries
	// get a fresh timeout each.
	Timeout time.Duration

	// MaxRetries is how many additional attempts a retryable failure
	// gets before the item is marked Failed.
	MaxRetries int

	// RetryBaseDelay is the backoff before the first retry. Attempt n
	// waits RetryBaseDelay * 2^(n-1) plus jitter.
	RetryBaseDelay time.Duration

	// RequestInterval is the minimum spacing between requests, enforced
	// across every worker. Zero disables pacing, which is only sensible
	// against a local test server.
	RequestInterval time.Duration

	// Concurrency is the number of extract workers fetching class pages.
	Concurrency int

	// BatchSize is the number of roots crawled concurrently when
	// RootURLs has several entries.
	BatchSize int

	// SnapshotEvery flushes a dataset snapshot after this many completed
	// items. Zero disables periodic snapshots.
	SnapshotEvery int

	// RetryFailed requeues items left Failed by a previous invocation so
	// they get one more round of attempts. Items already Done are never
	// touched.
	RetryFailed bool

	// Fresh discards all checkpoint state before crawling, forcing a
	// full refetch of every page.
	Fresh bool

	// ClassList also writes the classes_list.json artifact during
	// Finalizing.
	ClassList bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, info and above are logged.
	Verbose bool

	// Quiet suppresses the progress and summary output on stdout.
	// Warnings and errors are still logged.
	Quiet bool

	// CheckpointDir is the directory holding the SQLite checkpoint
	// database. Defaults to the XDG data directory.
	CheckpointDir string

	// OutputDir is the directory artifacts are written into.
	OutputDir string

	// LocalDir, when set, serves pages from previously saved HTML files
	// in that directory instead of the network. Useful for re-extraction
	// after parser fixes and for tests.
	LocalDir string

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches for .bakinscan in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-host overrides loaded from the config file.
	SiteConfigs *File

	// JSONReport enables JSON output for the render command instead of
	// the human-readable summary. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown output for the render command.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for rendered reports. When
	// empty, reports go to stdout.
	ReportFile string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated. Zero means the default.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, request
// interval). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		RootURLs:        []string{DefaultRootURL},
		Timeout:         DefaultTimeout,
		MaxRetries:      DefaultMaxRetries,
		RetryBaseDelay:  DefaultRetryBaseDelay,
		RequestInterval: DefaultRequestInterval,
		Concurrency:     DefaultConcurrency,
		BatchSize:       DefaultBatchSize,
		SnapshotEvery:   DefaultSnapshotEvery,
		RetryFailed:     true,
		CheckpointDir:   XDGDataDir(),
		OutputDir:       DefaultOutputDir,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
	}
}

// CheckpointDBPath returns the full path of the SQLite checkpoint
// database.
func (c *Config) CheckpointDBPath() string {
	dir := c.CheckpointDir
	if dir == "" {
		dir = XDGDataDir()
	}
	return filepath.Join(dir, CheckpointDBFile)
}

// XDGDataDir returns the XDG data directory for bakinscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/bakinscan
// On macOS: ~/Library/Application Support/bakinscan
// On Windows: %LOCALAPPDATA%\bakinscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for bakinscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/bakinscan
// On macOS: ~/Library/Application Support/bakinscan
// On Windows: %APPDATA%\bakinscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for bakinscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/bakinscan
// On macOS: ~/Library/Caches/bakinscan
// On Windows: %LOCALAPPDATA%\bakinscan\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one root to crawl
	if len(c.RootURLs) == 0 {
		return ErrNoRootURL
	}

	// Every root must be an absolute http(s) URL
	for _, root := range c.RootURLs {
		parsed, err := url.Parse(root)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return ErrInvalidRootURL
		}
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// MaxRetries must be non-negative; 0 means a single attempt
	if c.MaxRetries < 0 {
		return ErrInvalidRetryCount
	}

	// RetryBaseDelay must be non-negative
	if c.RetryBaseDelay < 0 {
		return ErrInvalidRetryDelay
	}

	// RequestInterval must be non-negative; 0 disables pacing
	if c.RequestInterval < 0 {
		return ErrInvalidRequestInterval
	}

	// Concurrency must be positive; zero would mean no workers
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	// BatchSize must be positive; zero would mean no crawling
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// SnapshotEvery must be non-negative; 0 disables periodic snapshots
	if c.SnapshotEvery < 0 {
		return ErrInvalidSnapshotInterval
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// MaxBodySize must be non-negative if set
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
