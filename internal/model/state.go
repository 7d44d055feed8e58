package model

import (
	"sync"
	"time"
)

// FailedItem records one work item that ended Failed, with enough context
// for a user to inspect the URL or re-run just the failed set.
type FailedItem struct {
	// Key is the canonical item key.
	Key string `json:"key"`

	// URL is the URL as discovered.
	URL string `json:"url"`

	// Role is the page kind of the item.
	Role PageRole `json:"role"`

	// Kind classifies the failure.
	Kind ErrorKind `json:"kind"`

	// Message is the human readable failure summary.
	Message string `json:"message"`

	// At is when the item was marked Failed.
	At time.Time `json:"at"`
}

// SkippedItem records one URL the server reported as absent. Skips are
// kept apart from failures because a missing page is a property of the
// site, not a crawl defect.
type SkippedItem struct {
	// Key is the canonical item key.
	Key string `json:"key"`

	// URL is the URL as discovered.
	URL string `json:"url"`

	// Reason is the human readable skip reason.
	Reason string `json:"reason"`
}

// ItemWarning records a tolerated extraction problem on a page that still
// produced a record, for example a member section that could not be
// parsed.
type ItemWarning struct {
	// Key is the canonical item key.
	Key string `json:"key"`

	// Message describes the tolerated problem.
	Message string `json:"message"`
}

// CrawlState is the in-memory aggregate for one crawl run.
//
// Design decision: The identity fields are plain exported fields while
// counters and lists sit behind mutex guarded methods because:
// 1. Identity is written once by the orchestrator before workers start
// 2. Counters and lists are appended by concurrent extract workers
// 3. Splitting the two keeps the lock out of read-mostly code paths
//
// The state is rebuilt from the checkpoint store on resume; it is never
// itself the durable record.
type CrawlState struct {
	// RunID identifies the crawl run. It stays stable across resumes of
	// the same checkpoint database.
	RunID string

	// RootURL is the index page the crawl starts from.
	RootURL string

	// StartedAt is when the run was first created. Resumed invocations
	// keep the original value so artifact naming does not drift.
	StartedAt time.Time

	// DatasetPath is the dataset artifact location, set during
	// Finalizing.
	DatasetPath string

	// ClassListPath is the class list artifact location, set during
	// Finalizing.
	ClassListPath string

	mu           sync.Mutex
	phase        Phase
	totalNS      int
	totalClasses int
	done         int
	fetched      int
	reused       int
	failures     []FailedItem
	skipped      []SkippedItem
	warnings     []ItemWarning
	finishedAt   time.Time
}

// NewCrawlState returns a state in the Discovering phase.
func NewCrawlState(runID, rootURL string, startedAt time.Time) *CrawlState {
	return &CrawlState{
		RunID:     runID,
		RootURL:   rootURL,
		StartedAt: startedAt,
		phase:     PhaseDiscovering,
	}
}

// SetPhase moves the run to the given phase.
func (s *CrawlState) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

// Phase returns the current phase.
func (s *CrawlState) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetTotals records how many namespaces and classes discovery found.
func (s *CrawlState) SetTotals(namespaces, classes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalNS = namespaces
	s.totalClasses = classes
}

// Totals returns the discovered namespace and class counts.
func (s *CrawlState) Totals() (namespaces, classes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalNS, s.totalClasses
}

// AddDone counts one item that reached Done. reused marks items satisfied
// from the checkpoint store without a network fetch.
func (s *CrawlState) AddDone(reused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	if reused {
		s.reused++
	} else {
		s.fetched++
	}
}

// AddFailure records one item that ended Failed.
func (s *CrawlState) AddFailure(item FailedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, item)
}

// AddSkip records one URL the server reported as absent.
func (s *CrawlState) AddSkip(item SkippedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped = append(s.skipped, item)
}

// AddWarnings records tolerated extraction problems for one item.
func (s *CrawlState) AddWarnings(key string, messages []string) {
	if len(messages) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range messages {
		s.warnings = append(s.warnings, ItemWarning{Key: key, Message: msg})
	}
}

// Progress returns the terminal item counts recorded so far. It exists
// for progress reporting, which needs the running totals without paying
// for the full Summary copy on every item.
func (s *CrawlState) Progress() (done, failed, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done, len(s.failures), len(s.skipped)
}

// Failures returns a copy of the recorded failures.
func (s *CrawlState) Failures() []FailedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FailedItem, len(s.failures))
	copy(out, s.failures)
	return out
}

// Skipped returns a copy of the recorded skips.
func (s *CrawlState) Skipped() []SkippedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SkippedItem, len(s.skipped))
	copy(out, s.skipped)
	return out
}

// Warnings returns a copy of the recorded warnings.
func (s *CrawlState) Warnings() []ItemWarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ItemWarning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// Finish moves the run to its terminal phase and returns it: Done when
// every item produced a record, DoneWithErrors when anything failed or
// was skipped.
func (s *CrawlState) Finish(now time.Time) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.failures) > 0 || len(s.skipped) > 0 {
		s.phase = PhaseDoneWithErrors
	} else {
		s.phase = PhaseDone
	}
	s.finishedAt = now
	return s.phase
}

// Summary is the run-level result reported at the end of a crawl and by
// the status command.
type Summary struct {
	RunID           string        `json:"run_id"`
	RootURL         string        `json:"root_url"`
	Phase           string        `json:"phase"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	TotalNamespaces int           `json:"total_namespaces"`
	TotalClasses    int           `json:"total_classes"`
	DoneCount       int           `json:"done_count"`
	FetchedCount    int           `json:"fetched_count"`
	ReusedCount     int           `json:"reused_count"`
	FailedCount     int           `json:"failed_count"`
	NotFoundCount   int           `json:"not_found_count"`
	WarningCount    int           `json:"warning_count"`
	Failed          []FailedItem  `json:"failed,omitempty"`
	Skipped         []SkippedItem `json:"skipped,omitempty"`
	DatasetPath     string        `json:"dataset_path,omitempty"`
	ClassListPath   string        `json:"class_list_path,omitempty"`
}

// Summary builds the run-level summary from the current state.
func (s *CrawlState) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	failed := make([]FailedItem, len(s.failures))
	copy(failed, s.failures)
	skipped := make([]SkippedItem, len(s.skipped))
	copy(skipped, s.skipped)

	return Summary{
		RunID:           s.RunID,
		RootURL:         s.RootURL,
		Phase:           s.phase.String(),
		StartedAt:       s.StartedAt,
		FinishedAt:      s.finishedAt,
		TotalNamespaces: s.totalNS,
		TotalClasses:    s.totalClasses,
		DoneCount:       s.done,
		FetchedCount:    s.fetched,
		ReusedCount:     s.reused,
		FailedCount:     len(failed),
		NotFoundCount:   len(skipped),
		WarningCount:    len(s.warnings),
		Failed:          failed,
		Skipped:         skipped,
		DatasetPath:     s.DatasetPath,
		ClassListPath:   s.ClassListPath,
	}
}
