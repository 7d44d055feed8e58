package progress

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of Tracker counters.
type Snapshot struct {
	// Done counts items fetched and extracted in this invocation.
	Done int

	// Reused counts items satisfied from the checkpoint store.
	Reused int

	// Failed counts items that exhausted their attempts.
	Failed int

	// Skipped counts pages the server reported absent.
	Skipped int

	// Total is the largest work item total seen so far.
	Total int

	// Elapsed spans from the first recorded event to the last.
	Elapsed time.Duration
}

// Terminal returns how many items reached a terminal state.
func (s Snapshot) Terminal() int {
	return s.Done + s.Reused + s.Failed + s.Skipped
}

// Tracker is a Sink that keeps live counters, so callers can render
// progress without reaching into the pipeline. Elapsed time is derived
// from event timestamps rather than a wall clock, which keeps snapshots
// deterministic under a test clock. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	first   time.Time
	last    time.Time
	done    int
	reused  int
	failed  int
	skipped int
	total   int
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record folds the event into the counters.
func (t *Tracker) Record(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.first.IsZero() || event.At.Before(t.first) {
		t.first = event.At
	}
	if event.At.After(t.last) {
		t.last = event.At
	}
	if event.Total > t.total {
		t.total = event.Total
	}

	if event.Stage != StageItem {
		return
	}
	switch event.Outcome {
	case OutcomeDone:
		t.done++
	case OutcomeReused:
		t.reused++
	case OutcomeFailed:
		t.failed++
	case OutcomeSkipped:
		t.skipped++
	}
}

// Snapshot returns the current counter values.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	var elapsed time.Duration
	if !t.first.IsZero() {
		elapsed = t.last.Sub(t.first)
	}
	return Snapshot{
		Done:    t.done,
		Reused:  t.reused,
		Failed:  t.failed,
		Skipped: t.skipped,
		Total:   t.total,
		Elapsed: elapsed,
	}
}
