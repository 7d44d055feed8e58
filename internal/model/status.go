package model

// Status represents the lifecycle state of a WorkItem in the checkpoint store.
//
// Design decision: Transitions are monotonic within a run because:
// 1. Done items must never be refetched, or resume would redo finished work
// 2. A crash can only lose the current in-flight item, never completed ones
// 3. The store can enforce the rule with a single guarded UPDATE
//
// Failed is not terminal across runs: a new invocation may requeue failed
// items back to Pending so transient outages get one more chance.
type Status string

// Work item status constants.
const (
	// StatusUnknown represents an unrecognized status.
	StatusUnknown Status = ""
	// StatusPending means the item has been discovered but not yet
	// successfully processed.
	StatusPending Status = "pending"
	// StatusDone means the item was fetched and extracted, and its payload
	// is stored. Done is terminal.
	StatusDone Status = "done"
	// StatusFailed means all attempts for the item were exhausted in some
	// run. Failed items may be requeued by a later invocation.
	StatusFailed Status = "failed"
)

// String returns the string representation of the Status.
func (s Status) String() string {
	if s == StatusUnknown {
		return roleUnknownStr
	}
	return string(s)
}

// IsValid returns true if this is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further processing happens for the item
// within the current run.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next preserves the
// monotonicity rule. Done never leaves Done; every other state may advance.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.IsValid() {
		return false
	}
	if s == StatusDone {
		return next == StatusDone
	}
	return true
}

// ParseStatus converts a string to Status.
func ParseStatus(s string) Status {
	switch s {
	case "pending":
		return StatusPending
	case "done":
		return StatusDone
	case "failed":
		return StatusFailed
	default:
		return StatusUnknown
	}
}
