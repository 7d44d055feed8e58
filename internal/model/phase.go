package model

// Phase represents where a crawl run is in its lifecycle.
//
// A run moves strictly forward: Discovering, then Extracting, then
// Finalizing, and ends in either Done or DoneWithErrors. The phase is
// persisted with the run row so `bakinscan status` can report where an
// interrupted run stopped.
type Phase string

// Crawl phase constants.
const (
	// PhaseUnknown represents an unrecognized phase.
	PhaseUnknown Phase = ""
	// PhaseDiscovering means the index and namespace pages are being
	// processed to enumerate all work items.
	PhaseDiscovering Phase = "discovering"
	// PhaseExtracting means class pages are being fetched and extracted
	// by the worker pool.
	PhaseExtracting Phase = "extracting"
	// PhaseFinalizing means all items are terminal and the dataset
	// artifact is being assembled and written.
	PhaseFinalizing Phase = "finalizing"
	// PhaseDone means the run finished with every item extracted.
	PhaseDone Phase = "done"
	// PhaseDoneWithErrors means the run finished but some items ended up
	// Failed or were skipped as missing.
	PhaseDoneWithErrors Phase = "done_with_errors"
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	if p == PhaseUnknown {
		return roleUnknownStr
	}
	return string(p)
}

// IsValid returns true if this is a known phase.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseDiscovering, PhaseExtracting, PhaseFinalizing, PhaseDone, PhaseDoneWithErrors:
		return true
	default:
		return false
	}
}

// IsFinished returns true if the run reached a terminal phase.
func (p Phase) IsFinished() bool {
	return p == PhaseDone || p == PhaseDoneWithErrors
}

// ParsePhase converts a string to Phase.
func ParsePhase(s string) Phase {
	switch s {
	case "discovering":
		return PhaseDiscovering
	case "extracting":
		return PhaseExtracting
	case "finalizing":
		return PhaseFinalizing
	case "done":
		return PhaseDone
	case "done_with_errors":
		return PhaseDoneWithErrors
	default:
		return PhaseUnknown
	}
}
