package progress

import (
	"time"

	"github.com/nao1215/bakinscan/internal/model"
)

// Stage denotes the kind of milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	// StageRunStart marks the beginning of a crawl invocation.
	StageRunStart Stage = "run_start"
	// StagePhase marks a phase transition.
	StagePhase Stage = "phase"
	// StageItem marks one work item reaching a terminal state.
	StageItem Stage = "item"
	// StageArtifact marks one artifact file written during Finalizing.
	StageArtifact Stage = "artifact"
	// StageRunDone marks the end of a crawl invocation.
	StageRunDone Stage = "run_done"
)

// Outcome classifies how an item event ended.
type Outcome string

// Supported item outcomes.
const (
	// OutcomeDone means the item was fetched and extracted in this
	// invocation.
	OutcomeDone Outcome = "done"
	// OutcomeReused means the item was satisfied from the checkpoint
	// store without a fetch.
	OutcomeReused Outcome = "reused"
	// OutcomeFailed means the item exhausted its attempts.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the server reported the page absent.
	OutcomeSkipped Outcome = "skipped"
)

// Event captures a single progress milestone. Fields beyond Stage, At,
// and RunID are populated only where they apply.
type Event struct {
	// Stage is the milestone kind.
	Stage Stage

	// At is the emitter's timestamp.
	At time.Time

	// RunID identifies the crawl run.
	RunID string

	// Phase is the run phase after a StagePhase transition.
	Phase model.Phase

	// Key is the canonical item key for StageItem events.
	Key string

	// URL is the item URL for StageItem events and the root URL for run
	// events.
	URL string

	// Role is the item's page role for StageItem events.
	Role model.PageRole

	// Outcome tells how a StageItem event ended.
	Outcome Outcome

	// Kind classifies the failure for failed and skipped items.
	Kind model.ErrorKind

	// Message carries free-form detail: the error text for failed items,
	// the file path for StageArtifact events.
	Message string

	// Done is the number of terminal items so far, for StageItem events.
	Done int

	// Total is the number of known work items. Zero while discovery is
	// still counting.
	Total int
}
