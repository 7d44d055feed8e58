package checkpoint

import "errors"

var (
	// ErrUnknownItem is returned when MarkDone or MarkFailed is called
	// for a key that was never seeded. The work list is fixed by
	// discovery; marking an unseeded key means the caller lost track of
	// its own items.
	ErrUnknownItem = errors.New("checkpoint: unknown work item key")

	// ErrUnknownRun is returned when run bookkeeping references a run ID
	// that does not exist in the store.
	ErrUnknownRun = errors.New("checkpoint: unknown run id")

	// ErrSchemaMismatch is returned when the database was written with a
	// different schema version than this build supports. The store fails
	// fast instead of guessing how to migrate.
	ErrSchemaMismatch = errors.New("checkpoint: schema version mismatch")
)
