package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/bakinscan/internal/model"
)

// Run is one crawl run row. A run is created the first time a root URL is
// crawled into this store and updated in place by every later invocation,
// so its ID and start time stay stable and artifact naming cannot drift
// across resumes.
type Run struct {
	// ID is the run identifier, a random UUID.
	ID string

	// RootURL is the index page the crawl starts from.
	RootURL string

	// Phase is where the run currently is in its lifecycle.
	Phase model.Phase

	// StartedAt is when the run was first created (UTC).
	StartedAt time.Time

	// FinishedAt is when the run last reached a terminal phase. Zero
	// while the run is in progress.
	FinishedAt time.Time

	// TotalNamespaces is the number of namespaces discovery found.
	TotalNamespaces int

	// TotalClasses is the number of classes discovery found.
	TotalClasses int

	// DoneCount is the number of items that ended Done.
	DoneCount int

	// FailedCount is the number of items that ended Failed.
	FailedCount int

	// DatasetPath is the dataset artifact location written during
	// Finalizing.
	DatasetPath string

	// ClassListPath is the class list artifact location written during
	// Finalizing.
	ClassListPath string
}

// runColumns is the column list shared by every run SELECT.
const runColumns = `id, root_url, phase, started_at, finished_at, total_namespaces, total_classes, done_count, failed_count, dataset_path, class_list_path`

// StartRun returns the run for rootURL, creating a fresh row when the
// store has none. The returned bool reports whether an existing run was
// resumed. A finished run is resumed too: re-running over a completed
// store re-finalizes under the same identity, which keeps the artifact
// path and content stable.
func (s *Store) StartRun(ctx context.Context, rootURL string) (*Run, bool, error) {
	existing, err := s.RunByRoot(ctx, rootURL)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	run := &Run{
		ID:        uuid.NewString(),
		RootURL:   rootURL,
		Phase:     model.PhaseDiscovering,
		StartedAt: s.now(),
	}

	query := `
	INSERT INTO runs (id, root_url, phase, started_at)
	VALUES (?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, run.ID, run.RootURL, string(run.Phase), formatTime(run.StartedAt)); err != nil {
		return nil, false, fmt.Errorf("failed to create run: %w", err)
	}
	return run, false, nil
}

// RunByRoot returns the most recent run for the root URL, or nil when the
// store has never crawled it.
func (s *Store) RunByRoot(ctx context.Context, rootURL string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE root_url = ? ORDER BY started_at DESC, id LIMIT 1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, rootURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// SetPhase moves the run to the given phase.
func (s *Store) SetPhase(ctx context.Context, runID string, phase model.Phase) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET phase = ? WHERE id = ?`, string(phase), runID)
	if err != nil {
		return fmt.Errorf("failed to set run phase: %w", err)
	}
	return s.checkRunExists(res, runID)
}

// SetTotals records the discovery totals for the run.
func (s *Store) SetTotals(ctx context.Context, runID string, namespaces, classes int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET total_namespaces = ?, total_classes = ? WHERE id = ?`, namespaces, classes, runID)
	if err != nil {
		return fmt.Errorf("failed to set run totals: %w", err)
	}
	return s.checkRunExists(res, runID)
}

// FinishRun records the terminal phase, final counters, and artifact
// paths for the run.
func (s *Store) FinishRun(ctx context.Context, runID string, sum model.Summary) error {
	query := `
	UPDATE runs SET
		phase = ?,
		finished_at = ?,
		total_namespaces = ?,
		total_classes = ?,
		done_count = ?,
		failed_count = ?,
		dataset_path = ?,
		class_list_path = ?
	WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		sum.Phase,
		formatTime(sum.FinishedAt),
		sum.TotalNamespaces,
		sum.TotalClasses,
		sum.DoneCount,
		sum.FailedCount,
		sum.DatasetPath,
		sum.ClassListPath,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return s.checkRunExists(res, runID)
}

// ListRuns returns every run in the store, most recently started first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, root_url`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// checkRunExists turns a zero-row UPDATE into ErrUnknownRun.
func (s *Store) checkRunExists(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count updated runs: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return nil
}

// scanRun reads one run row.
func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var phase, started string
	var finished sql.NullString
	if err := row.Scan(
		&run.ID,
		&run.RootURL,
		&phase,
		&started,
		&finished,
		&run.TotalNamespaces,
		&run.TotalClasses,
		&run.DoneCount,
		&run.FailedCount,
		&run.DatasetPath,
		&run.ClassListPath,
	); err != nil {
		return nil, err
	}

	run.Phase = model.ParsePhase(phase)
	run.StartedAt = parseTimestamp(started)
	if finished.Valid && finished.String != "" {
		run.FinishedAt = parseTimestamp(finished.String)
	}
	return &run, nil
}
