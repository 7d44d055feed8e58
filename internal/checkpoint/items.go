package checkpoint

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nao1215/bakinscan/internal/model"
)

// workItemColumns is the column list shared by every work item SELECT.
const workItemColumns = `key, url, role, namespace_key, status, attempts, error_kind, error_message, content_hash, updated_at`

// Seed inserts work items that are not yet in the store and leaves
// existing rows untouched, so re-seeding after a resume cannot demote a
// Done or Failed row. It returns the number of newly inserted items.
func (s *Store) Seed(ctx context.Context, items []model.WorkItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
	INSERT INTO work_items (key, url, role, namespace_key, status, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(key) DO NOTHING
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare seed statement: %w", err)
	}
	defer stmt.Close()

	now := formatTime(s.now())
	inserted := 0
	for _, item := range items {
		status := item.Status
		if status == model.StatusUnknown {
			status = model.StatusPending
		}

		res, err := stmt.ExecContext(ctx, item.Key, item.URL, string(item.Role), item.NamespaceKey, string(status), now)
		if err != nil {
			return 0, fmt.Errorf("failed to seed item %s: %w", item.Key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count seeded rows: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return inserted, nil
}

// IsDone reports whether the item for key has reached Done.
func (s *Store) IsDone(ctx context.Context, key string) (bool, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM work_items WHERE key = ?`, key).Scan(&status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check item status: %w", err)
	}
	return model.ParseStatus(status) == model.StatusDone, nil
}

// MarkDone records a successful extraction: the item moves to Done and
// its payload, content hash, and spent attempts are stored. A row that is
// already Done keeps its first payload, so a duplicate mark cannot change
// finalize output. Marking an unseeded key returns ErrUnknownItem.
func (s *Store) MarkDone(ctx context.Context, key string, payload []byte, hash string, attempts int) error {
	query := `
	UPDATE work_items SET
		status = ?,
		attempts = attempts + ?,
		error_kind = '',
		error_message = '',
		content_hash = ?,
		payload = ?,
		updated_at = ?
	WHERE key = ? AND status != ?
	`

	res, err := s.db.ExecContext(ctx, query,
		string(model.StatusDone),
		attempts,
		hash,
		string(payload),
		formatTime(s.now()),
		key,
		string(model.StatusDone),
	)
	if err != nil {
		return fmt.Errorf("failed to mark item done: %w", err)
	}

	return s.checkMarked(ctx, res, key)
}

// MarkFailed records a terminal failure for the item. The status guard
// keeps a Done row from ever being downgraded. Marking an unseeded key
// returns ErrUnknownItem.
func (s *Store) MarkFailed(ctx context.Context, key string, kind model.ErrorKind, msg string, attempts int) error {
	query := `
	UPDATE work_items SET
		status = ?,
		attempts = attempts + ?,
		error_kind = ?,
		error_message = ?,
		updated_at = ?
	WHERE key = ? AND status != ?
	`

	res, err := s.db.ExecContext(ctx, query,
		string(model.StatusFailed),
		attempts,
		string(kind),
		msg,
		formatTime(s.now()),
		key,
		string(model.StatusDone),
	)
	if err != nil {
		return fmt.Errorf("failed to mark item failed: %w", err)
	}

	return s.checkMarked(ctx, res, key)
}

// checkMarked distinguishes "row already Done" (fine, the guard held)
// from "key never seeded" (caller bug) when a guarded mark matched no
// rows.
func (s *Store) checkMarked(ctx context.Context, res sql.Result, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count marked rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	done, err := s.IsDone(ctx, key)
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownItem, key)
}

// Item returns the stored work item for key, or nil when no such row
// exists.
func (s *Store) Item(ctx context.Context, key string) (*model.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE key = ?`

	item, err := scanWorkItem(s.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work item: %w", err)
	}
	return item, nil
}

// ItemsByStatus returns all work items in the given status, ordered by
// key so scheduling and summaries are deterministic.
func (s *Store) ItemsByStatus(ctx context.Context, status model.Status) ([]model.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE status = ? ORDER BY key`

	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query items by status: %w", err)
	}
	defer rows.Close()

	var items []model.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work item: %w", err)
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

// Payload returns the stored record for a Done item, or nil when the key
// is absent, not yet Done, or carries no payload.
func (s *Store) Payload(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT payload FROM work_items WHERE key = ? AND status = ?`

	var payload sql.NullString
	err := s.db.QueryRowContext(ctx, query, key, string(model.StatusDone)).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payload: %w", err)
	}
	if !payload.Valid || payload.String == "" {
		return nil, nil
	}
	return []byte(payload.String), nil
}

// DonePayload is one stored extraction record together with the linkage
// finalize needs to reattach it.
type DonePayload struct {
	// Key is the canonical item key.
	Key string

	// URL is the URL as discovered.
	URL string

	// NamespaceKey links class records to their namespace item.
	NamespaceKey string

	// Record is the extracted record as JSON.
	Record []byte
}

// DonePayloads returns the stored records of all Done items with the
// given role, ordered by key.
func (s *Store) DonePayloads(ctx context.Context, role model.PageRole) ([]DonePayload, error) {
	query := `
	SELECT key, url, namespace_key, payload
	FROM work_items
	WHERE status = ? AND role = ?
	ORDER BY key
	`

	rows, err := s.db.QueryContext(ctx, query, string(model.StatusDone), string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to query done payloads: %w", err)
	}
	defer rows.Close()

	var payloads []DonePayload
	for rows.Next() {
		var p DonePayload
		var payload sql.NullString
		if err := rows.Scan(&p.Key, &p.URL, &p.NamespaceKey, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan payload: %w", err)
		}
		if payload.Valid {
			p.Record = []byte(payload.String)
		}
		payloads = append(payloads, p)
	}

	return payloads, rows.Err()
}

// ResetFailed requeues every Failed row to Pending so a new invocation
// can retry them. It returns how many rows changed.
func (s *Store) ResetFailed(ctx context.Context) (int, error) {
	query := `
	UPDATE work_items SET
		status = ?,
		error_kind = '',
		error_message = '',
		updated_at = ?
	WHERE status = ?
	`

	res, err := s.db.ExecContext(ctx, query, string(model.StatusPending), formatTime(s.now()), string(model.StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reset rows: %w", err)
	}
	return int(n), nil
}

// Counts summarizes the work list by status. NotFound is the subset of
// Failed whose kind marks a page the server reported absent.
type Counts struct {
	Pending  int
	Done     int
	Failed   int
	NotFound int
	Total    int
}

// Counts returns the current status breakdown of the work list.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	query := `
	SELECT status, error_kind, COUNT(*)
	FROM work_items
	GROUP BY status, error_kind
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count items: %w", err)
	}
	defer rows.Close()

	var counts Counts
	for rows.Next() {
		var status, kind string
		var n int
		if err := rows.Scan(&status, &kind, &n); err != nil {
			return Counts{}, fmt.Errorf("failed to scan count: %w", err)
		}

		counts.Total += n
		switch model.ParseStatus(status) {
		case model.StatusPending:
			counts.Pending += n
		case model.StatusDone:
			counts.Done += n
		case model.StatusFailed:
			counts.Failed += n
			if model.ParseErrorKind(kind) == model.ErrorKindNotFound {
				counts.NotFound += n
			}
		}
	}

	return counts, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanWorkItem reads one work item row. The payload column is not
// included; Payload and DonePayloads read it separately so status scans
// stay cheap.
func scanWorkItem(row rowScanner) (*model.WorkItem, error) {
	var item model.WorkItem
	var role, status, kind, updated string
	if err := row.Scan(
		&item.Key,
		&item.URL,
		&role,
		&item.NamespaceKey,
		&status,
		&item.Attempts,
		&kind,
		&item.ErrorMessage,
		&item.ContentHash,
		&updated,
	); err != nil {
		return nil, err
	}

	item.Role = model.ParsePageRole(role)
	item.Status = model.ParseStatus(status)
	item.ErrorKind = model.ParseErrorKind(kind)
	item.UpdatedAt = parseTimestamp(updated)
	return &item, nil
}
