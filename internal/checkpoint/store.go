package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/bakinscan/internal/clock"
)

// dbFileName is the SQLite file created inside the checkpoint directory.
// config.CheckpointDBPath reports the same name to users.
const dbFileName = "checkpoint.db"

// schemaVersion is stamped into the meta table when a database is created
// and verified on every open.
const schemaVersion = 1

// metaSchemaVersion is the meta key holding the schema version.
const metaSchemaVersion = "schema_version"

// storedTimeFormat is RFC 3339 with fixed microsecond precision. Fixed
// width keeps lexicographic and chronological order identical, which the
// run listing's ORDER BY relies on. All stored values are UTC.
const storedTimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// Store is the SQLite-backed checkpoint ledger. All crawl progress that
// must survive a crash goes through it: work item status, extracted
// record payloads, and per-run bookkeeping.
//
// Design decision: The connection pool is pinned to a single connection
// because:
// 1. SQLite has one writer at a time anyway; pooling adds lock contention
// 2. A single connection serializes concurrent extract workers in Go,
//    so the busy handler never fires under normal operation
// 3. The crawl writes at most about one row per second
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// clock supplies row timestamps.
	clock clock.Clock
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so each completion is
	// durable without blocking readers.
	EnableWAL bool

	// Clock supplies row timestamps. Nil means the system clock.
	Clock clock.Clock
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a checkpoint store in the given directory.
// If CreateIfNotExists is true, the directory and database file are
// created as needed. If CreateIfNotExists is false and the database does
// not exist, an error is returned.
func Open(dir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("checkpoint database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check checkpoint path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw refuses to create a
	// new file, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	clk := opts.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}

	s := &Store{
		db:     db,
		dbPath: dbPath,
		clock:  clk,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := s.checkSchemaVersion(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.dbPath
}

// Wipe deletes every work item and run row, forcing the next crawl to
// start from nothing. The store stays open and usable; schema and meta
// rows are kept. Work items are shared between roots, so this clears
// the state of every root in the store, not just one.
func (s *Store) Wipe(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM work_items`); err != nil {
		return fmt.Errorf("failed to clear work items: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("failed to clear runs: %w", err)
	}
	return nil
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Work items store one row per discovered URL. The payload column
	-- holds the extracted record as JSON once the item is Done.
	CREATE TABLE IF NOT EXISTS work_items (
		key TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		role TEXT NOT NULL,
		namespace_key TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		error_kind TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL DEFAULT '',
		payload TEXT,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_status ON work_items(status);
	CREATE INDEX IF NOT EXISTS idx_items_role ON work_items(role);
	CREATE INDEX IF NOT EXISTS idx_items_namespace ON work_items(namespace_key);

	-- Runs store per-crawl bookkeeping. One row per root URL; resumed
	-- invocations update the same row so artifact naming stays stable.
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		root_url TEXT NOT NULL,
		phase TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		total_namespaces INTEGER NOT NULL DEFAULT 0,
		total_classes INTEGER NOT NULL DEFAULT 0,
		done_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		dataset_path TEXT NOT NULL DEFAULT '',
		class_list_path TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Meta holds store-level key/value pairs such as the schema version.
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// checkSchemaVersion stamps a fresh database with the current schema
// version and rejects databases written with an incompatible one.
func (s *Store) checkSchemaVersion(ctx context.Context) error {
	current := strconv.Itoa(schemaVersion)

	got, err := s.Meta(ctx, metaSchemaVersion)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if got == "" {
		return s.SetMeta(ctx, metaSchemaVersion, current)
	}
	if got != current {
		return fmt.Errorf("%w: store has version %s, this build supports %s", ErrSchemaMismatch, got, current)
	}
	return nil
}

// Meta returns the value stored under the given meta key, or the empty
// string when the key is absent.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta %q: %w", key, err)
	}
	return value, nil
}

// SetMeta stores a meta key/value pair, replacing any previous value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO meta (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set meta %q: %w", key, err)
	}
	return nil
}

// now returns the clock time in UTC. Everything the store writes is UTC
// so resumed runs and artifact names agree regardless of host timezone.
func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

// formatTime renders a timestamp for storage. All writes go through this
// so stored values stay fixed width and UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeFormat)
}

// timestampFormats contains the timestamp layouts the store may read
// back. Go's parser accepts extra fractional second digits after the
// seconds field, so RFC3339 also covers storedTimeFormat.
var timestampFormats = []string{
	time.RFC3339,          // storedTimeFormat and ISO 8601 with zone
	"2006-01-02 15:04:05", // SQLite CURRENT_TIMESTAMP
	"2006-01-02T15:04:05", // ISO 8601 without timezone
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
