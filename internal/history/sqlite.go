package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists run records in a local SQLite file. This is the
// default backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an already-open database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite opens or creates the history database at path and ensures
// the runs table exists. Parent directories are created as needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store := NewSQLiteStore(db)
	if err := store.Initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Initialize ensures the runs table exists
func (s *SQLiteStore) Initialize() error {
	query := `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	execution_id TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	modules INTEGER NOT NULL,
	generated INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	errors INTEGER NOT NULL,
	warnings INTEGER NOT NULL,
	triggered_by TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to initialize runs table: %w", err)
	}
	return nil
}

// Append records one completed run.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	query := `
INSERT INTO runs (execution_id, started_at, duration_ms, modules, generated, failed, errors, warnings, triggered_by)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	_, err := s.db.ExecContext(ctx, query,
		rec.ExecutionID, rec.StartedAt, rec.DurationMS, rec.Modules,
		rec.Generated, rec.Failed, rec.Errors, rec.Warnings, rec.Trigger)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := `
SELECT execution_id, started_at, duration_ms, modules, generated, failed, errors, warnings, triggered_by
FROM runs
ORDER BY started_at DESC, id DESC
LIMIT ?
`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ExecutionID, &rec.StartedAt, &rec.DurationMS, &rec.Modules,
			&rec.Generated, &rec.Failed, &rec.Errors, &rec.Warnings, &rec.Trigger); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return records, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
