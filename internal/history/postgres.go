package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SQL shared by the pgx backend and the driver-level integration test.
const (
	postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id BIGSERIAL PRIMARY KEY,
	execution_id TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	modules INTEGER NOT NULL,
	generated INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	errors INTEGER NOT NULL,
	warnings INTEGER NOT NULL,
	triggered_by TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

	postgresInsert = `
INSERT INTO runs (execution_id, started_at, duration_ms, modules, generated, failed, errors, warnings, triggered_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

	postgresRecent = `
SELECT execution_id, started_at, duration_ms, modules, generated, failed, errors, warnings, triggered_by
FROM runs
ORDER BY started_at DESC, id DESC
LIMIT $1
`
)

// PostgresStore persists run records in PostgreSQL, for history shared
// across machines or CI workers.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database and ensures the runs table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.Initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Initialize ensures the runs table exists
func (s *PostgresStore) Initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to initialize runs table: %w", err)
	}
	return nil
}

// Append records one completed run.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, postgresInsert,
		rec.ExecutionID, rec.StartedAt, rec.DurationMS, rec.Modules,
		rec.Generated, rec.Failed, rec.Errors, rec.Warnings, rec.Trigger)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.pool.Query(ctx, postgresRecent, limit)
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

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
