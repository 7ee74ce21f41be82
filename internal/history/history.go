// Package history persists pipeline run summaries so past runs can be
// listed and compared. Recording is optional; the pipeline works without
// a store.
package history

import (
	"context"
	"time"
)

// DefaultPath is where the local SQLite history lives, relative to the
// project root.
const DefaultPath = ".smelter/history.db"

// DefaultRecentLimit bounds Recent queries that pass no explicit limit.
const DefaultRecentLimit = 20

// Values for Record.Trigger.
const (
	TriggerCLI    = "cli"
	TriggerWatch  = "watch"
	TriggerDaemon = "daemon"
)

// Record is one pipeline run as persisted.
type Record struct {
	ExecutionID string    `json:"execution_id"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Modules     int       `json:"modules"`
	Generated   int       `json:"generated"`
	Failed      int       `json:"failed"`
	Errors      int       `json:"errors"`
	Warnings    int       `json:"warnings"`
	Trigger     string    `json:"trigger"`
}

// Store persists run records. Implementations must be safe for concurrent
// use.
type Store interface {
	// Append records one completed run.
	Append(ctx context.Context, rec Record) error
	// Recent returns the most recent runs, newest first. A non-positive
	// limit applies DefaultRecentLimit.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// Close releases the underlying connections.
	Close() error
}
