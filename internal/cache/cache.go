// Package cache fingerprints schema sources and remembers them between
// runs, so the daemon can skip regeneration when nothing changed. The
// store is a small TTL'd key-value interface with an in-memory default
// and a Redis backend for shared daemon fleets.
package cache

import (
	"context"
	"time"
)

// Store is a TTL'd key-value store. A zero ttl means no expiry.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, expiring after ttl when ttl > 0.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every key this store owns.
	Clear(ctx context.Context) error
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// sourcesKey is where the tracker keeps the combined source digest.
const sourcesKey = "sources:sha256"

// Tracker remembers the fingerprint of the whole source set through a
// Store, so adds, removes and edits all register as changes.
type Tracker struct {
	store Store
	ttl   time.Duration
}

// NewTracker builds a tracker over the given store. Recorded digests
// expire after ttl when ttl > 0.
func NewTracker(store Store, ttl time.Duration) *Tracker {
	return &Tracker{store: store, ttl: ttl}
}

// Changed reports whether the source set differs from the recorded one.
// An empty record counts as changed.
func (t *Tracker) Changed(ctx context.Context, fingerprints map[string]string) (bool, error) {
	stored, ok, err := t.store.Get(ctx, sourcesKey)
	if err != nil {
		return false, err
	}
	return !ok || stored != Combined(fingerprints), nil
}

// Commit records the source set's combined digest.
func (t *Tracker) Commit(ctx context.Context, fingerprints map[string]string) error {
	return t.store.Set(ctx, sourcesKey, Combined(fingerprints), t.ttl)
}

// Invalidate forgets the recorded digest; the next Changed reports true.
func (t *Tracker) Invalidate(ctx context.Context) error {
	return t.store.Delete(ctx, sourcesKey)
}
