package baseline

import (
	"context"
	"time"
)

// Repository defines the interface for baseline snapshot data access
type Repository interface {
	// Save persists a snapshot
	Save(ctx context.Context, snap *Snapshot) (int64, error)

	// Latest retrieves the most recent snapshot, or nil when none exists
	Latest(ctx context.Context) (*Snapshot, error)

	// List retrieves snapshot metadata (without payloads), newest first
	List(ctx context.Context, limit int) ([]*Snapshot, error)

	// DeleteOlderThan removes snapshots captured before the cutoff,
	// always retaining the most recent one
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
