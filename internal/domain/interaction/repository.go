package interaction

import (
	"context"
	"time"
)

// Repository defines the interface for interaction data access
type Repository interface {
	// Create persists an interaction record
	Create(ctx context.Context, in *Interaction) error

	// List retrieves interactions with pagination, newest first
	List(ctx context.Context, limit, offset int) ([]*Interaction, int64, error)

	// Stats aggregates all stored interactions
	Stats(ctx context.Context) (*Stats, error)

	// DeleteOlderThan removes interactions created before the cutoff and
	// returns the number removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
