package incident

import (
	"context"
	"time"
)

// Repository defines the interface for incident data access
type Repository interface {
	// Create persists a new incident
	Create(ctx context.Context, inc *Incident) error

	// GetByID retrieves an incident by ID
	GetByID(ctx context.Context, id string) (*Incident, error)

	// Update updates an incident record
	Update(ctx context.Context, inc *Incident) error

	// List retrieves incidents with filters and pagination, newest first
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Incident, int64, error)

	// FindOpenByPattern finds the most recent non-resolved incident for a
	// pattern created after the cutoff, or nil when none exists
	FindOpenByPattern(ctx context.Context, patternID string, since time.Time) (*Incident, error)

	// CountOpen counts non-resolved incidents
	CountOpen(ctx context.Context) (int64, error)
}
