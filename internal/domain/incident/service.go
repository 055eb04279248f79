package incident

import (
	"context"

	"github.com/llmwatch/llmwatch/internal/detector"
)

// Service defines the interface for incident business logic
type Service interface {
	// CreateFromPattern opens an incident for a correlated pattern, or
	// absorbs it into a recent open incident for the same pattern.
	// Returns nil when the pattern's severity is below the configured
	// floor.
	CreateFromPattern(ctx context.Context, pattern *detector.Pattern) (*Incident, error)

	// GetByID retrieves an incident by ID
	GetByID(ctx context.Context, id string) (*Incident, error)

	// List retrieves incidents with filters and pagination
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Incident, int64, error)

	// Acknowledge marks an open incident as acknowledged
	Acknowledge(ctx context.Context, id string) (*Incident, error)

	// Resolve marks an incident as resolved
	Resolve(ctx context.Context, id string) (*Incident, error)
}
