package anomaly

import (
	"context"
	"time"
)

// Repository defines the interface for anomaly data access
type Repository interface {
	// Create persists an anomaly record
	Create(ctx context.Context, record *Record) (int64, error)

	// GetByID retrieves an anomaly by ID
	GetByID(ctx context.Context, id int64) (*Record, error)

	// List retrieves anomalies with filters and pagination, newest first
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Record, int64, error)

	// CountBySeverity counts anomalies by severity
	CountBySeverity(ctx context.Context) (map[string]int, error)

	// DeleteOlderThan removes anomalies detected before the cutoff and
	// returns the number removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
