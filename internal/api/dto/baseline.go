package dto

import "time"

// SnapshotDTO represents baseline snapshot metadata in API responses
type SnapshotDTO struct {
	ID         int64     `json:"id"`
	CapturedAt time.Time `json:"capturedAt"`
	Metrics    int       `json:"metrics"`
	Datapoints int64     `json:"datapoints"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GenerateBaselineRequest represents a synthetic baseline generation request
type GenerateBaselineRequest struct {
	Points      int     `json:"points" validate:"omitempty,gte=10,lte=100000"`
	AnomalyRate float64 `json:"anomalyRate" validate:"omitempty,gte=0,lt=1"`
	Seed        int64   `json:"seed,omitempty"`
}
