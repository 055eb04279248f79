package anomaly

import "time"

// Record is a persisted anomaly raised by the detection engine.
type Record struct {
	ID               int64     `json:"id"`
	MetricName       string    `json:"metric_name"`
	Value            float64   `json:"value"`
	ZScore           float64   `json:"z_score"`
	DeviationPercent float64   `json:"deviation_percent"`
	Direction        string    `json:"direction"`
	Severity         string    `json:"severity"`
	BaselineMean     float64   `json:"baseline_mean"`
	BaselineStd      float64   `json:"baseline_std"`
	PatternID        string    `json:"pattern_id,omitempty"`
	DetectedAt       time.Time `json:"detected_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// Severity levels, most severe first
const (
	SeverityCritical = "SEV-1"
	SeverityHigh     = "SEV-2"
	SeverityModerate = "SEV-3"
)

// Directions
const (
	DirectionHigh = "high"
	DirectionLow  = "low"
)

// Filter contains anomaly listing options.
type Filter struct {
	MetricName string
	Severity   string
	Direction  string
	PatternID  string
	Since      time.Time
}
