package incident

import "time"

// Incident is a persisted incident created from a correlated anomaly
// pattern.
type Incident struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	PatternID    string     `json:"pattern_id"`
	Severity     string     `json:"severity"`
	Status       string     `json:"status"`
	MetricNames  []string   `json:"metric_names"`
	AnomalyCount int        `json:"anomaly_count"`
	RootCause    string     `json:"root_cause,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// Status values
const (
	StatusOpen         = "open"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
)

// Filter contains incident listing options.
type Filter struct {
	Status    string
	Severity  string
	PatternID string
}
