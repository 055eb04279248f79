package dto

import "time"

// IncidentDTO represents an incident in API responses
type IncidentDTO struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	PatternID    string     `json:"patternId"`
	Severity     string     `json:"severity"`
	Status       string     `json:"status"`
	MetricNames  []string   `json:"metricNames"`
	AnomalyCount int        `json:"anomalyCount"`
	RootCause    string     `json:"rootCause,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
}

// IncidentListRequest represents incident list query parameters
type IncidentListRequest struct {
	Status    string `json:"status,omitempty"`
	Severity  string `json:"severity,omitempty"`
	PatternID string `json:"patternId,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
}
