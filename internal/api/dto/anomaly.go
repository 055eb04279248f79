package dto

import "time"

// AnomalyDTO represents a detected anomaly in API responses
type AnomalyDTO struct {
	ID               int64     `json:"id,omitempty"`
	MetricName       string    `json:"metricName"`
	Value            float64   `json:"value"`
	ZScore           float64   `json:"zScore"`
	DeviationPercent float64   `json:"deviationPercent"`
	Direction        string    `json:"direction"`
	Severity         string    `json:"severity"`
	BaselineMean     float64   `json:"baselineMean"`
	BaselineStd      float64   `json:"baselineStd"`
	PatternID        string    `json:"patternId,omitempty"`
	DetectedAt       time.Time `json:"detectedAt"`
}

// PatternDTO represents a correlated anomaly pattern in API responses
type PatternDTO struct {
	Name       string       `json:"pattern"`
	Severity   string       `json:"severity"`
	Confidence string       `json:"confidence"`
	Anomalies  []AnomalyDTO `json:"anomalies"`
	Timestamp  time.Time    `json:"timestamp"`
}

// AnomalyListRequest represents anomaly list query parameters
type AnomalyListRequest struct {
	MetricName string `json:"metricName,omitempty"`
	Severity   string `json:"severity,omitempty"`
	Direction  string `json:"direction,omitempty"`
	PatternID  string `json:"patternId,omitempty"`
	Page       int    `json:"page,omitempty"`
	PageSize   int    `json:"pageSize,omitempty"`
}

// ObserveRequest represents a raw metric observation submission
type ObserveRequest struct {
	Metrics map[string]float64 `json:"metrics" validate:"required,min=1"`
}
