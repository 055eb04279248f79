package dto

// MetricStatsDTO is the per-metric baseline view
type MetricStatsDTO struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	EWMA  float64 `json:"ewmaBaseline"`
	Count int64   `json:"count"`
	Ready bool    `json:"ready"`
}

// DetectorSummaryDTO is the detection engine health view
type DetectorSummaryDTO struct {
	TotalDatapoints int64                     `json:"totalDatapoints"`
	TotalAnomalies  int64                     `json:"totalAnomalies"`
	TotalPatterns   int64                     `json:"totalPatterns"`
	MetricsTracked  int                       `json:"metricsTracked"`
	WindowsReady    int                       `json:"windowsReady"`
	WindowSize      int                       `json:"windowSize"`
	ZThreshold      float64                   `json:"zThreshold"`
	PerMetric       map[string]MetricStatsDTO `json:"perMetric"`
}

// SessionSummaryDTO is the collector's running session view
type SessionSummaryDTO struct {
	TotalRequests     int64   `json:"totalRequests"`
	TotalTokens       int64   `json:"totalTokens"`
	TotalCost         float64 `json:"totalCost"`
	TotalRefusals     int64   `json:"totalRefusals"`
	TotalTruncations  int64   `json:"totalTruncations"`
	ElapsedSeconds    float64 `json:"elapsedSeconds"`
	RequestsPerMinute float64 `json:"requestsPerMinute"`
	AvgTokensPerReq   float64 `json:"avgTokensPerRequest"`
	AvgCostPerReq     float64 `json:"avgCostPerRequest"`
	AvgLatencyMs      float64 `json:"avgLatencyMs"`
}

// SummaryResponse is the combined /metrics/summary payload
type SummaryResponse struct {
	Detector        DetectorSummaryDTO  `json:"detector"`
	Session         SessionSummaryDTO   `json:"session"`
	Interactions    InteractionStatsDTO `json:"interactions"`
	Provider        string              `json:"provider"`
	RecentAnomalies []AnomalyDTO        `json:"recentAnomalies"`
}
