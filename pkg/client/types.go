package client

import "time"

// Anomaly represents a detected metric deviation
type Anomaly struct {
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

// Pattern represents a correlated group of anomalies
type Pattern struct {
	Name       string    `json:"pattern"`
	Severity   string    `json:"severity"`
	Confidence string    `json:"confidence"`
	Anomalies  []Anomaly `json:"anomalies"`
	Timestamp  time.Time `json:"timestamp"`
}

// Incident represents an incident created from a correlated pattern
type Incident struct {
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

// ChatResponse represents a gateway response with its detection outcome
type ChatResponse struct {
	InteractionID string             `json:"interactionId"`
	Response      string             `json:"response"`
	Model         string             `json:"model"`
	LatencyMs     float64            `json:"latencyMs"`
	Metrics       map[string]float64 `json:"metrics"`
	Anomalies     []Anomaly          `json:"anomalies"`
	Pattern       *Pattern           `json:"pattern,omitempty"`
	Incident      *Incident          `json:"incident,omitempty"`
}

// Interaction represents a logged LLM exchange
type Interaction struct {
	ID             string    `json:"id"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	PromptLength   int       `json:"promptLength"`
	ResponseLength int       `json:"responseLength"`
	PromptTokens   int       `json:"promptTokens"`
	ResponseTokens int       `json:"responseTokens"`
	CostUSD        float64   `json:"costUsd"`
	LatencyMs      float64   `json:"latencyMs"`
	IsRefusal      bool      `json:"isRefusal"`
	IsTruncated    bool      `json:"isTruncated"`
	AnomalyCount   int       `json:"anomalyCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Snapshot represents baseline snapshot metadata
type Snapshot struct {
	ID         int64     `json:"id"`
	CapturedAt time.Time `json:"capturedAt"`
	Metrics    int       `json:"metrics"`
	Datapoints int64     `json:"datapoints"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MetricStats is the per-metric baseline view
type MetricStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	EWMA  float64 `json:"ewmaBaseline"`
	Count int64   `json:"count"`
	Ready bool    `json:"ready"`
}

// DetectorSummary is the detection engine health view
type DetectorSummary struct {
	TotalDatapoints int64                  `json:"totalDatapoints"`
	TotalAnomalies  int64                  `json:"totalAnomalies"`
	TotalPatterns   int64                  `json:"totalPatterns"`
	MetricsTracked  int                    `json:"metricsTracked"`
	WindowsReady    int                    `json:"windowsReady"`
	WindowSize      int                    `json:"windowSize"`
	ZThreshold      float64                `json:"zThreshold"`
	PerMetric       map[string]MetricStats `json:"perMetric"`
}

// SessionSummary is the collector's running session view
type SessionSummary struct {
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

// InteractionStats aggregates all logged exchanges
type InteractionStats struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalCost     float64 `json:"totalCost"`
	AvgLatencyMs  float64 `json:"avgLatencyMs"`
	RefusalRate   float64 `json:"refusalRate"`
}

// Summary is the combined /metrics/summary payload
type Summary struct {
	Detector        DetectorSummary  `json:"detector"`
	Session         SessionSummary   `json:"session"`
	Interactions    InteractionStats `json:"interactions"`
	Provider        string           `json:"provider"`
	RecentAnomalies []Anomaly        `json:"recentAnomalies"`
}

// ObserveResult is the detection outcome of a raw observation batch
type ObserveResult struct {
	Anomalies []Anomaly `json:"anomalies"`
	Pattern   *Pattern  `json:"pattern,omitempty"`
	Incident  *Incident `json:"incident,omitempty"`
}

// HealthResponse represents a health check result
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// Event is one message from the event stream
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ListOptions contains common pagination options
type ListOptions struct {
	Page     int
	PageSize int
}
