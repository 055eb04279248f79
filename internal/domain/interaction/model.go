package interaction

import "time"

// Interaction is a persisted record of one gateway request/response
// cycle.
type Interaction struct {
	ID             string    `json:"id"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	PromptLength   int       `json:"prompt_length"`
	ResponseLength int       `json:"response_length"`
	PromptTokens   int       `json:"prompt_tokens"`
	ResponseTokens int       `json:"response_tokens"`
	CostUSD        float64   `json:"cost_usd"`
	LatencyMs      float64   `json:"latency_ms"`
	IsRefusal      bool      `json:"is_refusal"`
	IsTruncated    bool      `json:"is_truncated"`
	AnomalyCount   int       `json:"anomaly_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Stats aggregates interactions for the dashboard.
type Stats struct {
	TotalRequests int64   `json:"total_requests"`
	TotalCost     float64 `json:"total_cost"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	RefusalRate   float64 `json:"refusal_rate"`
}
