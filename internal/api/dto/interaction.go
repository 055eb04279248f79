package dto

import "time"

// InteractionDTO represents a logged LLM exchange in API responses
type InteractionDTO struct {
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

// InteractionStatsDTO aggregates all logged exchanges
type InteractionStatsDTO struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalCost     float64 `json:"totalCost"`
	AvgLatencyMs  float64 `json:"avgLatencyMs"`
	RefusalRate   float64 `json:"refusalRate"`
}
