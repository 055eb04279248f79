package dto

// ChatRequest represents an LLM gateway request
type ChatRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=100000"`
}

// ChatResponse represents an LLM gateway response with its detection
// outcome attached
type ChatResponse struct {
	InteractionID string             `json:"interactionId"`
	Response      string             `json:"response"`
	Model         string             `json:"model"`
	LatencyMs     float64            `json:"latencyMs"`
	Metrics       map[string]float64 `json:"metrics"`
	Anomalies     []AnomalyDTO       `json:"anomalies"`
	Pattern       *PatternDTO        `json:"pattern,omitempty"`
	Incident      *IncidentDTO       `json:"incident,omitempty"`
}
