package collector

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// Metric names emitted per interaction. Flat dotted keys, the shape the
// telemetry forwarder submits as-is.
const (
	MetricTokensTotal        = "llm.tokens.total"
	MetricTokensPrompt       = "llm.tokens.prompt"
	MetricTokensResponse     = "llm.tokens.response"
	MetricTokensRatio        = "llm.tokens.ratio"
	MetricCostPerRequest     = "llm.cost.per_request"
	MetricCostInput          = "llm.cost.input"
	MetricCostOutput         = "llm.cost.output"
	MetricLatencyMs          = "llm.latency.ms"
	MetricThroughput         = "llm.throughput.tokens_per_sec"
	MetricPromptLength       = "llm.prompt.length"
	MetricPromptComplexity   = "llm.prompt.complexity_score"
	MetricPromptQuestions    = "llm.prompt.question_count"
	MetricContextUtilization = "llm.prompt.context_utilization"
	MetricResponseLength     = "llm.response.length"
	MetricIsRefusal          = "llm.response.is_refusal"
	MetricHasCode            = "llm.response.has_code"
	MetricIsTruncated        = "llm.response.is_truncated"
)

var refusalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i can't`),
	regexp.MustCompile(`(?i)i cannot`),
	regexp.MustCompile(`(?i)i'm unable to`),
	regexp.MustCompile(`(?i)i am unable to`),
	regexp.MustCompile(`(?i)i'm not able to`),
	regexp.MustCompile(`(?i)i won't`),
	regexp.MustCompile(`(?i)i will not`),
	regexp.MustCompile(`(?i)as an ai`),
	regexp.MustCompile(`(?i)as a language model`),
	regexp.MustCompile(`(?i)i don't have the ability`),
	regexp.MustCompile(`(?i)i'm sorry, but i can't`),
	regexp.MustCompile(`(?i)i apologize, but i cannot`),
	regexp.MustCompile(`(?i)it would be inappropriate`),
	regexp.MustCompile(`(?i)i must decline`),
	regexp.MustCompile(`(?i)against my guidelines`),
	regexp.MustCompile(`(?i)violates my`),
	regexp.MustCompile(`(?i)not something i can help with`),
}

var codePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```.*?```"),
	regexp.MustCompile("`[^`]+`"),
	regexp.MustCompile(`(?i)def\s+\w+\s*\(`),
	regexp.MustCompile(`(?i)function\s+\w+\s*\(`),
	regexp.MustCompile(`(?i)class\s+\w+`),
	regexp.MustCompile(`(?i)import\s+\w+`),
	regexp.MustCompile(`(?i)from\s+\w+\s+import`),
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Interaction is one completed request/response cycle presented for
// metric extraction.
type Interaction struct {
	Prompt         string
	Response       string
	PromptTokens   int
	ResponseTokens int
	LatencyMs      float64
}

// SessionSummary aggregates the collector's lifetime counters.
type SessionSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalTokens       int64   `json:"total_tokens"`
	TotalCost         float64 `json:"total_cost"`
	TotalRefusals     int64   `json:"total_refusals"`
	TotalTruncations  int64   `json:"total_truncations"`
	ElapsedSeconds    float64 `json:"elapsed_seconds"`
	RequestsPerMinute float64 `json:"requests_per_minute"`
	AvgTokensPerReq   float64 `json:"avg_tokens_per_request"`
	AvgCostPerReq     float64 `json:"avg_cost_per_request"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
}

// Collector derives the per-request metric batch from one LLM interaction
// and keeps running session totals. Safe for concurrent use.
type Collector struct {
	costInputPer1K  float64
	costOutputPer1K float64
	contextWindow   int

	mu           sync.Mutex
	requests     int64
	tokens       int64
	cost         float64
	refusals     int64
	truncations  int64
	latencySumMs float64
	sessionStart time.Time
}

// New creates a collector with the given per-1k-token costs and model
// context window size.
func New(costInputPer1K, costOutputPer1K float64, contextWindow int) *Collector {
	if contextWindow < 1 {
		contextWindow = 32000
	}
	return &Collector{
		costInputPer1K:  costInputPer1K,
		costOutputPer1K: costOutputPer1K,
		contextWindow:   contextWindow,
		sessionStart:    time.Now(),
	}
}

// Collect extracts the full metric batch from one interaction and folds
// the interaction into the session totals.
func (c *Collector) Collect(in Interaction) map[string]float64 {
	totalTokens := in.PromptTokens + in.ResponseTokens

	inputCost := float64(in.PromptTokens) / 1000 * c.costInputPer1K
	outputCost := float64(in.ResponseTokens) / 1000 * c.costOutputPer1K
	requestCost := inputCost + outputCost

	tokenRatio := 0.0
	if in.ResponseTokens > 0 {
		tokenRatio = float64(in.PromptTokens) / float64(in.ResponseTokens)
	}

	latencySeconds := in.LatencyMs / 1000
	if latencySeconds <= 0 {
		latencySeconds = 0.001
	}
	throughput := float64(totalTokens) / latencySeconds

	isRefusal := IsRefusal(in.Response)
	isTruncated := IsTruncated(in.Response)

	c.mu.Lock()
	c.requests++
	c.tokens += int64(totalTokens)
	c.cost += requestCost
	c.latencySumMs += in.LatencyMs
	if isRefusal {
		c.refusals++
	}
	if isTruncated {
		c.truncations++
	}
	c.mu.Unlock()

	return map[string]float64{
		MetricTokensTotal:        float64(totalTokens),
		MetricTokensPrompt:       float64(in.PromptTokens),
		MetricTokensResponse:     float64(in.ResponseTokens),
		MetricTokensRatio:        tokenRatio,
		MetricCostPerRequest:     requestCost,
		MetricCostInput:          inputCost,
		MetricCostOutput:         outputCost,
		MetricLatencyMs:          in.LatencyMs,
		MetricThroughput:         throughput,
		MetricPromptLength:       float64(len(in.Prompt)),
		MetricPromptComplexity:   ComplexityScore(in.Prompt),
		MetricPromptQuestions:    float64(strings.Count(in.Prompt, "?")),
		MetricContextUtilization: float64(in.PromptTokens) / float64(c.contextWindow) * 100,
		MetricResponseLength:     float64(len(in.Response)),
		MetricIsRefusal:          boolGauge(isRefusal),
		MetricHasCode:            boolGauge(HasCode(in.Response)),
		MetricIsTruncated:        boolGauge(isTruncated),
	}
}

// Summary returns the session totals since construction or the last reset.
func (c *Collector) Summary() SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.sessionStart).Seconds()
	s := SessionSummary{
		TotalRequests:    c.requests,
		TotalTokens:      c.tokens,
		TotalCost:        c.cost,
		TotalRefusals:    c.refusals,
		TotalTruncations: c.truncations,
		ElapsedSeconds:   elapsed,
	}
	if elapsed > 0 {
		s.RequestsPerMinute = float64(c.requests) / elapsed * 60
	}
	if c.requests > 0 {
		s.AvgTokensPerReq = float64(c.tokens) / float64(c.requests)
		s.AvgCostPerReq = c.cost / float64(c.requests)
		s.AvgLatencyMs = c.latencySumMs / float64(c.requests)
	}
	return s
}

// Reset clears the session totals.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = 0
	c.tokens = 0
	c.cost = 0
	c.refusals = 0
	c.truncations = 0
	c.latencySumMs = 0
	c.sessionStart = time.Now()
}

// ApproxTokens estimates a token count from text length when the provider
// did not report one. Roughly four characters per token.
func ApproxTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// ComplexityScore scores text as average words per sentence.
func ComplexityScore(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}

	sentences := 0
	for _, s := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		return float64(words)
	}
	return float64(words) / float64(sentences)
}

// IsRefusal reports whether the response reads like a refusal to answer.
func IsRefusal(response string) bool {
	if response == "" {
		return false
	}
	for _, p := range refusalPatterns {
		if p.MatchString(response) {
			return true
		}
	}
	return false
}

// HasCode reports whether the response appears to contain code.
func HasCode(response string) bool {
	if response == "" {
		return false
	}
	for _, p := range codePatterns {
		if p.MatchString(response) {
			return true
		}
	}
	return false
}

// IsTruncated reports whether the response looks cut off mid-thought.
func IsTruncated(response string) bool {
	if response == "" {
		return false
	}
	trimmed := strings.TrimRight(response, " \t\n")
	if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, "…") || strings.HasSuffix(trimmed, "etc") {
		return true
	}
	// Ends without terminal punctuation or a closing delimiter.
	switch {
	case trimmed == "":
		return false
	default:
		last := trimmed[len(trimmed)-1]
		return !strings.ContainsRune(`.!?"'`+"`"+`)]}`, rune(last))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
