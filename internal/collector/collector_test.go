package collector

import (
	"math"
	"testing"
)

func TestCollectTokenEconomics(t *testing.T) {
	c := New(0.00025, 0.0005, 32000)

	m := c.Collect(Interaction{
		Prompt:         "What is the capital of France?",
		Response:       "The capital of France is Paris.",
		PromptTokens:   100,
		ResponseTokens: 50,
		LatencyMs:      300,
	})

	if m[MetricTokensTotal] != 150 {
		t.Errorf("tokens total = %v, want 150", m[MetricTokensTotal])
	}
	if m[MetricTokensPrompt] != 100 || m[MetricTokensResponse] != 50 {
		t.Errorf("token split = %v/%v, want 100/50", m[MetricTokensPrompt], m[MetricTokensResponse])
	}
	if m[MetricTokensRatio] != 2.0 {
		t.Errorf("token ratio = %v, want 2.0", m[MetricTokensRatio])
	}

	wantInput := 100.0 / 1000 * 0.00025
	wantOutput := 50.0 / 1000 * 0.0005
	if math.Abs(m[MetricCostInput]-wantInput) > 1e-12 {
		t.Errorf("input cost = %v, want %v", m[MetricCostInput], wantInput)
	}
	if math.Abs(m[MetricCostPerRequest]-(wantInput+wantOutput)) > 1e-12 {
		t.Errorf("request cost = %v, want %v", m[MetricCostPerRequest], wantInput+wantOutput)
	}

	if m[MetricLatencyMs] != 300 {
		t.Errorf("latency = %v, want 300", m[MetricLatencyMs])
	}
	wantThroughput := 150.0 / 0.3
	if math.Abs(m[MetricThroughput]-wantThroughput) > 1e-9 {
		t.Errorf("throughput = %v, want %v", m[MetricThroughput], wantThroughput)
	}

	wantUtil := 100.0 / 32000 * 100
	if math.Abs(m[MetricContextUtilization]-wantUtil) > 1e-9 {
		t.Errorf("context utilization = %v, want %v", m[MetricContextUtilization], wantUtil)
	}
}

func TestCollectZeroDivisionGuards(t *testing.T) {
	c := New(0.00025, 0.0005, 32000)

	m := c.Collect(Interaction{
		Prompt:         "hi",
		Response:       "",
		PromptTokens:   10,
		ResponseTokens: 0,
		LatencyMs:      0,
	})

	if m[MetricTokensRatio] != 0 {
		t.Errorf("token ratio with zero response tokens = %v, want 0", m[MetricTokensRatio])
	}
	if math.IsInf(m[MetricThroughput], 0) || math.IsNaN(m[MetricThroughput]) {
		t.Errorf("throughput with zero latency = %v, want finite", m[MetricThroughput])
	}
}

func TestIsRefusal(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{name: "plain refusal", response: "I can't help with that request.", want: true},
		{name: "formal refusal", response: "I must decline to answer.", want: true},
		{name: "ai disclaimer", response: "As an AI, I do not hold opinions.", want: true},
		{name: "guidelines", response: "That goes against my guidelines.", want: true},
		{name: "mixed case", response: "I CANNOT do that.", want: true},
		{name: "normal answer", response: "The capital of France is Paris.", want: false},
		{name: "cant in other context", response: "Recant the statement.", want: false},
		{name: "empty", response: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRefusal(tt.response); got != tt.want {
				t.Errorf("IsRefusal(%q) = %v, want %v", tt.response, got, tt.want)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{name: "fenced block", response: "Here:\n```go\nfmt.Println(1)\n```\nDone.", want: true},
		{name: "inline code", response: "Use the `sort` package.", want: true},
		{name: "python def", response: "def main():\n    pass", want: true},
		{name: "js function", response: "function add(a, b) { return a + b }", want: true},
		{name: "import line", response: "import os", want: true},
		{name: "prose", response: "Paris has been the capital since 987.", want: false},
		{name: "empty", response: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.response); got != tt.want {
				t.Errorf("HasCode(%q) = %v, want %v", tt.response, got, tt.want)
			}
		})
	}
}

func TestIsTruncated(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{name: "ellipsis", response: "And then the model...", want: true},
		{name: "etc ending", response: "Apples, pears, plums etc", want: true},
		{name: "mid sentence", response: "The result of the computation was", want: true},
		{name: "complete sentence", response: "The answer is 42.", want: false},
		{name: "quoted ending", response: `She said "done."`, want: false},
		{name: "closing bracket", response: "f(x) = (x + 1)", want: false},
		{name: "empty", response: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTruncated(tt.response); got != tt.want {
				t.Errorf("IsTruncated(%q) = %v, want %v", tt.response, got, tt.want)
			}
		})
	}
}

func TestComplexityScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "empty", text: "", want: 0},
		{name: "one sentence", text: "one two three four.", want: 4},
		{name: "two sentences", text: "one two. three four five six.", want: 3},
		{name: "no punctuation", text: "one two three", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComplexityScore(tt.text); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ComplexityScore(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestApproxTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "abcd", want: 1},
		{text: "abcde", want: 2},
		{text: "abcdefgh", want: 2},
	}
	for _, tt := range tests {
		if got := ApproxTokens(tt.text); got != tt.want {
			t.Errorf("ApproxTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestSessionSummary(t *testing.T) {
	c := New(0.00025, 0.0005, 32000)

	c.Collect(Interaction{Prompt: "a", Response: "b.", PromptTokens: 100, ResponseTokens: 100, LatencyMs: 200})
	c.Collect(Interaction{Prompt: "a", Response: "I can't help with that.", PromptTokens: 50, ResponseTokens: 50, LatencyMs: 400})

	s := c.Summary()
	if s.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", s.TotalRequests)
	}
	if s.TotalTokens != 300 {
		t.Errorf("TotalTokens = %d, want 300", s.TotalTokens)
	}
	if s.TotalRefusals != 1 {
		t.Errorf("TotalRefusals = %d, want 1", s.TotalRefusals)
	}
	if s.AvgLatencyMs != 300 {
		t.Errorf("AvgLatencyMs = %v, want 300", s.AvgLatencyMs)
	}
	if s.AvgTokensPerReq != 150 {
		t.Errorf("AvgTokensPerReq = %v, want 150", s.AvgTokensPerReq)
	}

	c.Reset()
	if s := c.Summary(); s.TotalRequests != 0 || s.TotalTokens != 0 {
		t.Errorf("summary after reset = %+v", s)
	}
}
