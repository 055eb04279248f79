package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/providers"
)

// RootCauseAnalysis is the structured output attached to incidents.
type RootCauseAnalysis struct {
	RootCause        string   `json:"root_cause"`
	Evidence         []string `json:"evidence"`
	Impact           string   `json:"impact"`
	SuggestedActions []string `json:"suggested_actions"`
	Confidence       string   `json:"confidence"`
	SimilarPatterns  string   `json:"similar_patterns"`
	Source           string   `json:"source"`
	Model            string   `json:"model,omitempty"`
}

const analysisPrompt = `You are an expert LLM operations analyst. Analyze the following anomalies detected in an LLM observability system and provide a structured root cause analysis.

## Detected Anomalies:
%s

## Recent Metrics Summary:
%s

## Task:
Provide a detailed root cause analysis for these anomalies. Consider:
1. What is the most likely root cause?
2. How are the anomalies correlated?
3. What is the impact on users/system?
4. What specific actions should be taken?

## Output Format:
Respond with a valid JSON object (no markdown, no code blocks) with this exact structure:
{
  "root_cause": "Single sentence describing the most likely root cause",
  "evidence": ["Specific metric correlation 1", "Specific metric correlation 2"],
  "impact": "Description of user/system impact",
  "suggested_actions": ["Action 1", "Action 2", "Action 3"],
  "confidence": "high|medium|low",
  "similar_patterns": "Description of any historical patterns this matches"
}

Respond ONLY with the JSON object, no other text.`

// heuristicCauses backs analysis when no model is reachable. Keyed by
// correlation pattern name.
var heuristicCauses = map[string]RootCauseAnalysis{
	"high_token_latency_spike": {
		RootCause:        "Unusually large requests are driving both token usage and latency up",
		Impact:           "Slower responses and higher per-request cost for affected traffic",
		SuggestedActions: []string{"Inspect recent prompts for size outliers", "Consider enforcing a prompt length limit", "Check whether a batch job started sending oversized requests"},
	},
	"cost_anomaly": {
		RootCause:        "Request cost is rising together with token volume, pointing at heavier usage rather than a pricing change",
		Impact:           "Spend is growing faster than request volume",
		SuggestedActions: []string{"Review per-request token budgets", "Check for retry loops amplifying traffic", "Verify the configured per-token pricing"},
	},
	"quality_degradation": {
		RootCause:        "The model is refusing more often while responses shrink, suggesting degraded upstream model behavior or a prompt regression",
		Impact:           "Users receive refusals or truncated answers instead of useful output",
		SuggestedActions: []string{"Sample recent refusals for a common trigger", "Diff recent prompt template changes", "Check the provider status page"},
	},
	"throughput_drop": {
		RootCause:        "Token throughput fell while latency rose, consistent with upstream provider slowdown or throttling",
		Impact:           "All requests are slower; timeouts may follow if the trend continues",
		SuggestedActions: []string{"Check provider status and rate-limit headers", "Compare latency across models", "Consider failing over to a secondary provider"},
	},
	"context_exhaustion": {
		RootCause:        "Prompts are approaching the context window and responses are being truncated",
		Impact:           "Answers are cut off mid-response, degrading output quality",
		SuggestedActions: []string{"Trim or summarize conversation history before sending", "Raise the context window if the model supports it", "Alert on prompt size before the hard limit"},
	},
	"unclassified": {
		RootCause:        "Multiple metrics broke their baselines without matching a known pattern",
		Impact:           "Unknown; correlated deviation across independent metrics",
		SuggestedActions: []string{"Review the member anomalies individually", "Check for recent deploys or config changes", "Add a correlation rule if this combination recurs"},
	},
}

var jsonFenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// RootCauseService produces root cause analyses for correlated patterns,
// preferring a model-generated analysis and degrading to a canned one.
type RootCauseService struct {
	provider providers.Provider
	logger   *logger.Logger

	analysesPerformed atomic.Int64
}

// NewRootCauseService creates a root cause service. A nil provider is
// allowed; every analysis then uses the heuristic table.
func NewRootCauseService(provider providers.Provider, log *logger.Logger) *RootCauseService {
	return &RootCauseService{
		provider: provider,
		logger:   log,
	}
}

// Analyze generates an analysis for the pattern. It never returns an
// error to the caller: any model failure falls back to the heuristic
// table so incident creation is not blocked on an LLM call.
func (s *RootCauseService) Analyze(ctx context.Context, pattern *detector.Pattern, recentMetrics map[string]float64) *RootCauseAnalysis {
	s.analysesPerformed.Add(1)

	if s.provider == nil {
		return s.heuristic(pattern)
	}

	prompt := buildAnalysisPrompt(pattern, recentMetrics)
	completion, err := s.provider.Complete(ctx, prompt)
	if err != nil {
		s.logger.WithError(err).Warn("Root cause analysis call failed, using heuristic")
		return s.heuristic(pattern)
	}

	analysis := parseAnalysis(completion.Text)
	if analysis == nil {
		s.logger.WithFields(map[string]interface{}{
			"pattern": pattern.Name,
		}).Warn("Root cause response was not valid JSON, using heuristic")
		return s.heuristic(pattern)
	}

	fillAnalysisDefaults(analysis)
	analysis.Source = "ai"
	analysis.Model = completion.Model
	return analysis
}

// AnalysesPerformed returns how many analyses this service has run,
// whatever their source.
func (s *RootCauseService) AnalysesPerformed() int64 {
	return s.analysesPerformed.Load()
}

func (s *RootCauseService) heuristic(pattern *detector.Pattern) *RootCauseAnalysis {
	base, ok := heuristicCauses[pattern.Name]
	if !ok {
		base = heuristicCauses["unclassified"]
	}

	analysis := base
	analysis.Evidence = make([]string, 0, len(pattern.Anomalies))
	for _, a := range pattern.Anomalies {
		analysis.Evidence = append(analysis.Evidence,
			fmt.Sprintf("%s deviated %.1f%% %s of baseline (z=%.2f)",
				a.MetricName, a.DeviationPercent, a.Direction, a.ZScore))
	}
	analysis.Confidence = "low"
	analysis.SimilarPatterns = "No model available for historical comparison"
	analysis.Source = "heuristic"
	return &analysis
}

func buildAnalysisPrompt(pattern *detector.Pattern, recentMetrics map[string]float64) string {
	lines := make([]string, 0, len(pattern.Anomalies))
	for _, a := range pattern.Anomalies {
		lines = append(lines, fmt.Sprintf(
			"- %s: value=%.4f, z-score=%.2f, deviation=%.1f%%, direction=%s, severity=%s",
			a.MetricName, a.Value, a.ZScore, a.DeviationPercent, a.Direction, a.Severity))
	}

	names := make([]string, 0, len(recentMetrics))
	for name := range recentMetrics {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 10 {
		names = names[:10]
	}
	metricLines := make([]string, 0, len(names))
	for _, name := range names {
		metricLines = append(metricLines, fmt.Sprintf("- %s: %.4f", name, recentMetrics[name]))
	}
	summary := "No recent metrics available"
	if len(metricLines) > 0 {
		summary = strings.Join(metricLines, "\n")
	}

	return fmt.Sprintf(analysisPrompt, strings.Join(lines, "\n"), summary)
}

// parseAnalysis extracts a JSON analysis from model output, tolerating
// markdown code fences and surrounding prose.
func parseAnalysis(text string) *RootCauseAnalysis {
	text = strings.TrimSpace(text)

	var analysis RootCauseAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err == nil {
		return &analysis
	}

	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &analysis); err == nil {
			return &analysis
		}
	}

	if m := jsonObjectRe.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &analysis); err == nil {
			return &analysis
		}
	}

	return nil
}

func fillAnalysisDefaults(a *RootCauseAnalysis) {
	if a.RootCause == "" {
		a.RootCause = "Unable to determine root cause"
	}
	if a.Impact == "" {
		a.Impact = "Impact assessment unavailable"
	}
	if len(a.SuggestedActions) == 0 {
		a.SuggestedActions = []string{"Review anomaly details", "Check recent changes", "Monitor for recurrence"}
	}
	if a.Confidence == "" {
		a.Confidence = "low"
	}
	if a.SimilarPatterns == "" {
		a.SimilarPatterns = "No similar patterns identified"
	}
}
