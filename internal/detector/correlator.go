package detector

import (
	"sort"
	"time"
)

// PatternUnclassified is assigned when two or more anomalies fire together
// without matching any configured rule.
const PatternUnclassified = "unclassified"

// Confidence grades for a correlated pattern
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// Rule declares a named co-occurrence of anomalous metrics. Rules are data:
// adding a pattern is a table change, not a code change.
type Rule struct {
	Name     string   `json:"name" hcl:"name,label"`
	Metrics  []string `json:"metrics" hcl:"metrics"`
	Priority int      `json:"priority" hcl:"priority"`
}

// Pattern is an immutable record of correlated anomalies from one batch.
type Pattern struct {
	Name       string    `json:"pattern"`
	Anomalies  []Anomaly `json:"anomalies"`
	Severity   Severity  `json:"severity"`
	Confidence string    `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// DefaultRules returns the built-in correlation rule table, ascending
// priority.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "high_token_latency_spike", Metrics: []string{"llm.tokens.total", "llm.latency.ms"}, Priority: 1},
		{Name: "cost_anomaly", Metrics: []string{"llm.cost.per_request", "llm.tokens.total"}, Priority: 2},
		{Name: "quality_degradation", Metrics: []string{"llm.response.is_refusal", "llm.response.length"}, Priority: 3},
		{Name: "throughput_drop", Metrics: []string{"llm.throughput.tokens_per_sec", "llm.latency.ms"}, Priority: 4},
		{Name: "context_exhaustion", Metrics: []string{"llm.prompt.context_utilization", "llm.response.is_truncated"}, Priority: 5},
	}
}

// Correlator matches the anomalies of a single batch against a rule table.
type Correlator struct {
	rules []Rule
}

// NewCorrelator creates a correlator over the given rules. Rules are
// evaluated in ascending priority order; the first match wins.
func NewCorrelator(rules []Rule) *Correlator {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &Correlator{rules: sorted}
}

// Correlate groups the anomalies of one batch into a pattern. A single
// anomaly never forms a pattern. When no rule matches a batch of two or
// more, the unclassified pattern is produced.
func (c *Correlator) Correlate(anomalies []Anomaly, ts time.Time) *Pattern {
	if len(anomalies) < 2 {
		return nil
	}

	present := make(map[string]bool, len(anomalies))
	for _, a := range anomalies {
		present[a.MetricName] = true
	}

	for _, rule := range c.rules {
		if !matchesRule(rule, present) {
			continue
		}
		members := selectMembers(anomalies, rule.Metrics)
		return &Pattern{
			Name:       rule.Name,
			Anomalies:  members,
			Severity:   aggregateSeverity(members),
			Confidence: ConfidenceHigh,
			Timestamp:  ts,
		}
	}

	members := sortByMetric(anomalies)
	return &Pattern{
		Name:       PatternUnclassified,
		Anomalies:  members,
		Severity:   aggregateSeverity(members),
		Confidence: ConfidenceMedium,
		Timestamp:  ts,
	}
}

// matchesRule reports whether every metric the rule requires is anomalous.
func matchesRule(rule Rule, present map[string]bool) bool {
	for _, m := range rule.Metrics {
		if !present[m] {
			return false
		}
	}
	return true
}

// selectMembers picks the anomalies named by the rule, ordered by metric
// name so the result does not depend on batch iteration order.
func selectMembers(anomalies []Anomaly, metrics []string) []Anomaly {
	wanted := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		wanted[m] = true
	}
	members := make([]Anomaly, 0, len(metrics))
	for _, a := range anomalies {
		if wanted[a.MetricName] {
			members = append(members, a)
		}
	}
	return sortByMetric(members)
}

func sortByMetric(anomalies []Anomaly) []Anomaly {
	out := make([]Anomaly, len(anomalies))
	copy(out, anomalies)
	sort.Slice(out, func(i, j int) bool {
		return out[i].MetricName < out[j].MetricName
	})
	return out
}

// aggregateSeverity returns the highest severity among the members.
func aggregateSeverity(anomalies []Anomaly) Severity {
	severity := SeverityModerate
	for _, a := range anomalies {
		severity = severity.Max(a.Severity)
	}
	return severity
}
