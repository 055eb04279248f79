package detector

import (
	"testing"
)

func anom(metric string, severity Severity) Anomaly {
	return Anomaly{
		MetricName: metric,
		Severity:   severity,
		Timestamp:  testTime,
	}
}

func TestCorrelatorSingleAnomalyNoPattern(t *testing.T) {
	c := NewCorrelator(DefaultRules())

	p := c.Correlate([]Anomaly{anom("llm.tokens.total", SeverityCritical)}, testTime)
	if p != nil {
		t.Errorf("Correlate() with one anomaly = %+v, want nil", p)
	}
	if p := c.Correlate(nil, testTime); p != nil {
		t.Errorf("Correlate() with no anomalies = %+v, want nil", p)
	}
}

func TestCorrelatorRuleMatch(t *testing.T) {
	c := NewCorrelator(DefaultRules())

	tests := []struct {
		name         string
		anomalies    []Anomaly
		wantPattern  string
		wantSeverity Severity
	}{
		{
			name: "token latency spike",
			anomalies: []Anomaly{
				anom("llm.tokens.total", SeverityHigh),
				anom("llm.latency.ms", SeverityModerate),
			},
			wantPattern:  "high_token_latency_spike",
			wantSeverity: SeverityHigh,
		},
		{
			name: "cost anomaly",
			anomalies: []Anomaly{
				anom("llm.cost.per_request", SeverityModerate),
				anom("llm.tokens.total", SeverityCritical),
			},
			wantPattern:  "cost_anomaly",
			wantSeverity: SeverityCritical,
		},
		{
			name: "quality degradation",
			anomalies: []Anomaly{
				anom("llm.response.is_refusal", SeverityModerate),
				anom("llm.response.length", SeverityModerate),
			},
			wantPattern:  "quality_degradation",
			wantSeverity: SeverityModerate,
		},
		{
			name: "unrelated metrics fall back to unclassified",
			anomalies: []Anomaly{
				anom("llm.prompt.length", SeverityModerate),
				anom("llm.response.has_code", SeverityHigh),
			},
			wantPattern:  PatternUnclassified,
			wantSeverity: SeverityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := c.Correlate(tt.anomalies, testTime)
			if p == nil {
				t.Fatal("Correlate() = nil, want pattern")
			}
			if p.Name != tt.wantPattern {
				t.Errorf("pattern = %q, want %q", p.Name, tt.wantPattern)
			}
			if p.Severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", p.Severity, tt.wantSeverity)
			}
		})
	}
}

func TestCorrelatorPriorityOrder(t *testing.T) {
	// Both rules' metric sets are present; the lower priority number wins.
	c := NewCorrelator(DefaultRules())

	p := c.Correlate([]Anomaly{
		anom("llm.tokens.total", SeverityModerate),
		anom("llm.latency.ms", SeverityModerate),
		anom("llm.cost.per_request", SeverityModerate),
	}, testTime)
	if p == nil {
		t.Fatal("Correlate() = nil, want pattern")
	}
	if p.Name != "high_token_latency_spike" {
		t.Errorf("pattern = %q, want high_token_latency_spike", p.Name)
	}
}

func TestCorrelatorMemberOrderIndependent(t *testing.T) {
	c := NewCorrelator(DefaultRules())

	forward := []Anomaly{
		anom("llm.tokens.total", SeverityModerate),
		anom("llm.latency.ms", SeverityHigh),
	}
	reversed := []Anomaly{forward[1], forward[0]}

	p1 := c.Correlate(forward, testTime)
	p2 := c.Correlate(reversed, testTime)
	if p1 == nil || p2 == nil {
		t.Fatal("Correlate() = nil, want pattern")
	}
	if p1.Name != p2.Name {
		t.Errorf("pattern depends on input order: %q vs %q", p1.Name, p2.Name)
	}
	for i := range p1.Anomalies {
		if p1.Anomalies[i].MetricName != p2.Anomalies[i].MetricName {
			t.Errorf("member order differs at %d: %q vs %q",
				i, p1.Anomalies[i].MetricName, p2.Anomalies[i].MetricName)
		}
	}
}

func TestCorrelatorRuleMembers(t *testing.T) {
	// A matched pattern carries only the rule's metrics, not bystanders.
	c := NewCorrelator(DefaultRules())

	p := c.Correlate([]Anomaly{
		anom("llm.tokens.total", SeverityModerate),
		anom("llm.latency.ms", SeverityModerate),
		anom("llm.prompt.length", SeverityCritical),
	}, testTime)
	if p == nil {
		t.Fatal("Correlate() = nil, want pattern")
	}
	if len(p.Anomalies) != 2 {
		t.Fatalf("members = %d, want 2", len(p.Anomalies))
	}
	for _, a := range p.Anomalies {
		if a.MetricName == "llm.prompt.length" {
			t.Error("bystander metric included in pattern members")
		}
	}
	// Severity aggregates over members only.
	if p.Severity != SeverityModerate {
		t.Errorf("severity = %q, want %q", p.Severity, SeverityModerate)
	}
}

func TestCorrelatorConfidence(t *testing.T) {
	c := NewCorrelator(DefaultRules())

	matched := c.Correlate([]Anomaly{
		anom("llm.tokens.total", SeverityModerate),
		anom("llm.latency.ms", SeverityModerate),
	}, testTime)
	if matched == nil || matched.Confidence != ConfidenceHigh {
		t.Errorf("matched pattern confidence = %+v, want %q", matched, ConfidenceHigh)
	}

	unclassified := c.Correlate([]Anomaly{
		anom("llm.prompt.length", SeverityModerate),
		anom("llm.response.has_code", SeverityModerate),
	}, testTime)
	if unclassified == nil || unclassified.Confidence != ConfidenceMedium {
		t.Errorf("unclassified pattern confidence = %+v, want %q", unclassified, ConfidenceMedium)
	}
}

func TestCorrelatorCustomRules(t *testing.T) {
	rules := []Rule{
		{Name: "triple", Metrics: []string{"a", "b", "c"}, Priority: 1},
		{Name: "pair", Metrics: []string{"a", "b"}, Priority: 2},
	}
	c := NewCorrelator(rules)

	// Only the pair is present: the triple cannot match.
	p := c.Correlate([]Anomaly{anom("a", SeverityModerate), anom("b", SeverityModerate)}, testTime)
	if p == nil || p.Name != "pair" {
		t.Errorf("Correlate() = %+v, want pair", p)
	}

	// All three present: the triple wins on priority.
	p = c.Correlate([]Anomaly{
		anom("a", SeverityModerate),
		anom("b", SeverityModerate),
		anom("c", SeverityModerate),
	}, testTime)
	if p == nil || p.Name != "triple" {
		t.Errorf("Correlate() = %+v, want triple", p)
	}
}
