package detector

import (
	"testing"
	"time"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestEvaluatorInsufficientHistory(t *testing.T) {
	e := NewEvaluator(3.0, 6.0, 4.5)
	stats := Stats{Mean: 100, Std: 10, Count: 5, Ready: false}

	if a := e.Evaluate("llm.latency.ms", 1e9, stats, testTime); a != nil {
		t.Errorf("Evaluate() on not-ready window = %+v, want nil", a)
	}
}

func TestEvaluatorDegenerateSpread(t *testing.T) {
	e := NewEvaluator(3.0, 6.0, 4.5)
	stats := Stats{Mean: 100, Std: 0, Count: 50, Ready: true}

	if a := e.Evaluate("llm.latency.ms", 5000, stats, testTime); a != nil {
		t.Errorf("Evaluate() on zero-std window = %+v, want nil", a)
	}
}

func TestEvaluatorZScoreRule(t *testing.T) {
	e := NewEvaluator(3.0, 6.0, 4.5)

	tests := []struct {
		name          string
		value         float64
		stats         Stats
		wantAnomaly   bool
		wantDirection Direction
		wantSeverity  Severity
	}{
		{
			name:        "inside threshold",
			value:       125,
			stats:       Stats{Mean: 100, Std: 10, Count: 50, Ready: true},
			wantAnomaly: false,
		},
		{
			name:        "exactly at threshold is not anomalous",
			value:       130,
			stats:       Stats{Mean: 100, Std: 10, Count: 50, Ready: true},
			wantAnomaly: false,
		},
		{
			name:          "moderate high",
			value:         135,
			stats:         Stats{Mean: 100, Std: 10, Count: 50, Ready: true},
			wantAnomaly:   true,
			wantDirection: DirectionHigh,
			wantSeverity:  SeverityModerate,
		},
		{
			name:          "high severity",
			value:         150,
			stats:         Stats{Mean: 100, Std: 10, Count: 50, Ready: true},
			wantAnomaly:   true,
			wantDirection: DirectionHigh,
			wantSeverity:  SeverityHigh,
		},
		{
			name:          "critical severity",
			value:         170,
			stats:         Stats{Mean: 100, Std: 10, Count: 50, Ready: true},
			wantAnomaly:   true,
			wantDirection: DirectionHigh,
			wantSeverity:  SeverityCritical,
		},
		{
			name:          "low side",
			value:         60,
			stats:         Stats{Mean: 100, Std: 10, Count: 50, Ready: true},
			wantAnomaly:   true,
			wantDirection: DirectionLow,
			wantSeverity:  SeverityModerate,
		},
		{
			name:          "critical low",
			value:         30,
			stats:         Stats{Mean: 100, Std: 10, Count: 50, Ready: true},
			wantAnomaly:   true,
			wantDirection: DirectionLow,
			wantSeverity:  SeverityCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := e.Evaluate("llm.tokens.total", tt.value, tt.stats, testTime)
			if !tt.wantAnomaly {
				if a != nil {
					t.Fatalf("Evaluate() = %+v, want nil", a)
				}
				return
			}
			if a == nil {
				t.Fatal("Evaluate() = nil, want anomaly")
			}
			if a.Direction != tt.wantDirection {
				t.Errorf("Direction = %q, want %q", a.Direction, tt.wantDirection)
			}
			if a.Severity != tt.wantSeverity {
				t.Errorf("Severity = %q, want %q", a.Severity, tt.wantSeverity)
			}

			wantZ := (tt.value - tt.stats.Mean) / tt.stats.Std
			if !almostEqual(a.ZScore, wantZ) {
				t.Errorf("ZScore = %v, want %v", a.ZScore, wantZ)
			}
			if (a.ZScore > 0) != (a.Direction == DirectionHigh) {
				t.Errorf("direction %q does not match z-score sign %v", a.Direction, a.ZScore)
			}
			wantDev := (tt.value - tt.stats.Mean) / tt.stats.Mean * 100
			if !almostEqual(a.DeviationPercent, wantDev) {
				t.Errorf("DeviationPercent = %v, want %v", a.DeviationPercent, wantDev)
			}
		})
	}
}

func TestEvaluatorDeviationZeroMean(t *testing.T) {
	e := NewEvaluator(3.0, 6.0, 4.5)
	stats := Stats{Mean: 0, Std: 2, Count: 50, Ready: true}

	a := e.Evaluate("llm.response.is_refusal", 10, stats, testTime)
	if a == nil {
		t.Fatal("Evaluate() = nil, want anomaly")
	}
	if a.DeviationPercent != 0 {
		t.Errorf("DeviationPercent with zero mean = %v, want 0", a.DeviationPercent)
	}
}

func TestSeverityMonotonicInZ(t *testing.T) {
	e := NewEvaluator(3.0, 6.0, 4.5)
	stats := Stats{Mean: 0, Std: 1, Count: 50, Ready: true}

	prevRank := 0
	for z := 3.1; z < 10; z += 0.1 {
		a := e.Evaluate("m", z, stats, testTime)
		if a == nil {
			t.Fatalf("Evaluate() = nil at z=%v", z)
		}
		if r := a.Severity.rank(); r < prevRank {
			t.Fatalf("severity rank decreased from %d to %d at z=%v", prevRank, r, z)
		} else {
			prevRank = r
		}
	}
}

func TestSeverityBoundaries(t *testing.T) {
	e := NewEvaluator(3.0, 6.0, 4.5)
	stats := Stats{Mean: 0, Std: 1, Count: 50, Ready: true}

	tests := []struct {
		z    float64
		want Severity
	}{
		{3.5, SeverityModerate},
		{4.4999, SeverityModerate},
		{4.5, SeverityHigh},
		{5.9999, SeverityHigh},
		{6.0, SeverityCritical},
		{-6.0, SeverityCritical},
	}
	for _, tt := range tests {
		a := e.Evaluate("m", tt.z, stats, testTime)
		if a == nil {
			t.Fatalf("Evaluate() = nil at z=%v", tt.z)
		}
		if a.Severity != tt.want {
			t.Errorf("severity at z=%v: got %q, want %q", tt.z, a.Severity, tt.want)
		}
	}
}

func TestSeverityMax(t *testing.T) {
	if got := SeverityModerate.Max(SeverityCritical); got != SeverityCritical {
		t.Errorf("Max = %q, want %q", got, SeverityCritical)
	}
	if got := SeverityCritical.Max(SeverityHigh); got != SeverityCritical {
		t.Errorf("Max = %q, want %q", got, SeverityCritical)
	}
}
