package detector

import (
	"math"
	"time"
)

// Severity classifies how far an observation sits from its baseline.
type Severity string

// Severity levels, most severe first
const (
	SeverityCritical Severity = "SEV-1"
	SeverityHigh     Severity = "SEV-2"
	SeverityModerate Severity = "SEV-3"
)

// rank orders severities for comparison; higher means more severe.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityModerate:
		return 1
	default:
		return 0
	}
}

// Max returns the more severe of two severities.
func (s Severity) Max(other Severity) Severity {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// Direction indicates which side of the baseline an anomaly fell on.
type Direction string

// Anomaly directions
const (
	DirectionHigh Direction = "high"
	DirectionLow  Direction = "low"
)

// Anomaly is an immutable record of one observation that broke its baseline.
type Anomaly struct {
	MetricName       string    `json:"metric_name"`
	Value            float64   `json:"value"`
	ZScore           float64   `json:"z_score"`
	DeviationPercent float64   `json:"deviation_percent"`
	Severity         Severity  `json:"severity"`
	Direction        Direction `json:"direction"`
	BaselineMean     float64   `json:"baseline_mean"`
	BaselineStd      float64   `json:"baseline_std"`
	Timestamp        time.Time `json:"timestamp"`
}

// degenerateStd is the spread below which a window is treated as constant;
// z-scores against effectively-zero spread are meaningless.
const degenerateStd = 1e-4

// Evaluator applies the z-score rule and severity mapping to window stats.
type Evaluator struct {
	threshold  float64
	sev1ZScore float64
	sev2ZScore float64
}

// NewEvaluator creates an evaluator with the given z-score threshold and
// severity boundaries. Boundaries must satisfy threshold <= sev2 <= sev1.
func NewEvaluator(threshold, sev1ZScore, sev2ZScore float64) *Evaluator {
	return &Evaluator{
		threshold:  threshold,
		sev1ZScore: sev1ZScore,
		sev2ZScore: sev2ZScore,
	}
}

// Evaluate scores a value against the window stats it was just folded into.
// It returns nil when the window has insufficient history, when its spread
// is degenerate, or when the value sits inside the threshold.
func (e *Evaluator) Evaluate(metric string, value float64, stats Stats, ts time.Time) *Anomaly {
	if !stats.Ready {
		return nil
	}
	if stats.Std < degenerateStd {
		return nil
	}

	z := (value - stats.Mean) / stats.Std
	if math.Abs(z) <= e.threshold {
		return nil
	}

	direction := DirectionHigh
	if z < 0 {
		direction = DirectionLow
	}

	deviation := 0.0
	if stats.Mean != 0 {
		deviation = (value - stats.Mean) / stats.Mean * 100
	}

	return &Anomaly{
		MetricName:       metric,
		Value:            value,
		ZScore:           z,
		DeviationPercent: deviation,
		Severity:         e.severityFor(math.Abs(z)),
		Direction:        direction,
		BaselineMean:     stats.Mean,
		BaselineStd:      stats.Std,
		Timestamp:        ts,
	}
}

// severityFor maps an absolute z-score to a severity level.
func (e *Evaluator) severityFor(absZ float64) Severity {
	switch {
	case absZ >= e.sev1ZScore:
		return SeverityCritical
	case absZ >= e.sev2ZScore:
		return SeverityHigh
	default:
		return SeverityModerate
	}
}
