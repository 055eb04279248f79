package detector

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// metricProfile is the normal distribution one metric is synthesized
// from, with hard clipping bounds.
type metricProfile struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// baselineProfiles models typical single-user traffic against a mid-size
// hosted model: short-to-medium prompts, sub-second latencies, a small
// refusal rate.
var baselineProfiles = map[string]metricProfile{
	"llm.tokens.total":              {Mean: 500, Std: 150, Min: 50, Max: 2000},
	"llm.tokens.prompt":             {Mean: 200, Std: 80, Min: 20, Max: 1000},
	"llm.tokens.response":           {Mean: 300, Std: 100, Min: 20, Max: 1500},
	"llm.tokens.ratio":              {Mean: 0.8, Std: 0.3, Min: 0.1, Max: 3.0},
	"llm.cost.per_request":          {Mean: 0.0004, Std: 0.00015, Min: 0.00005, Max: 0.002},
	"llm.cost.input":                {Mean: 0.00005, Std: 0.00002, Min: 0.000005, Max: 0.00025},
	"llm.cost.output":               {Mean: 0.00015, Std: 0.00005, Min: 0.00001, Max: 0.00075},
	"llm.latency.ms":                {Mean: 250, Std: 80, Min: 100, Max: 2000},
	"llm.throughput.tokens_per_sec": {Mean: 2000, Std: 500, Min: 500, Max: 5000},
	"llm.prompt.length":             {Mean: 800, Std: 300, Min: 50, Max: 5000},
	"llm.prompt.complexity_score":   {Mean: 15, Std: 5, Min: 5, Max: 40},
	"llm.prompt.question_count":     {Mean: 1.5, Std: 1.0, Min: 0, Max: 5},
	"llm.prompt.context_utilization": {Mean: 3, Std: 2, Min: 0.1, Max: 15},
	"llm.response.length":           {Mean: 1200, Std: 500, Min: 50, Max: 8000},
	"llm.response.is_refusal":       {Mean: 0.02, Std: 0.02, Min: 0, Max: 1},
	"llm.response.has_code":         {Mean: 0.15, Std: 0.1, Min: 0, Max: 1},
	"llm.response.is_truncated":     {Mean: 0.01, Std: 0.01, Min: 0, Max: 1},
}

// BaselineMetrics returns the metric names the generator knows about,
// sorted for deterministic iteration.
func BaselineMetrics() []string {
	names := make([]string, 0, len(baselineProfiles))
	for name := range baselineProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile returns the mean and standard deviation a known metric is
// synthesized from. ok is false for metrics the generator does not model.
func Profile(metric string) (mean, std float64, ok bool) {
	p, found := baselineProfiles[metric]
	if !found {
		return 0, 0, false
	}
	return p.Mean, p.Std, true
}

// Generator synthesizes plausible baseline series so detection can start
// without waiting for live traffic to fill the windows. A fraction of the
// points are deliberate outliers at 3 to 5 sigma, so a freshly seeded
// registry behaves like one that has seen real traffic.
type Generator struct {
	points      int
	anomalyRate float64
	rng         *rand.Rand
}

// NewGenerator creates a generator producing the given number of points
// per metric. A non-positive points count falls back to 1000 and an
// out-of-range anomaly rate to 0.05. The seed makes output reproducible.
func NewGenerator(points int, anomalyRate float64, seed int64) *Generator {
	if points <= 0 {
		points = 1000
	}
	if anomalyRate < 0 || anomalyRate >= 1 {
		anomalyRate = 0.05
	}
	return &Generator{
		points:      points,
		anomalyRate: anomalyRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Generate produces a full synthetic series for every known metric.
func (g *Generator) Generate() map[string][]float64 {
	series := make(map[string][]float64, len(baselineProfiles))
	for _, name := range BaselineMetrics() {
		series[name] = g.generateSeries(baselineProfiles[name])
	}
	return series
}

// BuildSnapshot generates synthetic series and packages them as a
// registry snapshot: each window keeps its most recent windowSize values
// while the lifetime datapoint counter reflects the full series.
func (g *Generator) BuildSnapshot(windowSize int, alpha float64, now time.Time) Snapshot {
	snap := Snapshot{
		CapturedAt: now.UTC(),
		Windows:    make(map[string]WindowSnapshot, len(baselineProfiles)),
	}
	for name, values := range g.Generate() {
		tail := values
		if len(tail) > windowSize {
			tail = tail[len(tail)-windowSize:]
		}
		kept := make([]float64, len(tail))
		copy(kept, tail)
		snap.Windows[name] = WindowSnapshot{
			Values: kept,
			Count:  int64(len(values)),
			EWMA:   ewmaOf(values, alpha),
		}
		snap.Datapoints += int64(len(values))
	}
	return snap
}

func (g *Generator) generateSeries(p metricProfile) []float64 {
	values := make([]float64, g.points)
	for i := range values {
		values[i] = clip(p.Mean+g.rng.NormFloat64()*p.Std, p.Min, p.Max)
	}

	// Sprinkle in outliers so the series is not suspiciously clean.
	outliers := int(float64(g.points) * g.anomalyRate)
	for _, idx := range g.rng.Perm(g.points)[:outliers] {
		spread := (3 + 2*g.rng.Float64()) * p.Std
		if g.rng.Float64() < 0.5 {
			values[idx] = clip(p.Mean+spread, p.Min, p.Max)
		} else {
			values[idx] = clip(p.Mean-spread, p.Min, p.Max)
		}
	}
	return values
}

// Sequence produces one synthetic series with an optional linear trend
// and sinusoidal seasonality, for load testing against a live server.
func (g *Generator) Sequence(mean, std float64, n int, trend, seasonAmp float64, seasonPeriod int) []float64 {
	if seasonPeriod <= 0 {
		seasonPeriod = 24
	}
	values := make([]float64, n)
	for i := range values {
		v := mean + g.rng.NormFloat64()*std
		v += trend * float64(i)
		if seasonAmp != 0 {
			v += seasonAmp * math.Sin(2*math.Pi*float64(i)/float64(seasonPeriod))
		}
		values[i] = v
	}
	return values
}

func ewmaOf(values []float64, alpha float64) float64 {
	if len(values) == 0 {
		return 0
	}
	ewma := values[0]
	for _, v := range values[1:] {
		ewma = alpha*v + (1-alpha)*ewma
	}
	return ewma
}

func clip(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
