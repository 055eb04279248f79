package detector

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

// warm feeds a metric enough gentle variation to establish a baseline.
func warm(t *testing.T, r *Registry, metric string, mean, spread float64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		v := mean + spread*float64(i%5-2)/2
		if _, err := r.Observe(metric, v, testTime.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("warm %s: %v", metric, err)
		}
	}
}

func TestRegistryNoAnomalyBelowMinPoints(t *testing.T) {
	r := NewRegistry(Config{MinPoints: 10})

	// Nine points, then an absurd value: still below the validity gate.
	for i := 0; i < 8; i++ {
		if a, err := r.Observe("llm.latency.ms", float64(100+i), testTime); err != nil || a != nil {
			t.Fatalf("Observe() = (%+v, %v), want (nil, nil)", a, err)
		}
	}
	a, err := r.Observe("llm.latency.ms", 1e12, testTime)
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if a != nil {
		t.Errorf("Observe() below min points = %+v, want nil", a)
	}
}

func TestRegistryConstantSeriesNeverRaises(t *testing.T) {
	r := NewRegistry(Config{MinPoints: 10})

	for i := 0; i < 30; i++ {
		if a, _ := r.Observe("llm.tokens.total", 500, testTime); a != nil {
			t.Fatalf("Observe() on constant series = %+v, want nil", a)
		}
	}

	// Once variance exists, detection resumes.
	r2 := NewRegistry(Config{MinPoints: 10})
	for i := 0; i < 30; i++ {
		r2.Observe("m", 500, testTime)
	}
	// Introduce mild variance first, then a clear outlier.
	for i := 0; i < 10; i++ {
		r2.Observe("m", 500+float64(i%3), testTime)
	}
	a, err := r2.Observe("m", 5000, testTime)
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if a == nil {
		t.Error("Observe() after variance introduced = nil, want anomaly")
	}
}

func TestRegistryRejectsNonFinite(t *testing.T) {
	r := NewRegistry(Config{})

	tests := []struct {
		name  string
		value float64
	}{
		{name: "NaN", value: math.NaN()},
		{name: "+Inf", value: math.Inf(1)},
		{name: "-Inf", value: math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := r.Observe("llm.latency.ms", tt.value, testTime)
			if !errors.Is(err, ErrNonFinite) {
				t.Errorf("Observe() error = %v, want ErrNonFinite", err)
			}
			if a != nil {
				t.Errorf("Observe() = %+v, want nil", a)
			}
		})
	}

	// The rejected values must not have touched the window.
	if s := r.Summary(); s.TotalDatapoints != 0 {
		t.Errorf("TotalDatapoints = %d, want 0", s.TotalDatapoints)
	}
}

func TestRegistryBatchCorrelation(t *testing.T) {
	r := NewRegistry(Config{})
	warm(t, r, "llm.tokens.total", 500, 50, 30)
	warm(t, r, "llm.latency.ms", 300, 40, 30)

	res, err := r.ObserveBatch(map[string]float64{
		"llm.tokens.total": 9000,
		"llm.latency.ms":   8000,
	}, testTime)
	if err != nil {
		t.Fatalf("ObserveBatch() error = %v", err)
	}
	if len(res.Anomalies) != 2 {
		t.Fatalf("anomalies = %d, want 2", len(res.Anomalies))
	}
	if res.Pattern == nil {
		t.Fatal("pattern = nil, want high_token_latency_spike")
	}
	if res.Pattern.Name != "high_token_latency_spike" {
		t.Errorf("pattern = %q, want high_token_latency_spike", res.Pattern.Name)
	}

	wantSev := res.Anomalies[0].Severity.Max(res.Anomalies[1].Severity)
	if res.Pattern.Severity != wantSev {
		t.Errorf("pattern severity = %q, want %q", res.Pattern.Severity, wantSev)
	}
}

func TestRegistryIsolatedAnomalyNoPattern(t *testing.T) {
	r := NewRegistry(Config{})
	warm(t, r, "llm.tokens.total", 500, 50, 30)
	warm(t, r, "llm.latency.ms", 300, 40, 30)

	res, err := r.ObserveBatch(map[string]float64{
		"llm.tokens.total": 9000,
		"llm.latency.ms":   300,
	}, testTime)
	if err != nil {
		t.Fatalf("ObserveBatch() error = %v", err)
	}
	if len(res.Anomalies) != 1 {
		t.Fatalf("anomalies = %d, want 1", len(res.Anomalies))
	}
	if res.Pattern != nil {
		t.Errorf("pattern = %+v, want nil", res.Pattern)
	}
}

func TestRegistryBatchSkipsNonFiniteMetric(t *testing.T) {
	r := NewRegistry(Config{})
	warm(t, r, "llm.tokens.total", 500, 50, 30)

	res, err := r.ObserveBatch(map[string]float64{
		"llm.tokens.total": 9000,
		"llm.latency.ms":   math.NaN(),
	}, testTime)
	if !errors.Is(err, ErrNonFinite) {
		t.Errorf("ObserveBatch() error = %v, want ErrNonFinite", err)
	}
	// The finite metric is still processed.
	if len(res.Anomalies) != 1 {
		t.Errorf("anomalies = %d, want 1", len(res.Anomalies))
	}
}

func TestRegistryRecentBuffer(t *testing.T) {
	r := NewRegistry(Config{RecentLimit: 5})
	warm(t, r, "m", 100, 10, 30)

	// Raise more anomalies than the buffer retains.
	for i := 0; i < 8; i++ {
		ts := testTime.Add(time.Duration(i) * time.Minute)
		if _, err := r.Observe("m", 100+float64(200+i*100), ts); err != nil {
			t.Fatalf("Observe() error = %v", err)
		}
	}

	recent := r.Recent(0)
	if len(recent) > 5 {
		t.Fatalf("recent = %d anomalies, want <= 5", len(recent))
	}
	// Newest last.
	for i := 1; i < len(recent); i++ {
		if recent[i].Timestamp.Before(recent[i-1].Timestamp) {
			t.Error("recent anomalies not in chronological order")
		}
	}

	limited := r.Recent(2)
	if len(limited) != 2 {
		t.Errorf("Recent(2) = %d anomalies, want 2", len(limited))
	}
}

func TestRegistrySummary(t *testing.T) {
	r := NewRegistry(Config{MinPoints: 10})
	warm(t, r, "llm.tokens.total", 500, 50, 30)
	warm(t, r, "llm.latency.ms", 300, 40, 5)

	s := r.Summary()
	if s.TotalDatapoints != 35 {
		t.Errorf("TotalDatapoints = %d, want 35", s.TotalDatapoints)
	}
	if s.MetricsTracked != 2 {
		t.Errorf("MetricsTracked = %d, want 2", s.MetricsTracked)
	}
	if s.WindowsReady != 1 {
		t.Errorf("WindowsReady = %d, want 1", s.WindowsReady)
	}
	st, ok := s.PerMetric["llm.tokens.total"]
	if !ok {
		t.Fatal("summary missing llm.tokens.total")
	}
	if !st.Ready || st.Count != 30 {
		t.Errorf("llm.tokens.total stats = %+v", st)
	}
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry(Config{})
	warm(t, r, "m", 100, 10, 30)
	r.Observe("m", 10000, testTime)

	r.Reset()
	s := r.Summary()
	if s.TotalDatapoints != 0 || s.TotalAnomalies != 0 || s.MetricsTracked != 0 {
		t.Errorf("summary after reset = %+v", s)
	}
	if len(r.Recent(0)) != 0 {
		t.Error("recent buffer not cleared by reset")
	}
}

func TestRegistrySnapshotRestore(t *testing.T) {
	r := NewRegistry(Config{MinPoints: 10})
	warm(t, r, "llm.tokens.total", 500, 50, 30)
	r.Observe("llm.tokens.total", 9000, testTime)

	snap := r.Snapshot()

	restored := NewRegistry(Config{MinPoints: 10})
	restored.Restore(snap)

	orig := r.Summary()
	got := restored.Summary()
	if got.TotalDatapoints != orig.TotalDatapoints {
		t.Errorf("TotalDatapoints = %d, want %d", got.TotalDatapoints, orig.TotalDatapoints)
	}
	if got.TotalAnomalies != orig.TotalAnomalies {
		t.Errorf("TotalAnomalies = %d, want %d", got.TotalAnomalies, orig.TotalAnomalies)
	}

	os, rs := orig.PerMetric["llm.tokens.total"], got.PerMetric["llm.tokens.total"]
	if !almostEqual(os.Mean, rs.Mean) || !almostEqual(os.Std, rs.Std) || !almostEqual(os.EWMA, rs.EWMA) {
		t.Errorf("restored stats %+v, want %+v", rs, os)
	}
	if rs.Count != os.Count {
		t.Errorf("restored count = %d, want %d", rs.Count, os.Count)
	}

	// A restored registry keeps detecting.
	a, err := restored.Observe("llm.tokens.total", 50000, testTime)
	if err != nil {
		t.Fatalf("Observe() after restore error = %v", err)
	}
	if a == nil {
		t.Error("Observe() after restore = nil, want anomaly")
	}
}

func TestRegistryBatchOrderIndependent(t *testing.T) {
	// Two registries warmed identically, fed the same batch: the map
	// iteration order varies between runs but outcomes must not.
	build := func() *Registry {
		r := NewRegistry(Config{})
		warm(t, r, "llm.tokens.total", 500, 50, 30)
		warm(t, r, "llm.latency.ms", 300, 40, 30)
		warm(t, r, "llm.cost.per_request", 0.02, 0.004, 30)
		return r
	}
	batch := map[string]float64{
		"llm.tokens.total":     9000,
		"llm.latency.ms":       8000,
		"llm.cost.per_request": 0.9,
	}

	r1, r2 := build(), build()
	res1, err1 := r1.ObserveBatch(batch, testTime)
	res2, err2 := r2.ObserveBatch(batch, testTime)
	if err1 != nil || err2 != nil {
		t.Fatalf("ObserveBatch() errors = %v, %v", err1, err2)
	}
	if len(res1.Anomalies) != len(res2.Anomalies) {
		t.Fatalf("anomaly counts differ: %d vs %d", len(res1.Anomalies), len(res2.Anomalies))
	}
	if res1.Pattern == nil || res2.Pattern == nil || res1.Pattern.Name != res2.Pattern.Name {
		t.Errorf("patterns differ: %+v vs %+v", res1.Pattern, res2.Pattern)
	}
}

func TestRegistryConcurrentObserve(t *testing.T) {
	r := NewRegistry(Config{})

	const goroutines = 8
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				metric := []string{"llm.tokens.total", "llm.latency.ms", "llm.cost.per_request"}[i%3]
				r.Observe(metric, float64(100+seed+i%7), testTime)
			}
		}(g)
	}
	wg.Wait()

	if s := r.Summary(); s.TotalDatapoints != goroutines*perGoroutine {
		t.Errorf("TotalDatapoints = %d, want %d", s.TotalDatapoints, goroutines*perGoroutine)
	}
}
