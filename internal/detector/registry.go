package detector

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Config contains the tunables of a detection registry. It is read at
// construction and never mutated afterwards.
type Config struct {
	WindowSize  int     `json:"window_size"`
	MinPoints   int     `json:"min_points"`
	ZThreshold  float64 `json:"z_threshold"`
	EWMAAlpha   float64 `json:"ewma_alpha"`
	RecentLimit int     `json:"recent_limit"`
	Sev1ZScore  float64 `json:"sev1_zscore"`
	Sev2ZScore  float64 `json:"sev2_zscore"`
	Rules       []Rule  `json:"rules"`
}

// DefaultConfig returns the built-in detector configuration.
func DefaultConfig() Config {
	return Config{
		WindowSize:  100,
		MinPoints:   10,
		ZThreshold:  3.0,
		EWMAAlpha:   0.1,
		RecentLimit: 50,
		Sev1ZScore:  6.0,
		Sev2ZScore:  4.5,
		Rules:       DefaultRules(),
	}
}

// ErrNonFinite is returned when an observation value is NaN or infinite.
// It is the only error the registry produces: degenerate and not-yet-ready
// windows are quiet non-verdicts, a non-finite value is a caller defect.
var ErrNonFinite = errors.New("non-finite observation value")

// BatchResult carries everything one logical request's observation produced.
type BatchResult struct {
	Anomalies []Anomaly `json:"anomalies"`
	Pattern   *Pattern  `json:"pattern,omitempty"`
}

// MetricStats is the per-metric view exposed by Summary.
type MetricStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	EWMA  float64 `json:"ewma_baseline"`
	Count int64   `json:"count"`
	Ready bool    `json:"ready"`
}

// Summary is the registry-wide health view.
type Summary struct {
	TotalDatapoints int64                  `json:"total_datapoints"`
	TotalAnomalies  int64                  `json:"total_anomalies"`
	TotalPatterns   int64                  `json:"total_patterns"`
	MetricsTracked  int                    `json:"metrics_tracked"`
	WindowsReady    int                    `json:"windows_ready"`
	WindowSize      int                    `json:"window_size"`
	ZThreshold      float64                `json:"z_threshold"`
	RecentAnomalies int                    `json:"recent_anomalies"`
	PerMetric       map[string]MetricStats `json:"per_metric"`
}

// Registry owns one rolling window per metric name and turns raw
// observations into anomalies and correlated patterns. All methods are
// safe for concurrent use; a single mutex serializes every operation so
// a batch's anomalies correlate atomically.
type Registry struct {
	mu         sync.Mutex
	cfg        Config
	windows    map[string]*Window
	evaluator  *Evaluator
	correlator *Correlator
	recent     []Anomaly

	datapoints int64
	anomalies  int64
	patterns   int64
}

// NewRegistry creates a detection registry from the given configuration.
// Zero or missing fields fall back to defaults.
func NewRegistry(cfg Config) *Registry {
	def := DefaultConfig()
	if cfg.WindowSize < 1 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.MinPoints < 1 {
		cfg.MinPoints = def.MinPoints
	}
	if cfg.ZThreshold <= 0 {
		cfg.ZThreshold = def.ZThreshold
	}
	if cfg.EWMAAlpha <= 0 || cfg.EWMAAlpha > 1 {
		cfg.EWMAAlpha = def.EWMAAlpha
	}
	if cfg.RecentLimit < 1 {
		cfg.RecentLimit = def.RecentLimit
	}
	if cfg.Sev1ZScore <= 0 {
		cfg.Sev1ZScore = def.Sev1ZScore
	}
	if cfg.Sev2ZScore <= 0 {
		cfg.Sev2ZScore = def.Sev2ZScore
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = def.Rules
	}
	return &Registry{
		cfg:        cfg,
		windows:    make(map[string]*Window),
		evaluator:  NewEvaluator(cfg.ZThreshold, cfg.Sev1ZScore, cfg.Sev2ZScore),
		correlator: NewCorrelator(cfg.Rules),
	}
}

// Config returns the configuration the registry was built with.
func (r *Registry) Config() Config {
	return r.cfg
}

// Observe folds a single value into its metric's window and evaluates it.
// A nil anomaly with a nil error means "nothing abnormal"; ErrNonFinite
// means the value was rejected before touching any window.
func (r *Registry) Observe(metric string, value float64, ts time.Time) (*Anomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observeLocked(metric, value, ts)
}

// ObserveBatch observes every metric of one logical request, then runs
// correlation over exactly the anomalies that batch raised. Map iteration
// order does not affect the outcome: rule matching is set-based and the
// result's members are ordered by metric name.
func (r *Registry) ObserveBatch(values map[string]float64, ts time.Time) (BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res BatchResult
	var errs error
	for _, metric := range sortedKeys(values) {
		a, err := r.observeLocked(metric, values[metric], ts)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", metric, err))
			continue
		}
		if a != nil {
			res.Anomalies = append(res.Anomalies, *a)
		}
	}

	if p := r.correlator.Correlate(res.Anomalies, ts); p != nil {
		r.patterns++
		res.Pattern = p
	}
	return res, errs
}

func (r *Registry) observeLocked(metric string, value float64, ts time.Time) (*Anomaly, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrNonFinite
	}

	w, ok := r.windows[metric]
	if !ok {
		w = NewWindow(r.cfg.WindowSize, r.cfg.MinPoints, r.cfg.EWMAAlpha)
		r.windows[metric] = w
	}

	stats := w.Update(value)
	r.datapoints++

	a := r.evaluator.Evaluate(metric, value, stats, ts)
	if a == nil {
		return nil, nil
	}

	r.anomalies++
	r.recent = append(r.recent, *a)
	if len(r.recent) > r.cfg.RecentLimit {
		r.recent = r.recent[len(r.recent)-r.cfg.RecentLimit:]
	}
	return a, nil
}

// Recent returns a copy of up to n most recent anomalies, newest last.
// n <= 0 means all retained.
func (r *Registry) Recent(n int) []Anomaly {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.recent) {
		n = len(r.recent)
	}
	out := make([]Anomaly, n)
	copy(out, r.recent[len(r.recent)-n:])
	return out
}

// Summary reports the registry-wide counters and per-metric statistics.
func (r *Registry) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		TotalDatapoints: r.datapoints,
		TotalAnomalies:  r.anomalies,
		TotalPatterns:   r.patterns,
		MetricsTracked:  len(r.windows),
		WindowSize:      r.cfg.WindowSize,
		ZThreshold:      r.cfg.ZThreshold,
		RecentAnomalies: len(r.recent),
		PerMetric:       make(map[string]MetricStats, len(r.windows)),
	}
	for name, w := range r.windows {
		st := w.Stats()
		if st.Ready {
			s.WindowsReady++
		}
		s.PerMetric[name] = MetricStats{
			Mean:  st.Mean,
			Std:   st.Std,
			EWMA:  st.EWMA,
			Count: st.Count,
			Ready: st.Ready,
		}
	}
	return s
}

// Reset drops every window, the recent buffer and all counters.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.windows = make(map[string]*Window)
	r.recent = nil
	r.datapoints = 0
	r.anomalies = 0
	r.patterns = 0
}

// WindowSnapshot is the serializable state of one metric's window.
type WindowSnapshot struct {
	Values []float64 `json:"values"`
	Count  int64     `json:"count"`
	EWMA   float64   `json:"ewma_baseline"`
}

// Snapshot is the full serializable state of a registry, captured so an
// external collaborator can persist and later restore it. The core itself
// never touches storage.
type Snapshot struct {
	CapturedAt time.Time                 `json:"captured_at"`
	Windows    map[string]WindowSnapshot `json:"windows"`
	Recent     []Anomaly                 `json:"recent_anomalies"`
	Datapoints int64                     `json:"total_datapoints"`
	Anomalies  int64                     `json:"total_anomalies"`
	Patterns   int64                     `json:"total_patterns"`
}

// Snapshot exports the registry's current state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		CapturedAt: time.Now().UTC(),
		Windows:    make(map[string]WindowSnapshot, len(r.windows)),
		Recent:     make([]Anomaly, len(r.recent)),
		Datapoints: r.datapoints,
		Anomalies:  r.anomalies,
		Patterns:   r.patterns,
	}
	copy(snap.Recent, r.recent)
	for name, w := range r.windows {
		snap.Windows[name] = WindowSnapshot{
			Values: w.Values(),
			Count:  w.Count(),
			EWMA:   w.EWMA(),
		}
	}
	return snap
}

// Restore replaces the registry's state with a previously exported
// snapshot. Window statistics are rebuilt by replaying the retained
// values; the EWMA and lifetime counters are taken from the snapshot.
func (r *Registry) Restore(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.windows = make(map[string]*Window, len(snap.Windows))
	for name, ws := range snap.Windows {
		w := NewWindow(r.cfg.WindowSize, r.cfg.MinPoints, r.cfg.EWMAAlpha)
		for _, v := range ws.Values {
			w.Update(v)
		}
		w.count = ws.Count
		if len(ws.Values) > 0 {
			w.ewma = ws.EWMA
			w.ewmaReady = true
		}
		r.windows[name] = w
	}

	r.recent = make([]Anomaly, len(snap.Recent))
	copy(r.recent, snap.Recent)
	if len(r.recent) > r.cfg.RecentLimit {
		r.recent = r.recent[len(r.recent)-r.cfg.RecentLimit:]
	}
	r.datapoints = snap.Datapoints
	r.anomalies = snap.Anomalies
	r.patterns = snap.Patterns
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
