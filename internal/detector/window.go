package detector

import "math"

// Window is a fixed-capacity rolling sample of one metric's recent values
// with incrementally maintained statistics and an EWMA baseline.
type Window struct {
	values    []float64 // ring storage
	head      int       // next write position
	size      int       // stored values, <= capacity
	count     int64     // observations ever folded in
	mean      float64
	m2        float64 // Welford sum of squared deviations
	ewma      float64
	ewmaReady bool
	alpha     float64
	minPoints int
}

// Stats is the statistical view of a window at a point in time.
type Stats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	EWMA  float64 `json:"ewma_baseline"`
	Count int64   `json:"count"`
	Ready bool    `json:"ready"`
}

// NewWindow creates a rolling window with the given capacity, validity
// minimum and EWMA smoothing factor.
func NewWindow(capacity, minPoints int, alpha float64) *Window {
	if capacity < 1 {
		capacity = 1
	}
	if minPoints < 1 {
		minPoints = 1
	}
	return &Window{
		values:    make([]float64, capacity),
		alpha:     alpha,
		minPoints: minPoints,
	}
}

// Update folds a value into the window and returns the resulting stats.
// The oldest value is evicted once the window is at capacity.
func (w *Window) Update(value float64) Stats {
	if w.size < len(w.values) {
		w.values[w.head] = value
		w.head = (w.head + 1) % len(w.values)
		w.size++

		// Welford fold-in
		delta := value - w.mean
		w.mean += delta / float64(w.size)
		w.m2 += delta * (value - w.mean)
	} else {
		// Eviction: overwrite the oldest slot, then recompute over the
		// retained values. The buffer is small and fixed, so a full pass
		// is cheaper to get right than incremental removal.
		w.values[w.head] = value
		w.head = (w.head + 1) % len(w.values)
		w.recompute()
	}
	w.count++

	if !w.ewmaReady {
		w.ewma = value
		w.ewmaReady = true
	} else {
		w.ewma = w.alpha*value + (1-w.alpha)*w.ewma
	}

	return w.Stats()
}

func (w *Window) recompute() {
	mean, m2 := 0.0, 0.0
	for i := 0; i < w.size; i++ {
		v := w.values[i]
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}
	w.mean = mean
	w.m2 = m2
}

// Stats returns the current statistical view without mutating the window.
func (w *Window) Stats() Stats {
	return Stats{
		Mean:  w.mean,
		Std:   w.Std(),
		EWMA:  w.ewma,
		Count: w.count,
		Ready: w.Ready(),
	}
}

// Mean returns the mean of the retained values.
func (w *Window) Mean() float64 {
	return w.mean
}

// Std returns the population standard deviation of the retained values.
// Windows holding fewer than two values have no spread and report 0.
func (w *Window) Std() float64 {
	if w.size < 2 {
		return 0
	}
	variance := w.m2 / float64(w.size)
	if variance < 0 {
		// floating-point noise
		variance = 0
	}
	return math.Sqrt(variance)
}

// EWMA returns the exponentially weighted moving average baseline.
func (w *Window) EWMA() float64 {
	return w.ewma
}

// Len returns the number of retained values.
func (w *Window) Len() int {
	return w.size
}

// Count returns the total number of observations ever folded in.
func (w *Window) Count() int64 {
	return w.count
}

// Ready reports whether the window holds enough history for detection.
func (w *Window) Ready() bool {
	return w.size >= w.minPoints
}

// Values returns the retained values oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.size)
	if w.size < len(w.values) {
		copy(out, w.values[:w.size])
		return out
	}
	// Full ring: oldest value sits at the write head.
	n := copy(out, w.values[w.head:])
	copy(out[n:], w.values[:w.head])
	return out
}
