// Package fpsstats measures the cadence of a frame source from its timestamps.
package fpsstats

import (
	"math"
	"sync"
	"time"
)

const (
	// fpsStabilityThreshold is the maximum FPS standard deviation as a fraction of mean FPS.
	// 30 FPS mean -> stable if stddev < 4.5 FPS
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum mean jitter as a fraction of the expected interval.
	// 30 FPS (33ms interval) -> stable if jitter < 6.6ms
	jitterStabilityThreshold = 0.20
)

// Stats summarizes frame cadence. FPS values are frames per second, jitter
// values are seconds.
type Stats struct {
	Frames   int
	Duration time.Duration

	FPSMean   float64
	FPSStdDev float64
	FPSMin    float64
	FPSMax    float64

	JitterMean   float64
	JitterStdDev float64
	JitterMax    float64

	IsStable bool
}

// Calculate computes cadence statistics from monotonically increasing
// timestamps.
//
//  1. Mean FPS from frame count over the first-to-last span
//  2. Instantaneous FPS per interval, min/max and standard deviation
//  3. Jitter: deviation of each interval from the expected interval
//  4. Stable when stddev < 15% of mean AND mean jitter < 20% of the interval
func Calculate(ts []time.Duration) Stats {
	n := len(ts)
	if n < 2 {
		return Stats{Frames: n}
	}

	span := ts[n-1] - ts[0]
	if span <= 0 {
		return Stats{Frames: n, Duration: span}
	}

	// n timestamps delimit n-1 intervals.
	fpsMean := float64(n-1) / span.Seconds()

	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if interval := (ts[i] - ts[i-1]).Seconds(); interval > 0 {
			instantaneous = append(instantaneous, 1/interval)
		}
	}
	if len(instantaneous) == 0 {
		return Stats{Frames: n, Duration: span, FPSMean: fpsMean}
	}

	fpsMin, fpsMax := instantaneous[0], instantaneous[0]
	var sumSquares float64
	for _, fps := range instantaneous {
		fpsMin = math.Min(fpsMin, fps)
		fpsMax = math.Max(fpsMax, fps)
		diff := fps - fpsMean
		sumSquares += diff * diff
	}
	fpsStdDev := math.Sqrt(sumSquares / float64(len(instantaneous)))

	expected := 1 / fpsMean
	jitters := make([]float64, 0, n-1)
	var jitterSum, jitterMax float64
	for i := 1; i < n; i++ {
		j := math.Abs((ts[i] - ts[i-1]).Seconds() - expected)
		jitters = append(jitters, j)
		jitterSum += j
		jitterMax = math.Max(jitterMax, j)
	}
	jitterMean := jitterSum / float64(len(jitters))

	var jitterSumSquares float64
	for _, j := range jitters {
		diff := j - jitterMean
		jitterSumSquares += diff * diff
	}

	return Stats{
		Frames:       n,
		Duration:     span,
		FPSMean:      fpsMean,
		FPSStdDev:    fpsStdDev,
		FPSMin:       fpsMin,
		FPSMax:       fpsMax,
		JitterMean:   jitterMean,
		JitterStdDev: math.Sqrt(jitterSumSquares / float64(len(jitters))),
		JitterMax:    jitterMax,
		IsStable:     fpsStdDev < fpsMean*fpsStabilityThreshold && jitterMean < expected*jitterStabilityThreshold,
	}
}

// Tracker keeps the most recent timestamps of a source.
type Tracker struct {
	mu     sync.Mutex
	window int
	ts     []time.Duration
}

// NewTracker keeps up to window timestamps.
func NewTracker(window int) *Tracker {
	if window < 2 {
		window = 2
	}
	return &Tracker{window: window, ts: make([]time.Duration, 0, window)}
}

// Add records a timestamp.
func (t *Tracker) Add(ts time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.ts) == t.window {
		copy(t.ts, t.ts[1:])
		t.ts = t.ts[:t.window-1]
	}
	t.ts = append(t.ts, ts)
}

// Stats computes statistics over the current window.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	snapshot := append([]time.Duration(nil), t.ts...)
	t.mu.Unlock()
	return Calculate(snapshot)
}
