package fpsstats

import (
	"math"
	"testing"
	"time"
)

func evenlySpaced(n int, fps int) []time.Duration {
	ts := make([]time.Duration, n)
	for i := range ts {
		ts[i] = time.Duration(i) * time.Second / time.Duration(fps)
	}
	return ts
}

func TestCalculateSteady(t *testing.T) {
	s := Calculate(evenlySpaced(31, 30))

	if math.Abs(s.FPSMean-30) > 0.01 {
		t.Errorf("FPSMean = %v, want 30", s.FPSMean)
	}
	if s.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", s.Duration)
	}
	if !s.IsStable {
		t.Errorf("steady source should be stable: %+v", s)
	}
	if s.JitterMax > 1e-6 {
		t.Errorf("JitterMax = %v, want ≈0", s.JitterMax)
	}
}

func TestCalculateJittery(t *testing.T) {
	ts := []time.Duration{0, 10 * time.Millisecond, 100 * time.Millisecond, 110 * time.Millisecond, 200 * time.Millisecond}
	s := Calculate(ts)

	if s.IsStable {
		t.Errorf("bursty source should be unstable: %+v", s)
	}
	if s.FPSMax <= s.FPSMin {
		t.Errorf("FPSMax %v <= FPSMin %v", s.FPSMax, s.FPSMin)
	}
}

func TestCalculateEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		ts   []time.Duration
	}{
		{"empty", nil},
		{"single", []time.Duration{time.Second}},
		{"identical", []time.Duration{time.Second, time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Calculate(tt.ts)
			if s.FPSMean != 0 || s.IsStable {
				t.Errorf("Calculate(%v) = %+v, want zero stats", tt.ts, s)
			}
			if s.Frames != len(tt.ts) {
				t.Errorf("Frames = %d, want %d", s.Frames, len(tt.ts))
			}
		})
	}
}

func TestTrackerWindow(t *testing.T) {
	tr := NewTracker(10)
	for _, ts := range evenlySpaced(100, 60) {
		tr.Add(ts)
	}

	s := tr.Stats()
	if s.Frames != 10 {
		t.Errorf("Frames = %d, want 10", s.Frames)
	}
	if math.Abs(s.FPSMean-60) > 0.1 {
		t.Errorf("FPSMean = %v, want 60", s.FPSMean)
	}
}
