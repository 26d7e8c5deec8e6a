package granular

import (
	"math"
	"testing"
)

func TestOnePoleConverges(t *testing.T) {
	s := newOnePole(0.002, 48000, 0)
	s.setTarget(1)

	var v float64
	for i := 0; i < 2000; i++ {
		v = s.next()
	}

	if math.Abs(v-1) > 1e-6 {
		t.Fatalf("value = %g after 2000 samples, want ~1", v)
	}
}

func TestOnePoleMonotonicApproach(t *testing.T) {
	s := newOnePole(0.01, 44100, 0)
	s.setTarget(0.8)

	prev := 0.0
	for i := 0; i < 1000; i++ {
		v := s.next()
		if v < prev || v > 0.8 {
			t.Fatalf("sample %d: value %g not monotonic toward target", i, v)
		}
		prev = v
	}
}

func TestOnePoleSnap(t *testing.T) {
	s := newOnePole(0.01, 48000, 0)
	s.snap(0.5)

	if v := s.next(); v != 0.5 {
		t.Fatalf("value = %g after snap, want 0.5", v)
	}
}

func TestOnePoleDegenerateTau(t *testing.T) {
	s := newOnePole(0, 48000, 0)
	s.setTarget(1)

	if v := s.next(); v != 1 {
		t.Fatalf("value = %g, want immediate jump to 1", v)
	}
}

func TestLinearRampStepBound(t *testing.T) {
	r := newLinearRamp(0.05, 48000, 0)
	r.setTarget(1)

	step := 1.0 / (0.05 * 48000)
	prev := 0.0
	for i := 0; i < 3000; i++ {
		v := r.next()
		if d := math.Abs(v - prev); d > step+1e-15 {
			t.Fatalf("sample %d: per-sample move %g exceeds %g", i, d, step)
		}
		prev = v
	}

	if prev != 1 {
		t.Fatalf("value = %g after full window, want exactly 1", prev)
	}
}

func TestLinearRampReachesTargetExactly(t *testing.T) {
	r := newLinearRamp(0.01, 1000, 1)
	r.setTarget(0)

	var v float64
	for i := 0; i < 20; i++ {
		v = r.next()
	}

	if v != 0 {
		t.Fatalf("value = %g, want exactly 0", v)
	}
}

func TestLinearRampHoldsAtTarget(t *testing.T) {
	r := newLinearRamp(0.01, 48000, 0.3)
	r.setTarget(0.3)

	for i := 0; i < 10; i++ {
		if v := r.next(); v != 0.3 {
			t.Fatalf("value = %g, want 0.3", v)
		}
	}
}
