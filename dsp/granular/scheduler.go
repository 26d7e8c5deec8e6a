package granular

import "math"

// TriggerMode selects how grain onsets are spaced.
type TriggerMode int

const (
	// TriggerSync spaces grains at the exact interonset interval.
	TriggerSync TriggerMode = iota
	// TriggerAsync randomizes each interval around the nominal one.
	TriggerAsync
)

const minSchedulerDensityHz = 0.1

// scheduler decides, once per sample, whether a new grain starts. It owns its
// random source so that seeded trigger sequences are reproducible in
// isolation.
type scheduler struct {
	sampleRate float64
	interonset float64
	countdown  float64
	mode       TriggerMode

	// jitter in [0, 1] scales the async spread. At 1 the reload interval is
	// uniform in [0.75, 1.25) of the nominal interonset.
	jitter float64

	noise *noiseSource
}

func newScheduler(sampleRate float64, seed int64) *scheduler {
	s := &scheduler{
		sampleRate: sampleRate,
		mode:       TriggerAsync,
		jitter:     1,
		noise:      newNoiseSource(seed),
	}
	s.setDensity(10)
	s.countdown = 1
	return s
}

// setDensity sets grain rate in Hz, clamped to a 0.1 Hz floor, and
// recomputes the interonset interval.
func (s *scheduler) setDensity(hz float64) {
	if hz < minSchedulerDensityHz || math.IsNaN(hz) {
		hz = minSchedulerDensityHz
	}
	s.interonset = s.sampleRate / hz
}

func (s *scheduler) setMode(mode TriggerMode) {
	s.mode = mode
}

func (s *scheduler) setJitter(amount float64) {
	if amount < 0 || math.IsNaN(amount) {
		amount = 0
	}
	if amount > 1 {
		amount = 1
	}
	s.jitter = amount
}

// process is called once per sample and reports whether a grain fires now.
func (s *scheduler) process() bool {
	s.countdown--
	if s.countdown > 0 {
		return false
	}
	s.countdown += s.reloadInterval()
	if s.countdown < 1 {
		s.countdown = 1
	}
	return true
}

func (s *scheduler) reloadInterval() float64 {
	if s.mode == TriggerSync || s.jitter <= 0 {
		return s.interonset
	}
	// Spread of +/-25% at full jitter: uniform in [0.75, 1.25) around the
	// nominal interval, scaled down for smaller jitter amounts.
	spread := (0.75 + s.noise.uniform()*0.5) - 1
	return s.interonset * (1 + spread*s.jitter)
}

// seed rewinds the trigger sequence to a reproducible state.
func (s *scheduler) seed(value int64) {
	s.noise.reseed(value)
}

// reset restarts the countdown so the next processed sample fires.
func (s *scheduler) reset() {
	s.countdown = 1
	s.noise.rewind()
}
