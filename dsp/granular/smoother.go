package granular

import "math"

// onePole is a single-pole parameter smoother. Each step moves the value a
// fixed fraction of the remaining distance toward the target, hiding setter
// discontinuities without blocking.
type onePole struct {
	value  float64
	target float64
	coeff  float64
}

func newOnePole(tauSeconds, sampleRate, initial float64) onePole {
	s := onePole{value: initial, target: initial}
	s.setTau(tauSeconds, sampleRate)
	return s
}

func (s *onePole) setTau(tauSeconds, sampleRate float64) {
	if tauSeconds <= 0 || sampleRate <= 0 {
		s.coeff = 1
		return
	}
	s.coeff = 1 - math.Exp(-1/(tauSeconds*sampleRate))
}

func (s *onePole) setTarget(v float64) {
	s.target = v
}

// snap jumps value and target to v without smoothing.
func (s *onePole) snap(v float64) {
	s.value = v
	s.target = v
}

func (s *onePole) next() float64 {
	s.value += s.coeff * (s.target - s.value)
	return s.value
}

// linearRamp moves toward its target by at most step per sample. The bounded
// per-sample increment is what makes freeze transitions click-free.
type linearRamp struct {
	value  float64
	target float64
	step   float64
}

func newLinearRamp(windowSeconds, sampleRate, initial float64) linearRamp {
	r := linearRamp{value: initial, target: initial}
	r.setWindow(windowSeconds, sampleRate)
	return r
}

// setWindow sets the time a full 0..1 traversal takes.
func (r *linearRamp) setWindow(windowSeconds, sampleRate float64) {
	if windowSeconds <= 0 || sampleRate <= 0 {
		r.step = 1
		return
	}
	r.step = 1 / (windowSeconds * sampleRate)
}

func (r *linearRamp) setTarget(v float64) {
	r.target = v
}

func (r *linearRamp) snap(v float64) {
	r.value = v
	r.target = v
}

func (r *linearRamp) next() float64 {
	switch {
	case r.value < r.target:
		r.value += r.step
		if r.value > r.target {
			r.value = r.target
		}
	case r.value > r.target:
		r.value -= r.step
		if r.value < r.target {
			r.value = r.target
		}
	}
	return r.value
}
