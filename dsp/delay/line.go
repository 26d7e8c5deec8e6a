package delay

import (
	"fmt"
	"math"

	"github.com/rolandzwaga/krate-audio-sub000/dsp/core"
)

// Line is a circular delay line.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line of fixed size.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// NewSeconds returns a delay line sized for maxSeconds at sampleRate.
func NewSeconds(sampleRate, maxSeconds float64) (*Line, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("delay sample rate must be > 0: %f", sampleRate)
	}
	if maxSeconds <= 0 || math.IsNaN(maxSeconds) || math.IsInf(maxSeconds, 0) {
		return nil, fmt.Errorf("delay length must be > 0 seconds: %f", maxSeconds)
	}
	return New(int(math.Ceil(sampleRate*maxSeconds)) + 1)
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Write writes one sample and advances the cursor.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// WriteBlend writes a mix of the incoming sample and the sample already
// stored at the cursor, then advances. hold = 0 behaves like Write; hold = 1
// preserves stored content unchanged while the cursor keeps moving, which is
// what a click-free freeze needs.
func (d *Line) WriteBlend(sample, hold float64) {
	if hold < 0 {
		hold = 0
	}
	if hold > 1 {
		hold = 1
	}
	d.buffer[d.writePos] = sample*(1-hold) + d.buffer[d.writePos]*hold
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples behind the write cursor.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	if size == 0 {
		return 0
	}
	readPos := ((d.writePos-delay)%size + size) % size
	return d.buffer[readPos]
}

// ReadLinear reads a fractional delay in samples behind the write cursor
// using linear interpolation. The delay is clamped into [0, Len()-1], so the
// read never indexes outside the buffer regardless of the request.
func (d *Line) ReadLinear(delay float64) float64 {
	size := len(d.buffer)
	if size == 0 {
		return 0
	}
	if delay < 0 || math.IsNaN(delay) {
		delay = 0
	}
	maxDelay := float64(size - 1)
	if delay > maxDelay {
		delay = maxDelay
	}

	p := int(delay)
	t := delay - float64(p)

	x0 := d.Read(p)
	x1 := d.Read(p + 1)
	return x0 + (x1-x0)*t
}

// Reset clears line state.
func (d *Line) Reset() {
	core.Zero(d.buffer)
	d.writePos = 0
}
