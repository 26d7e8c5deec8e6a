package granular

import (
	"math"

	"github.com/rolandzwaga/krate-audio-sub000/dsp/delay"
)

// SemitonesToRatio converts a pitch offset in semitones to a playback ratio.
func SemitonesToRatio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// RatioToSemitones converts a playback ratio to a pitch offset in semitones.
func RatioToSemitones(ratio float64) float64 {
	if ratio <= 0 {
		return 0
	}
	return 12 * math.Log2(ratio)
}

// grainParams carries the randomized spawn parameters for one grain.
type grainParams struct {
	sizeSamples     float64
	pitchSemitones  float64
	positionSamples float64
	pan             float64
	amplitude       float64
	reverse         bool
}

// initGrain fills a freshly acquired slot with playback state.
//
// The read position counts samples behind the write head. A forward grain at
// unity pitch keeps that distance constant; a reverse grain starts at the
// future end of the window a forward grain would cover, one grain length of
// content closer to the write head, and walks backward through the same
// window. The offset is floored at zero so a reverse grain spawned near the
// head cannot start ahead of it.
func initGrain(g *grain, p grainParams) {
	if p.sizeSamples > 0 {
		g.envInc = 1 / p.sizeSamples
	} else {
		g.envInc = 1
	}
	g.envPhase = 0

	rate := SemitonesToRatio(p.pitchSemitones)
	g.readPos = p.positionSamples
	if p.reverse {
		g.readPos = math.Max(0, g.readPos-p.sizeSamples*rate)
		rate = -rate
	}
	g.playbackRate = rate
	g.reverse = p.reverse

	pan := p.pan
	if pan < -1 || math.IsNaN(pan) {
		pan = -1
	}
	if pan > 1 {
		pan = 1
	}
	panNorm := (pan + 1) / 2
	g.panL = math.Cos(panNorm * math.Pi / 2)
	g.panR = math.Sin(panNorm * math.Pi / 2)

	g.amplitude = p.amplitude
}

// processGrain produces one enveloped, panned stereo sample for a grain and
// advances its state. The write head moves one sample per call, so the delay
// offset changes by (1 - playbackRate) to sweep buffer content at the
// grain's rate; the offset is clamped at zero so a fast forward grain can
// never read ahead of the head.
func processGrain(g *grain, bufL, bufR *delay.Line, envTable []float64) (float64, float64) {
	env := LookupEnvelope(envTable, g.envPhase) * g.amplitude

	pos := g.readPos
	if pos < 0 {
		pos = 0
	}

	sampleL := bufL.ReadLinear(pos) * env * g.panL
	sampleR := bufR.ReadLinear(pos) * env * g.panR

	g.envPhase += g.envInc
	g.readPos += 1 - g.playbackRate

	return sampleL, sampleR
}

// grainDone reports whether a grain's envelope has completed.
func grainDone(g *grain) bool {
	return g.envPhase >= 1
}
