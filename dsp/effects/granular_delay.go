package effects

import (
	"fmt"
	"math"

	"github.com/rolandzwaga/krate-audio-sub000/dsp/core"
	"github.com/rolandzwaga/krate-audio-sub000/dsp/granular"
)

const (
	defaultGranularDelayTimeMs   = 250.0
	defaultGranularDelayFeedback = 0.3
	defaultGranularDelayMix      = 0.5
	defaultGranularDelayTempo    = 120.0
	defaultGranularDelayNote     = 4

	maxGranularDelayFeedback = 1.2
	maxGranularDelayTimeMs   = 2000.0
	fallbackTempoBPM         = 120.0

	granularDelaySmoothingSeconds = 0.01
)

// TimeMode selects how the delay's base position is derived.
type TimeMode int

const (
	// TimeModeFree positions the delay in milliseconds.
	TimeModeFree TimeMode = iota
	// TimeModeSynced derives the position from a note value and host tempo.
	TimeModeSynced
)

// noteBeats maps note-value indices 0..9 to beat fractions, from 1/32 up to
// a whole note with triplet variants in between.
var noteBeats = [...]float64{
	1.0 / 8,  // 1/32
	1.0 / 6,  // 1/16T
	1.0 / 4,  // 1/16
	1.0 / 3,  // 1/8T
	1.0 / 2,  // 1/8
	2.0 / 3,  // 1/4T
	1,        // 1/4
	4.0 / 3,  // 1/2T
	2,        // 1/2
	4,        // 1/1
}

// GranularDelay wraps the granular engine with a smoothed feedback loop, a
// dry/wet mix and tempo-synchronized position control.
//
// Like the engine it is real-time safe after construction and not
// thread-safe.
type GranularDelay struct {
	sampleRate float64
	engine     *granular.Engine

	feedback smoothedParam
	mix      smoothedParam

	timeMode  TimeMode
	timeMs    float64
	noteIndex int
	tempoBPM  float64

	prevWetL float64
	prevWetR float64
}

// smoothedParam is a one-pole smoothed control value.
type smoothedParam struct {
	value  float64
	target float64
	coeff  float64
}

func newSmoothedParam(tauSeconds, sampleRate, initial float64) smoothedParam {
	return smoothedParam{
		value:  initial,
		target: initial,
		coeff:  1 - math.Exp(-1/(tauSeconds*sampleRate)),
	}
}

func (s *smoothedParam) next() float64 {
	s.value += s.coeff * (s.target - s.value)
	return s.value
}

func (s *smoothedParam) snap() {
	s.value = s.target
}

// NewGranularDelay creates a granular delay with practical defaults.
func NewGranularDelay(sampleRate float64) (*GranularDelay, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("granular delay sample rate must be > 0: %f", sampleRate)
	}

	engine, err := granular.NewEngine(sampleRate)
	if err != nil {
		return nil, err
	}

	g := &GranularDelay{
		sampleRate: sampleRate,
		engine:     engine,
		feedback:   newSmoothedParam(granularDelaySmoothingSeconds, sampleRate, defaultGranularDelayFeedback),
		mix:        newSmoothedParam(granularDelaySmoothingSeconds, sampleRate, defaultGranularDelayMix),
		timeMode:   TimeModeFree,
		timeMs:     defaultGranularDelayTimeMs,
		noteIndex:  defaultGranularDelayNote,
		tempoBPM:   defaultGranularDelayTempo,
	}
	g.updatePosition()

	return g, nil
}

// ProcessSample processes one stereo sample.
func (g *GranularDelay) ProcessSample(inputL, inputR float64) (float64, float64) {
	fb := g.feedback.next()
	mix := g.mix.next()

	fbL := core.FlushDenormals(g.prevWetL * fb)
	fbR := core.FlushDenormals(g.prevWetR * fb)
	if fb > 1 {
		// Above unity the loop would run away; a saturating stage keeps it
		// on the edge of self-oscillation instead.
		fbL = math.Tanh(fbL)
		fbR = math.Tanh(fbR)
	}

	wetL, wetR := g.engine.ProcessSample(inputL+fbL, inputR+fbR)
	g.prevWetL = wetL
	g.prevWetR = wetR

	outL := inputL*(1-mix) + wetL*mix
	outR := inputR*(1-mix) + wetR*mix
	return outL, outR
}

// ProcessBlock processes len(outL) samples. All four slices must have the
// same length.
func (g *GranularDelay) ProcessBlock(inL, inR, outL, outR []float64) {
	n := len(outL)
	for i := 0; i < n; i++ {
		outL[i], outR[i] = g.ProcessSample(inL[i], inR[i])
	}
}

// ProcessInPlace applies the effect to a stereo pair of buffers in place.
func (g *GranularDelay) ProcessInPlace(left, right []float64) {
	for i := range left {
		left[i], right[i] = g.ProcessSample(left[i], right[i])
	}
}

// SetFeedback sets feedback amount, clamped to [0, 1.2]. Values above 1 are
// soft-limited in the loop.
func (g *GranularDelay) SetFeedback(amount float64) {
	g.feedback.target = clampParam(amount, 0, maxGranularDelayFeedback)
}

// SetMix sets the dry/wet mix, clamped to [0, 1].
func (g *GranularDelay) SetMix(mix float64) {
	g.mix.target = clampParam(mix, 0, 1)
}

// SetTimeMode selects free-running or tempo-synced position control.
func (g *GranularDelay) SetTimeMode(mode TimeMode) {
	if mode != TimeModeFree && mode != TimeModeSynced {
		mode = TimeModeFree
	}
	g.timeMode = mode
	g.updatePosition()
}

// SetTimeMs sets the base delay position in milliseconds for free mode,
// clamped to [0, 2000].
func (g *GranularDelay) SetTimeMs(ms float64) {
	g.timeMs = clampParam(ms, 0, maxGranularDelayTimeMs)
	g.updatePosition()
}

// SetNoteValue selects the synced note length by index 0..9
// (1/32 ... 1/1 including triplets).
func (g *GranularDelay) SetNoteValue(index int) {
	if index < 0 {
		index = 0
	}
	if index >= len(noteBeats) {
		index = len(noteBeats) - 1
	}
	g.noteIndex = index
	g.updatePosition()
}

// SetTempo updates the host tempo in BPM. Zero or negative means the tempo
// is unknown and a 120 BPM fallback is used in synced mode.
func (g *GranularDelay) SetTempo(bpm float64) {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm < 0 {
		bpm = 0
	}
	g.tempoBPM = bpm
	g.updatePosition()
}

func (g *GranularDelay) updatePosition() {
	ms := g.timeMs
	if g.timeMode == TimeModeSynced {
		bpm := g.tempoBPM
		if bpm <= 0 {
			bpm = fallbackTempoBPM
		}
		ms = noteBeats[g.noteIndex] * 60000 / bpm
	}
	ms = core.Clamp(ms, 0, g.engine.MaxDelaySeconds()*1000)
	g.engine.SetPositionMs(ms)
}

// SetGrainSizeMs forwards to the engine; see granular.Engine.
func (g *GranularDelay) SetGrainSizeMs(ms float64) { g.engine.SetGrainSizeMs(ms) }

// SetDensity forwards to the engine.
func (g *GranularDelay) SetDensity(hz float64) { g.engine.SetDensity(hz) }

// SetPitch forwards to the engine.
func (g *GranularDelay) SetPitch(semitones float64) { g.engine.SetPitch(semitones) }

// SetPitchSpray forwards to the engine.
func (g *GranularDelay) SetPitchSpray(amount float64) { g.engine.SetPitchSpray(amount) }

// SetQuantizeMode forwards to the engine.
func (g *GranularDelay) SetQuantizeMode(mode granular.QuantizeMode) { g.engine.SetQuantizeMode(mode) }

// SetPositionSpray forwards to the engine.
func (g *GranularDelay) SetPositionSpray(amount float64) { g.engine.SetPositionSpray(amount) }

// SetPanSpray forwards to the engine.
func (g *GranularDelay) SetPanSpray(amount float64) { g.engine.SetPanSpray(amount) }

// SetReverseProbability forwards to the engine.
func (g *GranularDelay) SetReverseProbability(p float64) { g.engine.SetReverseProbability(p) }

// SetTexture forwards to the engine.
func (g *GranularDelay) SetTexture(amount float64) { g.engine.SetTexture(amount) }

// SetTimingJitter forwards to the engine.
func (g *GranularDelay) SetTimingJitter(amount float64) { g.engine.SetTimingJitter(amount) }

// SetTriggerMode forwards to the engine.
func (g *GranularDelay) SetTriggerMode(mode granular.TriggerMode) { g.engine.SetTriggerMode(mode) }

// SetEnvelopeShape forwards to the engine.
func (g *GranularDelay) SetEnvelopeShape(shape granular.Shape) { g.engine.SetEnvelopeShape(shape) }

// SetEnvelopeAttack forwards to the engine.
func (g *GranularDelay) SetEnvelopeAttack(ratio float64) { g.engine.SetEnvelopeAttack(ratio) }

// SetEnvelopeRelease forwards to the engine.
func (g *GranularDelay) SetEnvelopeRelease(ratio float64) { g.engine.SetEnvelopeRelease(ratio) }

// SetFreeze forwards to the engine.
func (g *GranularDelay) SetFreeze(frozen bool) { g.engine.SetFreeze(frozen) }

// Seed rewinds all random state for reproducible output.
func (g *GranularDelay) Seed(value int64) { g.engine.Seed(value) }

// Reset clears engine and loop state; parameter targets are kept.
func (g *GranularDelay) Reset() {
	g.engine.Reset()
	g.feedback.snap()
	g.mix.snap()
	g.prevWetL = 0
	g.prevWetR = 0
}

// SampleRate returns sample rate in Hz.
func (g *GranularDelay) SampleRate() float64 { return g.sampleRate }

// Feedback returns the feedback target in [0, 1.2].
func (g *GranularDelay) Feedback() float64 { return g.feedback.target }

// Mix returns the dry/wet target in [0, 1].
func (g *GranularDelay) Mix() float64 { return g.mix.target }

// TimeModeValue returns the active time mode.
func (g *GranularDelay) TimeModeValue() TimeMode { return g.timeMode }

// TimeMs returns the free-mode position in milliseconds.
func (g *GranularDelay) TimeMs() float64 { return g.timeMs }

// NoteValue returns the synced note index.
func (g *GranularDelay) NoteValue() int { return g.noteIndex }

// Tempo returns the last reported host tempo, 0 if unknown.
func (g *GranularDelay) Tempo() float64 { return g.tempoBPM }

// ActiveGrainCount forwards to the engine.
func (g *GranularDelay) ActiveGrainCount() int { return g.engine.ActiveGrainCount() }

// IsFrozen forwards to the engine.
func (g *GranularDelay) IsFrozen() bool { return g.engine.IsFrozen() }

// LatencySamples returns the effect's inherent latency, which is zero.
func (g *GranularDelay) LatencySamples() int { return g.engine.LatencySamples() }

// clampParam bounds a runtime parameter, mapping NaN to the lower bound.
func clampParam(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	return core.Clamp(v, min, max)
}
