package granular

import (
	"fmt"
	"math"

	"github.com/rolandzwaga/krate-audio-sub000/dsp/core"
	"github.com/rolandzwaga/krate-audio-sub000/dsp/delay"
)

const (
	defaultEngineMaxDelaySeconds = 2.0
	defaultEngineMaxGrains       = 64
	defaultEngineSeed            = 1
	defaultEngineGrainSizeMs     = 100.0
	defaultEngineDensityHz       = 10.0
	defaultEngineAttackRatio     = 0.25
	defaultEngineReleaseRatio    = 0.25

	minEngineGrainSizeMs = 10.0
	maxEngineGrainSizeMs = 500.0
	minEngineDensityHz   = 1.0
	maxEngineDensityHz   = 100.0
	minEnginePitch       = -24.0
	maxEnginePitch       = 24.0
	maxEnginePositionMs  = 2000.0

	pitchSprayRangeSemitones = 24.0
	textureAmplitudeRange    = 0.8

	envelopeTableSize = 1024

	freezeWindowSeconds       = 0.05
	gainSmoothingSeconds      = 0.002
	grainSizeSmoothingSeconds = 0.02
	pitchSmoothingSeconds     = 0.02
	positionSmoothingSeconds  = 0.05
)

// Engine is a stereo granular engine reading grains from a continuously
// recorded delay buffer pair.
//
// All memory is allocated at construction; the processing path performs no
// allocation, takes no locks, and does bounded work per sample. The engine is
// not thread-safe: parameter setters and ProcessSample must be serialized by
// the caller.
type Engine struct {
	sampleRate      float64
	maxDelaySeconds float64

	bufL *delay.Line
	bufR *delay.Line

	pool  *grainPool
	sched *scheduler
	noise *noiseSource

	envTable     []float64
	shape        Shape
	attackRatio  float64
	releaseRatio float64

	grainSizeSmooth onePole
	pitchSmooth     onePole
	positionSmooth  onePole
	gainSmooth      onePole
	freezeRamp      linearRamp

	pitchSpray    float64
	positionSpray float64
	panSpray      float64
	reverseProb   float64
	texture       float64
	quantize      QuantizeMode

	frozen    bool
	samplePos uint64
}

// Option mutates construction-time engine parameters.
type Option func(*engineConfig) error

type engineConfig struct {
	maxDelaySeconds float64
	maxGrains       int
	seed            int64
}

// WithMaxDelay sets the delay buffer length in seconds.
func WithMaxDelay(seconds float64) Option {
	return func(cfg *engineConfig) error {
		if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return fmt.Errorf("granular max delay must be > 0 seconds: %f", seconds)
		}
		cfg.maxDelaySeconds = seconds
		return nil
	}
}

// WithMaxGrains sets the grain pool capacity.
func WithMaxGrains(count int) Option {
	return func(cfg *engineConfig) error {
		if count < 1 {
			return fmt.Errorf("granular pool capacity must be >= 1: %d", count)
		}
		cfg.maxGrains = count
		return nil
	}
}

// WithSeed sets the deterministic random seed.
func WithSeed(seed int64) Option {
	return func(cfg *engineConfig) error {
		cfg.seed = seed
		return nil
	}
}

// NewEngine creates a granular engine. Buffers, pool storage and the
// envelope table are allocated here; nothing allocates during processing.
func NewEngine(sampleRate float64, opts ...Option) (*Engine, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("granular sample rate must be > 0: %f", sampleRate)
	}

	cfg := engineConfig{
		maxDelaySeconds: defaultEngineMaxDelaySeconds,
		maxGrains:       defaultEngineMaxGrains,
		seed:            defaultEngineSeed,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	bufL, err := delay.NewSeconds(sampleRate, cfg.maxDelaySeconds)
	if err != nil {
		return nil, err
	}
	bufR, err := delay.NewSeconds(sampleRate, cfg.maxDelaySeconds)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		sampleRate:      sampleRate,
		maxDelaySeconds: cfg.maxDelaySeconds,
		bufL:            bufL,
		bufR:            bufR,
		pool:            newGrainPool(cfg.maxGrains),
		sched:           newScheduler(sampleRate, cfg.seed+1),
		noise:           newNoiseSource(cfg.seed),
		envTable:        make([]float64, envelopeTableSize),
		shape:           ShapeHann,
		attackRatio:     defaultEngineAttackRatio,
		releaseRatio:    defaultEngineReleaseRatio,

		grainSizeSmooth: newOnePole(grainSizeSmoothingSeconds, sampleRate, defaultEngineGrainSizeMs),
		pitchSmooth:     newOnePole(pitchSmoothingSeconds, sampleRate, 0),
		positionSmooth:  newOnePole(positionSmoothingSeconds, sampleRate, 0),
		gainSmooth:      newOnePole(gainSmoothingSeconds, sampleRate, 1),
		freezeRamp:      newLinearRamp(freezeWindowSeconds, sampleRate, 0),
	}

	e.sched.setDensity(defaultEngineDensityHz)
	e.regenerateEnvelope()

	return e, nil
}

// ProcessSample advances the engine by one sample and returns the wet stereo
// output.
func (e *Engine) ProcessSample(inputL, inputR float64) (float64, float64) {
	grainSizeMs := e.grainSizeSmooth.next()
	pitch := e.pitchSmooth.next()
	position := e.positionSmooth.next()
	freeze := e.freezeRamp.next()

	// Freeze suspends writing, not playback: at full freeze the stored
	// content survives the advancing write head untouched.
	e.bufL.WriteBlend(inputL, freeze)
	e.bufR.WriteBlend(inputR, freeze)

	if e.sched.process() {
		e.spawnGrain(grainSizeMs, pitch, position)
	}

	sumL := 0.0
	sumR := 0.0
	for i := range e.pool.grains {
		g := &e.pool.grains[i]
		if !g.active {
			continue
		}

		l, r := processGrain(g, e.bufL, e.bufR, e.envTable)
		sumL += l
		sumR += r

		if grainDone(g) {
			e.pool.release(g)
		}
	}

	e.gainSmooth.setTarget(compensationTarget(e.pool.active()))
	gain := e.gainSmooth.next()

	e.samplePos++

	return sumL * gain, sumR * gain
}

// ProcessBlock processes len(outL) samples. All four slices must have the
// same length.
func (e *Engine) ProcessBlock(inL, inR, outL, outR []float64) {
	n := len(outL)
	for i := 0; i < n; i++ {
		outL[i], outR[i] = e.ProcessSample(inL[i], inR[i])
	}
}

func (e *Engine) spawnGrain(grainSizeMs, pitchSemitones, positionSamples float64) {
	g := e.pool.acquire(e.samplePos)

	pitch := pitchSemitones
	if e.pitchSpray > 0 {
		pitch += e.noise.bipolar() * e.pitchSpray * pitchSprayRangeSemitones
	}
	pitch = quantizeSemitones(e.quantize, pitch)

	pos := positionSamples
	if e.positionSpray > 0 {
		pos += e.positionSpray * pos * e.noise.uniform()
	}
	pos = core.Clamp(pos, 0, float64(e.bufL.Len()-1))

	pan := 0.0
	if e.panSpray > 0 {
		pan = e.panSpray * e.noise.bipolar()
	}

	reverse := false
	if e.reverseProb > 0 {
		reverse = e.noise.uniform() < e.reverseProb
	}

	amplitude := 1.0
	if e.texture > 0 {
		amplitude = 1 - e.noise.uniform()*textureAmplitudeRange*e.texture
	}

	initGrain(g, grainParams{
		sizeSamples:     grainSizeMs * e.sampleRate / 1000,
		pitchSemitones:  pitch,
		positionSamples: pos,
		pan:             pan,
		amplitude:       amplitude,
		reverse:         reverse,
	})
}

// compensationTarget is the loudness-compensation gain for n overlapping
// grains.
func compensationTarget(n int) float64 {
	if n <= 0 {
		return 1
	}
	return 1 / math.Sqrt(float64(n))
}

// SetGrainSizeMs sets grain duration in milliseconds, clamped to [10, 500].
func (e *Engine) SetGrainSizeMs(ms float64) {
	e.grainSizeSmooth.setTarget(clampParam(ms, minEngineGrainSizeMs, maxEngineGrainSizeMs))
}

// SetDensity sets grain rate in Hz, clamped to [1, 100].
func (e *Engine) SetDensity(hz float64) {
	e.sched.setDensity(clampParam(hz, minEngineDensityHz, maxEngineDensityHz))
}

// SetPitch sets base pitch offset in semitones, clamped to [-24, 24].
func (e *Engine) SetPitch(semitones float64) {
	e.pitchSmooth.setTarget(clampParam(semitones, minEnginePitch, maxEnginePitch))
}

// SetPitchSpray sets per-grain random pitch deviation in [0, 1]; 1 spreads
// up to +/-24 semitones.
func (e *Engine) SetPitchSpray(amount float64) {
	e.pitchSpray = clampParam(amount, 0, 1)
}

// SetQuantizeMode selects the pitch-quantization grid applied after spray.
func (e *Engine) SetQuantizeMode(mode QuantizeMode) {
	if mode < QuantizeOff || mode > QuantizeMajorScale {
		mode = QuantizeOff
	}
	e.quantize = mode
}

// SetPositionMs sets the base read position in milliseconds behind the write
// head, clamped to [0, 2000] and the buffer length.
func (e *Engine) SetPositionMs(ms float64) {
	maxMs := math.Min(maxEnginePositionMs, e.maxDelaySeconds*1000)
	ms = clampParam(ms, 0, maxMs)
	e.positionSmooth.setTarget(ms * e.sampleRate / 1000)
}

// SetPositionSpray sets per-grain random position deviation in [0, 1],
// relative to the base position.
func (e *Engine) SetPositionSpray(amount float64) {
	e.positionSpray = clampParam(amount, 0, 1)
}

// SetPanSpray sets per-grain random stereo placement in [0, 1].
func (e *Engine) SetPanSpray(amount float64) {
	e.panSpray = clampParam(amount, 0, 1)
}

// SetReverseProbability sets the chance in [0, 1] that a grain plays
// backward.
func (e *Engine) SetReverseProbability(p float64) {
	e.reverseProb = clampParam(p, 0, 1)
}

// SetTexture sets per-grain amplitude variance in [0, 1].
func (e *Engine) SetTexture(amount float64) {
	e.texture = clampParam(amount, 0, 1)
}

// SetTimingJitter sets grain-onset randomization in [0, 1]. Zero locks the
// scheduler to the exact interonset interval.
func (e *Engine) SetTimingJitter(amount float64) {
	e.sched.setJitter(clampParam(amount, 0, 1))
}

// SetTriggerMode selects synchronous or asynchronous grain scheduling.
func (e *Engine) SetTriggerMode(mode TriggerMode) {
	e.sched.setMode(mode)
}

// SetEnvelopeShape selects the grain envelope curve and rebuilds the table.
func (e *Engine) SetEnvelopeShape(shape Shape) {
	if shape < ShapeHann || shape > ShapeExponential {
		shape = ShapeHann
	}
	if shape == e.shape {
		return
	}
	e.shape = shape
	e.regenerateEnvelope()
}

// SetEnvelopeAttack sets the attack portion in [0, 0.5] for the trapezoid
// and exponential shapes.
func (e *Engine) SetEnvelopeAttack(ratio float64) {
	e.attackRatio = clampParam(ratio, 0, 0.5)
	e.regenerateEnvelope()
}

// SetEnvelopeRelease sets the release portion in [0, 0.5] for the trapezoid
// and exponential shapes.
func (e *Engine) SetEnvelopeRelease(ratio float64) {
	e.releaseRatio = clampParam(ratio, 0, 0.5)
	e.regenerateEnvelope()
}

// SetFreeze starts the crossfade that suspends (true) or resumes (false)
// writes into the delay buffers. Grains in flight keep playing either way.
func (e *Engine) SetFreeze(frozen bool) {
	e.frozen = frozen
	if frozen {
		e.freezeRamp.setTarget(1)
	} else {
		e.freezeRamp.setTarget(0)
	}
}

// Seed rewinds all random state for reproducible output.
func (e *Engine) Seed(value int64) {
	e.noise.reseed(value)
	e.sched.seed(value + 1)
}

// Reset clears buffers, grains and smoothing state. Parameter targets are
// kept and take effect immediately.
func (e *Engine) Reset() {
	e.bufL.Reset()
	e.bufR.Reset()
	e.pool.reset()
	e.sched.reset()
	e.noise.rewind()

	e.grainSizeSmooth.snap(e.grainSizeSmooth.target)
	e.pitchSmooth.snap(e.pitchSmooth.target)
	e.positionSmooth.snap(e.positionSmooth.target)
	e.gainSmooth.snap(1)
	e.freezeRamp.snap(e.freezeRamp.target)

	e.samplePos = 0
}

// SampleRate returns sample rate in Hz.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// MaxDelaySeconds returns the delay buffer length in seconds.
func (e *Engine) MaxDelaySeconds() float64 { return e.maxDelaySeconds }

// GrainCapacity returns the fixed pool size.
func (e *Engine) GrainCapacity() int { return e.pool.capacity() }

// ActiveGrainCount returns the number of grains currently sounding.
func (e *Engine) ActiveGrainCount() int { return e.pool.active() }

// IsFrozen reports the commanded freeze state.
func (e *Engine) IsFrozen() bool { return e.frozen }

// LatencySamples returns the engine's inherent latency, which is zero.
func (e *Engine) LatencySamples() int { return 0 }

// PositionMs returns the base read position target in milliseconds.
func (e *Engine) PositionMs() float64 {
	return e.positionSmooth.target / e.sampleRate * 1000
}

// EnvelopeShape returns the active grain envelope curve.
func (e *Engine) EnvelopeShape() Shape { return e.shape }

// QuantizeModeValue returns the active pitch-quantization grid.
func (e *Engine) QuantizeModeValue() QuantizeMode { return e.quantize }

func (e *Engine) regenerateEnvelope() {
	GenerateEnvelope(e.envTable, e.shape, e.attackRatio, e.releaseRatio)
}

// clampParam bounds a runtime parameter, mapping NaN to the lower bound.
func clampParam(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	return core.Clamp(v, min, max)
}
