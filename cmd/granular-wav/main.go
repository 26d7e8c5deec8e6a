// Command granular-wav runs the granular delay over a WAV file.
//
// Usage:
//
//	granular-wav [flags] input.wav output.wav
//
// Examples:
//
//	granular-wav -grain 120 -density 25 -pitch 12 in.wav out.wav
//	granular-wav -pitch-spray 0.5 -quantize fifth -reverse 0.3 in.wav out.wav
//	granular-wav -sync -tempo 120 -note 6 -feedback 0.6 in.wav out.wav
//	granular-wav -freeze-at 2.5 -tail 4 in.wav out.wav
//	granular-wav -play in.wav out.wav
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cwbudde/algo-vecmath"
	"github.com/rolandzwaga/krate-audio-sub000/dsp/core"
	"github.com/rolandzwaga/krate-audio-sub000/dsp/effects"
	"github.com/rolandzwaga/krate-audio-sub000/dsp/granular"
)

type options struct {
	grainMs       float64
	densityHz     float64
	pitch         float64
	pitchSpray    float64
	quantize      string
	positionMs    float64
	positionSpray float64
	panSpray      float64
	reverse       float64
	texture       float64
	jitter        float64
	envelope      string
	attack        float64
	release       float64
	feedback      float64
	mix           float64
	gainDB        float64
	freezeAt      float64
	freezeFor     float64
	tempo         float64
	note          int
	sync          bool
	seed          int64
	tailSeconds   float64
	play          bool
	verbose       bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opt options
	flag.Float64Var(&opt.grainMs, "grain", 100, "Grain size in milliseconds (10-500)")
	flag.Float64Var(&opt.densityHz, "density", 10, "Grain rate in Hz (1-100)")
	flag.Float64Var(&opt.pitch, "pitch", 0, "Pitch offset in semitones (-24..24)")
	flag.Float64Var(&opt.pitchSpray, "pitch-spray", 0, "Per-grain random pitch amount (0-1)")
	flag.StringVar(&opt.quantize, "quantize", "off", "Pitch quantization: off, semitone, octave, fifth, major")
	flag.Float64Var(&opt.positionMs, "position", 250, "Read position in milliseconds behind the input (0-2000)")
	flag.Float64Var(&opt.positionSpray, "position-spray", 0, "Per-grain random position amount (0-1)")
	flag.Float64Var(&opt.panSpray, "pan-spray", 0, "Per-grain random stereo placement (0-1)")
	flag.Float64Var(&opt.reverse, "reverse", 0, "Probability a grain plays backward (0-1)")
	flag.Float64Var(&opt.texture, "texture", 0, "Per-grain amplitude variance (0-1)")
	flag.Float64Var(&opt.jitter, "jitter", 1, "Grain onset randomization (0-1)")
	flag.StringVar(&opt.envelope, "envelope", "hann", "Grain envelope: hann, trapezoid, linear, sine, blackman, exp")
	flag.Float64Var(&opt.attack, "attack", 0.25, "Envelope attack portion (0-0.5, trapezoid/exp)")
	flag.Float64Var(&opt.release, "release", 0.25, "Envelope release portion (0-0.5, trapezoid/exp)")
	flag.Float64Var(&opt.feedback, "feedback", 0.3, "Feedback amount (0-1.2)")
	flag.Float64Var(&opt.mix, "mix", 0.5, "Dry/wet mix (0-1)")
	flag.Float64Var(&opt.gainDB, "gain", 0, "Output gain in dB")
	flag.Float64Var(&opt.freezeAt, "freeze-at", -1, "Freeze the buffer at this many seconds into the file (-1 = never)")
	flag.Float64Var(&opt.freezeFor, "freeze-for", 2, "How long to hold the freeze, in seconds")
	flag.Float64Var(&opt.tempo, "tempo", 120, "Host tempo in BPM for synced mode")
	flag.IntVar(&opt.note, "note", 6, "Synced note index 0-9 (1/32 ... 1/1 with triplets)")
	flag.BoolVar(&opt.sync, "sync", false, "Derive the delay position from tempo and note value")
	flag.Int64Var(&opt.seed, "seed", 1, "Random seed for reproducible grain clouds")
	flag.Float64Var(&opt.tailSeconds, "tail", 2, "Extra silence processed after the file, in seconds")
	flag.BoolVar(&opt.play, "play", false, "Play the result after rendering")
	flag.BoolVar(&opt.verbose, "v", false, "Verbose output")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] input.wav output.wav\n\n", os.Args[0])
		flag.PrintDefaults()
		return fmt.Errorf("insufficient arguments")
	}

	input, err := readWAV(args[0])
	if err != nil {
		return err
	}

	if opt.verbose {
		log.Printf("Input: %s (%d Hz, %d channels, %d-bit, %d samples)",
			args[0], input.sampleRate, input.channels, input.bitDepth, len(input.left))
	}

	delay, err := buildDelay(float64(input.sampleRate), &opt)
	if err != nil {
		return err
	}

	outL, outR := render(delay, input, &opt)

	if opt.gainDB != 0 {
		gain := core.DBToLinear(opt.gainDB)
		vecmath.ScaleBlock(outL, outL, gain)
		vecmath.ScaleBlock(outR, outR, gain)
	}

	if err := writeWAV(args[1], outL, outR, input.sampleRate, input.bitDepth); err != nil {
		return err
	}

	if opt.verbose {
		log.Printf("Output: %s (%d samples)", args[1], len(outL))
	}

	if opt.play {
		if err := playStereo(outL, outR, input.sampleRate); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
	}

	return nil
}

func buildDelay(sampleRate float64, opt *options) (*effects.GranularDelay, error) {
	delay, err := effects.NewGranularDelay(sampleRate)
	if err != nil {
		return nil, err
	}

	delay.SetGrainSizeMs(opt.grainMs)
	delay.SetDensity(opt.densityHz)
	delay.SetPitch(opt.pitch)
	delay.SetPitchSpray(opt.pitchSpray)
	delay.SetPositionSpray(opt.positionSpray)
	delay.SetPanSpray(opt.panSpray)
	delay.SetReverseProbability(opt.reverse)
	delay.SetTexture(opt.texture)
	delay.SetTimingJitter(opt.jitter)
	delay.SetEnvelopeAttack(opt.attack)
	delay.SetEnvelopeRelease(opt.release)
	delay.SetFeedback(opt.feedback)
	delay.SetMix(opt.mix)

	quantize, err := parseQuantize(opt.quantize)
	if err != nil {
		return nil, err
	}
	delay.SetQuantizeMode(quantize)

	envelope, err := parseEnvelope(opt.envelope)
	if err != nil {
		return nil, err
	}
	delay.SetEnvelopeShape(envelope)

	if opt.sync {
		delay.SetTimeMode(effects.TimeModeSynced)
		delay.SetTempo(opt.tempo)
		delay.SetNoteValue(opt.note)
	} else {
		delay.SetTimeMs(opt.positionMs)
	}

	if opt.jitter == 0 {
		delay.SetTriggerMode(granular.TriggerSync)
	}

	delay.Seed(opt.seed)
	delay.Reset()

	return delay, nil
}

// render runs the whole file plus the requested tail through the effect,
// toggling freeze at the configured time.
func render(delay *effects.GranularDelay, input *wavData, opt *options) (outL, outR []float64) {
	sr := float64(input.sampleRate)
	total := len(input.left) + int(opt.tailSeconds*sr)

	freezeOn := -1
	freezeOff := -1
	if opt.freezeAt >= 0 {
		freezeOn = int(opt.freezeAt * sr)
		freezeOff = freezeOn + int(opt.freezeFor*sr)
	}

	outL = make([]float64, total)
	outR = make([]float64, total)

	for i := 0; i < total; i++ {
		if i == freezeOn {
			delay.SetFreeze(true)
		}
		if i == freezeOff {
			delay.SetFreeze(false)
		}

		inL, inR := 0.0, 0.0
		if i < len(input.left) {
			inL = input.left[i]
			inR = input.right[i]
		}

		outL[i], outR[i] = delay.ProcessSample(inL, inR)
	}

	return outL, outR
}

func parseQuantize(s string) (granular.QuantizeMode, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return granular.QuantizeOff, nil
	case "semitone":
		return granular.QuantizeSemitone, nil
	case "octave":
		return granular.QuantizeOctave, nil
	case "fifth":
		return granular.QuantizeFifth, nil
	case "major":
		return granular.QuantizeMajorScale, nil
	default:
		return granular.QuantizeOff, fmt.Errorf("unknown quantize mode %q", s)
	}
}

func parseEnvelope(s string) (granular.Shape, error) {
	switch strings.ToLower(s) {
	case "hann", "":
		return granular.ShapeHann, nil
	case "trapezoid":
		return granular.ShapeTrapezoid, nil
	case "linear":
		return granular.ShapeLinear, nil
	case "sine":
		return granular.ShapeSine, nil
	case "blackman":
		return granular.ShapeBlackman, nil
	case "exp", "exponential":
		return granular.ShapeExponential, nil
	default:
		return granular.ShapeHann, fmt.Errorf("unknown envelope shape %q", s)
	}
}
