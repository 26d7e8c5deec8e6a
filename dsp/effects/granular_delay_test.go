package effects

import (
	"math"
	"testing"

	"github.com/rolandzwaga/krate-audio-sub000/dsp/granular"
)

func TestNewGranularDelayInvalidSampleRate(t *testing.T) {
	for _, sr := range []float64{0, -48000, math.NaN(), math.Inf(1)} {
		if _, err := NewGranularDelay(sr); err == nil {
			t.Fatalf("expected error for sample rate %f", sr)
		}
	}
}

func TestNewGranularDelayDefaults(t *testing.T) {
	g, err := NewGranularDelay(48000)
	if err != nil {
		t.Fatalf("NewGranularDelay: %v", err)
	}

	if g.SampleRate() != 48000 {
		t.Fatalf("SampleRate = %g", g.SampleRate())
	}
	if g.Feedback() != defaultGranularDelayFeedback {
		t.Fatalf("Feedback = %g", g.Feedback())
	}
	if g.Mix() != defaultGranularDelayMix {
		t.Fatalf("Mix = %g", g.Mix())
	}
	if g.TimeModeValue() != TimeModeFree {
		t.Fatalf("TimeModeValue = %d", g.TimeModeValue())
	}
	if g.TimeMs() != defaultGranularDelayTimeMs {
		t.Fatalf("TimeMs = %g", g.TimeMs())
	}
	if g.engine.PositionMs() != defaultGranularDelayTimeMs {
		t.Fatalf("engine position = %g", g.engine.PositionMs())
	}
	if g.LatencySamples() != 0 {
		t.Fatalf("LatencySamples = %d", g.LatencySamples())
	}
}

func TestGranularDelayMixZeroIsTransparent(t *testing.T) {
	const sr = 44100

	g, err := NewGranularDelay(sr)
	if err != nil {
		t.Fatalf("NewGranularDelay: %v", err)
	}
	g.SetMix(0)
	g.Reset()

	for i := 0; i < sr; i++ {
		in := math.Sin(2 * math.Pi * 440 * float64(i) / sr)
		l, r := g.ProcessSample(in, in)
		if l != in || r != in {
			t.Fatalf("sample %d: %g/%g, want dry %g", i, l, r, in)
		}
	}
}

func TestGranularDelayFeedbackClamp(t *testing.T) {
	g, _ := NewGranularDelay(48000)

	g.SetFeedback(5)
	if g.Feedback() != maxGranularDelayFeedback {
		t.Fatalf("Feedback = %g, want %g", g.Feedback(), maxGranularDelayFeedback)
	}

	g.SetFeedback(-1)
	if g.Feedback() != 0 {
		t.Fatalf("Feedback = %g, want 0", g.Feedback())
	}

	g.SetFeedback(math.NaN())
	if g.Feedback() != 0 {
		t.Fatalf("NaN feedback = %g, want 0", g.Feedback())
	}
}

func TestGranularDelayMixClamp(t *testing.T) {
	g, _ := NewGranularDelay(48000)

	g.SetMix(2)
	if g.Mix() != 1 {
		t.Fatalf("Mix = %g, want 1", g.Mix())
	}

	g.SetMix(-0.5)
	if g.Mix() != 0 {
		t.Fatalf("Mix = %g, want 0", g.Mix())
	}
}

func TestGranularDelayTempoSync(t *testing.T) {
	g, err := NewGranularDelay(48000)
	if err != nil {
		t.Fatalf("NewGranularDelay: %v", err)
	}

	g.SetTimeMode(TimeModeSynced)
	g.SetTempo(120)

	tests := []struct {
		note   int
		wantMs float64
	}{
		{6, 500},        // quarter note at 120 BPM
		{4, 250},        // eighth
		{5, 1000.0 / 3}, // quarter triplet
		{8, 1000},       // half
		{9, 2000},       // whole
	}

	for _, tc := range tests {
		g.SetNoteValue(tc.note)
		if got := g.engine.PositionMs(); math.Abs(got-tc.wantMs) > 1e-9 {
			t.Errorf("note %d: position = %g ms, want %g", tc.note, got, tc.wantMs)
		}
	}
}

func TestGranularDelayTempoSyncClampsToBuffer(t *testing.T) {
	g, _ := NewGranularDelay(48000)
	g.SetTimeMode(TimeModeSynced)

	// A whole note at 60 BPM is 4 s, beyond the 2 s buffer.
	g.SetTempo(60)
	g.SetNoteValue(9)

	if got := g.engine.PositionMs(); got != 2000 {
		t.Fatalf("position = %g ms, want clamped 2000", got)
	}
}

func TestGranularDelayTempoFallback(t *testing.T) {
	g, _ := NewGranularDelay(48000)
	g.SetTimeMode(TimeModeSynced)
	g.SetNoteValue(6)

	g.SetTempo(0)
	if g.Tempo() != 0 {
		t.Fatalf("Tempo = %g, want 0 recorded as unknown", g.Tempo())
	}
	if got := g.engine.PositionMs(); got != 500 {
		t.Fatalf("position = %g ms, want 500 from 120 BPM fallback", got)
	}

	g.SetTempo(math.NaN())
	if g.Tempo() != 0 {
		t.Fatalf("NaN tempo recorded as %g", g.Tempo())
	}
}

func TestGranularDelayNoteValueClamp(t *testing.T) {
	g, _ := NewGranularDelay(48000)

	g.SetNoteValue(-3)
	if g.NoteValue() != 0 {
		t.Fatalf("NoteValue = %d, want 0", g.NoteValue())
	}

	g.SetNoteValue(99)
	if g.NoteValue() != len(noteBeats)-1 {
		t.Fatalf("NoteValue = %d, want %d", g.NoteValue(), len(noteBeats)-1)
	}
}

func TestGranularDelayFreeTimeClamp(t *testing.T) {
	g, _ := NewGranularDelay(48000)

	g.SetTimeMs(5000)
	if g.TimeMs() != maxGranularDelayTimeMs {
		t.Fatalf("TimeMs = %g", g.TimeMs())
	}

	g.SetTimeMs(-10)
	if g.TimeMs() != 0 {
		t.Fatalf("TimeMs = %g", g.TimeMs())
	}
}

func TestGranularDelayFeedbackTail(t *testing.T) {
	const sr = 44100

	g, err := NewGranularDelay(sr)
	if err != nil {
		t.Fatalf("NewGranularDelay: %v", err)
	}
	g.SetMix(1)
	g.SetFeedback(0.9)
	g.SetTimeMs(250)
	g.SetDensity(30)
	g.SetGrainSizeMs(100)
	g.Seed(6)
	g.Reset()

	// One impulse, then silence. The loop must keep producing audible
	// repeats well past the first delay period.
	var tail float64
	for i := 0; i < 2*sr; i++ {
		in := 0.0
		if i == 0 {
			in = 1
		}
		l, r := g.ProcessSample(in, 0)

		if math.IsNaN(l) || math.IsInf(l, 0) || math.IsNaN(r) || math.IsInf(r, 0) {
			t.Fatalf("sample %d: non-finite output", i)
		}

		if i > sr/2 {
			tail += math.Abs(l) + math.Abs(r)
		}
	}

	if tail < 1e-3 {
		t.Fatalf("tail energy = %g, want repeats past the first period", tail)
	}
}

func TestGranularDelayFeedbackAboveUnityStaysBounded(t *testing.T) {
	const sr = 44100

	g, err := NewGranularDelay(sr)
	if err != nil {
		t.Fatalf("NewGranularDelay: %v", err)
	}
	g.SetMix(1)
	g.SetFeedback(1.2)
	g.SetTimeMs(100)
	g.SetDensity(50)
	g.Seed(8)
	g.Reset()

	for i := 0; i < 4*sr; i++ {
		in := 0.5 * math.Sin(2*math.Pi*220*float64(i)/sr)
		l, r := g.ProcessSample(in, in)
		if math.IsNaN(l) || math.IsInf(l, 0) || math.IsNaN(r) || math.IsInf(r, 0) {
			t.Fatalf("sample %d: non-finite output", i)
		}
		if math.Abs(l) > 20 || math.Abs(r) > 20 {
			t.Fatalf("sample %d: runaway output %g/%g", i, l, r)
		}
	}
}

func TestGranularDelayProcessBlockMatchesPerSample(t *testing.T) {
	const sr = 44100
	const n = 4096

	build := func() *GranularDelay {
		g, err := NewGranularDelay(sr)
		if err != nil {
			t.Fatalf("NewGranularDelay: %v", err)
		}
		g.SetPanSpray(1)
		g.SetPitchSpray(0.3)
		g.Seed(12)
		g.Reset()
		return g
	}

	inL := make([]float64, n)
	inR := make([]float64, n)
	for i := range inL {
		inL[i] = math.Sin(2 * math.Pi * 440 * float64(i) / sr)
		inR[i] = math.Sin(2 * math.Pi * 550 * float64(i) / sr)
	}

	a := build()
	outL := make([]float64, n)
	outR := make([]float64, n)
	a.ProcessBlock(inL, inR, outL, outR)

	b := build()
	left := append([]float64(nil), inL...)
	right := append([]float64(nil), inR...)
	b.ProcessInPlace(left, right)

	for i := 0; i < n; i++ {
		if outL[i] != left[i] || outR[i] != right[i] {
			t.Fatalf("sample %d: block and in-place paths diverge", i)
		}
	}
}

func TestGranularDelaySeedDeterminism(t *testing.T) {
	const sr = 44100

	build := func() *GranularDelay {
		g, err := NewGranularDelay(sr)
		if err != nil {
			t.Fatalf("NewGranularDelay: %v", err)
		}
		g.SetTriggerMode(granular.TriggerAsync)
		g.SetTimingJitter(1)
		g.SetPitchSpray(0.5)
		g.SetPanSpray(1)
		g.SetReverseProbability(0.25)
		g.Seed(21)
		g.Reset()
		return g
	}

	a := build()
	b := build()

	for i := 0; i < sr; i++ {
		in := math.Sin(2 * math.Pi * 330 * float64(i) / sr)
		al, ar := a.ProcessSample(in, in)
		bl, br := b.ProcessSample(in, in)
		if al != bl || ar != br {
			t.Fatalf("sample %d: outputs diverge", i)
		}
	}
}

func TestGranularDelayQuantizeForwarding(t *testing.T) {
	g, _ := NewGranularDelay(48000)

	g.SetQuantizeMode(granular.QuantizeOctave)
	if g.engine.QuantizeModeValue() != granular.QuantizeOctave {
		t.Fatal("quantize mode not forwarded")
	}

	g.SetEnvelopeShape(granular.ShapeBlackman)
	if g.engine.EnvelopeShape() != granular.ShapeBlackman {
		t.Fatal("envelope shape not forwarded")
	}
}
