package granular

import "testing"

func TestQuantizeSemitones(t *testing.T) {
	tests := []struct {
		name string
		mode QuantizeMode
		in   float64
		want float64
	}{
		{"off passes through", QuantizeOff, 3.7, 3.7},
		{"semitone rounds down", QuantizeSemitone, 3.4, 3},
		{"semitone rounds up", QuantizeSemitone, 3.6, 4},
		{"semitone negative", QuantizeSemitone, -4.6, -5},
		{"octave near zero", QuantizeOctave, 5.9, 0},
		{"octave rounds up", QuantizeOctave, 6.1, 12},
		{"octave negative", QuantizeOctave, -10, -12},
		{"fifth snaps to fifth", QuantizeFifth, 6, 7},
		{"fifth snaps to root", QuantizeFifth, 2, 0},
		{"fifth snaps to octave", QuantizeFifth, 10.5, 12},
		{"fifth negative", QuantizeFifth, -3, -5},
		{"major exact degree", QuantizeMajorScale, 7, 7},
		{"major snaps up", QuantizeMajorScale, 6.6, 7},
		{"major snaps down", QuantizeMajorScale, 1, 0},
		{"major above octave", QuantizeMajorScale, 13.2, 14},
		{"major negative", QuantizeMajorScale, -1, -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := quantizeSemitones(tc.mode, tc.in); got != tc.want {
				t.Fatalf("mode %d input %g: got %g, want %g", tc.mode, tc.in, got, tc.want)
			}
		})
	}
}

func TestQuantizeMajorScaleAllDegreesFixed(t *testing.T) {
	for _, d := range majorScaleDegrees {
		if got := quantizeSemitones(QuantizeMajorScale, d); got != d {
			t.Fatalf("degree %g moved to %g", d, got)
		}
	}
}
