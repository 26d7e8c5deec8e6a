package granular

import "math"

// QuantizeMode selects how randomized grain pitches snap to musical grids.
type QuantizeMode int

const (
	// QuantizeOff leaves pitches continuous.
	QuantizeOff QuantizeMode = iota
	// QuantizeSemitone snaps to the nearest semitone.
	QuantizeSemitone
	// QuantizeOctave snaps to the nearest octave.
	QuantizeOctave
	// QuantizeFifth snaps to the nearest fifth or octave.
	QuantizeFifth
	// QuantizeMajorScale snaps to the nearest major-scale degree.
	QuantizeMajorScale
)

var majorScaleDegrees = [...]float64{0, 2, 4, 5, 7, 9, 11, 12}

// quantizeSemitones snaps a semitone offset onto the grid selected by mode.
func quantizeSemitones(mode QuantizeMode, semitones float64) float64 {
	switch mode {
	case QuantizeSemitone:
		return math.Round(semitones)
	case QuantizeOctave:
		return math.Round(semitones/12) * 12
	case QuantizeFifth:
		return nearestInOctave(semitones, 0, 7, 12)
	case QuantizeMajorScale:
		return nearestInOctave(semitones, majorScaleDegrees[:]...)
	default:
		return semitones
	}
}

// nearestInOctave snaps semitones to the closest of the given scale degrees,
// replicated across octaves.
func nearestInOctave(semitones float64, degrees ...float64) float64 {
	base := math.Floor(semitones/12) * 12

	best := base + degrees[0]
	bestDist := math.Abs(semitones - best)
	for _, d := range degrees[1:] {
		candidate := base + d
		if dist := math.Abs(semitones - candidate); dist < bestDist {
			best = candidate
			bestDist = dist
		}
	}
	return best
}
