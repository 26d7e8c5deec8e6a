package granular

import "math"

// Shape identifies a grain envelope curve.
type Shape int

const (
	// ShapeHann is a raised cosine, zero at both ends.
	ShapeHann Shape = iota
	// ShapeTrapezoid ramps linearly over the attack and release portions and
	// holds 1 in between.
	ShapeTrapezoid
	// ShapeLinear is a triangle: linear ramp to the midpoint and back.
	ShapeLinear
	// ShapeSine is a half cosine arch.
	ShapeSine
	// ShapeBlackman is a low-sidelobe three-term cosine window.
	ShapeBlackman
	// ShapeExponential uses exponential attack and release segments with a
	// sustained plateau between them.
	ShapeExponential
)

// expEnvelopeK sets the curvature of the exponential envelope segments.
const expEnvelopeK = 4.0

// GenerateEnvelope fills buf with the amplitude curve for the given shape.
// attackRatio and releaseRatio select the attack and release portions for the
// trapezoid and exponential shapes and are clamped to [0, 0.5]; the other
// shapes ignore them. Index 0 maps to phase 0 and index len(buf)-1 to phase 1.
// A nil or empty buf is a no-op.
func GenerateEnvelope(buf []float64, shape Shape, attackRatio, releaseRatio float64) {
	n := len(buf)
	if n == 0 {
		return
	}
	if n == 1 {
		buf[0] = 1
		return
	}

	switch shape {
	case ShapeHann:
		for i := range buf {
			buf[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		}
	case ShapeTrapezoid:
		fillTrapezoid(buf, attackRatio, releaseRatio)
	case ShapeLinear:
		fillTrapezoid(buf, 0.5, 0.5)
	case ShapeSine:
		for i := range buf {
			buf[i] = math.Sin(math.Pi * float64(i) / float64(n-1))
		}
	case ShapeBlackman:
		for i := range buf {
			x := 2 * math.Pi * float64(i) / float64(n-1)
			v := 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
			if v < 0 {
				v = 0
			}
			buf[i] = v
		}
	case ShapeExponential:
		fillExponential(buf, attackRatio, releaseRatio)
	default:
		for i := range buf {
			buf[i] = 1
		}
	}
}

// LookupEnvelope reads the table at a normalized phase in [0, 1] with linear
// interpolation between the two bracketing entries. Phase is clamped; an
// empty table yields 0.
func LookupEnvelope(table []float64, phase float64) float64 {
	n := len(table)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return table[0]
	}
	if phase < 0 || math.IsNaN(phase) {
		phase = 0
	}
	if phase > 1 {
		phase = 1
	}

	pos := phase * float64(n-1)
	i0 := int(pos)
	if i0 >= n-1 {
		return table[n-1]
	}
	frac := pos - float64(i0)
	return table[i0] + (table[i0+1]-table[i0])*frac
}

func clampRatio(r float64) float64 {
	if r < 0 || math.IsNaN(r) {
		return 0
	}
	if r > 0.5 {
		return 0.5
	}
	return r
}

func fillTrapezoid(buf []float64, attackRatio, releaseRatio float64) {
	n := len(buf)
	attack := int(float64(n) * clampRatio(attackRatio))
	release := int(float64(n) * clampRatio(releaseRatio))

	for i := range buf {
		switch {
		case i < attack:
			buf[i] = float64(i) / float64(attack)
		case i >= n-release:
			buf[i] = float64(n-1-i) / float64(release)
		default:
			buf[i] = 1
		}
	}
}

func fillExponential(buf []float64, attackRatio, releaseRatio float64) {
	n := len(buf)
	attack := int(float64(n) * clampRatio(attackRatio))
	release := int(float64(n) * clampRatio(releaseRatio))

	norm := 1 - math.Exp(-expEnvelopeK)

	for i := range buf {
		switch {
		case i < attack:
			t := float64(i) / float64(attack)
			buf[i] = (1 - math.Exp(-t*expEnvelopeK)) / norm
		case i >= n-release:
			t := 1.0
			if release > 1 {
				t = float64(i-(n-release)) / float64(release-1)
			}
			buf[i] = math.Exp(-t * expEnvelopeK)
		default:
			buf[i] = 1
		}
	}
}
