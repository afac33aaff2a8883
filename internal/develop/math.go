package develop

import "math"

// Tuning constants of the develop pipeline. These are inherited visual
// design choices; the shaders carry the same literal values.
const (
	// MidGray anchors the contrast curve.
	MidGray = 0.18

	// Channel gains per unit of white-balance slider.
	tempGain = 0.20
	tintGain = 0.10

	// Region strengths for the four tonal sliders.
	highlightGain = 0.50
	shadowGain    = 0.50
	whiteGain     = 0.25
	blackGain     = 0.25

	// Frequency-separation strengths.
	clarityGain   = 0.50
	structureGain = 0.35

	// Dehaze veil fraction per unit of slider.
	dehazeGain = 0.10

	// ClarityBlurRadius is the gaussian radius (in pixels) of the
	// frequency-separation pre-blur.
	ClarityBlurRadius = 8.0

	// StrokeSpacing is the stamp spacing of PaintStroke as a fraction
	// of the brush diameter.
	StrokeSpacing = 0.18
)

// Clamp limits v to [lo,hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Mix linearly interpolates from a to b by t.
func Mix(a, b, t float32) float32 {
	return a + (b-a)*t
}

// Smoothstep is the GLSL/WGSL smoothstep: hermite interpolation between
// 0 at edge0 and 1 at edge1, clamped outside.
func Smoothstep(edge0, edge1, x float32) float32 {
	if edge0 >= edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Exp2 returns 2^x.
func Exp2(x float32) float32 {
	return float32(math.Exp2(float64(x)))
}
