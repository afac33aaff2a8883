package darkroom

// ToneCurve is a precomputed 256-entry lookup table supplied by the
// tone-curve/color-grading collaborator. Entries map a normalized input
// [0,1] sampled at i/255 to a normalized output [0,1]. The core treats
// curves as opaque: it never derives or edits them.
type ToneCurve [256]float32

// IdentityCurve returns the curve that maps every value to itself.
func IdentityCurve() *ToneCurve {
	var c ToneCurve
	for i := range c {
		c[i] = float32(i) / 255.0
	}
	return &c
}

// CurveFromBytes builds a curve from a 256-entry byte table, the wire
// format used by LUT-producing collaborators.
func CurveFromBytes(table [256]uint8) *ToneCurve {
	var c ToneCurve
	for i, v := range table {
		c[i] = float32(v) / 255.0
	}
	return &c
}

// Eval samples the curve at x in [0,1] with linear interpolation between
// adjacent entries. Inputs outside [0,1] are clamped.
func (c *ToneCurve) Eval(x float32) float32 {
	if c == nil {
		return x
	}
	if x <= 0 {
		return c[0]
	}
	if x >= 1 {
		return c[255]
	}
	f := x * 255.0
	i := int(f)
	if i >= 255 {
		return c[255]
	}
	t := f - float32(i)
	return c[i] + (c[i+1]-c[i])*t
}
