package develop

import "math"

// MaskBuf is a CPU coverage map in [0,1], the reference for the GPU mask
// targets. Coordinates follow image addressing: x right, y down.
type MaskBuf struct {
	W, H  int
	Alpha []float32
}

// NewMaskBuf returns a fully transparent mask.
func NewMaskBuf(w, h int) *MaskBuf {
	return &MaskBuf{W: w, H: h, Alpha: make([]float32, w*h)}
}

// At returns the coverage at (x, y); out of bounds reads return 0.
func (m *MaskBuf) At(x, y int) float32 {
	if x < 0 || x >= m.W || y < 0 || y >= m.H {
		return 0
	}
	return m.Alpha[y*m.W+x]
}

// Clear resets every texel to zero coverage.
func (m *MaskBuf) Clear() {
	for i := range m.Alpha {
		m.Alpha[i] = 0
	}
}

// StampAlpha is the circular falloff of one brush stamp at distance d:
// full coverage inside radius*hardness, smoothstep falloff to zero at
// radius.
func StampAlpha(d, radius, hardness float32) float32 {
	return 1 - Smoothstep(radius*hardness, radius, d)
}

// ApplyStamp blends one brush stamp into the mask. x, y and radius are in
// mask pixels; hardness and strength are in [0,1]. Additive stamps use
// alpha-over blending; erase stamps scale existing coverage down by the
// stamp alpha, which is monotonically non-increasing and can never go
// below zero.
func (m *MaskBuf) ApplyStamp(x, y, radius, hardness, strength float32, erase bool) {
	if radius <= 0 || strength <= 0 {
		return
	}
	minX := clampInt(int(x-radius)-1, 0, m.W)
	maxX := clampInt(int(x+radius)+2, 0, m.W)
	minY := clampInt(int(y-radius)-1, 0, m.H)
	maxY := clampInt(int(y+radius)+2, 0, m.H)

	for py := minY; py < maxY; py++ {
		for px := minX; px < maxX; px++ {
			dx := float32(px) + 0.5 - x
			dy := float32(py) + 0.5 - y
			d := float32(math.Sqrt(float64(dx*dx + dy*dy)))
			a := StampAlpha(d, radius, hardness) * strength
			if a <= 0 {
				continue
			}
			i := py*m.W + px
			if erase {
				// Reverse-subtractive: dst *= 1-src. Clamped
				// at zero by construction.
				m.Alpha[i] *= 1 - a
			} else {
				m.Alpha[i] = a + m.Alpha[i]*(1-a)
			}
			if m.Alpha[i] > 1 {
				m.Alpha[i] = 1
			}
		}
	}
}

// RadialAlpha evaluates a radial shape mask at (px, py): full inside the
// inner radius, smoothstep falloff to zero at the outer radius.
func RadialAlpha(px, py, cx, cy, inner, outer float32, invert bool) float32 {
	dx := px - cx
	dy := py - cy
	d := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	a := 1 - Smoothstep(inner, outer, d)
	if invert {
		a = 1 - a
	}
	return a
}

// LinearAlpha evaluates a linear gradient mask: the point is projected on
// the directed segment (x1,y1)->(x2,y2); coverage is full before the
// start, zero past the end, with a smoothstep transition of width feather
// (fraction of the segment, centered mid-segment).
func LinearAlpha(px, py, x1, y1, x2, y2, feather float32, invert bool) float32 {
	dx := x2 - x1
	dy := y2 - y1
	lenSq := dx*dx + dy*dy
	var t float32
	if lenSq > 0 {
		t = ((px-x1)*dx + (py-y1)*dy) / lenSq
	}
	f := Clamp(feather, 0.01, 1)
	a := 1 - Smoothstep(0.5-f/2, 0.5+f/2, t)
	if invert {
		a = 1 - a
	}
	return a
}

// FillRadial writes a radial shape mask over the whole buffer.
func (m *MaskBuf) FillRadial(cx, cy, inner, outer float32, invert bool) {
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			m.Alpha[y*m.W+x] = RadialAlpha(float32(x)+0.5, float32(y)+0.5, cx, cy, inner, outer, invert)
		}
	}
}

// FillLinear writes a linear gradient mask over the whole buffer.
func (m *MaskBuf) FillLinear(x1, y1, x2, y2, feather float32, invert bool) {
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			m.Alpha[y*m.W+x] = LinearAlpha(float32(x)+0.5, float32(y)+0.5, x1, y1, x2, y2, feather, invert)
		}
	}
}
