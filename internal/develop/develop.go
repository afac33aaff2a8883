package develop

import (
	"math"

	"github.com/gophoto/darkroom"
)

// bandCenter holds the hue (degrees) each HSL band is anchored at, in
// contract band order: red, orange, yellow, green, aqua, blue, purple,
// magenta.
var bandCenter = [darkroom.NumBands]float32{0, 30, 60, 120, 180, 240, 280, 320}

// Normalized is an AdjustmentParams snapshot with every percentage slider
// divided by 100, ready for per-pixel evaluation. It is also the uniform
// layout contract: backends pack these fields, in this order, into their
// shader uniforms.
type Normalized struct {
	Exposure    float32 // stops, unscaled
	Contrast    float32 // -1..1 from here on
	Highlights  float32
	Shadows     float32
	Whites      float32
	Blacks      float32
	Temperature float32
	Tint        float32
	Vibrance    float32
	Saturation  float32
	Clarity     float32
	Structure   float32
	Dehaze      float32

	HueShift [darkroom.NumBands]float32 // degrees
	SatScale [darkroom.NumBands]float32 // -1..1
	LumScale [darkroom.NumBands]float32 // -1..1

	Curves [4]*darkroom.ToneCurve

	hasHSL bool
}

// HasHSL reports whether any band adjustment is active, so backends can
// skip the per-band loop entirely.
func (n *Normalized) HasHSL() bool { return n.hasHSL }

// Normalize converts raw contract params into evaluation form.
func Normalize(p *darkroom.AdjustmentParams) Normalized {
	var n Normalized
	if p == nil {
		return n
	}
	n.Exposure = p.Exposure
	n.Contrast = p.Contrast / 100
	n.Highlights = p.Highlights / 100
	n.Shadows = p.Shadows / 100
	n.Whites = p.Whites / 100
	n.Blacks = p.Blacks / 100
	n.Temperature = p.Temperature / 100
	n.Tint = p.Tint / 100
	n.Vibrance = p.Vibrance / 100
	n.Saturation = p.Saturation / 100
	n.Clarity = p.Clarity / 100
	n.Structure = p.Structure / 100
	n.Dehaze = p.Dehaze / 100
	for i := 0; i < darkroom.NumBands; i++ {
		n.HueShift[i] = p.HSL[darkroom.HSLHue][i]
		n.SatScale[i] = p.HSL[darkroom.HSLSat][i] / 100
		n.LumScale[i] = p.HSL[darkroom.HSLLum][i] / 100
		if n.HueShift[i] != 0 || n.SatScale[i] != 0 || n.LumScale[i] != 0 {
			n.hasHSL = true
		}
	}
	n.Curves = p.Curves
	return n
}

// ApplyPixel runs the develop pipeline on one sRGB pixel in [0,1].
// blur, when non-nil, is the same pixel from the frequency-separation
// blurred base (sRGB); it is only consulted when clarity or structure is
// non-zero. The result is clamped to [0,1].
//
// Stage order is fixed: linearize, frequency separation, exposure, white
// balance, contrast, tonal regions, dehaze, vibrance/saturation, back to
// sRGB, HSL bands, tone curves, clamp. The shaders in backend/gl and
// backend/webgpu implement the same stages with the same constants.
func (n *Normalized) ApplyPixel(sr, sg, sb float32, blur *[3]float32) (float32, float32, float32) {
	r := SRGBToLinear(sr)
	g := SRGBToLinear(sg)
	b := SRGBToLinear(sb)

	// Frequency separation: push the working pixel away from its local
	// mean. Mid-tone weighted for clarity, uniform for structure.
	if (n.Clarity != 0 || n.Structure != 0) && blur != nil {
		br := SRGBToLinear(blur[0])
		bg := SRGBToLinear(blur[1])
		bb := SRGBToLinear(blur[2])
		lum := Luma(r, g, b)
		midw := 1 - float32(math.Abs(float64(2*lum-1)))
		if midw < 0 {
			midw = 0
		}
		k := clarityGain*n.Clarity*midw + structureGain*n.Structure
		r = maxf(0, br+(r-br)*(1+k))
		g = maxf(0, bg+(g-bg)*(1+k))
		b = maxf(0, bb+(b-bb)*(1+k))
	}

	// Exposure in stops.
	if n.Exposure != 0 {
		gain := Exp2(n.Exposure)
		r *= gain
		g *= gain
		b *= gain
	}

	// White balance as channel gains.
	r *= 1 + tempGain*n.Temperature
	b *= 1 - tempGain*n.Temperature
	g *= 1 - tintGain*n.Tint

	// Contrast around the mid-gray anchor.
	if n.Contrast != 0 {
		slope := 1 + n.Contrast
		r = (r-MidGray)*slope + MidGray
		g = (g-MidGray)*slope + MidGray
		b = (b-MidGray)*slope + MidGray
	}

	// Tonal regions, weighted by luminance.
	lum := Luma(maxf(0, r), maxf(0, g), maxf(0, b))
	hw := Smoothstep(0.50, 1.00, lum)
	sw := 1 - Smoothstep(0.00, 0.50, lum)
	ww := Smoothstep(0.66, 1.00, lum)
	bw := 1 - Smoothstep(0.00, 0.33, lum)
	gain := 1 + highlightGain*n.Highlights*hw + shadowGain*n.Shadows*sw + whiteGain*n.Whites*ww
	lift := blackGain * n.Blacks * bw * MidGray
	r = r*gain + lift
	g = g*gain + lift
	b = b*gain + lift

	// Dehaze: subtract a veil and renormalize.
	if n.Dehaze != 0 {
		veil := dehazeGain * n.Dehaze
		den := maxf(1-veil, 1e-3)
		r = (r - veil) / den
		g = (g - veil) / den
		b = (b - veil) / den
	}

	// Vibrance boosts muted colors harder; saturation scales uniformly.
	if n.Vibrance != 0 || n.Saturation != 0 {
		l := Luma(maxf(0, r), maxf(0, g), maxf(0, b))
		cf := maxf(r, maxf(g, b)) - minf(r, minf(g, b))
		vibw := 1 - Clamp(cf*2, 0, 1)
		s := (1 + n.Saturation) * (1 + n.Vibrance*vibw)
		r = l + (r-l)*s
		g = l + (g-l)*s
		b = l + (b-l)*s
	}

	sr = Clamp(LinearToSRGB(Clamp(r, 0, 1)), 0, 1)
	sg = Clamp(LinearToSRGB(Clamp(g, 0, 1)), 0, 1)
	sb = Clamp(LinearToSRGB(Clamp(b, 0, 1)), 0, 1)

	if n.hasHSL {
		sr, sg, sb = n.applyHSL(sr, sg, sb)
	}

	// Tone curves, sRGB domain, after numeric adjustments.
	if c := n.Curves[darkroom.CurveMaster]; c != nil {
		sr, sg, sb = c.Eval(sr), c.Eval(sg), c.Eval(sb)
	}
	if c := n.Curves[darkroom.CurveRed]; c != nil {
		sr = c.Eval(sr)
	}
	if c := n.Curves[darkroom.CurveGreen]; c != nil {
		sg = c.Eval(sg)
	}
	if c := n.Curves[darkroom.CurveBlue]; c != nil {
		sb = c.Eval(sb)
	}

	return Clamp(sr, 0, 1), Clamp(sg, 0, 1), Clamp(sb, 0, 1)
}

// applyHSL applies the 8-band hue/sat/lum adjustments in HSL space.
// Band weights fall off triangularly toward the neighboring band centers
// and are softened near gray so neutral pixels stay neutral.
func (n *Normalized) applyHSL(r, g, b float32) (float32, float32, float32) {
	h, s, l := rgbToHSL(r, g, b)

	gray := Smoothstep(0, 0.15, s)
	var dh, ds, dl float32
	for i := 0; i < darkroom.NumBands; i++ {
		w := bandWeight(h, bandCenter[i])
		if w == 0 {
			continue
		}
		dh += n.HueShift[i] * w
		ds += n.SatScale[i] * w
		dl += n.LumScale[i] * w
	}
	h += dh * gray
	for h < 0 {
		h += 360
	}
	for h >= 360 {
		h -= 360
	}
	s = Clamp(s*(1+ds*gray), 0, 1)
	l = Clamp(l*(1+0.5*dl*gray), 0, 1)

	return hslToRGB(h, s, l)
}

// bandWeight returns the triangular wrap-around weight of a hue against
// one band center. Adjacent bands overlap at 60 degrees of falloff.
func bandWeight(h, center float32) float32 {
	d := float32(math.Abs(float64(h - center)))
	if d > 180 {
		d = 360 - d
	}
	const falloff = 60
	if d >= falloff {
		return 0
	}
	return 1 - d/falloff
}

func rgbToHSL(r, g, b float32) (h, s, l float32) {
	max := maxf(r, maxf(g, b))
	min := minf(r, minf(g, b))
	l = (max + min) / 2
	if max == min {
		return 0, 0, l
	}
	d := max - min
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}
	switch max {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	h *= 60
	return h, s, l
}

func hslToRGB(h, s, l float32) (float32, float32, float32) {
	if s == 0 {
		return l, l, l
	}
	var q float32
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	hn := h / 360
	return hueToChannel(p, q, hn+1.0/3.0), hueToChannel(p, q, hn), hueToChannel(p, q, hn-1.0/3.0)
}

func hueToChannel(p, q, t float32) float32 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

// Develop runs the pipeline over a whole pixmap. blurred may be nil when
// params need no frequency separation; dst must match src dimensions.
// Alpha passes through untouched.
func Develop(dst, src, blurred *darkroom.Pixmap, p *darkroom.AdjustmentParams) {
	n := Normalize(p)
	sd := src.Data()
	dd := dst.Data()
	var bd []uint8
	useBlur := n.Clarity != 0 || n.Structure != 0
	if blurred != nil && useBlur {
		bd = blurred.Data()
	}
	for i := 0; i < len(sd); i += 4 {
		sr := float32(sd[i]) / 255
		sg := float32(sd[i+1]) / 255
		sb := float32(sd[i+2]) / 255
		var blur *[3]float32
		if bd != nil {
			blur = &[3]float32{
				float32(bd[i]) / 255,
				float32(bd[i+1]) / 255,
				float32(bd[i+2]) / 255,
			}
		}
		r, g, b := n.ApplyPixel(sr, sg, sb, blur)
		dd[i] = uint8(r*255 + 0.5)
		dd[i+1] = uint8(g*255 + 0.5)
		dd[i+2] = uint8(b*255 + 0.5)
		dd[i+3] = sd[i+3]
	}
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
