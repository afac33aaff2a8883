package darkroom

import (
	"errors"
	"fmt"
)

// ErrUnknownParam is returned by AdjustmentParams.Set for a parameter name
// that is not part of the contract.
var ErrUnknownParam = errors.New("darkroom: unknown parameter")

// HSL band indices, in the fixed band order of the parameter contract.
const (
	BandRed = iota
	BandOrange
	BandYellow
	BandGreen
	BandAqua
	BandBlue
	BandPurple
	BandMagenta
	NumBands
)

// HSL channel rows in AdjustmentParams.HSL.
const (
	HSLHue = iota // degrees
	HSLSat        // percent
	HSLLum        // percent
)

// AdjustmentParams is one immutable-per-render snapshot of the develop
// sliders. Exposure is an unscaled stop value (about -5..+5); every other
// slider is the raw -100..100 value from the caller and is divided by 100
// only when packed into shader uniforms.
type AdjustmentParams struct {
	Exposure    float32
	Contrast    float32
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

	// HSL holds per-band hue (degrees), saturation (percent) and
	// luminance (percent) rows, indexed by HSLHue/HSLSat/HSLLum and
	// BandRed..BandMagenta.
	HSL [3][NumBands]float32

	// Curves are opaque precomputed lookup tables from the tone-curve
	// collaborator: master, red, green, blue. Nil entries are identity.
	// They apply after the numeric adjustments, before output clamping.
	Curves [4]*ToneCurve
}

// Tone curve slots in AdjustmentParams.Curves.
const (
	CurveMaster = iota
	CurveRed
	CurveGreen
	CurveBlue
)

// Set updates one named slider. Unknown names return ErrUnknownParam.
func (p *AdjustmentParams) Set(name string, value float32) error {
	switch name {
	case "exposure":
		p.Exposure = value
	case "contrast":
		p.Contrast = value
	case "highlights":
		p.Highlights = value
	case "shadows":
		p.Shadows = value
	case "whites":
		p.Whites = value
	case "blacks":
		p.Blacks = value
	case "temperature":
		p.Temperature = value
	case "tint":
		p.Tint = value
	case "vibrance":
		p.Vibrance = value
	case "saturation":
		p.Saturation = value
	case "clarity":
		p.Clarity = value
	case "structure":
		p.Structure = value
	case "dehaze":
		p.Dehaze = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}

// Value returns one named slider value.
func (p *AdjustmentParams) Value(name string) (float32, error) {
	switch name {
	case "exposure":
		return p.Exposure, nil
	case "contrast":
		return p.Contrast, nil
	case "highlights":
		return p.Highlights, nil
	case "shadows":
		return p.Shadows, nil
	case "whites":
		return p.Whites, nil
	case "blacks":
		return p.Blacks, nil
	case "temperature":
		return p.Temperature, nil
	case "tint":
		return p.Tint, nil
	case "vibrance":
		return p.Vibrance, nil
	case "saturation":
		return p.Saturation, nil
	case "clarity":
		return p.Clarity, nil
	case "structure":
		return p.Structure, nil
	case "dehaze":
		return p.Dehaze, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownParam, name)
}

// ParamNames lists every slider name accepted by Set, in contract order.
func ParamNames() []string {
	return []string{
		"exposure", "contrast", "highlights", "shadows", "whites", "blacks",
		"temperature", "tint", "vibrance", "saturation",
		"clarity", "structure", "dehaze",
	}
}

// IsZero reports whether every slider, HSL entry and curve is neutral.
// The compositor skips masked passes for layers whose local params are zero.
func (p *AdjustmentParams) IsZero() bool {
	if p == nil {
		return true
	}
	if p.Exposure != 0 || p.Contrast != 0 || p.Highlights != 0 ||
		p.Shadows != 0 || p.Whites != 0 || p.Blacks != 0 ||
		p.Temperature != 0 || p.Tint != 0 || p.Vibrance != 0 ||
		p.Saturation != 0 || p.Clarity != 0 || p.Structure != 0 ||
		p.Dehaze != 0 {
		return false
	}
	for _, row := range p.HSL {
		for _, v := range row {
			if v != 0 {
				return false
			}
		}
	}
	for _, c := range p.Curves {
		if c != nil {
			return false
		}
	}
	return true
}

// NeedsBlur reports whether the frequency-separation pre-blur has to run
// for these params. Clarity and structure read the blurred base.
func (p *AdjustmentParams) NeedsBlur() bool {
	return p != nil && (p.Clarity != 0 || p.Structure != 0)
}

// Clone returns a deep copy. Tone curves are shared; they are immutable
// once handed to the core.
func (p *AdjustmentParams) Clone() *AdjustmentParams {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
