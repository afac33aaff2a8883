package develop

import "math"

// sRGBToLinearLUT provides O(1) sRGB byte to linear conversion.
var sRGBToLinearLUT [256]float32

// linearToSRGBLUT provides O(1) linear to sRGB byte conversion.
// 4096 entries give 12-bit precision, sufficient for 8-bit output.
var linearToSRGBLUT [4096]uint8

func init() {
	for i := 0; i < 256; i++ {
		s := float64(i) / 255.0
		var linear float64
		if s <= 0.04045 {
			linear = s / 12.92
		} else {
			linear = math.Pow((s+0.055)/1.055, 2.4)
		}
		sRGBToLinearLUT[i] = float32(linear)
	}

	for i := 0; i < 4096; i++ {
		linear := float64(i) / 4095.0
		var s float64
		if linear <= 0.0031308 {
			s = linear * 12.92
		} else {
			s = 1.055*math.Pow(linear, 1.0/2.4) - 0.055
		}
		v := int(s*255.0 + 0.5)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		linearToSRGBLUT[i] = uint8(v)
	}
}

// SRGBToLinear converts an sRGB component in [0,1] to linear (EOTF).
func SRGBToLinear(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow(float64((s+0.055)/1.055), 2.4))
}

// LinearToSRGB converts a linear component in [0,1] to sRGB (OETF).
func LinearToSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*float32(math.Pow(float64(l), 1.0/2.4)) - 0.055
}

// ByteToLinear converts an sRGB byte to a linear float via the table.
func ByteToLinear(b uint8) float32 {
	return sRGBToLinearLUT[b]
}

// LinearToByte converts a linear float to an sRGB byte via the table.
// Values outside [0,1] are clamped.
func LinearToByte(l float32) uint8 {
	if l <= 0 {
		return 0
	}
	if l >= 1 {
		return 255
	}
	return linearToSRGBLUT[int(l*4095.0+0.5)]
}

// Luma returns the Rec.709 relative luminance of a linear RGB triple.
func Luma(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}
