package webgpu

import (
	"encoding/binary"
	"math"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/internal/develop"
)

// adjustUniformSize is the byte size of the Adjust uniform block in
// develop.wgsl: sixteen scalars plus three HSL rows packed as vec4 pairs.
const adjustUniformSize = 16*4 + 3*32

// packAdjust serializes one Normalized snapshot into the develop shader's
// uniform layout. Field order must match the Adjust struct in
// develop.wgsl.
func packAdjust(n *develop.Normalized, curveMask int, useBlur bool) []byte {
	buf := make([]byte, adjustUniformSize)
	off := 0
	putF32 := func(v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	putF32(n.Exposure)
	putF32(n.Contrast)
	putF32(n.Highlights)
	putF32(n.Shadows)
	putF32(n.Whites)
	putF32(n.Blacks)
	putF32(n.Temperature)
	putF32(n.Tint)
	putF32(n.Vibrance)
	putF32(n.Saturation)
	putF32(n.Clarity)
	putF32(n.Structure)
	putF32(n.Dehaze)
	if n.HasHSL() {
		putF32(1)
	} else {
		putF32(0)
	}
	putF32(float32(curveMask))
	if useBlur {
		putF32(1)
	} else {
		putF32(0)
	}
	for i := 0; i < darkroom.NumBands; i++ {
		putF32(n.HueShift[i])
	}
	for i := 0; i < darkroom.NumBands; i++ {
		putF32(n.SatScale[i])
	}
	for i := 0; i < darkroom.NumBands; i++ {
		putF32(n.LumScale[i])
	}
	return buf
}

// curveMaskOf returns the bitmask of non-nil tone curves, matching the
// curve_mask bits consumed by the shader.
func curveMaskOf(curves [4]*darkroom.ToneCurve) int {
	mask := 0
	for i, c := range curves {
		if c != nil {
			mask |= 1 << i
		}
	}
	return mask
}

// curveTableBytes packs the four tone curves into 256 RGBA texels
// (R=master, G=red, B=green, A=blue).
func curveTableBytes(curves [4]*darkroom.ToneCurve) []byte {
	buf := make([]byte, 256*4)
	for i := 0; i < 256; i++ {
		x := float32(i) / 255
		for ch := 0; ch < 4; ch++ {
			v := x
			if curves[ch] != nil {
				v = curves[ch].Eval(x)
			}
			buf[i*4+ch] = uint8(develop.Clamp(v, 0, 1)*255 + 0.5)
		}
	}
	return buf
}

// packFloats serializes small uniform blocks (blur, stamp, shape params).
func packFloats(vals ...float32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
