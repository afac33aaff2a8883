package webgpu

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/naga"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/internal/develop"
)

func normalizedFixture() *develop.Normalized {
	p := &darkroom.AdjustmentParams{Exposure: 1.5, Contrast: 25}
	p.HSL[darkroom.HSLHue][darkroom.BandRed] = 12
	p.HSL[darkroom.HSLSat][darkroom.BandRed] = -30
	n := develop.Normalize(p)
	return &n
}

func f32At(buf []byte, slot int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[slot*4:]))
}

// compileWGSL validates one embedded module, skipping gracefully when the
// compiler hits a feature it does not implement yet.
func compileWGSL(t *testing.T, name, src string) {
	t.Helper()
	if src == "" {
		t.Fatalf("%s shader source is empty", name)
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
			t.Skipf("naga feature not yet implemented: %v", err)
		}
		t.Fatalf("compile %s shader: %v", name, err)
	}
	if len(spirv) == 0 {
		t.Errorf("%s: SPIR-V output is empty", name)
		return
	}
	// SPIR-V magic number, little endian.
	magic := uint32(spirv[0]) | uint32(spirv[1])<<8 | uint32(spirv[2])<<16 | uint32(spirv[3])<<24
	if magic != 0x07230203 {
		t.Errorf("%s: bad SPIR-V magic 0x%08x", name, magic)
	}
}

func TestDevelopShaderCompiles(t *testing.T) {
	compileWGSL(t, "develop", developWGSL)
}

func TestPassthroughShaderCompiles(t *testing.T) {
	compileWGSL(t, "passthrough", passthroughWGSL)
}

func TestBlurShaderCompiles(t *testing.T) {
	compileWGSL(t, "blur", blurWGSL)
}

func TestStampShaderCompiles(t *testing.T) {
	compileWGSL(t, "stamp", stampWGSL)
}

func TestShapeShaderCompiles(t *testing.T) {
	compileWGSL(t, "shape", shapeWGSL)
}

func TestAdjustUniformPacking(t *testing.T) {
	n := normalizedFixture()
	buf := packAdjust(n, 0b1010, true)
	if len(buf) != adjustUniformSize {
		t.Fatalf("packed size = %d, want %d", len(buf), adjustUniformSize)
	}
	// curve_mask sits at scalar slot 14, use_blur at 15.
	if got := f32At(buf, 14); got != 10 {
		t.Errorf("curve_mask = %v, want 10", got)
	}
	if got := f32At(buf, 15); got != 1 {
		t.Errorf("use_blur = %v, want 1", got)
	}
	// HSL rows follow the scalar block in band order.
	if got := f32At(buf, 16); got != n.HueShift[0] {
		t.Errorf("hue_shift[0] = %v, want %v", got, n.HueShift[0])
	}
	if got := f32At(buf, 16+8); got != n.SatScale[0] {
		t.Errorf("sat_scale[0] = %v, want %v", got, n.SatScale[0])
	}
}
