package render

import (
	"bytes"
	"testing"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
)

func baseTexture(t *testing.T, f *fakeRenderer, w, h int) backend.Texture {
	t.Helper()
	tex, err := f.CreateTextureFromImage(gradientPixmap(w, h))
	if err != nil {
		t.Fatal(err)
	}
	return tex
}

func TestApplyLayersNoQualifyingIsZeroPass(t *testing.T) {
	f := newFakeRenderer()
	c := NewCompositor(f)
	defer c.Close()

	base := baseTexture(t, f, 8, 8)

	// Empty stack.
	out, err := c.ApplyLayers(base)
	if err != nil {
		t.Fatal(err)
	}
	if out != base {
		t.Error("empty stack should return the base texture unchanged")
	}

	// A layer with zero params does not qualify; neither does a hidden
	// layer with non-zero params.
	if _, err := c.CreateLayer(LayerBrush, 8, 8); err != nil {
		t.Fatal(err)
	}
	l, err := c.CreateLayer(LayerBrush, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	l.Params.Exposure = 1
	l.Visible = false

	out, err = c.ApplyLayers(base)
	if err != nil {
		t.Fatal(err)
	}
	if out != base {
		t.Error("non-qualifying layers should return the base texture")
	}
	if f.maskedCalls != 0 {
		t.Errorf("masked passes = %d, want 0", f.maskedCalls)
	}
}

func TestApplyLayersPingPongNeverAliases(t *testing.T) {
	f := newFakeRenderer()
	c := NewCompositor(f)
	defer c.Close()

	base := baseTexture(t, f, 8, 8)
	for i := 0; i < 3; i++ {
		l, err := c.CreateLayer(LayerBrush, 8, 8)
		if err != nil {
			t.Fatal(err)
		}
		l.Params.Exposure = float32(i+1) * 0.3
		if err := c.SetShapeMask(backend.Shape{
			Kind: backend.ShapeRadial, CX: 4, CY: 4, Inner: 0, Outer: 8,
		}); err != nil {
			t.Fatal(err)
		}
	}

	out, err := c.ApplyLayers(base)
	if err != nil {
		t.Fatal(err)
	}
	if out == base {
		t.Error("qualifying layers must produce a new intermediate")
	}
	if f.maskedCalls != 3 {
		t.Errorf("masked passes = %d, want 3", f.maskedCalls)
	}
}

func TestApplyLayersOrderSensitive(t *testing.T) {
	run := func(first, second func(p *darkroom.AdjustmentParams)) []byte {
		f := newFakeRenderer()
		c := NewCompositor(f)
		defer c.Close()

		base := baseTexture(t, f, 8, 8)
		for _, set := range []func(p *darkroom.AdjustmentParams){first, second} {
			l, err := c.CreateLayer(LayerRadial, 8, 8)
			if err != nil {
				t.Fatal(err)
			}
			set(l.Params)
			if err := c.SetShapeMask(backend.Shape{
				Kind: backend.ShapeRadial, CX: 4, CY: 4, Inner: 0, Outer: 12,
			}); err != nil {
				t.Fatal(err)
			}
		}
		out, err := c.ApplyLayers(base)
		if err != nil {
			t.Fatal(err)
		}
		pm, err := f.ReadPixels(out)
		if err != nil {
			t.Fatal(err)
		}
		return pm.Data()
	}

	exposure := func(p *darkroom.AdjustmentParams) { p.Exposure = 1.5 }
	contrast := func(p *darkroom.AdjustmentParams) { p.Contrast = 80 }

	ab := run(exposure, contrast)
	ba := run(contrast, exposure)
	if bytes.Equal(ab, ba) {
		t.Error("layer order should change the composite")
	}
}

func TestActiveLayerTracking(t *testing.T) {
	f := newFakeRenderer()
	c := NewCompositor(f)
	defer c.Close()

	if _, ok := c.ActiveLayer(); ok {
		t.Fatal("fresh compositor should have no active layer")
	}
	if err := c.PaintBrush(1, 1); err != ErrNoActiveLayer {
		t.Fatalf("err = %v, want ErrNoActiveLayer", err)
	}

	l1, _ := c.CreateLayer(LayerBrush, 8, 8)
	l2, _ := c.CreateLayer(LayerBrush, 8, 8)
	if got, _ := c.ActiveLayer(); got != l2 {
		t.Error("newest layer should be active")
	}
	if l1.Name != "Layer 1" || l2.Name != "Layer 2" {
		t.Errorf("names = %q, %q, want sequential", l1.Name, l2.Name)
	}

	c.SetActive(0)
	if got, _ := c.ActiveLayer(); got != l1 {
		t.Error("SetActive(0) should select the first layer")
	}

	// Deleting below the active index shifts it.
	c.SetActive(1)
	c.DeleteLayer(0)
	if got, _ := c.ActiveLayer(); got != l2 {
		t.Error("active layer should survive deletion below it")
	}

	c.DeleteLayer(5) // out of range: no-op
	if len(c.Layers()) != 1 {
		t.Errorf("layers = %d, want 1", len(c.Layers()))
	}

	c.DeleteLayer(0)
	if _, ok := c.ActiveLayer(); ok {
		t.Error("deleting the last layer should clear the selection")
	}
}

func TestPaintBrushCoverage(t *testing.T) {
	f := newFakeRenderer()
	c := NewCompositor(f)
	defer c.Close()

	l, err := c.CreateLayer(LayerBrush, 64, 64)
	if err != nil {
		t.Fatal(err)
	}
	c.SetBrush(darkroom.BrushSettings{Size: 20, Hardness: 100, Opacity: 100, Flow: 100})
	if err := c.PaintBrush(32, 32); err != nil {
		t.Fatal(err)
	}

	mask, err := f.ReadPixels(l.mask.Texture())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := mask.At(32, 32); a != 255 {
		t.Errorf("center alpha = %d, want 255", a)
	}
	// Outside the 10px radius nothing is painted.
	if _, _, _, a := mask.At(32, 48); a != 0 {
		t.Errorf("alpha beyond radius = %d, want 0", a)
	}
}

func TestPaintStrokeSpacingCoversSegment(t *testing.T) {
	f := newFakeRenderer()
	c := NewCompositor(f)
	defer c.Close()

	if _, err := c.CreateLayer(LayerBrush, 128, 32); err != nil {
		t.Fatal(err)
	}
	c.SetBrush(darkroom.BrushSettings{Size: 10, Hardness: 80, Opacity: 100, Flow: 100})

	if err := c.PaintStroke(10, 16, 110, 16); err != nil {
		t.Fatal(err)
	}
	// 100px at 18% of a 10px diameter is 1.8px spacing: 56 intervals,
	// endpoints included.
	if f.stampCalls != 57 {
		t.Errorf("stamps = %d, want 57", f.stampCalls)
	}

	l, _ := c.ActiveLayer()
	mask, err := f.ReadPixels(l.mask.Texture())
	if err != nil {
		t.Fatal(err)
	}
	for x := 10; x <= 110; x += 10 {
		if _, _, _, a := mask.At(x, 16); a == 0 {
			t.Errorf("gap in stroke at x=%d", x)
		}
	}
}

func TestPaintStrokeDegenerateSingleStamp(t *testing.T) {
	f := newFakeRenderer()
	c := NewCompositor(f)
	defer c.Close()

	if _, err := c.CreateLayer(LayerBrush, 32, 32); err != nil {
		t.Fatal(err)
	}
	if err := c.PaintStroke(16, 16, 16, 16); err != nil {
		t.Fatal(err)
	}
	if f.stampCalls != 1 {
		t.Errorf("stamps = %d, want 1", f.stampCalls)
	}
}

func TestEraseReducesCoverage(t *testing.T) {
	f := newFakeRenderer()
	c := NewCompositor(f)
	defer c.Close()

	l, err := c.CreateLayer(LayerBrush, 64, 64)
	if err != nil {
		t.Fatal(err)
	}
	c.SetBrush(darkroom.BrushSettings{Size: 30, Hardness: 100, Opacity: 100, Flow: 100})
	if err := c.PaintBrush(32, 32); err != nil {
		t.Fatal(err)
	}

	c.SetBrush(darkroom.BrushSettings{Size: 30, Hardness: 100, Opacity: 50, Flow: 100, Erase: true})
	if err := c.PaintBrush(32, 32); err != nil {
		t.Fatal(err)
	}

	mask, err := f.ReadPixels(l.mask.Texture())
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, a := mask.At(32, 32)
	if a >= 255 {
		t.Errorf("erase did not reduce coverage: alpha = %d", a)
	}
	if a < 120 || a > 135 {
		t.Errorf("half-strength erase alpha = %d, want about 128", a)
	}
}

func TestShapeMaskReplacesContent(t *testing.T) {
	f := newFakeRenderer()
	c := NewCompositor(f)
	defer c.Close()

	l, err := c.CreateLayer(LayerLinear, 32, 32)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetShapeMask(backend.Shape{
		Kind: backend.ShapeLinear,
		X1:   0, Y1: 16, X2: 32, Y2: 16,
		Feather: 0.5,
	}); err != nil {
		t.Fatal(err)
	}
	mask, err := f.ReadPixels(l.mask.Texture())
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, start := mask.At(1, 16)
	_, _, _, end := mask.At(30, 16)
	if start <= end {
		t.Errorf("linear mask should fade along the segment: start %d, end %d", start, end)
	}
}

func TestApplyLayersReallocatesOnResize(t *testing.T) {
	f := newFakeRenderer()
	c := NewCompositor(f)
	defer c.Close()

	l, err := c.CreateLayer(LayerRadial, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	l.Params.Exposure = 1
	if err := c.SetShapeMask(backend.Shape{
		Kind: backend.ShapeRadial, CX: 4, CY: 4, Outer: 8,
	}); err != nil {
		t.Fatal(err)
	}

	small := baseTexture(t, f, 8, 8)
	if _, err := c.ApplyLayers(small); err != nil {
		t.Fatal(err)
	}

	big := baseTexture(t, f, 16, 16)
	out, err := c.ApplyLayers(big)
	if err != nil {
		t.Fatal(err)
	}
	if w, h := out.Size(); w != 16 || h != 16 {
		t.Errorf("composite size = %dx%d, want 16x16", w, h)
	}
	if w, h := l.MaskSize(); w != 16 || h != 16 {
		t.Errorf("mask size = %dx%d, want 16x16", w, h)
	}

	// The recreated mask is transparent, so the pass leaves the base
	// untouched until the mask is repainted.
	got, err := f.ReadPixels(out)
	if err != nil {
		t.Fatal(err)
	}
	want, err := f.ReadPixels(big)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Data(), want.Data()) {
		t.Error("cleared mask should contribute nothing to the composite")
	}
}

func TestRenderMaskedStretchesSmallerMask(t *testing.T) {
	f := newFakeRenderer()

	base := baseTexture(t, f, 8, 8)
	mask, err := f.CreateTarget(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	// Full coverage everywhere on the small mask.
	if err := f.PaintShape(mask, backend.Shape{
		Kind: backend.ShapeRadial, CX: 2, CY: 2, Inner: 100, Outer: 200,
	}); err != nil {
		t.Fatal(err)
	}

	params := &darkroom.AdjustmentParams{Exposure: 1}
	dst, err := f.CreateTarget(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.RenderMasked(base, mask.Texture(), params, dst); err != nil {
		t.Fatal(err)
	}

	// A fully opaque mask, whatever its resolution, must match the
	// unmasked develop pass.
	ref, err := f.CreateTarget(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.RenderDevelop(base, params, ref); err != nil {
		t.Fatal(err)
	}
	got, _ := f.ReadPixels(dst.Texture())
	want, _ := f.ReadPixels(ref.Texture())
	if !bytes.Equal(got.Data(), want.Data()) {
		t.Error("stretched full-coverage mask should match the unmasked pass")
	}
}

func TestApplyLayersChainsOnOwnOutput(t *testing.T) {
	f := newFakeRenderer()
	c := NewCompositor(f)
	defer c.Close()

	l, err := c.CreateLayer(LayerRadial, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	l.Params.Exposure = 0.5
	if err := c.SetShapeMask(backend.Shape{
		Kind: backend.ShapeRadial, CX: 4, CY: 4, Outer: 12,
	}); err != nil {
		t.Fatal(err)
	}

	base := baseTexture(t, f, 8, 8)
	out1, err := c.ApplyLayers(base)
	if err != nil {
		t.Fatal(err)
	}
	// Feeding the previous composite back in starts on the other slot.
	out2, err := c.ApplyLayers(out1)
	if err != nil {
		t.Fatal(err)
	}
	if out2 == out1 {
		t.Error("chained composite should land on the other intermediate")
	}
}
