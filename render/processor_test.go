package render

import (
	"bytes"
	"testing"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/internal/develop"
)

func gradientPixmap(w, h int) *darkroom.Pixmap {
	pm := darkroom.NewPixmap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pm.Set(x, y, uint8(x*31%256), uint8(y*47%256), uint8((x+y)*13%256), 255)
		}
	}
	return pm
}

func TestLoadImageAndExportRoundTrip(t *testing.T) {
	f := newFakeRenderer()
	p := NewProcessor(f)
	defer p.Close()

	src := gradientPixmap(16, 12)
	if err := p.LoadImage(src); err != nil {
		t.Fatal(err)
	}
	if w, h := p.Size(); w != 16 || h != 12 {
		t.Fatalf("size = %dx%d, want 16x12", w, h)
	}

	// Zero params: the developed output equals the input.
	out, err := p.Export()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Data(), src.Data()) {
		t.Error("zero-adjustment export differs from source")
	}
}

func TestExportBeforeLoadFails(t *testing.T) {
	p := NewProcessor(newFakeRenderer())
	if _, err := p.Export(); err != ErrNoImage {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
	if err := p.Render(); err != ErrNoImage {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
}

func TestRenderIdempotent(t *testing.T) {
	f := newFakeRenderer()
	p := NewProcessor(f)
	defer p.Close()

	if err := p.LoadImage(gradientPixmap(8, 8)); err != nil {
		t.Fatal(err)
	}
	if err := p.SetParam("exposure", 0.7); err != nil {
		t.Fatal(err)
	}
	first, err := p.Export()
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Export()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Data(), second.Data()) {
		t.Error("repeated renders with identical state differ")
	}
}

func TestSetParamRerendersSynchronously(t *testing.T) {
	f := newFakeRenderer()
	p := NewProcessor(f)
	defer p.Close()

	if err := p.LoadImage(gradientPixmap(8, 8)); err != nil {
		t.Fatal(err)
	}
	calls := f.developCalls
	if err := p.SetParam("contrast", 40); err != nil {
		t.Fatal(err)
	}
	if f.developCalls != calls+1 {
		t.Errorf("develop calls = %d, want %d", f.developCalls, calls+1)
	}
	if got, _ := p.Params().Value("contrast"); got != 40 {
		t.Errorf("contrast = %v, want 40", got)
	}
}

func TestSetParamUnknownName(t *testing.T) {
	p := NewProcessor(newFakeRenderer())
	if err := p.SetParam("sharpness", 1); err == nil {
		t.Fatal("unknown param accepted")
	}
}

// Replacing the image must never leak the old texture or leave the input
// observable as deleted: the new texture is created and swapped in before
// the old one is freed.
func TestLoadImageSafeHandoff(t *testing.T) {
	f := newFakeRenderer()
	p := NewProcessor(f)
	defer p.Close()

	if err := p.LoadImage(gradientPixmap(8, 8)); err != nil {
		t.Fatal(err)
	}
	if f.liveTextures != 1 {
		t.Fatalf("live textures = %d, want 1", f.liveTextures)
	}

	if err := p.LoadImage(gradientPixmap(8, 8)); err != nil {
		t.Fatal(err)
	}
	if f.liveTextures != 1 {
		t.Errorf("live textures after replacement = %d, want 1", f.liveTextures)
	}
	// The render issued during the handoff must have used the new
	// texture, not the deleted one.
	if _, err := p.Export(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadImageResizeReallocates(t *testing.T) {
	f := newFakeRenderer()
	p := NewProcessor(f)
	defer p.Close()

	if err := p.LoadImage(gradientPixmap(8, 8)); err != nil {
		t.Fatal(err)
	}
	if err := p.LoadImage(gradientPixmap(20, 10)); err != nil {
		t.Fatal(err)
	}
	out, err := p.Export()
	if err != nil {
		t.Fatal(err)
	}
	if out.Width() != 20 || out.Height() != 10 {
		t.Errorf("export size = %dx%d, want 20x10", out.Width(), out.Height())
	}
}

func TestExposureOneStopScenario(t *testing.T) {
	f := newFakeRenderer()
	p := NewProcessor(f)
	defer p.Close()

	src := darkroom.NewPixmap(4, 4)
	src.Fill(128, 0, 0, 255)
	if err := p.LoadImage(src); err != nil {
		t.Fatal(err)
	}
	if err := p.SetParam("exposure", 1); err != nil {
		t.Fatal(err)
	}
	out, err := p.Export()
	if err != nil {
		t.Fatal(err)
	}

	want := develop.LinearToByte(2 * develop.ByteToLinear(128))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, g, b, _ := out.At(x, y)
			if diff := int(r) - int(want); diff < -1 || diff > 1 {
				t.Fatalf("pixel (%d,%d) r = %d, want %d±1", x, y, r, want)
			}
			if g != 0 || b != 0 {
				t.Fatalf("pixel (%d,%d) gb = %d,%d, want 0,0", x, y, g, b)
			}
		}
	}
}

func TestHistogramReadsPreAdjustmentInput(t *testing.T) {
	f := newFakeRenderer()
	p := NewProcessor(f)
	defer p.Close()

	src := gradientPixmap(6, 6)
	if err := p.LoadImage(src); err != nil {
		t.Fatal(err)
	}
	if err := p.SetParam("exposure", 2); err != nil {
		t.Fatal(err)
	}
	hist, err := p.Histogram()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(hist.Data(), src.Data()) {
		t.Error("histogram source differs from unadjusted input")
	}
}
