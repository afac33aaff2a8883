package render

import (
	"fmt"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
	"github.com/gophoto/darkroom/internal/develop"
)

// fakeTexture holds pixels on the CPU.
type fakeTexture struct {
	pm      *darkroom.Pixmap
	deleted bool
}

func (t *fakeTexture) Size() (int, int) { return t.pm.Width(), t.pm.Height() }

// fakeTarget pairs a texture with a float coverage buffer for mask
// painting, mirroring how real targets accumulate stamp alpha.
type fakeTarget struct {
	tex  *fakeTexture
	mask *develop.MaskBuf
}

func (t *fakeTarget) Texture() backend.Texture { return t.tex }

// fakeRenderer is a CPU implementation of the full renderer contract,
// built on the reference math so pipeline behavior can be asserted
// without a GPU.
type fakeRenderer struct {
	initialized bool

	surfaceW, surfaceH int
	surface            *darkroom.Pixmap

	lastOutput *darkroom.Pixmap

	developCalls int
	maskedCalls  int
	stampCalls   int

	liveTextures int
	liveTargets  int
}

func newFakeRenderer() *fakeRenderer {
	f := &fakeRenderer{}
	f.Init()
	return f
}

func (f *fakeRenderer) Name() string { return "fake" }
func (f *fakeRenderer) Init() error  { f.initialized = true; return nil }

func (f *fakeRenderer) CreateTextureFromImage(pm *darkroom.Pixmap) (backend.Texture, error) {
	f.liveTextures++
	return &fakeTexture{pm: pm.Clone()}, nil
}

func (f *fakeRenderer) CreateTexture(w, h int) (backend.Texture, error) {
	f.liveTextures++
	return &fakeTexture{pm: darkroom.NewPixmap(w, h)}, nil
}

func (f *fakeRenderer) CreateTarget(w, h int) (backend.Target, error) {
	f.liveTargets++
	return &fakeTarget{
		tex:  &fakeTexture{pm: darkroom.NewPixmap(w, h)},
		mask: develop.NewMaskBuf(w, h),
	}, nil
}

func (f *fakeRenderer) destination(dst backend.Target) (*darkroom.Pixmap, error) {
	if dst == nil {
		if f.surface == nil {
			f.surface = darkroom.NewPixmap(f.surfaceW, f.surfaceH)
		}
		return f.surface, nil
	}
	t, ok := dst.(*fakeTarget)
	if !ok {
		return nil, fmt.Errorf("%w: %T", backend.ErrForeignHandle, dst)
	}
	return t.tex.pm, nil
}

func (f *fakeRenderer) RenderDevelop(input backend.Texture, params *darkroom.AdjustmentParams, dst backend.Target) error {
	src, ok := input.(*fakeTexture)
	if !ok {
		return fmt.Errorf("%w: %T", backend.ErrForeignHandle, input)
	}
	if src.deleted {
		return fmt.Errorf("fake: render from deleted texture")
	}
	out, err := f.destination(dst)
	if err != nil {
		return err
	}
	var blurred *darkroom.Pixmap
	if params != nil && params.NeedsBlur() {
		blurred = develop.GaussianBlur(src.pm, develop.ClarityBlurRadius)
	}
	result := darkroom.NewPixmap(src.pm.Width(), src.pm.Height())
	develop.Develop(result, src.pm, blurred, params)
	*out = *result
	f.lastOutput = result.Clone()
	f.developCalls++
	return nil
}

func (f *fakeRenderer) RenderPassthrough(input backend.Texture, dst backend.Target) error {
	src, ok := input.(*fakeTexture)
	if !ok {
		return fmt.Errorf("%w: %T", backend.ErrForeignHandle, input)
	}
	if src.deleted {
		return fmt.Errorf("fake: render from deleted texture")
	}
	out, err := f.destination(dst)
	if err != nil {
		return err
	}
	*out = *src.pm.Clone()
	f.lastOutput = src.pm.Clone()
	return nil
}

func (f *fakeRenderer) RenderMasked(base, mask backend.Texture, params *darkroom.AdjustmentParams, dst backend.Target) error {
	src, ok := base.(*fakeTexture)
	if !ok {
		return fmt.Errorf("%w: %T", backend.ErrForeignHandle, base)
	}
	mtex, ok := mask.(*fakeTexture)
	if !ok {
		return fmt.Errorf("%w: %T", backend.ErrForeignHandle, mask)
	}
	out, err := f.destination(dst)
	if err != nil {
		return err
	}
	w, h := src.pm.Width(), src.pm.Height()
	adjusted := darkroom.NewPixmap(w, h)
	develop.Develop(adjusted, src.pm, nil, params)

	// The mask is sampled in normalized coordinates, as the shaders do,
	// so a mask sized differently from the base stretches over it.
	mw, mh := mtex.pm.Width(), mtex.pm.Height()
	result := darkroom.NewPixmap(w, h)
	sd, ad, md, rd := src.pm.Data(), adjusted.Data(), mtex.pm.Data(), result.Data()
	for y := 0; y < h; y++ {
		my := y * mh / h
		for x := 0; x < w; x++ {
			mx := x * mw / w
			i := (y*w + x) * 4
			a := float32(md[(my*mw+mx)*4+3]) / 255
			for c := 0; c < 3; c++ {
				rd[i+c] = uint8(develop.Mix(float32(sd[i+c]), float32(ad[i+c]), a) + 0.5)
			}
			rd[i+3] = sd[i+3]
		}
	}
	*out = *result
	f.maskedCalls++
	return nil
}

// syncMask quantizes the float coverage into the target texture's alpha
// channel so RenderMasked sees what painting produced.
func syncMask(t *fakeTarget) {
	data := t.tex.pm.Data()
	for i, a := range t.mask.Alpha {
		v := uint8(develop.Clamp(a, 0, 1)*255 + 0.5)
		data[i*4] = v
		data[i*4+1] = v
		data[i*4+2] = v
		data[i*4+3] = v
	}
}

func (f *fakeRenderer) PaintStamp(dst backend.Target, s backend.Stamp) error {
	t, ok := dst.(*fakeTarget)
	if !ok {
		return fmt.Errorf("%w: %T", backend.ErrForeignHandle, dst)
	}
	t.mask.ApplyStamp(s.X, s.Y, s.Radius, s.Hardness, s.Strength, s.Erase)
	syncMask(t)
	f.stampCalls++
	return nil
}

func (f *fakeRenderer) PaintShape(dst backend.Target, s backend.Shape) error {
	t, ok := dst.(*fakeTarget)
	if !ok {
		return fmt.Errorf("%w: %T", backend.ErrForeignHandle, dst)
	}
	switch s.Kind {
	case backend.ShapeRadial:
		t.mask.FillRadial(s.CX, s.CY, s.Inner, s.Outer, s.Invert)
	case backend.ShapeLinear:
		t.mask.FillLinear(s.X1, s.Y1, s.X2, s.Y2, s.Feather, s.Invert)
	default:
		return fmt.Errorf("fake: unknown shape kind %d", s.Kind)
	}
	syncMask(t)
	return nil
}

func (f *fakeRenderer) ClearTarget(dst backend.Target) error {
	t, ok := dst.(*fakeTarget)
	if !ok {
		return fmt.Errorf("%w: %T", backend.ErrForeignHandle, dst)
	}
	t.mask.Clear()
	t.tex.pm.Fill(0, 0, 0, 0)
	return nil
}

func (f *fakeRenderer) ReadPixels(src backend.Texture) (*darkroom.Pixmap, error) {
	if src == nil {
		if f.lastOutput == nil {
			return nil, fmt.Errorf("fake: no frame rendered yet")
		}
		return f.lastOutput.Clone(), nil
	}
	t, ok := src.(*fakeTexture)
	if !ok {
		return nil, fmt.Errorf("%w: %T", backend.ErrForeignHandle, src)
	}
	return t.pm.Clone(), nil
}

func (f *fakeRenderer) Resize(w, h int) {
	f.surfaceW, f.surfaceH = w, h
	f.surface = nil
}

func (f *fakeRenderer) DeleteTexture(t backend.Texture) {
	ft, ok := t.(*fakeTexture)
	if !ok || ft == nil || ft.deleted {
		return
	}
	ft.deleted = true
	f.liveTextures--
}

func (f *fakeRenderer) DeleteTarget(t backend.Target) {
	ft, ok := t.(*fakeTarget)
	if !ok || ft == nil || ft.tex.deleted {
		return
	}
	ft.tex.deleted = true
	f.liveTargets--
}

func (f *fakeRenderer) Dispose() { f.initialized = false }

var _ backend.Renderer = (*fakeRenderer)(nil)
