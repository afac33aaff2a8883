// Package render drives the per-image develop pipeline and the layer
// compositor on top of an abstract backend.Renderer.
package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
)

var (
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New("render: no image loaded")

	// ErrNoActiveLayer is returned by paint operations without an
	// active layer.
	ErrNoActiveLayer = errors.New("render: no active layer")
)

// Processor owns the input texture and the global adjustment state of one
// image. The input texture field is never observable as nil or deleted
// while an image is loaded: replacement creates the new texture first,
// swaps, re-renders and only then deletes the old one.
type Processor struct {
	r      backend.Renderer
	params *darkroom.AdjustmentParams

	input     backend.Texture
	processed backend.Target

	width, height int
}

// NewProcessor wraps an initialized renderer.
func NewProcessor(r backend.Renderer) *Processor {
	return &Processor{
		r:      r,
		params: &darkroom.AdjustmentParams{},
	}
}

// Size returns the dimensions of the loaded image, zero before any load.
func (p *Processor) Size() (int, int) { return p.width, p.height }

// Params returns the live global adjustment set.
func (p *Processor) Params() *darkroom.AdjustmentParams { return p.params }

// Loaded reports whether an image is resident.
func (p *Processor) Loaded() bool { return p.input != nil }

// LoadImage uploads a new source image. The handoff is ordered so a
// render issued at any point sees a complete texture: upload the new
// texture, swap the field, render, then delete the previous texture.
func (p *Processor) LoadImage(pm *darkroom.Pixmap) error {
	tex, err := p.r.CreateTextureFromImage(pm)
	if err != nil {
		return fmt.Errorf("render: upload image: %w", err)
	}

	old := p.input
	p.input = tex

	resized := pm.Width() != p.width || pm.Height() != p.height
	p.width, p.height = pm.Width(), pm.Height()
	if resized && p.processed != nil {
		p.r.DeleteTarget(p.processed)
		p.processed = nil
	}

	renderErr := p.renderProcessed()

	if old != nil {
		p.r.DeleteTexture(old)
	}
	if renderErr != nil {
		return fmt.Errorf("render: initial develop: %w", renderErr)
	}
	darkroom.Logger().Info("image loaded", "width", p.width, "height", p.height)
	return nil
}

// ensureProcessed allocates the reusable develop output target.
func (p *Processor) ensureProcessed() error {
	if p.processed != nil {
		return nil
	}
	t, err := p.r.CreateTarget(p.width, p.height)
	if err != nil {
		return fmt.Errorf("render: processed target: %w", err)
	}
	p.processed = t
	return nil
}

func (p *Processor) renderProcessed() error {
	if err := p.ensureProcessed(); err != nil {
		return err
	}
	return p.r.RenderDevelop(p.input, p.params, p.processed)
}

// SetParam updates one named adjustment and synchronously re-renders the
// processed output so every caller observes the new value.
func (p *Processor) SetParam(name string, value float32) error {
	if err := p.params.Set(name, value); err != nil {
		return err
	}
	if p.input == nil {
		return nil
	}
	return p.renderProcessed()
}

// SetParams replaces the whole adjustment set and re-renders.
func (p *Processor) SetParams(params *darkroom.AdjustmentParams) error {
	p.params = params.Clone()
	if p.input == nil {
		return nil
	}
	return p.renderProcessed()
}

// Render draws the developed image to the presentation surface.
func (p *Processor) Render() error {
	if p.input == nil {
		return ErrNoImage
	}
	return p.r.RenderDevelop(p.input, p.params, nil)
}

// RenderToTexture develops into the reusable offscreen target and returns
// its texture, ready for compositing.
func (p *Processor) RenderToTexture() (backend.Texture, error) {
	if p.input == nil {
		return nil, ErrNoImage
	}
	if err := p.renderProcessed(); err != nil {
		return nil, err
	}
	return p.processed.Texture(), nil
}

// RenderOriginal shows the unadjusted input on the surface.
func (p *Processor) RenderOriginal() error {
	if p.input == nil {
		return ErrNoImage
	}
	return p.r.RenderPassthrough(p.input, nil)
}

// BlitToCanvas presents an already-rendered texture, typically the
// compositor's output.
func (p *Processor) BlitToCanvas(tex backend.Texture) error {
	return p.r.RenderPassthrough(tex, nil)
}

// Export develops at full resolution offscreen and reads the result back.
func (p *Processor) Export() (*darkroom.Pixmap, error) {
	if p.input == nil {
		return nil, ErrNoImage
	}
	if err := p.renderProcessed(); err != nil {
		return nil, err
	}
	return p.r.ReadPixels(p.processed.Texture())
}

// ExportImage is Export adapted to the standard image interfaces.
func (p *Processor) ExportImage() (image.Image, error) {
	pm, err := p.Export()
	if err != nil {
		return nil, err
	}
	return pm.ToImage(), nil
}

// Histogram reads back the pre-adjustment input, the data histograms are
// computed from.
func (p *Processor) Histogram() (*darkroom.Pixmap, error) {
	if p.input == nil {
		return nil, ErrNoImage
	}
	return p.r.ReadPixels(p.input)
}

// Close frees the processor's textures. The renderer stays usable.
func (p *Processor) Close() {
	if p.input != nil {
		p.r.DeleteTexture(p.input)
		p.input = nil
	}
	if p.processed != nil {
		p.r.DeleteTarget(p.processed)
		p.processed = nil
	}
	p.width, p.height = 0, 0
}
