package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
	"github.com/gophoto/darkroom/internal/develop"
)

// uniformBuffer creates a per-call uniform buffer. Callers release it
// after submission; submitted command buffers keep their own reference.
func (b *Backend) uniformBuffer(label string, data []byte) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: %s uniform buffer: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// drawPass records one full-screen draw into view and submits it.
func (b *Backend) drawPass(pipeline *wgpu.RenderPipeline, group *wgpu.BindGroup,
	view *wgpu.TextureView, load wgpu.LoadOp) error {
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("webgpu: command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     load,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.Draw(4, 1, 0, 0)
	pass.End()
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: finish encoder: %w", err)
	}
	b.queue.Submit(cmd)
	cmd.Release()
	return nil
}

// clearPass resets a target to transparent black with an empty pass.
func (b *Backend) clearPass(t *wTarget) error {
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("webgpu: command encoder: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       t.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	pass.End()
	pass.Release()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: finish encoder: %w", err)
	}
	b.queue.Submit(cmd)
	cmd.Release()
	return nil
}

// ensureBlurPair (re)allocates the frequency-separation blur pair only
// when the input dimensions change.
func (b *Backend) ensureBlurPair(w, h int) error {
	if b.blurA != nil && b.blurW == w && b.blurH == h {
		return nil
	}
	b.releaseBlurPair()
	var err error
	if b.blurA, err = b.newTarget(w, h); err != nil {
		return err
	}
	if b.blurB, err = b.newTarget(w, h); err != nil {
		return err
	}
	b.blurW, b.blurH = w, h
	return nil
}

func (b *Backend) blurBindGroup(buf *wgpu.Buffer, input *wgpu.TextureView) (*wgpu.BindGroup, error) {
	return b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "blur bind group",
		Layout: b.blurLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Size: wgpu.WholeSize},
			{Binding: 1, Sampler: b.sampler},
			{Binding: 2, TextureView: input},
		},
	})
}

// blurInto runs the two separable gaussian passes from src into blurB.
func (b *Backend) blurInto(src *wTexture) error {
	if err := b.ensureBlurPair(src.width, src.height); err != nil {
		return err
	}
	run := func(input *wgpu.TextureView, dst *wTarget, dirX, dirY float32) error {
		buf, err := b.uniformBuffer("blur",
			packFloats(dirX, dirY, develop.ClarityBlurRadius, 0))
		if err != nil {
			return err
		}
		defer buf.Release()
		group, err := b.blurBindGroup(buf, input)
		if err != nil {
			return fmt.Errorf("webgpu: blur bind group: %w", err)
		}
		defer group.Release()
		return b.drawPass(b.blurPipeline, group, dst.view, wgpu.LoadOpClear)
	}
	if err := run(src.view, b.blurA, 1/float32(src.width), 0); err != nil {
		return err
	}
	return run(b.blurA.view, b.blurB, 0, 1/float32(src.height))
}

// developBindGroup assembles the full develop bind set. blurView and
// maskView fall back to the input view when a pass does not use them; the
// shader ignores the unused slot.
func (b *Backend) developBindGroup(buf *wgpu.Buffer, input, blurView, maskView *wgpu.TextureView) (*wgpu.BindGroup, error) {
	if blurView == nil {
		blurView = input
	}
	if maskView == nil {
		maskView = input
	}
	return b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "develop bind group",
		Layout: b.developLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Size: wgpu.WholeSize},
			{Binding: 1, Sampler: b.sampler},
			{Binding: 2, TextureView: input},
			{Binding: 3, TextureView: blurView},
			{Binding: 4, TextureView: b.curveView},
			{Binding: 5, TextureView: maskView},
		},
	})
}

// renderDevelopInto runs the develop pass from src into view.
func (b *Backend) renderDevelopInto(src *wTexture, params *darkroom.AdjustmentParams,
	pipeline *wgpu.RenderPipeline, view *wgpu.TextureView) error {
	n := develop.Normalize(params)
	useBlur := params != nil && params.NeedsBlur()

	var blurView *wgpu.TextureView
	if useBlur {
		if err := b.blurInto(src); err != nil {
			return err
		}
		blurView = b.blurB.view
	}

	b.writeTexture(&wTexture{tex: b.curveTex, width: 256, height: 1}, curveTableBytes(n.Curves))

	buf, err := b.uniformBuffer("develop", packAdjust(&n, curveMaskOf(n.Curves), useBlur))
	if err != nil {
		return err
	}
	defer buf.Release()
	group, err := b.developBindGroup(buf, src.view, blurView, nil)
	if err != nil {
		return fmt.Errorf("webgpu: develop bind group: %w", err)
	}
	defer group.Release()
	return b.drawPass(pipeline, group, view, wgpu.LoadOpClear)
}

func (b *Backend) RenderDevelop(input backend.Texture, params *darkroom.AdjustmentParams, dst backend.Target) error {
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	src, err := asTexture(input)
	if err != nil {
		return err
	}

	if dst == nil {
		if err := b.presentSurface(func(view *wgpu.TextureView) error {
			return b.renderDevelopInto(src, params, b.developSurface, view)
		}); err != nil {
			return err
		}
		b.recordLast(src, params, nil, true)
		return nil
	}

	target, err := asTarget(dst)
	if err != nil {
		return err
	}
	if err := b.renderDevelopInto(src, params, b.developTarget, target.view); err != nil {
		return err
	}
	b.recordLast(src, params, target, false)
	return nil
}

func (b *Backend) RenderPassthrough(input backend.Texture, dst backend.Target) error {
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	src, err := asTexture(input)
	if err != nil {
		return err
	}

	draw := func(pipeline *wgpu.RenderPipeline, view *wgpu.TextureView) error {
		group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "passthrough bind group",
			Layout: b.passthroughLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Sampler: b.sampler},
				{Binding: 1, TextureView: src.view},
			},
		})
		if err != nil {
			return fmt.Errorf("webgpu: passthrough bind group: %w", err)
		}
		defer group.Release()
		return b.drawPass(pipeline, group, view, wgpu.LoadOpClear)
	}

	if dst == nil {
		if err := b.presentSurface(func(view *wgpu.TextureView) error {
			return draw(b.passthroughSurface, view)
		}); err != nil {
			return err
		}
		b.recordLast(src, nil, nil, true)
		return nil
	}
	target, err := asTarget(dst)
	if err != nil {
		return err
	}
	if err := draw(b.passthroughTarget, target.view); err != nil {
		return err
	}
	b.recordLast(src, nil, target, false)
	return nil
}

func (b *Backend) RenderMasked(base, mask backend.Texture, params *darkroom.AdjustmentParams, dst backend.Target) error {
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	src, err := asTexture(base)
	if err != nil {
		return err
	}
	mtex, err := asTexture(mask)
	if err != nil {
		return err
	}
	target, err := asTarget(dst)
	if err != nil {
		return err
	}

	n := develop.Normalize(params)
	b.writeTexture(&wTexture{tex: b.curveTex, width: 256, height: 1}, curveTableBytes(n.Curves))

	buf, err := b.uniformBuffer("masked", packAdjust(&n, curveMaskOf(n.Curves), false))
	if err != nil {
		return err
	}
	defer buf.Release()
	group, err := b.developBindGroup(buf, src.view, nil, mtex.view)
	if err != nil {
		return fmt.Errorf("webgpu: masked bind group: %w", err)
	}
	defer group.Release()
	return b.drawPass(b.maskedTarget, group, target.view, wgpu.LoadOpClear)
}

func (b *Backend) paramBindGroup(label string, buf *wgpu.Buffer) (*wgpu.BindGroup, error) {
	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  b.paramLayout,
		Entries: []wgpu.BindGroupEntry{{Binding: 0, Buffer: buf, Size: wgpu.WholeSize}},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: %s bind group: %w", label, err)
	}
	return group, nil
}

// PaintStamp blends one brush stamp into the mask target. The erase
// pipeline scales existing coverage by one minus the stamp alpha, so
// repeated erasing only ever decreases coverage.
func (b *Backend) PaintStamp(dst backend.Target, s backend.Stamp) error {
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	target, err := asTarget(dst)
	if err != nil {
		return err
	}
	buf, err := b.uniformBuffer("stamp",
		packFloats(s.X, s.Y, s.Radius, s.Hardness, s.Strength, 0, 0, 0))
	if err != nil {
		return err
	}
	defer buf.Release()
	group, err := b.paramBindGroup("stamp", buf)
	if err != nil {
		return err
	}
	defer group.Release()

	pipeline := b.stampAdd
	if s.Erase {
		pipeline = b.stampErase
	}
	return b.drawPass(pipeline, group, target.view, wgpu.LoadOpLoad)
}

func (b *Backend) PaintShape(dst backend.Target, sh backend.Shape) error {
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	target, err := asTarget(dst)
	if err != nil {
		return err
	}
	var kind float32
	switch sh.Kind {
	case backend.ShapeRadial:
		kind = 0
	case backend.ShapeLinear:
		kind = 1
	default:
		return fmt.Errorf("webgpu: unknown shape kind %d", sh.Kind)
	}
	var invert float32
	if sh.Invert {
		invert = 1
	}
	buf, err := b.uniformBuffer("shape", packFloats(
		sh.CX, sh.CY, sh.Inner, sh.Outer,
		sh.X1, sh.Y1, sh.X2, sh.Y2,
		sh.Feather, kind, invert, 0))
	if err != nil {
		return err
	}
	defer buf.Release()
	group, err := b.paramBindGroup("shape", buf)
	if err != nil {
		return err
	}
	defer group.Release()
	return b.drawPass(b.shapePipeline, group, target.view, wgpu.LoadOpClear)
}

func (b *Backend) ClearTarget(dst backend.Target) error {
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	target, err := asTarget(dst)
	if err != nil {
		return err
	}
	return b.clearPass(target)
}

// presentSurface acquires the current surface texture, lets render draw
// into it and presents the frame.
func (b *Backend) presentSurface(render func(view *wgpu.TextureView) error) error {
	if b.surface == nil || b.developSurface == nil {
		return fmt.Errorf("webgpu: no presentation surface configured")
	}
	frame, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("webgpu: acquire surface texture: %w", err)
	}
	view, err := frame.CreateView(nil)
	if err != nil {
		frame.Release()
		return fmt.Errorf("webgpu: surface view: %w", err)
	}
	renderErr := render(view)
	view.Release()
	if renderErr == nil {
		b.surface.Present()
	}
	frame.Release()
	return renderErr
}

func (b *Backend) recordLast(src *wTexture, params *darkroom.AdjustmentParams,
	target *wTarget, surface bool) {
	b.lastInput = src
	b.lastTarget = target
	b.lastSurface = surface
	b.lastParams = nil
	if params != nil {
		b.lastParams = params.Clone()
	}
	b.lastValid = true
}

// ReadPixels copies a texture back to the CPU. With a nil texture the
// last develop output is returned; a frame that went to the window
// surface is replayed into a scratch target first, since surface textures
// cannot be read back after presentation.
func (b *Backend) ReadPixels(src backend.Texture) (*darkroom.Pixmap, error) {
	if !b.initialized {
		return nil, backend.ErrNotInitialized
	}
	if src != nil {
		tex, err := asTexture(src)
		if err != nil {
			return nil, err
		}
		return b.readTexture(tex)
	}
	if !b.lastValid || (b.lastInput == nil && b.lastTarget == nil) {
		return nil, fmt.Errorf("webgpu: no frame rendered yet")
	}
	if b.lastTarget != nil {
		return b.readTexture(b.lastTarget.wTexture)
	}

	// Replay the surface frame offscreen.
	scratch, err := b.newTarget(b.lastInput.width, b.lastInput.height)
	if err != nil {
		return nil, err
	}
	defer scratch.release()
	if b.lastParams != nil {
		err = b.renderDevelopInto(b.lastInput, b.lastParams, b.developTarget, scratch.view)
	} else {
		err = b.passthroughInto(b.lastInput, scratch)
	}
	if err != nil {
		return nil, err
	}
	return b.readTexture(scratch.wTexture)
}

// passthroughInto is the offscreen passthrough used by surface replay; it
// does not touch the replay state.
func (b *Backend) passthroughInto(src *wTexture, dst *wTarget) error {
	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "passthrough bind group",
		Layout: b.passthroughLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Sampler: b.sampler},
			{Binding: 1, TextureView: src.view},
		},
	})
	if err != nil {
		return fmt.Errorf("webgpu: passthrough bind group: %w", err)
	}
	defer group.Release()
	return b.drawPass(b.passthroughTarget, group, dst.view, wgpu.LoadOpClear)
}
