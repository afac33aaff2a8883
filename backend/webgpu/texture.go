package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
)

// wTexture is an RGBA8 texture with its cached default view.
type wTexture struct {
	tex           *wgpu.Texture
	view          *wgpu.TextureView
	width, height int
}

func (t *wTexture) Size() (int, int) { return t.width, t.height }

func (t *wTexture) release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

// wTarget is a texture usable as a render attachment.
type wTarget struct {
	*wTexture
}

func (t *wTarget) Texture() backend.Texture { return t.wTexture }

func asTexture(t backend.Texture) (*wTexture, error) {
	switch v := t.(type) {
	case *wTexture:
		return v, nil
	case *wTarget:
		return v.wTexture, nil
	}
	return nil, fmt.Errorf("%w: %T", backend.ErrForeignHandle, t)
}

func asTarget(t backend.Target) (*wTarget, error) {
	v, ok := t.(*wTarget)
	if !ok {
		return nil, fmt.Errorf("%w: %T", backend.ErrForeignHandle, t)
	}
	return v, nil
}

func (b *Backend) newTexture(width, height int, usage wgpu.TextureUsage, label string) (*wTexture, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        targetFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("webgpu: create texture view: %w", err)
	}
	return &wTexture{tex: tex, view: view, width: width, height: height}, nil
}

func (b *Backend) writeTexture(t *wTexture, pixels []byte) {
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(t.width * 4),
			RowsPerImage: uint32(t.height),
		},
		&wgpu.Extent3D{
			Width:              uint32(t.width),
			Height:             uint32(t.height),
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *Backend) CreateTextureFromImage(pm *darkroom.Pixmap) (backend.Texture, error) {
	if !b.initialized {
		return nil, backend.ErrNotInitialized
	}
	t, err := b.newTexture(pm.Width(), pm.Height(),
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst|wgpu.TextureUsageCopySrc,
		"image texture")
	if err != nil {
		return nil, err
	}
	b.writeTexture(t, pm.Data())
	return t, nil
}

func (b *Backend) CreateTexture(width, height int) (backend.Texture, error) {
	if !b.initialized {
		return nil, backend.ErrNotInitialized
	}
	return b.newTexture(width, height,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst|wgpu.TextureUsageCopySrc,
		"texture")
}

func (b *Backend) CreateTarget(width, height int) (backend.Target, error) {
	if !b.initialized {
		return nil, backend.ErrNotInitialized
	}
	t, err := b.newTarget(width, height)
	if err != nil {
		return nil, err
	}
	// Contract: fresh targets start fully transparent.
	if err := b.clearPass(t); err != nil {
		t.release()
		return nil, err
	}
	return t, nil
}

func (b *Backend) newTarget(width, height int) (*wTarget, error) {
	t, err := b.newTexture(width, height,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc,
		"render target")
	if err != nil {
		return nil, err
	}
	return &wTarget{wTexture: t}, nil
}

func (b *Backend) DeleteTexture(t backend.Texture) {
	wt, ok := t.(*wTexture)
	if !ok || wt == nil {
		return
	}
	if b.lastInput == wt {
		b.lastInput = nil
		b.lastValid = false
	}
	wt.release()
}

func (b *Backend) DeleteTarget(t backend.Target) {
	wt, ok := t.(*wTarget)
	if !ok || wt == nil {
		return
	}
	if b.lastTarget == wt {
		b.lastTarget = nil
		b.lastValid = false
	}
	wt.release()
}

// readTexture copies a texture into a mapped staging buffer and unpacks
// the 256-byte aligned rows into a pixmap.
func (b *Backend) readTexture(t *wTexture) (*darkroom.Pixmap, error) {
	const rowAlign = 256
	paddedRow := (t.width*4 + rowAlign - 1) / rowAlign * rowAlign
	size := uint64(paddedRow * t.height)

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: readback buffer: %w", err)
	}
	defer buf.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("webgpu: readback encoder: %w", err)
	}
	defer encoder.Release()
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(paddedRow),
				RowsPerImage: uint32(t.height),
			},
		},
		&wgpu.Extent3D{
			Width:              uint32(t.width),
			Height:             uint32(t.height),
			DepthOrArrayLayers: 1,
		},
	)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("webgpu: readback finish: %w", err)
	}
	b.queue.Submit(cmd)
	cmd.Release()

	var mapErr error
	done := false
	err = buf.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("webgpu: map readback buffer: status %v", status)
		}
		done = true
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: map readback buffer: %w", err)
	}
	for !done {
		b.device.Poll(true, nil)
	}
	if mapErr != nil {
		return nil, mapErr
	}
	defer buf.Unmap()

	src := buf.GetMappedRange(0, uint(size))
	pm := darkroom.NewPixmap(t.width, t.height)
	dst := pm.Data()
	rowBytes := t.width * 4
	for y := 0; y < t.height; y++ {
		copy(dst[y*rowBytes:(y+1)*rowBytes], src[y*paddedRow:y*paddedRow+rowBytes])
	}
	return pm, nil
}
