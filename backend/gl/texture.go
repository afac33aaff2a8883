package gl

import (
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
)

// glTexture is an RGBA8 texture owned by the caller.
type glTexture struct {
	id            uint32
	width, height int
}

func (t *glTexture) Size() (int, int) { return t.width, t.height }

// glTarget pairs a texture with the framebuffer that renders into it.
type glTarget struct {
	tex *glTexture
	fbo uint32
}

func (t *glTarget) Texture() backend.Texture { return t.tex }

func asTexture(t backend.Texture) (*glTexture, error) {
	gt, ok := t.(*glTexture)
	if !ok {
		return nil, fmt.Errorf("%w: %T", backend.ErrForeignHandle, t)
	}
	return gt, nil
}

func asTarget(t backend.Target) (*glTarget, error) {
	gt, ok := t.(*glTarget)
	if !ok {
		return nil, fmt.Errorf("%w: %T", backend.ErrForeignHandle, t)
	}
	return gt, nil
}

func newTexture(width, height int, data []byte) *glTexture {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	if data != nil {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(data))
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, nil)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return &glTexture{id: id, width: width, height: height}
}

func (b *Backend) CreateTextureFromImage(pm *darkroom.Pixmap) (backend.Texture, error) {
	if !b.initialized {
		return nil, backend.ErrNotInitialized
	}
	return newTexture(pm.Width(), pm.Height(), pm.Data()), nil
}

func (b *Backend) CreateTexture(width, height int) (backend.Texture, error) {
	if !b.initialized {
		return nil, backend.ErrNotInitialized
	}
	return newTexture(width, height, nil), nil
}

func (b *Backend) CreateTarget(width, height int) (backend.Target, error) {
	if !b.initialized {
		return nil, backend.ErrNotInitialized
	}
	return newTarget(width, height)
}

func newTarget(width, height int) (*glTarget, error) {
	tex := newTexture(width, height, nil)
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex.id, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if status != gl.FRAMEBUFFER_COMPLETE {
		darkroom.Logger().Warn("gl: framebuffer incomplete", "status", status,
			"width", width, "height", height)
	} else {
		gl.ClearColor(0, 0, 0, 0)
		gl.Clear(gl.COLOR_BUFFER_BIT)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return &glTarget{tex: tex, fbo: fbo}, nil
}

func (b *Backend) DeleteTexture(t backend.Texture) {
	gt, ok := t.(*glTexture)
	if !ok || gt == nil {
		return
	}
	gl.DeleteTextures(1, &gt.id)
	gt.id = 0
}

func (b *Backend) DeleteTarget(t backend.Target) {
	gt, ok := t.(*glTarget)
	if !ok || gt == nil {
		return
	}
	if b.lastTarget == gt {
		b.lastTarget = nil
		b.lastValid = false
	}
	gl.DeleteFramebuffers(1, &gt.fbo)
	gl.DeleteTextures(1, &gt.tex.id)
	gt.fbo = 0
	gt.tex.id = 0
}

// readTexture pulls an RGBA8 texture back into a Pixmap through a scratch
// framebuffer. Rows come back in texture order, which matches image order
// for offscreen targets.
func (b *Backend) readTexture(tex *glTexture) (*darkroom.Pixmap, error) {
	if b.scratchFBO == 0 {
		gl.GenFramebuffers(1, &b.scratchFBO)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, b.scratchFBO)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex.id, 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return nil, fmt.Errorf("gl: readback framebuffer incomplete: 0x%x", status)
	}
	pm := darkroom.NewPixmap(tex.width, tex.height)
	gl.ReadPixels(0, 0, int32(tex.width), int32(tex.height),
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pm.Data()))
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return pm, nil
}

// readSurface reads the default framebuffer. The window's row order is
// bottom-up, so rows are flipped into image order.
func (b *Backend) readSurface() (*darkroom.Pixmap, error) {
	w, h := b.surfaceW, b.surfaceH
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("gl: surface size not set")
	}
	pm := darkroom.NewPixmap(w, h)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pm.Data()))
	data := pm.Data()
	stride := w * 4
	row := make([]byte, stride)
	for y := 0; y < h/2; y++ {
		top := data[y*stride : y*stride+stride]
		bot := data[(h-1-y)*stride : (h-1-y)*stride+stride]
		copy(row, top)
		copy(top, bot)
		copy(bot, row)
	}
	return pm, nil
}
