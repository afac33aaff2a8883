package gl

import (
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
	"github.com/gophoto/darkroom/internal/develop"
)

// bindDestination binds the draw framebuffer for dst (nil means the window
// surface), sets the viewport and returns the matching quad VAO.
func (b *Backend) bindDestination(dst *glTarget) uint32 {
	if dst == nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(b.surfaceW), int32(b.surfaceH))
		return b.vaoScreen
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, dst.fbo)
	gl.Viewport(0, 0, int32(dst.tex.width), int32(dst.tex.height))
	return b.vaoTarget
}

func drawQuad(vao uint32) {
	gl.BindVertexArray(vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)
}

func bindTextureUnit(unit uint32, tex uint32, loc int32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Uniform1i(loc, int32(unit))
}

// uploadCurves packs the four tone curves into the shared 256x1 lookup
// texture and returns the channel bitmask for uCurveMask.
func (b *Backend) uploadCurves(curves [4]*darkroom.ToneCurve) int32 {
	var mask int32
	for i, c := range curves {
		if c != nil {
			mask |= 1 << i
		}
	}
	if mask == 0 {
		return 0
	}
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
	gl.BindTexture(gl.TEXTURE_2D, b.curveTex)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, 256, 1, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(buf))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return mask
}

// setDevelopUniforms uploads one Normalized snapshot into a develop-family
// program. The program must already be in use.
func (b *Backend) setDevelopUniforms(u developLocs, n *develop.Normalized) {
	gl.Uniform1f(u.exposure, n.Exposure)
	gl.Uniform1f(u.contrast, n.Contrast)
	gl.Uniform1f(u.highlights, n.Highlights)
	gl.Uniform1f(u.shadows, n.Shadows)
	gl.Uniform1f(u.whites, n.Whites)
	gl.Uniform1f(u.blacks, n.Blacks)
	gl.Uniform1f(u.temperature, n.Temperature)
	gl.Uniform1f(u.tint, n.Tint)
	gl.Uniform1f(u.vibrance, n.Vibrance)
	gl.Uniform1f(u.saturation, n.Saturation)
	gl.Uniform1f(u.clarity, n.Clarity)
	gl.Uniform1f(u.structure, n.Structure)
	gl.Uniform1f(u.dehaze, n.Dehaze)

	if n.HasHSL() {
		gl.Uniform1fv(u.hueShift, 8, &n.HueShift[0])
		gl.Uniform1fv(u.satScale, 8, &n.SatScale[0])
		gl.Uniform1fv(u.lumScale, 8, &n.LumScale[0])
		gl.Uniform1i(u.hasHSL, 1)
	} else {
		gl.Uniform1i(u.hasHSL, 0)
	}

	mask := b.uploadCurves(n.Curves)
	gl.Uniform1i(u.curveMask, mask)
	bindTextureUnit(2, b.curveTex, u.curveTex)
}

// ensureBlurPair (re)allocates the ping-pong pair used for the
// frequency-separation pre-blur. Reallocation happens only when the input
// dimensions change.
func (b *Backend) ensureBlurPair(w, h int) error {
	if b.blurA != nil && b.blurW == w && b.blurH == h {
		return nil
	}
	b.releaseBlurPair()
	var err error
	if b.blurA, err = newTarget(w, h); err != nil {
		return err
	}
	if b.blurB, err = newTarget(w, h); err != nil {
		return err
	}
	b.blurW, b.blurH = w, h
	return nil
}

// blurInto runs the two separable gaussian passes from src into blurB.
func (b *Backend) blurInto(src *glTexture) error {
	if err := b.ensureBlurPair(src.width, src.height); err != nil {
		return err
	}
	gl.UseProgram(b.progBlur)
	gl.Uniform1f(b.blurU.radius, develop.ClarityBlurRadius)

	// Horizontal: src -> blurA.
	vao := b.bindDestination(b.blurA)
	bindTextureUnit(0, src.id, b.blurU.input)
	gl.Uniform2f(b.blurU.direction, 1/float32(src.width), 0)
	drawQuad(vao)

	// Vertical: blurA -> blurB.
	vao = b.bindDestination(b.blurB)
	bindTextureUnit(0, b.blurA.tex.id, b.blurU.input)
	gl.Uniform2f(b.blurU.direction, 0, 1/float32(src.height))
	drawQuad(vao)
	return nil
}

func (b *Backend) RenderDevelop(input backend.Texture, params *darkroom.AdjustmentParams, dst backend.Target) error {
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	src, err := asTexture(input)
	if err != nil {
		return err
	}
	var target *glTarget
	if dst != nil {
		if target, err = asTarget(dst); err != nil {
			return err
		}
	}

	n := develop.Normalize(params)
	useBlur := params != nil && params.NeedsBlur()
	if useBlur {
		if err := b.blurInto(src); err != nil {
			return err
		}
	}

	vao := b.bindDestination(target)
	gl.UseProgram(b.progDevelop)
	b.setDevelopUniforms(b.developU, &n)
	bindTextureUnit(0, src.id, b.developU.input)
	if useBlur {
		bindTextureUnit(1, b.blurB.tex.id, b.developU.blurTex)
		gl.Uniform1i(b.developU.useBlur, 1)
	} else {
		bindTextureUnit(1, src.id, b.developU.blurTex)
		gl.Uniform1i(b.developU.useBlur, 0)
	}
	drawQuad(vao)

	b.lastTarget = target
	b.lastValid = true
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
	var target *glTarget
	if dst != nil {
		if target, err = asTarget(dst); err != nil {
			return err
		}
	}
	vao := b.bindDestination(target)
	gl.UseProgram(b.progPassthrough)
	bindTextureUnit(0, src.id, uniformLoc(b.progPassthrough, "uInput"))
	drawQuad(vao)

	b.lastTarget = target
	b.lastValid = true
	return nil
}

func (b *Backend) RenderMasked(base backend.Texture, mask backend.Texture, params *darkroom.AdjustmentParams, dst backend.Target) error {
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
	vao := b.bindDestination(target)
	gl.UseProgram(b.progMasked)
	b.setDevelopUniforms(b.maskedU, &n)
	bindTextureUnit(0, src.id, b.maskedU.input)
	bindTextureUnit(1, mtex.id, b.maskU)
	drawQuad(vao)
	return nil
}

// PaintStamp blends one brush stamp into the mask target. Erase scales the
// existing coverage by one minus the stamp alpha, so repeated erasing only
// ever decreases coverage.
func (b *Backend) PaintStamp(dst backend.Target, s backend.Stamp) error {
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	target, err := asTarget(dst)
	if err != nil {
		return err
	}
	vao := b.bindDestination(target)
	gl.UseProgram(b.progStamp)
	// Offscreen targets share row order with image space, so no y flip.
	gl.Uniform2f(b.stampU.center, s.X, s.Y)
	gl.Uniform1f(b.stampU.radius, s.Radius)
	gl.Uniform1f(b.stampU.hardness, s.Hardness)
	gl.Uniform1f(b.stampU.strength, s.Strength)

	gl.Enable(gl.BLEND)
	if s.Erase {
		gl.BlendFunc(gl.ZERO, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	}
	drawQuad(vao)
	gl.Disable(gl.BLEND)
	return nil
}

func (b *Backend) PaintShape(dst backend.Target, sh backend.Shape) error {
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	target, err := asTarget(dst)
	if err != nil {
		return err
	}
	vao := b.bindDestination(target)
	gl.UseProgram(b.progShape)
	switch sh.Kind {
	case backend.ShapeRadial:
		gl.Uniform1i(b.shapeU.kind, 0)
	case backend.ShapeLinear:
		gl.Uniform1i(b.shapeU.kind, 1)
	default:
		return fmt.Errorf("gl: unknown shape kind %d", sh.Kind)
	}
	gl.Uniform2f(b.shapeU.center, sh.CX, sh.CY)
	gl.Uniform1f(b.shapeU.inner, sh.Inner)
	gl.Uniform1f(b.shapeU.outer, sh.Outer)
	gl.Uniform2f(b.shapeU.p0, sh.X1, sh.Y1)
	gl.Uniform2f(b.shapeU.p1, sh.X2, sh.Y2)
	gl.Uniform1f(b.shapeU.feather, sh.Feather)
	if sh.Invert {
		gl.Uniform1i(b.shapeU.invert, 1)
	} else {
		gl.Uniform1i(b.shapeU.invert, 0)
	}
	drawQuad(vao)
	return nil
}

func (b *Backend) ClearTarget(dst backend.Target) error {
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	target, err := asTarget(dst)
	if err != nil {
		return err
	}
	b.bindDestination(target)
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	return nil
}

// ReadPixels copies a texture (or, with nil, the most recent render
// destination) back to the CPU.
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
	if !b.lastValid {
		return nil, fmt.Errorf("gl: no frame rendered yet")
	}
	if b.lastTarget != nil {
		return b.readTexture(b.lastTarget.tex)
	}
	return b.readSurface()
}
