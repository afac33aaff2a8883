// Package gl implements the OpenGL 3.3 core renderer. It draws each pass
// immediately with bind-and-draw state changes and keeps no retained scene.
//
// The package registers itself with the backend registry on import:
//
//	import _ "github.com/gophoto/darkroom/backend/gl"
//
// Init requires a current OpenGL context on the calling goroutine; the
// caller owns window and context creation (typically through GLFW).
package gl

import (
	_ "embed"
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/gophoto/darkroom/backend"
)

//go:embed shaders/quad.vert
var quadVertSrc string

//go:embed shaders/develop_common.glsl
var developCommonSrc string

//go:embed shaders/develop.frag
var developFragSrc string

//go:embed shaders/masked.frag
var maskedFragSrc string

//go:embed shaders/passthrough.frag
var passthroughFragSrc string

//go:embed shaders/blur.frag
var blurFragSrc string

//go:embed shaders/stamp.frag
var stampFragSrc string

//go:embed shaders/shape.frag
var shapeFragSrc string

func init() {
	backend.Register(backend.BackendGL, func() backend.Renderer { return New() })
}

// Backend is the bind-and-draw OpenGL renderer.
type Backend struct {
	initialized bool

	surfaceW, surfaceH int

	progPassthrough uint32
	progDevelop     uint32
	progMasked      uint32
	progBlur        uint32
	progStamp       uint32
	progShape       uint32

	developU developLocs
	maskedU  developLocs
	maskU    int32 // masked program's mask sampler

	blurU  blurLocs
	stampU stampLocs
	shapeU shapeLocs

	quadVBO    uint32
	texFlipVBO uint32 // v flipped, for the on-screen surface
	texNormVBO uint32 // texture-oriented, for offscreen targets
	vaoScreen  uint32
	vaoTarget  uint32

	curveTex   uint32
	scratchFBO uint32

	// Blur pair reallocated only when the input dimensions change.
	blurA, blurB *glTarget
	blurW, blurH int

	// Last develop call, replayed by ReadPixels(nil).
	lastTarget *glTarget
	lastValid  bool
}

type blurLocs struct {
	input, direction, radius int32
}

type stampLocs struct {
	center, radius, hardness, strength int32
}

type shapeLocs struct {
	kind, center, inner, outer int32
	p0, p1, feather, invert    int32
}

// New returns an uninitialized renderer. Call Init before use.
func New() *Backend { return &Backend{} }

var _ backend.Renderer = (*Backend)(nil)

func (b *Backend) Name() string { return backend.BackendGL }

// Init loads function pointers, compiles every program and allocates the
// shared quad geometry. Any failure tears down everything created so far
// and leaves the receiver unusable.
func (b *Backend) Init() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl: load functions: %w", err)
	}

	fail := func(err error) error {
		b.Dispose()
		return err
	}

	common := "#version 330 core\n" + developCommonSrc

	var err error
	if b.progPassthrough, err = linkProgram(quadVertSrc, passthroughFragSrc); err != nil {
		return fail(err)
	}
	if b.progDevelop, err = linkProgram(quadVertSrc, common+developFragSrc); err != nil {
		return fail(err)
	}
	if b.progMasked, err = linkProgram(quadVertSrc, common+maskedFragSrc); err != nil {
		return fail(err)
	}
	if b.progBlur, err = linkProgram(quadVertSrc, blurFragSrc); err != nil {
		return fail(err)
	}
	if b.progStamp, err = linkProgram(quadVertSrc, stampFragSrc); err != nil {
		return fail(err)
	}
	if b.progShape, err = linkProgram(quadVertSrc, shapeFragSrc); err != nil {
		return fail(err)
	}

	b.developU = lookupDevelopLocs(b.progDevelop)
	b.maskedU = lookupDevelopLocs(b.progMasked)
	b.maskU = uniformLoc(b.progMasked, "uMask")
	b.blurU = blurLocs{
		input:     uniformLoc(b.progBlur, "uInput"),
		direction: uniformLoc(b.progBlur, "uDirection"),
		radius:    uniformLoc(b.progBlur, "uRadius"),
	}
	b.stampU = stampLocs{
		center:   uniformLoc(b.progStamp, "uCenter"),
		radius:   uniformLoc(b.progStamp, "uRadius"),
		hardness: uniformLoc(b.progStamp, "uHardness"),
		strength: uniformLoc(b.progStamp, "uStrength"),
	}
	b.shapeU = shapeLocs{
		kind:    uniformLoc(b.progShape, "uKind"),
		center:  uniformLoc(b.progShape, "uCenter"),
		inner:   uniformLoc(b.progShape, "uInner"),
		outer:   uniformLoc(b.progShape, "uOuter"),
		p0:      uniformLoc(b.progShape, "uP0"),
		p1:      uniformLoc(b.progShape, "uP1"),
		feather: uniformLoc(b.progShape, "uFeather"),
		invert:  uniformLoc(b.progShape, "uInvert"),
	}

	b.initGeometry()
	b.initCurveTexture()

	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)

	b.initialized = true
	return nil
}

// initGeometry uploads one full-screen triangle strip and the two texcoord
// sets. Offscreen targets share the texture's row order with uploaded
// images; the window surface is bottom-up, so its texcoords flip v.
func (b *Backend) initGeometry() {
	positions := []float32{
		-1, -1,
		1, -1,
		-1, 1,
		1, 1,
	}
	texNorm := []float32{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
	}
	texFlip := []float32{
		0, 1,
		1, 1,
		0, 0,
		1, 0,
	}

	gl.GenBuffers(1, &b.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(positions)*4, gl.Ptr(positions), gl.STATIC_DRAW)

	gl.GenBuffers(1, &b.texNormVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.texNormVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(texNorm)*4, gl.Ptr(texNorm), gl.STATIC_DRAW)

	gl.GenBuffers(1, &b.texFlipVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.texFlipVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(texFlip)*4, gl.Ptr(texFlip), gl.STATIC_DRAW)

	b.vaoTarget = b.makeQuadVAO(b.texNormVBO)
	b.vaoScreen = b.makeQuadVAO(b.texFlipVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (b *Backend) makeQuadVAO(texVBO uint32) uint32 {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.quadVBO)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 0, nil)
	gl.BindBuffer(gl.ARRAY_BUFFER, texVBO)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 0, nil)
	gl.BindVertexArray(0)
	return vao
}

// initCurveTexture allocates the 256x1 RGBA curve lookup texture. The four
// channels carry the master, red, green and blue curves.
func (b *Backend) initCurveTexture() {
	gl.GenTextures(1, &b.curveTex)
	gl.BindTexture(gl.TEXTURE_2D, b.curveTex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, 256, 1, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// Resize records the window surface size. GLFW owns the actual drawable;
// the size is only needed for viewports and surface readback.
func (b *Backend) Resize(width, height int) {
	b.surfaceW, b.surfaceH = width, height
}

// Dispose releases every GL object the renderer owns. Textures and targets
// handed to callers stay alive until the caller deletes them.
func (b *Backend) Dispose() {
	del := func(p *uint32, f func(int32, *uint32)) {
		if *p != 0 {
			f(1, p)
			*p = 0
		}
	}
	for _, prog := range []*uint32{
		&b.progPassthrough, &b.progDevelop, &b.progMasked,
		&b.progBlur, &b.progStamp, &b.progShape,
	} {
		if *prog != 0 {
			gl.DeleteProgram(*prog)
			*prog = 0
		}
	}
	del(&b.quadVBO, gl.DeleteBuffers)
	del(&b.texNormVBO, gl.DeleteBuffers)
	del(&b.texFlipVBO, gl.DeleteBuffers)
	del(&b.vaoScreen, gl.DeleteVertexArrays)
	del(&b.vaoTarget, gl.DeleteVertexArrays)
	del(&b.curveTex, gl.DeleteTextures)
	del(&b.scratchFBO, gl.DeleteFramebuffers)
	b.releaseBlurPair()
	b.lastTarget = nil
	b.lastValid = false
	b.initialized = false
}

func (b *Backend) releaseBlurPair() {
	for _, t := range []**glTarget{&b.blurA, &b.blurB} {
		if *t != nil {
			gl.DeleteFramebuffers(1, &(*t).fbo)
			gl.DeleteTextures(1, &(*t).tex.id)
			*t = nil
		}
	}
	b.blurW, b.blurH = 0, 0
}
