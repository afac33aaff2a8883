// Package webgpu implements the WebGPU renderer. Every frame is recorded
// into a command encoder and submitted as one command buffer; pass
// parameters travel in per-call uniform buffers so submitted work never
// aliases a later call's state.
//
// The package registers itself with the backend registry on import:
//
//	import _ "github.com/gophoto/darkroom/backend/webgpu"
//
// Init validates every WGSL module with naga before handing it to the
// device, so a malformed shader fails backend selection instead of
// faulting mid-session. On-screen presentation needs a surface source
// (see SetSurfaceSource); without one the renderer still works for
// offscreen targets and readback.
package webgpu

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
)

//go:embed shaders/develop.wgsl
var developWGSL string

//go:embed shaders/passthrough.wgsl
var passthroughWGSL string

//go:embed shaders/blur.wgsl
var blurWGSL string

//go:embed shaders/stamp.wgsl
var stampWGSL string

//go:embed shaders/shape.wgsl
var shapeWGSL string

func init() {
	backend.Register(backend.BackendWebGPU, func() backend.Renderer { return New() })
}

// surfaceSource, when set before Init, provides the window surface
// descriptor for on-screen rendering.
var surfaceSource func() *wgpu.SurfaceDescriptor

// SetSurfaceSource installs the provider of the presentation surface
// descriptor. The caller (window layer) must set it before the backend is
// probed; a nil source leaves the renderer headless.
func SetSurfaceSource(fn func() *wgpu.SurfaceDescriptor) {
	surfaceSource = fn
}

// targetFormat is the format of every offscreen texture and render
// target. Color math runs in shader code, so storage stays non-sRGB.
const targetFormat = wgpu.TextureFormatRGBA8Unorm

// Backend is the command-buffer WebGPU renderer.
type Backend struct {
	initialized bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	surface       *wgpu.Surface
	surfaceFormat wgpu.TextureFormat
	surfaceW      int
	surfaceH      int

	sampler   *wgpu.Sampler
	curveTex  *wgpu.Texture
	curveView *wgpu.TextureView

	developLayout     *wgpu.BindGroupLayout
	passthroughLayout *wgpu.BindGroupLayout
	blurLayout        *wgpu.BindGroupLayout
	paramLayout       *wgpu.BindGroupLayout

	developTarget      *wgpu.RenderPipeline
	developSurface     *wgpu.RenderPipeline
	maskedTarget       *wgpu.RenderPipeline
	passthroughTarget  *wgpu.RenderPipeline
	passthroughSurface *wgpu.RenderPipeline
	blurPipeline       *wgpu.RenderPipeline
	stampAdd           *wgpu.RenderPipeline
	stampErase         *wgpu.RenderPipeline
	shapePipeline      *wgpu.RenderPipeline

	// Blur pair reallocated only when the input dimensions change.
	blurA, blurB *wTarget
	blurW, blurH int

	// Replay state for ReadPixels(nil): the last develop-family call.
	lastTarget  *wTarget
	lastInput   *wTexture
	lastParams  *darkroom.AdjustmentParams
	lastSurface bool
	lastValid   bool
}

// New returns an uninitialized renderer. Call Init before use.
func New() *Backend { return &Backend{} }

var _ backend.Renderer = (*Backend)(nil)

func (b *Backend) Name() string { return backend.BackendWebGPU }

// Init acquires the adapter and device, validates and compiles every
// shader module and builds all pipelines. Any failure releases what was
// created and reports the cause, letting the registry fall back.
func (b *Backend) Init() error {
	fail := func(err error) error {
		b.Dispose()
		return err
	}

	for name, src := range map[string]string{
		"develop":     developWGSL,
		"passthrough": passthroughWGSL,
		"blur":        blurWGSL,
		"stamp":       stampWGSL,
		"shape":       shapeWGSL,
	} {
		if _, err := naga.Compile(src); err != nil {
			return fmt.Errorf("webgpu: %s shader rejected: %w", name, err)
		}
	}

	b.instance = wgpu.CreateInstance(nil)
	if b.instance == nil {
		return fail(fmt.Errorf("webgpu: create instance failed"))
	}

	if surfaceSource != nil {
		if desc := surfaceSource(); desc != nil {
			b.surface = b.instance.CreateSurface(desc)
		}
	}

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: b.surface,
	})
	if err != nil {
		return fail(fmt.Errorf("webgpu: request adapter: %w", err))
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "darkroom device",
	})
	if err != nil {
		return fail(fmt.Errorf("webgpu: request device: %w", err))
	}
	b.device = device
	b.queue = device.GetQueue()

	if b.surface != nil {
		caps := b.surface.GetCapabilities(b.adapter)
		if len(caps.Formats) == 0 {
			return fail(fmt.Errorf("webgpu: surface reports no formats"))
		}
		b.surfaceFormat = caps.Formats[0]
	}

	b.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "darkroom sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fail(fmt.Errorf("webgpu: create sampler: %w", err))
	}

	b.curveTex, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "curve lut",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          wgpu.Extent3D{Width: 256, Height: 1, DepthOrArrayLayers: 1},
		Format:        targetFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fail(fmt.Errorf("webgpu: create curve texture: %w", err))
	}
	b.curveView, err = b.curveTex.CreateView(nil)
	if err != nil {
		return fail(fmt.Errorf("webgpu: curve texture view: %w", err))
	}

	if err := b.buildPipelines(); err != nil {
		return fail(err)
	}

	b.initialized = true
	return nil
}

// Resize reconfigures the presentation surface. A headless renderer only
// records the size.
func (b *Backend) Resize(width, height int) {
	b.surfaceW, b.surfaceH = width, height
	if b.surface == nil || b.adapter == nil || b.device == nil {
		return
	}
	caps := b.surface.GetCapabilities(b.adapter)
	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(caps.AlphaModes) > 0 {
		alphaMode = caps.AlphaModes[0]
	}
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   alphaMode,
	})
}

// Dispose releases everything the renderer owns, in reverse creation
// order. Safe to call on a partially initialized receiver.
func (b *Backend) Dispose() {
	b.releaseBlurPair()
	for _, p := range []**wgpu.RenderPipeline{
		&b.developTarget, &b.developSurface, &b.maskedTarget,
		&b.passthroughTarget, &b.passthroughSurface,
		&b.blurPipeline, &b.stampAdd, &b.stampErase, &b.shapePipeline,
	} {
		if *p != nil {
			(*p).Release()
			*p = nil
		}
	}
	for _, l := range []**wgpu.BindGroupLayout{
		&b.developLayout, &b.passthroughLayout, &b.blurLayout, &b.paramLayout,
	} {
		if *l != nil {
			(*l).Release()
			*l = nil
		}
	}
	if b.curveView != nil {
		b.curveView.Release()
		b.curveView = nil
	}
	if b.curveTex != nil {
		b.curveTex.Release()
		b.curveTex = nil
	}
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	b.queue = nil
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
	b.lastValid = false
	b.lastTarget = nil
	b.lastInput = nil
	b.lastParams = nil
	b.initialized = false
}

func (b *Backend) releaseBlurPair() {
	for _, t := range []**wTarget{&b.blurA, &b.blurB} {
		if *t != nil {
			(*t).release()
			*t = nil
		}
	}
	b.blurW, b.blurH = 0, 0
}
