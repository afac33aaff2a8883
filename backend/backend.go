// Package backend defines the contract every graphics backend of the
// darkroom core must satisfy, and the registry that probes and selects
// one at startup.
//
// Two implementations exist: backend/gl (immediate bind-and-draw via
// OpenGL) and backend/webgpu (explicit device/queue/encoder via WebGPU).
// Both are registered from their package init functions; importing a
// backend package for side effects makes it a selection candidate, the
// same way database/sql drivers register themselves.
package backend

import (
	"errors"

	"github.com/gophoto/darkroom"
)

// Common backend errors.
var (
	// ErrNoBackend is returned when no registered backend initializes.
	ErrNoBackend = errors.New("backend: no backend available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrForeignHandle is returned when a texture or target created by a
	// different backend is passed in.
	ErrForeignHandle = errors.New("backend: handle belongs to another backend")
)

// Texture is an opaque handle to a GPU image resource. Handles are only
// valid with the backend that created them and become invalid after
// DeleteTexture.
type Texture interface {
	// Size returns the texture dimensions in pixels.
	Size() (width, height int)
}

// Target is a texture bound as a draw destination. It is freed together
// with its texture via DeleteTarget.
type Target interface {
	// Texture returns the texture backing this target.
	Texture() Texture
}

// Stamp describes one circular brush stamp into a mask target. X, Y and
// Radius are in image pixels (y grows downward); each backend converts to
// its own render-target addressing. Hardness and Strength are in [0,1];
// Strength is the product of brush opacity and flow.
type Stamp struct {
	X, Y     float32
	Radius   float32
	Hardness float32
	Strength float32
	Erase    bool
}

// Shape mask kinds.
type ShapeKind int

const (
	ShapeRadial ShapeKind = iota
	ShapeLinear
)

// Shape describes one full-target shape-mask pass. Coordinates are in
// image pixels. Radial uses CX/CY/Inner/Outer; Linear uses the directed
// segment (X1,Y1)->(X2,Y2) with Feather as the transition width fraction.
type Shape struct {
	Kind    ShapeKind
	CX, CY  float32
	Inner   float32
	Outer   float32
	X1, Y1  float32
	X2, Y2  float32
	Feather float32
	Invert  bool
}

// Renderer is the operation set every graphics backend implements.
//
// All calls are issued from a single logical thread. Render calls return
// once the work is enqueued; passes execute in strict submission order.
// Init is all-or-nothing: a failed Init (including shader compile or link
// errors) leaves no partial resources behind. Delete operations are
// no-ops on nil handles.
type Renderer interface {
	// Name returns the backend identifier ("gl", "webgpu").
	Name() string

	// Init creates the GPU context, compiles every shader program and
	// allocates static geometry. A failure here means the caller should
	// fall back to the next backend candidate.
	Init() error

	// CreateTextureFromImage uploads a pixmap into a new texture.
	CreateTextureFromImage(src *darkroom.Pixmap) (Texture, error)

	// CreateTexture allocates an empty RGBA texture.
	CreateTexture(width, height int) (Texture, error)

	// CreateTarget allocates a texture bound as a render target,
	// cleared to transparent black.
	CreateTarget(width, height int) (Target, error)

	// RenderDevelop runs the develop pass: input sampled with the
	// global adjustments applied. A nil dst draws to the presentation
	// surface; otherwise into the target's texture.
	RenderDevelop(input Texture, params *darkroom.AdjustmentParams, dst Target) error

	// RenderPassthrough copies a texture unchanged to dst (nil dst =
	// presentation surface).
	RenderPassthrough(src Texture, dst Target) error

	// RenderMasked blends the adjusted base over the unadjusted base by
	// the mask's alpha: mix(base, develop(base, params), mask).
	RenderMasked(base, mask Texture, params *darkroom.AdjustmentParams, dst Target) error

	// PaintStamp blends one brush stamp into a mask target.
	PaintStamp(dst Target, s Stamp) error

	// PaintShape overwrites a mask target with a shape-mask evaluation.
	PaintShape(dst Target, s Shape) error

	// ClearTarget resets a target to fully transparent.
	ClearTarget(dst Target) error

	// ReadPixels returns the pixel content of a texture. A nil texture
	// reads back the last develop output, consistent with the last
	// rendered frame on either backend.
	ReadPixels(src Texture) (*darkroom.Pixmap, error)

	// Resize adapts the presentation surface to new output dimensions.
	Resize(width, height int)

	// DeleteTexture frees a texture. No-op on nil.
	DeleteTexture(t Texture)

	// DeleteTarget frees a target and its texture. No-op on nil.
	DeleteTarget(t Target)

	// Dispose releases every remaining backend resource. The renderer
	// must not be used afterwards.
	Dispose()
}
