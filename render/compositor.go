package render

import (
	"fmt"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
)

// LayerKind selects how a layer's mask is authored.
type LayerKind int

const (
	LayerBrush LayerKind = iota
	LayerRadial
	LayerLinear
)

func (k LayerKind) String() string {
	switch k {
	case LayerBrush:
		return "brush"
	case LayerRadial:
		return "radial"
	case LayerLinear:
		return "linear"
	}
	return fmt.Sprintf("LayerKind(%d)", int(k))
}

// Layer is one local adjustment: a mask plus its own parameter set.
type Layer struct {
	ID      int
	Name    string
	Kind    LayerKind
	Params  *darkroom.AdjustmentParams
	Visible bool

	mask          backend.Target
	width, height int
}

// MaskSize returns the mask dimensions.
func (l *Layer) MaskSize() (int, int) { return l.width, l.height }

// Compositor stacks masked local adjustments over a developed base
// texture. Intermediates ping-pong between two reusable targets; the slot
// being read is never the slot being written.
type Compositor struct {
	r      backend.Renderer
	layers []*Layer

	// active is an index into layers, or -1 when no layer is selected.
	// Access goes through ActiveLayer to keep the no-selection state
	// explicit.
	active int
	nextID int

	brush darkroom.BrushSettings

	pairA, pairB  backend.Target
	width, height int
}

// NewCompositor wraps an initialized renderer. No layer is active.
func NewCompositor(r backend.Renderer) *Compositor {
	return &Compositor{
		r:      r,
		active: -1,
		nextID: 1,
		brush:  darkroom.DefaultBrush(),
	}
}

// Layers returns the stack bottom-up. The slice is the compositor's own.
func (c *Compositor) Layers() []*Layer { return c.layers }

// Brush returns the current brush settings.
func (c *Compositor) Brush() darkroom.BrushSettings { return c.brush }

// SetBrush replaces the brush settings used by subsequent painting.
func (c *Compositor) SetBrush(b darkroom.BrushSettings) { c.brush = b }

// ActiveLayer returns the selected layer, if any.
func (c *Compositor) ActiveLayer() (*Layer, bool) {
	if c.active < 0 || c.active >= len(c.layers) {
		return nil, false
	}
	return c.layers[c.active], true
}

// SetActive selects a layer by index. Out-of-range indices clear the
// selection.
func (c *Compositor) SetActive(i int) {
	if i < 0 || i >= len(c.layers) {
		c.active = -1
		return
	}
	c.active = i
}

// CreateLayer appends a layer with a transparent mask sized to the
// current image and makes it active.
func (c *Compositor) CreateLayer(kind LayerKind, width, height int) (*Layer, error) {
	mask, err := c.r.CreateTarget(width, height)
	if err != nil {
		return nil, fmt.Errorf("render: layer mask: %w", err)
	}
	l := &Layer{
		ID:      c.nextID,
		Name:    fmt.Sprintf("Layer %d", c.nextID),
		Kind:    kind,
		Params:  &darkroom.AdjustmentParams{},
		Visible: true,
		mask:    mask,
		width:   width,
		height:  height,
	}
	c.nextID++
	c.layers = append(c.layers, l)
	c.active = len(c.layers) - 1
	darkroom.Logger().Info("layer created", "id", l.ID, "kind", kind.String())
	return l, nil
}

// DeleteLayer removes a layer and frees its mask. Out-of-range indices
// are a no-op.
func (c *Compositor) DeleteLayer(i int) {
	if i < 0 || i >= len(c.layers) {
		return
	}
	c.r.DeleteTarget(c.layers[i].mask)
	c.layers = append(c.layers[:i], c.layers[i+1:]...)
	switch {
	case len(c.layers) == 0:
		c.active = -1
	case c.active > i:
		c.active--
	case c.active >= len(c.layers):
		c.active = len(c.layers) - 1
	}
}

// ClearMask resets the active layer's mask to fully transparent.
func (c *Compositor) ClearMask() error {
	l, ok := c.ActiveLayer()
	if !ok {
		return ErrNoActiveLayer
	}
	return c.r.ClearTarget(l.mask)
}

// ensurePair (re)allocates the ping-pong intermediates. Only a dimension
// change reallocates; steady-state compositing reuses both slots.
func (c *Compositor) ensurePair(w, h int) error {
	if c.pairA != nil && c.width == w && c.height == h {
		return nil
	}
	c.releasePair()
	var err error
	if c.pairA, err = c.r.CreateTarget(w, h); err != nil {
		return fmt.Errorf("render: compositor pair: %w", err)
	}
	if c.pairB, err = c.r.CreateTarget(w, h); err != nil {
		return fmt.Errorf("render: compositor pair: %w", err)
	}
	c.width, c.height = w, h
	return nil
}

func (c *Compositor) releasePair() {
	if c.pairA != nil {
		c.r.DeleteTarget(c.pairA)
		c.pairA = nil
	}
	if c.pairB != nil {
		c.r.DeleteTarget(c.pairB)
		c.pairB = nil
	}
	c.width, c.height = 0, 0
}

// qualifies reports whether a layer contributes a render pass.
func qualifies(l *Layer) bool {
	return l.Visible && !l.Params.IsZero()
}

// ensureMasks recreates any mask authored at a different image size.
// Old mask content is not meaningful at the new resolution, so resized
// masks come back transparent and must be repainted.
func (c *Compositor) ensureMasks(w, h int) error {
	for _, l := range c.layers {
		if l.width == w && l.height == h {
			continue
		}
		mask, err := c.r.CreateTarget(w, h)
		if err != nil {
			return fmt.Errorf("render: layer mask: %w", err)
		}
		c.r.DeleteTarget(l.mask)
		l.mask = mask
		l.width, l.height = w, h
		darkroom.Logger().Info("layer mask reset on resize", "id", l.ID, "w", w, "h", h)
	}
	return nil
}

// ApplyLayers runs one masked pass per qualifying layer, bottom-up, each
// reading the previous intermediate and writing the other slot. With no
// qualifying layers the base is returned untouched and no pass runs.
func (c *Compositor) ApplyLayers(base backend.Texture) (backend.Texture, error) {
	w, h := base.Size()
	if err := c.ensureMasks(w, h); err != nil {
		return nil, err
	}

	passes := 0
	for _, l := range c.layers {
		if qualifies(l) {
			passes++
		}
	}
	if passes == 0 {
		return base, nil
	}

	if err := c.ensurePair(w, h); err != nil {
		return nil, err
	}

	// When the caller feeds our previous output back in as the base,
	// start writing on the other slot.
	current := base
	writeA := c.pairA.Texture() != base
	for _, l := range c.layers {
		if !qualifies(l) {
			continue
		}
		dst := c.pairB
		if writeA {
			dst = c.pairA
		}
		if dst.Texture() == current {
			panic("render: compositor write slot aliases read slot")
		}
		if err := c.r.RenderMasked(current, l.mask.Texture(), l.Params, dst); err != nil {
			return nil, fmt.Errorf("render: layer %d pass: %w", l.ID, err)
		}
		current = dst.Texture()
		writeA = !writeA
	}
	return current, nil
}

// Close frees every mask and both intermediates.
func (c *Compositor) Close() {
	for _, l := range c.layers {
		c.r.DeleteTarget(l.mask)
	}
	c.layers = nil
	c.active = -1
	c.releasePair()
}
