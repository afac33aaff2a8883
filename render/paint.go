package render

import (
	"math"

	"github.com/gophoto/darkroom/backend"
	"github.com/gophoto/darkroom/internal/develop"
)

// stampFromBrush converts the current brush settings and an image-space
// position into one backend stamp.
func (c *Compositor) stampFromBrush(x, y float32) backend.Stamp {
	return backend.Stamp{
		X:        x,
		Y:        y,
		Radius:   c.brush.Size / 2,
		Hardness: c.brush.Hardness / 100,
		Strength: c.brush.Opacity / 100 * (c.brush.Flow / 100),
		Erase:    c.brush.Erase,
	}
}

// PaintBrush places a single stamp on the active layer's mask at an
// image-pixel position.
func (c *Compositor) PaintBrush(x, y float32) error {
	l, ok := c.ActiveLayer()
	if !ok {
		return ErrNoActiveLayer
	}
	return c.r.PaintStamp(l.mask, c.stampFromBrush(x, y))
}

// PaintStroke resamples a segment into stamps spaced at a fixed fraction
// of the brush diameter, endpoints included. A degenerate segment paints
// a single stamp.
func (c *Compositor) PaintStroke(x1, y1, x2, y2 float32) error {
	l, ok := c.ActiveLayer()
	if !ok {
		return ErrNoActiveLayer
	}

	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	dist := math.Hypot(dx, dy)
	spacing := float64(c.brush.Size) * develop.StrokeSpacing
	if dist == 0 || spacing <= 0 {
		return c.r.PaintStamp(l.mask, c.stampFromBrush(x1, y1))
	}

	n := int(math.Ceil(dist / spacing))
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		x := x1 + float32(t*dx)
		y := y1 + float32(t*dy)
		if err := c.r.PaintStamp(l.mask, c.stampFromBrush(x, y)); err != nil {
			return err
		}
	}
	return nil
}

// SetShapeMask overwrites the active layer's mask with a shape
// evaluation, replacing any previous content.
func (c *Compositor) SetShapeMask(s backend.Shape) error {
	l, ok := c.ActiveLayer()
	if !ok {
		return ErrNoActiveLayer
	}
	return c.r.PaintShape(l.mask, s)
}
