package darkroom

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	// Register decoders for LoadPixmap.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Pixmap is a CPU-side RGBA8 pixel buffer. It is the exchange format
// between the caller and the GPU backends: image sources are handed to
// the processor as pixmaps and pixel readback returns one.
type Pixmap struct {
	width  int
	height int
	data   []uint8 // RGBA, 4 bytes per pixel, row-major
}

// NewPixmap creates a zeroed (fully transparent) pixmap.
func NewPixmap(width, height int) *Pixmap {
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the pixmap width in pixels.
func (p *Pixmap) Width() int { return p.width }

// Height returns the pixmap height in pixels.
func (p *Pixmap) Height() int { return p.height }

// Data returns the raw RGBA pixel data. The slice aliases the pixmap's
// storage; mutations are visible to subsequent reads.
func (p *Pixmap) Data() []uint8 { return p.data }

// At returns the RGBA bytes of one pixel. Out-of-bounds reads return zeros.
func (p *Pixmap) At(x, y int) (r, g, b, a uint8) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return 0, 0, 0, 0
	}
	i := (y*p.width + x) * 4
	return p.data[i], p.data[i+1], p.data[i+2], p.data[i+3]
}

// Set writes the RGBA bytes of one pixel. Out-of-bounds writes are ignored.
func (p *Pixmap) Set(x, y int, r, g, b, a uint8) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.data[i] = r
	p.data[i+1] = g
	p.data[i+2] = b
	p.data[i+3] = a
}

// Fill sets every pixel to the given color.
func (p *Pixmap) Fill(r, g, b, a uint8) {
	for i := 0; i < len(p.data); i += 4 {
		p.data[i] = r
		p.data[i+1] = g
		p.data[i+2] = b
		p.data[i+3] = a
	}
}

// Clone returns a deep copy of the pixmap.
func (p *Pixmap) Clone() *Pixmap {
	c := NewPixmap(p.width, p.height)
	copy(c.data, p.data)
	return c
}

// ToImage converts the pixmap to an image.RGBA sharing no storage.
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// FromImage converts any image.Image into a pixmap at its native size.
func FromImage(img image.Image) *Pixmap {
	bounds := img.Bounds()
	pm := NewPixmap(bounds.Dx(), bounds.Dy())
	rgba := &image.RGBA{
		Pix:    pm.data,
		Stride: pm.width * 4,
		Rect:   image.Rect(0, 0, pm.width, pm.height),
	}
	draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	return pm
}

// FromImageScaled converts an image into a pixmap whose longest side is at
// most maxDim, preserving aspect ratio. Interactive previews render from a
// scaled-down source; exports render from the full-size one.
func FromImageScaled(img image.Image, maxDim int) *Pixmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return FromImage(img)
	}
	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	pm := NewPixmap(w, h)
	rgba := &image.RGBA{
		Pix:    pm.data,
		Stride: pm.width * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
	xdraw.CatmullRom.Scale(rgba, rgba.Rect, img, bounds, xdraw.Src, nil)
	return pm
}

// LoadPixmap reads and decodes an image file (PNG, JPEG or GIF).
func LoadPixmap(path string) (*Pixmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("darkroom: open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("darkroom: decode image: %w", err)
	}
	return FromImage(img), nil
}

// SavePNG writes the pixmap to a PNG file.
func (p *Pixmap) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("darkroom: create file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, p.ToImage()); err != nil {
		return fmt.Errorf("darkroom: encode png: %w", err)
	}
	return nil
}

// SaveJPEG writes the pixmap to a JPEG file with the given quality (1-100).
func (p *Pixmap) SaveJPEG(path string, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("darkroom: create file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, p.ToImage(), &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("darkroom: encode jpeg: %w", err)
	}
	return nil
}
