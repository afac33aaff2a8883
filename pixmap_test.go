package darkroom

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

func TestPixmapSetAt(t *testing.T) {
	pm := NewPixmap(10, 10)
	pm.Set(5, 5, 128, 64, 32, 255)

	// Verify raw data directly
	i := (5*10 + 5) * 4
	data := pm.Data()
	if data[i+0] != 128 || data[i+1] != 64 || data[i+2] != 32 || data[i+3] != 255 {
		t.Errorf("raw data mismatch: got (%d, %d, %d, %d), want (128, 64, 32, 255)",
			data[i+0], data[i+1], data[i+2], data[i+3])
	}

	r, g, b, a := pm.At(5, 5)
	if r != 128 || g != 64 || b != 32 || a != 255 {
		t.Errorf("At() mismatch: got (%d, %d, %d, %d), want (128, 64, 32, 255)", r, g, b, a)
	}
}

// TestPixmapOutOfBounds verifies out-of-bounds coordinates are silently ignored.
func TestPixmapOutOfBounds(t *testing.T) {
	pm := NewPixmap(10, 10)
	pm.Fill(1, 2, 3, 255)

	original := make([]uint8, len(pm.Data()))
	copy(original, pm.Data())

	oob := []struct{ x, y int }{
		{-1, 5}, {10, 5}, {5, -1}, {5, 10},
		{-100, -100}, {100, 100},
	}
	for _, c := range oob {
		pm.Set(c.x, c.y, 255, 0, 0, 255)
		if r, g, b, a := pm.At(c.x, c.y); r != 0 || g != 0 || b != 0 || a != 0 {
			t.Errorf("At(%d, %d) = (%d, %d, %d, %d), want zeros", c.x, c.y, r, g, b, a)
		}
	}
	if !bytes.Equal(pm.Data(), original) {
		t.Error("out-of-bounds write modified data")
	}
}

func TestPixmapCloneIndependent(t *testing.T) {
	pm := NewPixmap(4, 4)
	pm.Fill(10, 20, 30, 255)
	c := pm.Clone()
	c.Set(0, 0, 99, 99, 99, 99)
	if r, _, _, _ := pm.At(0, 0); r != 10 {
		t.Error("mutating a clone modified the original")
	}
}

func TestFromImageRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(1, 1, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	pm := FromImage(img)
	if pm.Width() != 3 || pm.Height() != 2 {
		t.Fatalf("size = %dx%d, want 3x2", pm.Width(), pm.Height())
	}
	if r, g, b, a := pm.At(1, 1); r != 200 || g != 100 || b != 50 || a != 255 {
		t.Errorf("At(1,1) = (%d, %d, %d, %d), want (200, 100, 50, 255)", r, g, b, a)
	}

	back := pm.ToImage()
	if !bytes.Equal(back.Pix, pm.Data()) {
		t.Error("ToImage pixel data differs")
	}
	back.SetRGBA(0, 0, color.RGBA{A: 1})
	if _, _, _, a := pm.At(0, 0); a != 0 {
		t.Error("ToImage shares storage with the pixmap")
	}
}

func TestFromImageScaled(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))

	pm := FromImageScaled(img, 100)
	if pm.Width() != 100 || pm.Height() != 50 {
		t.Errorf("scaled size = %dx%d, want 100x50", pm.Width(), pm.Height())
	}

	// Already small enough: native size.
	pm = FromImageScaled(img, 1000)
	if pm.Width() != 400 || pm.Height() != 200 {
		t.Errorf("unscaled size = %dx%d, want 400x200", pm.Width(), pm.Height())
	}

	// Tall images scale by height.
	tall := image.NewRGBA(image.Rect(0, 0, 200, 400))
	pm = FromImageScaled(tall, 100)
	if pm.Width() != 50 || pm.Height() != 100 {
		t.Errorf("tall scaled size = %dx%d, want 50x100", pm.Width(), pm.Height())
	}
}

func TestSaveLoadPNG(t *testing.T) {
	pm := NewPixmap(8, 8)
	pm.Fill(40, 80, 120, 255)
	pm.Set(2, 3, 255, 0, 0, 255)

	path := filepath.Join(t.TempDir(), "out.png")
	if err := pm.SavePNG(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadPixmap(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Data(), pm.Data()) {
		t.Error("PNG round trip changed pixel data")
	}
}

func TestLoadPixmapMissingFile(t *testing.T) {
	if _, err := LoadPixmap(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
