package develop

import (
	"math"
	"sync"

	"github.com/gophoto/darkroom"
)

// kernelCache memoizes 1D gaussian kernels by radius. Blur radii are a
// small fixed set (the frequency-separation radius and test values), so
// the cache stays tiny.
var kernelCache sync.Map // float64 -> []float32

// GaussianKernel returns a normalized 1D gaussian kernel for the radius.
// Radius <= 0 returns the identity kernel.
func GaussianKernel(radius float64) []float32 {
	if radius <= 0 {
		return []float32{1}
	}
	if k, ok := kernelCache.Load(radius); ok {
		return k.([]float32)
	}

	// Kernel extends to 3 sigma; sigma = radius/2 keeps the visible
	// support close to the requested radius.
	sigma := radius / 2
	half := int(math.Ceil(radius))
	size := half*2 + 1
	kernel := make([]float32, size)
	var sum float64
	for i := 0; i < size; i++ {
		x := float64(i - half)
		v := math.Exp(-x * x / (2 * sigma * sigma))
		kernel[i] = float32(v)
		sum += v
	}
	for i := range kernel {
		kernel[i] = float32(float64(kernel[i]) / sum)
	}
	kernelCache.Store(radius, kernel)
	return kernel
}

// GaussianBlur runs a two-pass separable blur and returns a new pixmap.
// This is the CPU twin of the backends' horizontal+vertical blur passes
// that feed clarity and structure.
func GaussianBlur(src *darkroom.Pixmap, radius float64) *darkroom.Pixmap {
	w, h := src.Width(), src.Height()
	out := darkroom.NewPixmap(w, h)
	if radius <= 0 {
		copy(out.Data(), src.Data())
		return out
	}

	kernel := GaussianKernel(radius)
	half := len(kernel) / 2
	tmp := darkroom.NewPixmap(w, h)

	blurAxis(tmp.Data(), src.Data(), w, h, kernel, half, true)
	blurAxis(out.Data(), tmp.Data(), w, h, kernel, half, false)
	return out
}

// blurAxis convolves one axis. Edges clamp to the border pixel.
func blurAxis(dst, src []uint8, w, h int, kernel []float32, half int, horizontal bool) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b, a float32
			for k, kv := range kernel {
				sx, sy := x, y
				if horizontal {
					sx = clampInt(x+k-half, 0, w-1)
				} else {
					sy = clampInt(y+k-half, 0, h-1)
				}
				i := (sy*w + sx) * 4
				r += float32(src[i]) * kv
				g += float32(src[i+1]) * kv
				b += float32(src[i+2]) * kv
				a += float32(src[i+3]) * kv
			}
			i := (y*w + x) * 4
			dst[i] = uint8(Clamp(r, 0, 255) + 0.5)
			dst[i+1] = uint8(Clamp(g, 0, 255) + 0.5)
			dst[i+2] = uint8(Clamp(b, 0, 255) + 0.5)
			dst[i+3] = uint8(Clamp(a, 0, 255) + 0.5)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
