// Package imaging provides the grayscale image type used throughout the
// analysis pipeline, plus loading, preprocessing, and comparison primitives.
//
// A loaded image is immutable by convention: every transform returns a fresh
// buffer, so stages can share the source image without synchronization.
package imaging

import (
	"image"
)

// Gray is a tightly packed 8-bit grayscale raster, row-major.
//
// Unlike image.Gray there is no stride slack: Pix has exactly W*H entries.
// This keeps the detector kernels free of stride arithmetic.
type Gray struct {
	Pix []uint8
	W   int
	H   int
}

// New creates a zero-filled grayscale image.
func New(w, h int) *Gray {
	return &Gray{Pix: make([]uint8, w*h), W: w, H: h}
}

// At returns the intensity at (x, y). No bounds checking.
func (g *Gray) At(x, y int) uint8 {
	return g.Pix[y*g.W+x]
}

// Set assigns the intensity at (x, y). No bounds checking.
func (g *Gray) Set(x, y int, v uint8) {
	g.Pix[y*g.W+x] = v
}

// Clone returns a deep copy.
func (g *Gray) Clone() *Gray {
	out := New(g.W, g.H)
	copy(out.Pix, g.Pix)
	return out
}

// Bounds returns the image rectangle, anchored at the origin.
func (g *Gray) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.W, g.H)
}

// ToImage converts to a standard image.Gray, copying the pixels.
func (g *Gray) ToImage() *image.Gray {
	out := image.NewGray(g.Bounds())
	for y := 0; y < g.H; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+g.W], g.Pix[y*g.W:(y+1)*g.W])
	}
	return out
}

// FromImage converts any image to Gray using ITU-R BT.601 luminance weights
// (0.299 R + 0.587 G + 0.114 B), matching the conversion used by mainstream
// CV toolkits so tuned thresholds carry over.
func FromImage(img image.Image) *Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := New(w, h)

	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			copy(out.Pix[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
		return out
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			out.Pix[i] = uint8((0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)))
			i++
		}
	}
	return out
}

// Mean returns the average intensity.
func (g *Gray) Mean() float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range g.Pix {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(g.Pix))
}
