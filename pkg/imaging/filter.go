package imaging

import (
	"github.com/anthonynsimon/bild/blur"
)

// GaussianBlur returns a blurred copy. Radius follows the bild convention
// (roughly the kernel sigma); radius <= 0 returns a plain copy.
func (g *Gray) GaussianBlur(radius float64) *Gray {
	if radius <= 0 {
		return g.Clone()
	}
	return FromImage(blur.Gaussian(g.ToImage(), radius))
}

// EqualizeHist stretches the intensity histogram to the full [0, 255]
// range, improving blob contrast on washed-out chalk-on-floor photographs.
func (g *Gray) EqualizeHist() *Gray {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}

	total := len(g.Pix)
	if total == 0 {
		return g.Clone()
	}

	// Cumulative distribution, shifted so the darkest occupied bin maps to 0.
	var cdf [256]int
	sum := 0
	for i := 0; i < 256; i++ {
		sum += hist[i]
		cdf[i] = sum
	}
	cdfMin := 0
	for i := 0; i < 256; i++ {
		if hist[i] > 0 {
			cdfMin = cdf[i]
			break
		}
	}
	denom := total - cdfMin
	if denom <= 0 {
		return g.Clone()
	}

	var lut [256]uint8
	for i := 0; i < 256; i++ {
		v := (cdf[i] - cdfMin) * 255 / denom
		if v < 0 {
			v = 0
		}
		lut[i] = uint8(v)
	}

	out := New(g.W, g.H)
	for i, v := range g.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// OtsuThreshold computes the Otsu threshold of the intensity histogram:
// the cut that maximizes between-class variance.
func (g *Gray) OtsuThreshold() uint8 {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}

	total := len(g.Pix)
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i := 0; i < 256; i++ {
		sumAll += float64(i) * float64(hist[i])
	}

	var sumB, wB float64
	var best float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// Binarize returns a mask where pixels strictly above the threshold are
// true. Combine with OtsuThreshold for automatic binarization.
func (g *Gray) Binarize(threshold uint8) *Mask {
	out := NewMask(g.W, g.H)
	for i, v := range g.Pix {
		out.Pix[i] = v > threshold
	}
	return out
}

// BinarizeInv returns a mask where pixels at or below the threshold are
// true. Kolam strokes are usually dark on a light floor, so the inverted
// mask selects the drawing.
func (g *Gray) BinarizeInv(threshold uint8) *Mask {
	out := NewMask(g.W, g.H)
	for i, v := range g.Pix {
		out.Pix[i] = v <= threshold
	}
	return out
}

// Mask is a binary raster with the same packing as Gray.
type Mask struct {
	Pix []bool
	W   int
	H   int
}

// NewMask creates an all-false mask.
func NewMask(w, h int) *Mask {
	return &Mask{Pix: make([]bool, w*h), W: w, H: h}
}

// At returns the mask bit at (x, y). No bounds checking.
func (m *Mask) At(x, y int) bool { return m.Pix[y*m.W+x] }

// Set assigns the mask bit at (x, y). No bounds checking.
func (m *Mask) Set(x, y int, v bool) { m.Pix[y*m.W+x] = v }

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.W, m.H)
	copy(out.Pix, m.Pix)
	return out
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}
