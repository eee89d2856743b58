package imaging

import "math"

// NormalizedCrossCorrelation computes the zero-mean normalized cross-
// correlation coefficient between two equal-size images, in [-1, 1].
// Identical images score 1. Images of different dimensions score 0, as do
// flat (zero-variance) images.
//
// This is the full-frame equivalent of a TM_CCOEFF_NORMED template match of
// an image against itself, which is how every symmetry percentage in the
// analysis is defined.
func NormalizedCrossCorrelation(a, b *Gray) float64 {
	if a.W != b.W || a.H != b.H || len(a.Pix) == 0 {
		return 0
	}

	meanA := a.Mean()
	meanB := b.Mean()

	var cov, varA, varB float64
	for i := range a.Pix {
		da := float64(a.Pix[i]) - meanA
		db := float64(b.Pix[i]) - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// MeanAbsDiff computes the mean absolute pixel difference of two images.
// Dimensions are cropped to the shared region, mirroring the half-image
// structural similarity comparison. Returns 255 for disjoint dimensions.
func MeanAbsDiff(a, b *Gray) float64 {
	w := min(a.W, b.W)
	h := min(a.H, b.H)
	if w == 0 || h == 0 {
		return 255
	}

	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := float64(a.At(x, y)) - float64(b.At(x, y))
			if d < 0 {
				d = -d
			}
			sum += d
		}
	}
	return sum / float64(w*h)
}

// Moments holds raw and central image moments of the intensity surface.
type Moments struct {
	M00, M10, M01    float64 // raw
	Mu20, Mu02, Mu11 float64 // central, second order
}

// ComputeMoments accumulates intensity moments over the whole image.
func (g *Gray) ComputeMoments() Moments {
	var m Moments
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			v := float64(g.Pix[y*g.W+x])
			m.M00 += v
			m.M10 += v * float64(x)
			m.M01 += v * float64(y)
		}
	}
	if m.M00 == 0 {
		return m
	}

	cx := m.M10 / m.M00
	cy := m.M01 / m.M00
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			v := float64(g.Pix[y*g.W+x])
			dx := float64(x) - cx
			dy := float64(y) - cy
			m.Mu20 += v * dx * dx
			m.Mu02 += v * dy * dy
			m.Mu11 += v * dx * dy
		}
	}
	return m
}

// Centroid returns the intensity-weighted centroid. For an all-black image
// it falls back to the geometric center.
func (m Moments) Centroid(w, h int) (float64, float64) {
	if m.M00 == 0 {
		return float64(w) / 2, float64(h) / 2
	}
	return m.M10 / m.M00, m.M01 / m.M00
}
