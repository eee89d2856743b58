package imaging

import "math"

// FlipH returns a copy mirrored across the vertical axis (left-right flip).
func (g *Gray) FlipH() *Gray {
	out := New(g.W, g.H)
	for y := 0; y < g.H; y++ {
		row := g.Pix[y*g.W : (y+1)*g.W]
		dst := out.Pix[y*g.W : (y+1)*g.W]
		for x := 0; x < g.W; x++ {
			dst[g.W-1-x] = row[x]
		}
	}
	return out
}

// FlipV returns a copy mirrored across the horizontal axis (top-bottom flip).
func (g *Gray) FlipV() *Gray {
	out := New(g.W, g.H)
	for y := 0; y < g.H; y++ {
		copy(out.Pix[(g.H-1-y)*g.W:(g.H-y)*g.W], g.Pix[y*g.W:(y+1)*g.W])
	}
	return out
}

// Transpose returns the matrix transpose (reflection across the main
// diagonal). Output dimensions are swapped.
func (g *Gray) Transpose() *Gray {
	out := New(g.H, g.W)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			out.Pix[x*g.H+y] = g.Pix[y*g.W+x]
		}
	}
	return out
}

// Rotate180 returns a copy rotated by 180 degrees.
func (g *Gray) Rotate180() *Gray {
	n := len(g.Pix)
	out := New(g.W, g.H)
	for i := 0; i < n; i++ {
		out.Pix[n-1-i] = g.Pix[i]
	}
	return out
}

// Rotate returns a copy rotated by the given angle (degrees, counter-
// clockwise) about the image center, keeping the original dimensions.
// Pixels mapping outside the source are black. Bilinear sampling.
func (g *Gray) Rotate(degrees float64) *Gray {
	out := New(g.W, g.H)
	cx := float64(g.W) / 2
	cy := float64(g.H) / 2
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)

	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			// Inverse mapping: rotate destination back into the source.
			dx := float64(x) - cx
			dy := float64(y) - cy
			sx := dx*cos + dy*sin + cx
			sy := -dx*sin + dy*cos + cy
			out.Pix[y*g.W+x] = g.bilinear(sx, sy)
		}
	}
	return out
}

// bilinear samples the image at a fractional coordinate, returning 0 for
// samples outside the raster.
func (g *Gray) bilinear(x, y float64) uint8 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	if x0 < -1 || y0 < -1 || x0 > g.W-1 || y0 > g.H-1 {
		return 0
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	sample := func(px, py int) float64 {
		if px < 0 || py < 0 || px >= g.W || py >= g.H {
			return 0
		}
		return float64(g.Pix[py*g.W+px])
	}

	v := sample(x0, y0)*(1-fx)*(1-fy) +
		sample(x0+1, y0)*fx*(1-fy) +
		sample(x0, y0+1)*(1-fx)*fy +
		sample(x0+1, y0+1)*fx*fy
	return uint8(math.Round(v))
}

// SubLeft returns the left half (columns [0, W/2)).
func (g *Gray) SubLeft() *Gray { return g.subCols(0, g.W/2) }

// SubRight returns the right half (columns [W/2, W)).
func (g *Gray) SubRight() *Gray { return g.subCols(g.W/2, g.W) }

// SubTop returns the top half (rows [0, H/2)).
func (g *Gray) SubTop() *Gray { return g.subRows(0, g.H/2) }

// SubBottom returns the bottom half (rows [H/2, H)).
func (g *Gray) SubBottom() *Gray { return g.subRows(g.H/2, g.H) }

func (g *Gray) subCols(x0, x1 int) *Gray {
	w := x1 - x0
	out := New(w, g.H)
	for y := 0; y < g.H; y++ {
		copy(out.Pix[y*w:(y+1)*w], g.Pix[y*g.W+x0:y*g.W+x1])
	}
	return out
}

func (g *Gray) subRows(y0, y1 int) *Gray {
	h := y1 - y0
	out := New(g.W, h)
	copy(out.Pix, g.Pix[y0*g.W:y1*g.W])
	return out
}
