// Package detect implements the low-level detectors the analysis stages
// build on: edge and contour extraction, dot detection via blobs, Hough
// circles and ring templates, line transforms, and skeletonization.
package detect

import (
	"math"

	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// CannyTier is a low/high hysteresis threshold pair.
type CannyTier struct {
	Low  float64
	High float64
}

// CannyTiers are tried in order from most to least sensitive when a stage
// needs edges at multiple detail levels.
var CannyTiers = []CannyTier{
	{20, 80},
	{30, 100},
	{50, 150},
	{100, 200},
	{150, 250},
}

// Canny runs edge detection with the given hysteresis thresholds and
// returns a mask of edge pixels. The input is blurred first to suppress
// sensor noise.
func Canny(g *imaging.Gray, low, high float64) *imaging.Mask {
	blurred := g.GaussianBlur(1.4)
	mag, dir := sobel(blurred)
	thin := nonMaxSuppress(mag, dir, g.W, g.H)
	return hysteresis(thin, g.W, g.H, low, high)
}

// sobel returns gradient magnitude and direction per pixel.
func sobel(g *imaging.Gray) (mag, dir []float64) {
	w, h := g.W, g.H
	mag = make([]float64, w*h)
	dir = make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -float64(g.At(x-1, y-1)) + float64(g.At(x+1, y-1)) +
				-2*float64(g.At(x-1, y)) + 2*float64(g.At(x+1, y)) +
				-float64(g.At(x-1, y+1)) + float64(g.At(x+1, y+1))
			gy := -float64(g.At(x-1, y-1)) - 2*float64(g.At(x, y-1)) - float64(g.At(x+1, y-1)) +
				float64(g.At(x-1, y+1)) + 2*float64(g.At(x, y+1)) + float64(g.At(x+1, y+1))
			i := y*w + x
			mag[i] = math.Hypot(gx, gy)
			dir[i] = math.Atan2(gy, gx)
		}
	}
	return mag, dir
}

// nonMaxSuppress keeps only pixels that are local maxima along their
// gradient direction.
func nonMaxSuppress(mag, dir []float64, w, h int) []float64 {
	out := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if m == 0 {
				continue
			}
			angle := dir[i] * 180 / math.Pi
			if angle < 0 {
				angle += 180
			}
			var a, b float64
			switch {
			case angle < 22.5 || angle >= 157.5:
				a, b = mag[i-1], mag[i+1]
			case angle < 67.5:
				a, b = mag[i-w+1], mag[i+w-1]
			case angle < 112.5:
				a, b = mag[i-w], mag[i+w]
			default:
				a, b = mag[i-w-1], mag[i+w+1]
			}
			if m >= a && m >= b {
				out[i] = m
			}
		}
	}
	return out
}

// hysteresis links weak edges to strong ones. Pixels above high seed the
// result; pixels above low are kept only when 8-connected to a seed.
func hysteresis(mag []float64, w, h int, low, high float64) *imaging.Mask {
	edges := imaging.NewMask(w, h)
	var stack []int
	for i, m := range mag {
		if m >= high {
			edges.Pix[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if !edges.Pix[j] && mag[j] >= low {
					edges.Pix[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}
