package geometry

import "math"

// DefaultFractalDimension is reported when a fit is not possible, e.g. too
// few points. It sits between a line (1.0) and a filled plane (2.0), which
// matches typical hand-drawn line work.
const DefaultFractalDimension = 1.5

// boxScales are the grid subdivisions used for box counting.
var boxScales = []int{2, 4, 8, 16, 32}

// BoxCountingDimension estimates the fractal dimension of a point set
// inside a w x h frame. The frame is subdivided at each scale, occupied
// boxes are counted, and the dimension is the negated slope of a
// least-squares fit of log(count) against log(boxSize).
func BoxCountingDimension(points []Point, w, h int) float64 {
	if len(points) < 2 || w <= 0 || h <= 0 {
		return DefaultFractalDimension
	}

	var logSizes, logCounts []float64
	for _, scale := range boxScales {
		boxW := float64(w) / float64(scale)
		boxH := float64(h) / float64(scale)
		if boxW < 1 || boxH < 1 {
			continue
		}
		occupied := make(map[int]struct{})
		for _, p := range points {
			bx := int(p.X / boxW)
			by := int(p.Y / boxH)
			if bx < 0 || by < 0 || bx >= scale || by >= scale {
				continue
			}
			occupied[by*scale+bx] = struct{}{}
		}
		if len(occupied) == 0 {
			continue
		}
		logSizes = append(logSizes, math.Log(boxW))
		logCounts = append(logCounts, math.Log(float64(len(occupied))))
	}

	if len(logSizes) < 2 {
		return DefaultFractalDimension
	}

	slope, ok := linearSlope(logSizes, logCounts)
	if !ok {
		return DefaultFractalDimension
	}
	d := -slope
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return DefaultFractalDimension
	}
	return d
}

// linearSlope fits y = a + b*x and returns b.
func linearSlope(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	var sx, sy, sxx, sxy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		sxy += xs[i] * ys[i]
	}
	denom := n*sxx - sx*sx
	if denom == 0 {
		return 0, false
	}
	return (n*sxy - sx*sy) / denom, true
}
