// Package geometry provides the point, keypoint, and contour types shared by
// the detector primitives and the analysis stages, together with the small
// numeric toolkit they rely on (clustering, pairwise statistics, fractal
// dimension, polygon properties).
package geometry

import "math"

// Point is a 2D coordinate in pixel space. Detector outputs use float64
// coordinates because subpixel centers fall out of accumulator averaging.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance to q.
func (p Point) Dist(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Pixel is an integer raster coordinate.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point converts to a float64 Point.
func (p Pixel) Point() Point {
	return Point{X: float64(p.X), Y: float64(p.Y)}
}

// Keypoint is a detected dot candidate.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Size       float64 `json:"size"`       // estimated diameter in pixels
	Confidence float64 `json:"confidence"` // detector response strength, [0, 1]
}

// Pos returns the keypoint center as a Point.
func (k Keypoint) Pos() Point {
	return Point{X: k.X, Y: k.Y}
}

// PairwiseDistances returns the distances between every unordered pair of
// points, in index order (i < j). Empty for fewer than two points.
func PairwiseDistances(points []Point) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, 0, len(points)*(len(points)-1)/2)
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			out = append(out, points[i].Dist(points[j]))
		}
	}
	return out
}

// Centroid returns the arithmetic mean of the points, or the origin for an
// empty slice.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}
}
