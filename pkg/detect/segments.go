package detect

import (
	"math"

	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// Segment is a finite line segment detected in an edge mask.
type Segment struct {
	X1, Y1, X2, Y2 int
}

// Length returns the segment's Euclidean length.
func (s Segment) Length() float64 {
	return math.Hypot(float64(s.X2-s.X1), float64(s.Y2-s.Y1))
}

// maxSegmentLines bounds how many accumulator peaks are scanned for
// segments.
const maxSegmentLines = 50

// DetectLineSegments finds finite line segments: accumulator peaks from
// the standard transform are scanned pixel by pixel, chaining edge pixels
// into runs. Runs shorter than minLen are dropped; gaps up to maxGap
// pixels are bridged.
func DetectLineSegments(edges *imaging.Mask, minVotes, minLen, maxGap int) []Segment {
	lines := DetectLines(edges, minVotes)
	if len(lines) > maxSegmentLines {
		lines = lines[:maxSegmentLines]
	}

	var segs []Segment
	for _, l := range lines {
		segs = append(segs, scanLine(edges, l, minLen, maxGap)...)
	}
	return segs
}

// scanLine walks the full line across the frame and extracts edge runs.
func scanLine(edges *imaging.Mask, l Line, minLen, maxGap int) []Segment {
	w, h := edges.W, edges.H
	sin, cos := math.Sin(l.Theta), math.Cos(l.Theta)

	// Parametrize the line x*cos + y*sin = rho by t along its direction
	// (-sin, cos), anchored at the closest point to the origin.
	x0, y0 := l.Rho*cos, l.Rho*sin
	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))

	var segs []Segment
	runStart := [2]int{0, 0}
	runEnd := [2]int{0, 0}
	inRun := false
	gap := 0

	flush := func() {
		if !inRun {
			return
		}
		s := Segment{X1: runStart[0], Y1: runStart[1], X2: runEnd[0], Y2: runEnd[1]}
		if s.Length() >= float64(minLen) {
			segs = append(segs, s)
		}
		inRun = false
	}

	for t := -diag; t <= diag; t++ {
		x := int(math.Round(x0 - float64(t)*sin))
		y := int(math.Round(y0 + float64(t)*cos))
		if x < 0 || y < 0 || x >= w || y >= h {
			flush()
			continue
		}
		if onEdge(edges, x, y) {
			if !inRun {
				runStart = [2]int{x, y}
				inRun = true
			}
			runEnd = [2]int{x, y}
			gap = 0
		} else if inRun {
			gap++
			if gap > maxGap {
				flush()
				gap = 0
			}
		}
	}
	flush()
	return segs
}

// onEdge tolerates 1 pixel of rasterization error across the line.
func onEdge(edges *imaging.Mask, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= edges.W || ny >= edges.H {
				continue
			}
			if edges.At(nx, ny) {
				return true
			}
		}
	}
	return false
}
