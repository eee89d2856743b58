package detect

import (
	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// Contour filter bounds. Tiny specks and near-full-frame regions carry no
// shape information.
const (
	minContourArea      = 20.0
	maxContourAreaFrac  = 0.8
	minContourPerimeter = 10.0
	shapeDedupThreshold = 0.1
)

// moore tracing neighborhood, clockwise from west.
var mooreOffsets = [8][2]int{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// FindContours traces all closed boundaries in a binary mask, outer and
// hole boundaries alike, and assigns each contour its enclosing parent by
// containment. Contours are returned unfiltered.
func FindContours(m *imaging.Mask) []geometry.Contour {
	w, h := m.W, m.H
	visited := imaging.NewMask(w, h)
	var contours []geometry.Contour

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m.At(x, y) || visited.At(x, y) {
				continue
			}
			// A boundary start: foreground pixel whose west neighbor is
			// background or off-frame.
			if x > 0 && m.At(x-1, y) {
				// Interior of a run already traced; mark and move on.
				if visited.At(x-1, y) {
					visited.Set(x, y, true)
				}
				continue
			}
			boundary := traceMoore(m, x, y)
			for _, p := range boundary {
				visited.Set(p.X, p.Y, true)
			}
			contours = append(contours, geometry.Contour{Points: boundary, Parent: -1})
		}
	}

	assignParents(contours)
	return contours
}

// traceMoore walks the boundary of the component containing the start
// pixel clockwise until it returns to the start.
func traceMoore(m *imaging.Mask, sx, sy int) []geometry.Pixel {
	start := geometry.Pixel{X: sx, Y: sy}
	boundary := []geometry.Pixel{start}

	cur := start
	// Backtrack begins west of the start pixel.
	back := 0
	for {
		found := false
		// Scan the 8-neighborhood clockwise starting just after the
		// backtrack direction.
		for i := 1; i <= 8; i++ {
			d := (back + i) % 8
			nx := cur.X + mooreOffsets[d][0]
			ny := cur.Y + mooreOffsets[d][1]
			if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H || !m.At(nx, ny) {
				continue
			}
			next := geometry.Pixel{X: nx, Y: ny}
			if next == start && len(boundary) > 2 {
				return boundary
			}
			boundary = append(boundary, next)
			// New backtrack points from next toward cur.
			back = (d + 4) % 8
			cur = next
			found = true
			break
		}
		if !found {
			// Isolated pixel.
			return boundary
		}
		if len(boundary) > 4*m.W*m.H {
			// Trace failed to close; bail out rather than loop.
			return boundary
		}
	}
}

// assignParents sets each contour's Parent to the smallest contour whose
// bounding box strictly contains it.
func assignParents(contours []geometry.Contour) {
	type box struct{ minX, minY, maxX, maxY int }
	boxes := make([]box, len(contours))
	for i := range contours {
		x0, y0, x1, y1 := contours[i].BoundingBox()
		boxes[i] = box{x0, y0, x1, y1}
	}
	for i := range contours {
		best := -1
		bestArea := -1.0
		for j := range contours {
			if i == j {
				continue
			}
			if boxes[j].minX <= boxes[i].minX && boxes[j].minY <= boxes[i].minY &&
				boxes[j].maxX >= boxes[i].maxX && boxes[j].maxY >= boxes[i].maxY &&
				(boxes[j] != boxes[i]) {
				a := contours[j].Area()
				if best == -1 || a < bestArea {
					best = j
					bestArea = a
				}
			}
		}
		contours[i].Parent = best
	}
}

// FilterContours drops contours too small or too large to be meaningful
// strokes, then deduplicates near-identical shapes by Hu-moment distance.
// frameW and frameH bound the large-area cutoff. A non-positive
// shapeThreshold uses the default.
func FilterContours(contours []geometry.Contour, frameW, frameH int, shapeThreshold float64) []geometry.Contour {
	if shapeThreshold <= 0 {
		shapeThreshold = shapeDedupThreshold
	}
	maxArea := maxContourAreaFrac * float64(frameW) * float64(frameH)

	var kept []geometry.Contour
	for i := range contours {
		c := contours[i]
		a := c.Area()
		if a <= minContourArea || a >= maxArea {
			continue
		}
		if c.Perimeter() <= minContourPerimeter {
			continue
		}
		dup := false
		for j := range kept {
			if geometry.MatchShapes(&c, &kept[j]) < shapeThreshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}
