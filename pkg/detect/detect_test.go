package detect

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// lightField returns a w x h image filled with a light background.
func lightField(w, h int) *imaging.Gray {
	g := imaging.New(w, h)
	for i := range g.Pix {
		g.Pix[i] = 230
	}
	return g
}

func drawDisk(g *imaging.Gray, cx, cy, r int, v uint8) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if x < 0 || y < 0 || x >= g.W || y >= g.H {
				continue
			}
			if math.Hypot(float64(x-cx), float64(y-cy)) <= float64(r) {
				g.Set(x, y, v)
			}
		}
	}
}

func drawRect(g *imaging.Gray, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			g.Set(x, y, v)
		}
	}
}

func TestCannyFindsStepEdge(t *testing.T) {
	g := lightField(64, 64)
	drawRect(g, 0, 0, 31, 63, 20)

	edges := Canny(g, 50, 150)
	// Edge pixels concentrate around the x=31 boundary.
	onBoundary := 0
	for y := 4; y < 60; y++ {
		for x := 28; x < 36; x++ {
			if edges.At(x, y) {
				onBoundary++
			}
		}
	}
	assert.Greater(t, onBoundary, 30)
}

func TestCannyBlankImage(t *testing.T) {
	g := lightField(32, 32)
	edges := Canny(g, 50, 150)
	assert.Equal(t, 0, edges.Count())
}

func TestFindContoursSquare(t *testing.T) {
	g := lightField(60, 60)
	drawRect(g, 15, 15, 44, 44, 20)
	mask := g.BinarizeInv(128)

	contours := FindContours(mask)
	require.NotEmpty(t, contours)

	// The outer boundary covers the drawn square.
	c := contours[0]
	minX, minY, maxX, maxY := c.BoundingBox()
	assert.Equal(t, 15, minX)
	assert.Equal(t, 15, minY)
	assert.Equal(t, 44, maxX)
	assert.Equal(t, 44, maxY)
	assert.Equal(t, -1, c.Parent)
}

func TestFindContoursHierarchy(t *testing.T) {
	g := lightField(80, 80)
	drawRect(g, 10, 10, 69, 69, 20)
	drawRect(g, 30, 30, 49, 49, 230) // hole

	mask := g.BinarizeInv(128)
	contours := FindContours(mask)
	require.GreaterOrEqual(t, len(contours), 2)

	// At least one contour nests inside another.
	nested := false
	for _, c := range contours {
		if c.Parent >= 0 {
			nested = true
		}
	}
	assert.True(t, nested)
}

func TestFilterContours(t *testing.T) {
	big := geometry.Contour{Points: rectBoundary(0, 0, 99, 99)}
	small := geometry.Contour{Points: rectBoundary(5, 5, 7, 7)}
	good := geometry.Contour{Points: rectBoundary(20, 20, 50, 50)}

	kept := FilterContours([]geometry.Contour{big, small, good}, 100, 100, 0)
	require.Len(t, kept, 1)
	minX, _, maxX, _ := kept[0].BoundingBox()
	assert.Equal(t, 20, minX)
	assert.Equal(t, 50, maxX)
}

func TestFilterContoursDedupsIdenticalShapesAnywhere(t *testing.T) {
	// Two identical squares in opposite corners. Dedup is by shape-match
	// distance alone, so placement must not keep the second one.
	a := geometry.Contour{Points: rectBoundary(10, 10, 22, 22)}
	b := geometry.Contour{Points: rectBoundary(200, 200, 212, 212)}
	require.Less(t, geometry.MatchShapes(&a, &b), 0.1)

	kept := FilterContours([]geometry.Contour{a, b}, 400, 400, 0)
	require.Len(t, kept, 1)
	minX, _, _, _ := kept[0].BoundingBox()
	assert.Equal(t, 10, minX)
}

func rectBoundary(x0, y0, x1, y1 int) []geometry.Pixel {
	var pts []geometry.Pixel
	for x := x0; x < x1; x++ {
		pts = append(pts, geometry.Pixel{X: x, Y: y0})
	}
	for y := y0; y < y1; y++ {
		pts = append(pts, geometry.Pixel{X: x1, Y: y})
	}
	for x := x1; x > x0; x-- {
		pts = append(pts, geometry.Pixel{X: x, Y: y1})
	}
	for y := y1; y > y0; y-- {
		pts = append(pts, geometry.Pixel{X: x0, Y: y})
	}
	return pts
}

func TestDetectBlobsDotGrid(t *testing.T) {
	g := lightField(200, 200)
	var want []geometry.Point
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			cx, cy := 40+col*60, 40+row*60
			drawDisk(g, cx, cy, 5, 30)
			want = append(want, geometry.Point{X: float64(cx), Y: float64(cy)})
		}
	}

	kps := DetectBlobs(g, DefaultBlobParams())
	require.Len(t, kps, 9)

	for _, w := range want {
		found := false
		for _, kp := range kps {
			if kp.Pos().Dist(w) < 3 {
				found = true
				break
			}
		}
		assert.True(t, found, "no blob near %v", w)
	}
	for _, kp := range kps {
		assert.Greater(t, kp.Confidence, 0.0)
		assert.LessOrEqual(t, kp.Confidence, 1.0)
	}
}

func TestDetectBlobsRejectsStrokes(t *testing.T) {
	g := lightField(200, 200)
	// A long thin stroke fails the inertia and circularity filters.
	drawRect(g, 20, 98, 180, 102, 30)

	kps := DetectBlobs(g, DefaultBlobParams())
	assert.Empty(t, kps)
}

func TestDetectCircles(t *testing.T) {
	g := lightField(120, 120)
	drawDisk(g, 60, 60, 15, 30)

	circles := DetectCircles(g)
	require.NotEmpty(t, circles)

	best := circles[0]
	assert.InDelta(t, 60, best.X, 4)
	assert.InDelta(t, 60, best.Y, 4)
	assert.InDelta(t, 15, best.Radius, 3)
}

func TestDetectCirclesMinDistance(t *testing.T) {
	g := lightField(200, 100)
	drawDisk(g, 50, 50, 12, 30)
	drawDisk(g, 150, 50, 12, 30)

	circles := DetectCircles(g)
	require.GreaterOrEqual(t, len(circles), 2)
	for i := range circles {
		for j := i + 1; j < len(circles); j++ {
			d := math.Hypot(circles[i].X-circles[j].X, circles[i].Y-circles[j].Y)
			assert.GreaterOrEqual(t, d, houghMinDist)
		}
	}
}

func TestMatchRingTemplates(t *testing.T) {
	g := lightField(150, 150)
	drawDisk(g, 50, 50, 7, 30)
	drawDisk(g, 100, 100, 7, 30)

	kps := MatchRingTemplates(g)
	require.NotEmpty(t, kps)

	near := func(x, y float64) bool {
		for _, kp := range kps {
			if math.Hypot(kp.X-x, kp.Y-y) < 6 {
				return true
			}
		}
		return false
	}
	assert.True(t, near(50, 50))
	assert.True(t, near(100, 100))
	for _, kp := range kps {
		assert.GreaterOrEqual(t, kp.Confidence, templateMinNCC)
	}
}

func TestSkeletonizeThinLine(t *testing.T) {
	m := imaging.NewMask(60, 20)
	for y := 7; y <= 13; y++ {
		for x := 5; x < 55; x++ {
			m.Set(x, y, true)
		}
	}

	sk := Skeletonize(m)
	assert.Less(t, sk.Count(), m.Count()/2)
	// No column inside the stroke thins to nothing or stays thick.
	for x := 10; x < 50; x++ {
		col := 0
		for y := 0; y < 20; y++ {
			if sk.At(x, y) {
				col++
			}
		}
		assert.GreaterOrEqual(t, col, 1, "column %d lost", x)
		assert.LessOrEqual(t, col, 2, "column %d still thick", x)
	}
}

func TestDetectLines(t *testing.T) {
	edges := imaging.NewMask(100, 100)
	// A horizontal line at y=40.
	for x := 10; x < 90; x++ {
		edges.Set(x, 40, true)
	}

	lines := DetectLines(edges, 50)
	require.NotEmpty(t, lines)
	best := lines[0]
	// Hesse theta for a horizontal line is 90 degrees.
	assert.InDelta(t, math.Pi/2, best.Theta, 0.05)
	assert.InDelta(t, 40, best.Rho, 2)
	assert.InDelta(t, 0, math.Mod(best.LineAngleDegrees(), 180), 2)
}
