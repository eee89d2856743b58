package geometry

import (
	"math"
	"sort"
)

// Contour is a closed boundary traced from a binary mask. Points are the
// boundary pixels in trace order. Parent indexes the enclosing contour in
// the owning slice, or -1 for an outermost boundary.
type Contour struct {
	Points []Pixel
	Parent int
}

// Area returns the enclosed area via the shoelace formula.
func (c *Contour) Area() float64 {
	n := len(c.Points)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		p := c.Points[i]
		q := c.Points[(i+1)%n]
		sum += float64(p.X)*float64(q.Y) - float64(q.X)*float64(p.Y)
	}
	return math.Abs(sum) / 2
}

// Perimeter returns the closed boundary length.
func (c *Contour) Perimeter() float64 {
	n := len(c.Points)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		p := c.Points[i].Point()
		q := c.Points[(i+1)%n].Point()
		sum += p.Dist(q)
	}
	return sum
}

// Circularity returns 4*pi*area / perimeter^2, which is 1 for a perfect
// circle and falls toward 0 for elongated or ragged shapes.
func (c *Contour) Circularity() float64 {
	p := c.Perimeter()
	if p <= 0 {
		return 0
	}
	return 4 * math.Pi * c.Area() / (p * p)
}

// BoundingBox returns the axis-aligned bounds (minX, minY, maxX, maxY).
func (c *Contour) BoundingBox() (minX, minY, maxX, maxY int) {
	if len(c.Points) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = c.Points[0].X, c.Points[0].Y
	maxX, maxY = minX, minY
	for _, p := range c.Points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return minX, minY, maxX, maxY
}

// AspectRatio returns bounding box width/height, guarding against a
// degenerate zero-height box.
func (c *Contour) AspectRatio() float64 {
	minX, minY, maxX, maxY := c.BoundingBox()
	w := float64(maxX - minX + 1)
	h := float64(maxY - minY + 1)
	if h <= 0 {
		return 0
	}
	return w / h
}

// Centroid returns the mean of the boundary points.
func (c *Contour) Centroid() Point {
	if len(c.Points) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range c.Points {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	n := float64(len(c.Points))
	return Point{X: sx / n, Y: sy / n}
}

// ConvexHull returns the convex hull of the contour's points using the
// monotone chain algorithm. The hull is returned in counter-clockwise
// order without the closing point repeated.
func (c *Contour) ConvexHull() []Pixel {
	pts := make([]Pixel, len(c.Points))
	copy(pts, c.Points)
	return ConvexHull(pts)
}

// Solidity returns contour area divided by convex hull area. Values near 1
// indicate convex shapes; lobed or branched shapes score lower.
func (c *Contour) Solidity() float64 {
	hull := c.ConvexHull()
	hc := Contour{Points: hull}
	ha := hc.Area()
	if ha <= 0 {
		return 0
	}
	s := c.Area() / ha
	if s > 1 {
		s = 1
	}
	return s
}

// ConvexHull computes the convex hull of a point set (monotone chain).
func ConvexHull(pts []Pixel) []Pixel {
	n := len(pts)
	if n < 3 {
		out := make([]Pixel, n)
		copy(out, pts)
		return out
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	cross := func(o, a, b Pixel) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]Pixel, 0, 2*n)
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// ApproxPolyDP simplifies a closed polygon with the Douglas-Peucker
// algorithm. epsilon is the maximum allowed deviation in pixels.
func ApproxPolyDP(pts []Pixel, epsilon float64) []Pixel {
	if len(pts) < 3 || epsilon <= 0 {
		out := make([]Pixel, len(pts))
		copy(out, pts)
		return out
	}

	// Split the closed loop at the two farthest-apart anchor points so the
	// open-curve recursion applies cleanly to both halves.
	maxD := -1.0
	ai, bi := 0, len(pts)/2
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			d := pts[i].Point().Dist(pts[j].Point())
			if d > maxD {
				maxD = d
				ai, bi = i, j
			}
		}
	}

	first := append([]Pixel{}, pts[ai:bi+1]...)
	second := append(append([]Pixel{}, pts[bi:]...), pts[:ai+1]...)

	a := douglasPeucker(first, epsilon)
	b := douglasPeucker(second, epsilon)
	// Drop the duplicated anchors when joining.
	out := append(a, b[1:len(b)-1]...)
	return out
}

func douglasPeucker(pts []Pixel, epsilon float64) []Pixel {
	if len(pts) < 3 {
		out := make([]Pixel, len(pts))
		copy(out, pts)
		return out
	}
	var maxD float64
	idx := 0
	a, b := pts[0], pts[len(pts)-1]
	for i := 1; i < len(pts)-1; i++ {
		d := perpDistance(pts[i], a, b)
		if d > maxD {
			maxD = d
			idx = i
		}
	}
	if maxD <= epsilon {
		return []Pixel{a, b}
	}
	left := douglasPeucker(pts[:idx+1], epsilon)
	right := douglasPeucker(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

func perpDistance(p, a, b Pixel) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return p.Point().Dist(a.Point())
	}
	return math.Abs(dy*float64(p.X)-dx*float64(p.Y)+float64(b.X)*float64(a.Y)-float64(b.Y)*float64(a.X)) / length
}

// HuMoments computes the seven rotation/scale/translation-invariant Hu
// moments of a contour's boundary points.
func (c *Contour) HuMoments() [7]float64 {
	var hu [7]float64
	n := float64(len(c.Points))
	if n == 0 {
		return hu
	}

	cen := c.Centroid()

	// Central moments over the boundary point set.
	var mu [4][4]float64
	for _, p := range c.Points {
		dx := float64(p.X) - cen.X
		dy := float64(p.Y) - cen.Y
		xp := [4]float64{1, dx, dx * dx, dx * dx * dx}
		yp := [4]float64{1, dy, dy * dy, dy * dy * dy}
		for i := 0; i <= 3; i++ {
			for j := 0; j <= 3-i; j++ {
				mu[i][j] += xp[i] * yp[j]
			}
		}
	}

	// Normalized central moments.
	eta := func(p, q int) float64 {
		gamma := float64(p+q)/2 + 1
		return mu[p][q] / math.Pow(n, gamma)
	}

	n20, n02, n11 := eta(2, 0), eta(0, 2), eta(1, 1)
	n30, n03, n21, n12 := eta(3, 0), eta(0, 3), eta(2, 1), eta(1, 2)

	hu[0] = n20 + n02
	hu[1] = (n20-n02)*(n20-n02) + 4*n11*n11
	hu[2] = (n30-3*n12)*(n30-3*n12) + (3*n21-n03)*(3*n21-n03)
	hu[3] = (n30+n12)*(n30+n12) + (n21+n03)*(n21+n03)
	hu[4] = (n30-3*n12)*(n30+n12)*((n30+n12)*(n30+n12)-3*(n21+n03)*(n21+n03)) +
		(3*n21-n03)*(n21+n03)*(3*(n30+n12)*(n30+n12)-(n21+n03)*(n21+n03))
	hu[5] = (n20-n02)*((n30+n12)*(n30+n12)-(n21+n03)*(n21+n03)) +
		4*n11*(n30+n12)*(n21+n03)
	hu[6] = (3*n21-n03)*(n30+n12)*((n30+n12)*(n30+n12)-3*(n21+n03)*(n21+n03)) -
		(n30-3*n12)*(n21+n03)*(3*(n30+n12)*(n30+n12)-(n21+n03)*(n21+n03))
	return hu
}

// MatchShapes returns a dissimilarity score between two contours based on
// log-scaled Hu moments. Identical shapes score near 0.
func MatchShapes(a, b *Contour) float64 {
	ha := a.HuMoments()
	hb := b.HuMoments()
	var sum float64
	for i := 0; i < 7; i++ {
		ma := logSign(ha[i])
		mb := logSign(hb[i])
		if ma == 0 || mb == 0 {
			continue
		}
		sum += math.Abs(1/ma - 1/mb)
	}
	return sum
}

func logSign(v float64) float64 {
	if v == 0 {
		return 0
	}
	s := 1.0
	if v < 0 {
		s = -1
	}
	return s * math.Log10(math.Abs(v))
}
