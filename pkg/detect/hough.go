package detect

import (
	"math"
	"sort"

	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// Hough circle parameters for dot-scale circles.
const (
	houghMinRadius   = 3
	houghMaxRadius   = 30
	houghMinDist     = 20.0
	houghMaxCircles  = 300
	houghVoteMinConf = 0.6
)

// Circle is a detected circle with a vote-based confidence.
type Circle struct {
	X, Y       float64
	Radius     float64
	Confidence float64
}

// DetectCircles runs a Hough circle transform over the image's edge map.
// Each edge pixel votes for centers on circles of every candidate radius,
// sampling the perimeter every 10 degrees. A candidate is kept when its
// votes cover at least houghVoteMinConf of the sampled perimeter, then
// candidates are greedily thinned so no two centers lie within minDist.
func DetectCircles(g *imaging.Gray) []Circle {
	edges := Canny(g, 50, 150)
	w, h := g.W, g.H

	var circles []Circle
	for r := houghMinRadius; r <= houghMaxRadius; r++ {
		acc := make(map[int]int)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if !edges.At(x, y) {
					continue
				}
				for deg := 0; deg < 360; deg += 10 {
					a := float64(deg) * math.Pi / 180
					cx := x - int(float64(r)*math.Cos(a))
					cy := y - int(float64(r)*math.Sin(a))
					if cx < 0 || cy < 0 || cx >= w || cy >= h {
						continue
					}
					acc[cy*w+cx]++
				}
			}
		}

		// 36 perimeter samples per voting edge pixel; a full circle of
		// radius r contributes roughly 2r edge pixels.
		minVotes := int(houghVoteMinConf * 2 * float64(r))
		if minVotes < 8 {
			minVotes = 8
		}
		for idx, votes := range acc {
			if votes < minVotes {
				continue
			}
			circles = append(circles, Circle{
				X:          float64(idx % w),
				Y:          float64(idx / w),
				Radius:     float64(r),
				Confidence: math.Min(1, float64(votes)/(2*float64(r))),
			})
		}
	}

	sort.SliceStable(circles, func(i, j int) bool {
		return circles[i].Confidence > circles[j].Confidence
	})

	var kept []Circle
	for _, c := range circles {
		tooClose := false
		for _, k := range kept {
			if math.Hypot(c.X-k.X, c.Y-k.Y) < houghMinDist {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, c)
			if len(kept) >= houghMaxCircles {
				break
			}
		}
	}
	return kept
}

// CirclesToKeypoints converts circle detections into keypoints with the
// circle diameter as size.
func CirclesToKeypoints(circles []Circle) []geometry.Keypoint {
	kps := make([]geometry.Keypoint, len(circles))
	for i, c := range circles {
		kps[i] = geometry.Keypoint{X: c.X, Y: c.Y, Size: 2 * c.Radius, Confidence: c.Confidence}
	}
	return kps
}

// Line is a detected line in Hesse normal form. Theta is in radians from
// the x axis, Rho the signed distance from the origin. Votes counts
// supporting edge pixels.
type Line struct {
	Theta float64
	Rho   float64
	Votes int
}

// DetectLines runs a standard Hough line transform over an edge mask and
// returns accumulator peaks above minVotes, strongest first, at 1 degree
// and 1 pixel resolution.
func DetectLines(edges *imaging.Mask, minVotes int) []Line {
	w, h := edges.W, edges.H
	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	nTheta := 180
	acc := make([]int, nTheta*(2*diag+1))

	sin := make([]float64, nTheta)
	cos := make([]float64, nTheta)
	for t := 0; t < nTheta; t++ {
		a := float64(t) * math.Pi / float64(nTheta)
		sin[t] = math.Sin(a)
		cos[t] = math.Cos(a)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !edges.At(x, y) {
				continue
			}
			for t := 0; t < nTheta; t++ {
				rho := int(math.Round(float64(x)*cos[t]+float64(y)*sin[t])) + diag
				acc[t*(2*diag+1)+rho]++
			}
		}
	}

	var lines []Line
	for t := 0; t < nTheta; t++ {
		for r := 0; r <= 2*diag; r++ {
			v := acc[t*(2*diag+1)+r]
			if v < minVotes {
				continue
			}
			lines = append(lines, Line{
				Theta: float64(t) * math.Pi / float64(nTheta),
				Rho:   float64(r - diag),
				Votes: v,
			})
		}
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Votes > lines[j].Votes })
	return lines
}

// LineAngleDegrees returns the line's direction in degrees on [0, 180).
func (l Line) LineAngleDegrees() float64 {
	deg := l.Theta*180/math.Pi + 90
	for deg >= 180 {
		deg -= 180
	}
	return deg
}
