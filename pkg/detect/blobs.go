package detect

import (
	"math"

	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// BlobParams filter candidate blobs by geometric properties. The defaults
// select small compact pulli dots and reject strokes and noise.
type BlobParams struct {
	MinArea        float64
	MaxArea        float64
	MinCircularity float64
	MinConvexity   float64
	MinInertia     float64
}

// DefaultBlobParams returns the dot-detection defaults.
func DefaultBlobParams() BlobParams {
	return BlobParams{
		MinArea:        5,
		MaxArea:        1000,
		MinCircularity: 0.6,
		MinConvexity:   0.7,
		MinInertia:     0.3,
	}
}

// blobThresholds sweep the intensity range for multi-threshold detection.
var blobThresholds = []uint8{60, 90, 120, 150, 180, 210}

// DetectBlobs finds compact dark blobs via a multi-threshold sweep. The
// image is binarized at several levels, connected components are filtered
// by the params, and detections recurring across thresholds are merged
// into single keypoints whose confidence reflects threshold stability.
func DetectBlobs(g *imaging.Gray, params BlobParams) []geometry.Keypoint {
	type candidate struct {
		x, y, size float64
		hits       int
	}
	var cands []candidate

	for _, t := range blobThresholds {
		mask := g.BinarizeInv(t)
		for _, comp := range connectedComponents(mask) {
			prop, ok := blobProperties(comp, params)
			if !ok {
				continue
			}
			merged := false
			for i := range cands {
				dx := cands[i].x/float64(cands[i].hits) - prop.cx
				dy := cands[i].y/float64(cands[i].hits) - prop.cy
				if math.Hypot(dx, dy) < 5 {
					cands[i].x += prop.cx
					cands[i].y += prop.cy
					cands[i].size += prop.diameter
					cands[i].hits++
					merged = true
					break
				}
			}
			if !merged {
				cands = append(cands, candidate{x: prop.cx, y: prop.cy, size: prop.diameter, hits: 1})
			}
		}
	}

	kps := make([]geometry.Keypoint, 0, len(cands))
	for _, c := range cands {
		n := float64(c.hits)
		kps = append(kps, geometry.Keypoint{
			X:          c.x / n,
			Y:          c.y / n,
			Size:       c.size / n,
			Confidence: math.Min(1, n/float64(len(blobThresholds))),
		})
	}
	return kps
}

type blobProps struct {
	cx, cy, diameter float64
}

// blobProperties validates a component against the params and returns its
// center and equivalent diameter.
func blobProperties(comp []geometry.Pixel, params BlobParams) (blobProps, bool) {
	area := float64(len(comp))
	if area < params.MinArea || area > params.MaxArea {
		return blobProps{}, false
	}

	var sx, sy float64
	for _, p := range comp {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	cx, cy := sx/area, sy/area

	// Second moments for inertia ratio.
	var m20, m02, m11 float64
	for _, p := range comp {
		dx := float64(p.X) - cx
		dy := float64(p.Y) - cy
		m20 += dx * dx
		m02 += dy * dy
		m11 += dx * dy
	}
	tr := m20 + m02
	det := m20*m02 - m11*m11
	disc := math.Sqrt(math.Max(0, tr*tr/4-det))
	l1 := tr/2 + disc
	l2 := tr/2 - disc
	if l1 > 0 {
		if l2/l1 < params.MinInertia {
			return blobProps{}, false
		}
	}

	// Circularity and convexity over the component's boundary.
	hull := geometry.ConvexHull(comp)
	hullC := geometry.Contour{Points: hull}
	hullArea := hullC.Area()
	if hullArea > 0 {
		if area/hullArea < params.MinConvexity {
			return blobProps{}, false
		}
	}

	perimeter := componentPerimeter(comp)
	if perimeter > 0 {
		circ := 4 * math.Pi * area / (perimeter * perimeter)
		if circ < params.MinCircularity {
			return blobProps{}, false
		}
	}

	return blobProps{cx: cx, cy: cy, diameter: 2 * math.Sqrt(area/math.Pi)}, true
}

// componentPerimeter counts exposed pixel edges as an area-consistent
// boundary length estimate.
func componentPerimeter(comp []geometry.Pixel) float64 {
	set := make(map[geometry.Pixel]struct{}, len(comp))
	for _, p := range comp {
		set[p] = struct{}{}
	}
	edges := 0
	for _, p := range comp {
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			if _, ok := set[geometry.Pixel{X: p.X + d[0], Y: p.Y + d[1]}]; !ok {
				edges++
			}
		}
	}
	// An edge count over-reads curved boundaries; scale toward the
	// diagonal-aware length.
	return float64(edges) * 0.95
}

// connectedComponents returns the 8-connected foreground components of a
// mask, each as its pixel list. Components under 3 pixels are dropped.
func connectedComponents(m *imaging.Mask) [][]geometry.Pixel {
	w, h := m.W, m.H
	seen := imaging.NewMask(w, h)
	var comps [][]geometry.Pixel

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m.At(x, y) || seen.At(x, y) {
				continue
			}
			var comp []geometry.Pixel
			stack := []geometry.Pixel{{X: x, Y: y}}
			seen.Set(x, y, true)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				comp = append(comp, p)
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						if m.At(nx, ny) && !seen.At(nx, ny) {
							seen.Set(nx, ny, true)
							stack = append(stack, geometry.Pixel{X: nx, Y: ny})
						}
					}
				}
			}
			if len(comp) >= 3 {
				comps = append(comps, comp)
			}
		}
	}
	return comps
}
