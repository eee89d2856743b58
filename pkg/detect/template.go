package detect

import (
	"math"
	"sort"

	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// Ring template matching parameters. Templates are synthetic dark disks on
// a light field, matched against the image by normalized cross
// correlation.
const (
	templateMinRadius  = 3
	templateMaxRadius  = 15
	templateRadiusStep = 2
	templateMinNCC     = 0.65
	templateMaxPerSize = 50
)

// MatchRingTemplates slides dark-disk templates of increasing radius over
// the image and reports positions whose correlation clears the threshold.
// Per radius, only the strongest templateMaxPerSize matches survive.
func MatchRingTemplates(g *imaging.Gray) []geometry.Keypoint {
	maxR := templateMaxRadius
	if lim := min(g.W, g.H) / 6; lim < maxR {
		maxR = lim
	}

	var all []geometry.Keypoint
	for r := templateMinRadius; r <= maxR; r += templateRadiusStep {
		tmpl := diskTemplate(r)
		matches := matchTemplate(g, tmpl, templateMinNCC)
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Confidence > matches[j].Confidence
		})
		if len(matches) > templateMaxPerSize {
			matches = matches[:templateMaxPerSize]
		}
		for i := range matches {
			matches[i].Size = 2 * float64(r)
		}
		all = append(all, matches...)
	}
	return all
}

// diskTemplate builds a dark disk of the given radius on a light field
// with one pixel of margin.
func diskTemplate(r int) *imaging.Gray {
	side := 2*r + 3
	t := imaging.New(side, side)
	c := float64(side-1) / 2
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			if math.Hypot(float64(x)-c, float64(y)-c) <= float64(r) {
				t.Set(x, y, 30)
			} else {
				t.Set(x, y, 220)
			}
		}
	}
	return t
}

// matchTemplate computes NCC at every placement and returns local maxima
// above the threshold. Placements are strided by half the template side
// to bound the search, then refined in a small window.
func matchTemplate(g, tmpl *imaging.Gray, threshold float64) []geometry.Keypoint {
	tw, th := tmpl.W, tmpl.H
	if g.W < tw || g.H < th {
		return nil
	}
	stride := tw / 2
	if stride < 1 {
		stride = 1
	}

	var out []geometry.Keypoint
	for y := 0; y+th <= g.H; y += stride {
		for x := 0; x+tw <= g.W; x += stride {
			score := nccAt(g, tmpl, x, y)
			if score < threshold {
				continue
			}
			// Refine to the best placement in the stride window.
			bx, by, bs := x, y, score
			for dy := -stride / 2; dy <= stride/2; dy++ {
				for dx := -stride / 2; dx <= stride/2; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx+tw > g.W || ny+th > g.H {
						continue
					}
					if s := nccAt(g, tmpl, nx, ny); s > bs {
						bx, by, bs = nx, ny, s
					}
				}
			}
			out = append(out, geometry.Keypoint{
				X:          float64(bx) + float64(tw)/2,
				Y:          float64(by) + float64(th)/2,
				Confidence: bs,
			})
		}
	}
	return out
}

// nccAt computes zero-mean normalized cross correlation between the
// template and the image window at (x0, y0).
func nccAt(g, tmpl *imaging.Gray, x0, y0 int) float64 {
	tw, th := tmpl.W, tmpl.H
	n := float64(tw * th)

	var sumI, sumT float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			sumI += float64(g.At(x0+x, y0+y))
			sumT += float64(tmpl.At(x, y))
		}
	}
	meanI := sumI / n
	meanT := sumT / n

	var num, varI, varT float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			di := float64(g.At(x0+x, y0+y)) - meanI
			dt := float64(tmpl.At(x, y)) - meanT
			num += di * dt
			varI += di * di
			varT += dt * dt
		}
	}
	denom := math.Sqrt(varI * varT)
	if denom == 0 {
		return 0
	}
	return num / denom
}
