package stages

import (
	"fmt"
	"math"
	"time"

	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// radialAngles is the rotation sweep for radial symmetry detection,
// covering the divisors common in traditional layouts.
var radialAngles = []int{30, 45, 60, 72, 90, 120, 135, 144, 180, 225, 270, 315}

// nFoldOrders are the rotational orders tested explicitly.
var nFoldOrders = []int{2, 3, 4, 5, 6, 8, 12}

// SymmetryAnalyzer runs the whole-image symmetry stage.
type SymmetryAnalyzer struct {
	Config Config
}

// similarity scores the agreement between the image and a transform of
// itself as a percentage clamped to [0, 100].
func similarity(a, b *imaging.Gray) float64 {
	s := imaging.NormalizedCrossCorrelation(a, b) * 100
	if s < 0 {
		return 0
	}
	return s
}

// Analyze quantifies reflective, rotational, diagonal, point, and n-fold
// symmetry of the image.
func (a *SymmetryAnalyzer) Analyze(g *imaging.Gray) *StageReport {
	start := time.Now()
	w, h := g.W, g.H

	rep := &SymmetryReport{NFold: map[string]Percent{}}

	// Reflections.
	rep.Horizontal = Percent(similarity(g, g.FlipH()))
	rep.Vertical = Percent(similarity(g, g.FlipV()))

	// Structural similarity via half-image pixel differences.
	left, right := g.SubLeft(), g.SubRight().FlipH()
	rep.HorizontalStructural = Percent(100 - imaging.MeanAbsDiff(left, right)/255*100)
	top, bottom := g.SubTop(), g.SubBottom().FlipV()
	rep.VerticalStructural = Percent(100 - imaging.MeanAbsDiff(top, bottom)/255*100)

	// Diagonals only apply to square frames; the transpose changes shape
	// otherwise.
	if w == h {
		rep.DiagonalMain = Percent(similarity(g, g.Transpose().FlipH()))
		rep.DiagonalAnti = Percent(similarity(g, g.FlipH().Transpose().FlipV()))
	}

	// Radial sweep.
	var radialScores []float64
	bestAngle, bestScore := 0, math.Inf(-1)
	for _, deg := range radialAngles {
		s := similarity(g, g.Rotate(float64(deg)))
		radialScores = append(radialScores, s)
		if s > bestScore {
			bestScore = s
			bestAngle = deg
		}
	}
	rep.Radial = Percent(geometry.Mean(radialScores))
	rep.BestRotationAngle = Degrees(bestAngle)

	// N-fold orders.
	for _, n := range nFoldOrders {
		rep.NFold[fmt.Sprintf("%d-fold", n)] = Percent(similarity(g, g.Rotate(360/float64(n))))
	}

	// Point symmetry.
	rep.Point = Percent(similarity(g, g.Rotate180()))

	// Balance from intensity moments.
	mom := g.ComputeMoments()
	cx, cy := mom.Centroid(w, h)
	centerX, centerY := float64(w/2), float64(h/2)
	rep.CentroidOffsetX = int(cx - centerX)
	rep.CentroidOffsetY = int(cy - centerY)
	if mom.M00 != 0 {
		rep.GeometricBalance = Percent(100 - (math.Abs(cx-centerX)+math.Abs(cy-centerY))/float64(max(w, h))*100)
		mu20 := mom.Mu20 / mom.M00
		mu02 := mom.Mu02 / mom.M00
		mu11 := mom.Mu11 / mom.M00
		if mu20 != mu02 {
			rep.PrincipalAxisAngle = Degrees(0.5 * math.Atan2(2*mu11, mu20-mu02) * 180 / math.Pi)
		}
	}

	// Aggregate scores.
	components := []float64{
		float64(rep.Horizontal), float64(rep.Vertical),
		float64(rep.Radial), float64(rep.Point),
	}
	rep.Overall = Percent(geometry.Mean(components))
	rep.Consistency = Percent(100 - geometry.StdDev(components))

	rep.Type, rep.Significance = a.classify(rep)

	rep.AnalysisTime = Seconds(time.Since(start).Seconds())
	return &StageReport{Stage: KindSymmetry, Symmetry: rep}
}

// classify picks the symmetry category. Reflective symmetry is checked
// before rotational because it is the more common traditional form.
func (a *SymmetryAnalyzer) classify(rep *SymmetryReport) (string, string) {
	// Walk the fold orders in sequence so ties resolve to the lowest order.
	bestFold := ""
	bestFoldScore := math.Inf(-1)
	for _, n := range nFoldOrders {
		name := fmt.Sprintf("%d-fold", n)
		if v, ok := rep.NFold[name]; ok && float64(v) > bestFoldScore {
			bestFoldScore = float64(v)
			bestFold = name
		}
	}

	switch {
	case math.Max(float64(rep.Horizontal), float64(rep.Vertical)) > a.Config.BilateralCutoff:
		return "Bilateral (Reflects spiritual duality)",
			"Represents balance between opposing forces in Hindu philosophy"
	case float64(rep.Radial) > a.Config.RadialCutoff:
		return "Radial/Mandala (Sacred geometry)",
			"Symbolizes cosmic order and spiritual meditation"
	case float64(rep.Point) > a.Config.PointCutoff:
		return "Point/Central (Unity focused)",
			"Represents centered consciousness and inner harmony"
	case bestFoldScore > a.Config.NFoldCutoff:
		return fmt.Sprintf("%s (Ritualistic pattern)", bestFold),
			"Associated with cyclical nature of time and festivals"
	default:
		return "Asymmetric (Artistic freedom)",
			"Emphasizes creativity and individual expression"
	}
}
