package stages

import (
	"math"
	"time"

	"github.com/kolamlabs/kolamscan/pkg/detect"
	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
	"github.com/kolamlabs/kolamscan/pkg/topology"
)

// minStrokeArea filters small noise before per-contour classification.
const minStrokeArea = 50.0

// StrokeAnalyzer runs the line/stroke analysis stage.
type StrokeAnalyzer struct {
	Config Config
}

// Analyze extracts stroke geometry at five edge-detection sensitivities
// plus the skeleton, classifies shapes by cultural category, and computes
// rhythm and topology metrics. The returned contours feed the spatial and
// pattern stages.
func (a *StrokeAnalyzer) Analyze(g *imaging.Gray) (*StageReport, []geometry.Contour) {
	start := time.Now()
	w, h := g.W, g.H

	// Edges at all five sensitivity tiers.
	tiers := make([]*imaging.Mask, len(detect.CannyTiers))
	for i, t := range detect.CannyTiers {
		tiers[i] = detect.Canny(g, t.Low, t.High)
	}
	edgesLow, edgesMed, edgesHigh := tiers[1], tiers[2], tiers[3]

	// Contours from every tier plus the binarized skeleton.
	var all []geometry.Contour
	for _, edges := range tiers {
		all = append(all, detect.FindContours(edges)...)
	}
	skeleton := detect.Skeletonize(g.BinarizeInv(g.OtsuThreshold()))
	all = append(all, detect.FindContours(skeleton)...)

	contours := detect.FilterContours(all, w, h, a.Config.ShapeMatchThreshold)

	rep := &StrokesReport{
		LineStats: LineStats{
			CannyLowEdges:       edgesLow.Count(),
			CannyMedEdges:       edgesMed.Count(),
			CannyHighEdges:      edgesHigh.Count(),
			HoughStandard:       len(detect.DetectLines(edgesMed, 50)),
			HoughSensitive:      len(detect.DetectLines(edgesLow, 30)),
			HoughPLong:          len(detect.DetectLineSegments(edgesMed, 50, 50, 10)),
			HoughPShort:         len(detect.DetectLineSegments(edgesHigh, 30, 20, 5)),
			HoughPGaps:          len(detect.DetectLineSegments(edgesLow, 40, 30, 20)),
			TotalContoursFound:  len(all),
			ContoursAfterFilter: len(contours),
		},
		CulturalElements: []string{},
	}

	var totalLength float64
	for i := range contours {
		totalLength += contours[i].Perimeter()
	}
	rep.TotalLineLength = PixelLen(totalLength)

	var complexities []float64
	var lengths []float64
	for i := range contours {
		c := &contours[i]
		area := c.Area()
		if area <= minStrokeArea {
			continue
		}
		perimeter := c.Perimeter()
		lengths = append(lengths, perimeter)
		complexities = append(complexities, a.classifyStroke(rep, c, area, perimeter))
	}
	rep.StrokeCount = len(lengths)

	rep.Rhythm = strokeRhythm(lengths)
	rep.Technique = techniqueAssessment(rep)
	rep.Complexity = geometry.Mean(complexities)

	variance := geometry.StdDev(complexities)
	variance *= variance
	rep.PatternUniformity = Percent(100 - math.Min(100, variance*10))
	rep.DetailDensity = float64(rep.StrokeCount) / float64(h*w) * 10000

	culturalCount := rep.Shapes.LotusPetals + rep.Shapes.PaisleyForms + rep.Shapes.MandalaRings
	rep.CulturalDensity = Percent(float64(culturalCount) / math.Max(1, float64(rep.StrokeCount)) * 100)

	switch rc := float64(rep.Rhythm.Consistency); {
	case rc > 60:
		rep.ArtisticFlow = "Harmonious"
	case rc > 30:
		rep.ArtisticFlow = "Varied"
	default:
		rep.ArtisticFlow = "Irregular"
	}

	if len(rep.CulturalElements) > 10 {
		rep.CulturalElements = rep.CulturalElements[:10]
	}

	// Skeleton topology summary.
	sg := topology.Build(skeleton)
	rep.Topology = Topology{
		Components:   sg.Components,
		Junctions:    sg.Junctions,
		Endpoints:    sg.Endpoints,
		CycleRank:    sg.CycleRank,
		SingleStroke: sg.Eulerian(),
		ClosedLoop:   sg.Closed(),
	}

	rep.AnalysisTime = Seconds(time.Since(start).Seconds())
	return &StageReport{Stage: KindStrokes, Strokes: rep}, contours
}

// classifyStroke updates the tallies for one contour and returns its
// complexity score.
func (a *StrokeAnalyzer) classifyStroke(rep *StrokesReport, c *geometry.Contour, area, perimeter float64) float64 {
	approx := geometry.ApproxPolyDP(c.Points, 0.02*perimeter)
	vertices := len(approx)
	circularity := c.Circularity()

	if c.Parent == -1 {
		rep.Strokes.Continuous++
	} else {
		rep.Strokes.Broken++
	}

	if circularity > 0.7 {
		rep.Strokes.Curved++
		rep.Shapes.Circles++
		rep.CulturalElements = append(rep.CulturalElements,
			"Circle: Symbol of completeness and cosmic unity")
	} else if vertices <= 4 {
		rep.Strokes.Straight++
	}

	switch {
	case vertices == 3:
		rep.Shapes.Triangles++
		rep.CulturalElements = append(rep.CulturalElements,
			"Triangle: Represents divine trinity (Brahma, Vishnu, Shiva)")
	case vertices == 4:
		rep.Shapes.Rectangles++
		rep.CulturalElements = append(rep.CulturalElements,
			"Rectangle: Earth element, stability and foundation")
	case vertices >= 5 && vertices <= 8:
		rep.Shapes.Polygons++
		rep.CulturalElements = append(rep.CulturalElements,
			"Polygon: Sacred geometric form in Vedic tradition")
	case vertices > 8 && circularity > 0.5:
		rep.Shapes.MandalaRings++
		rep.CulturalElements = append(rep.CulturalElements,
			"Mandala ring: Cosmic cycle and spiritual journey")
	case vertices > 8:
		rep.Shapes.ComplexShapes++
	}

	solidity := c.Solidity()
	aspect := c.AspectRatio()
	if solidity > 0.3 && solidity < 0.8 && aspect > 1.5 && aspect < 4.0 {
		rep.Shapes.LotusPetals++
		rep.CulturalElements = append(rep.CulturalElements,
			"Lotus petal: Symbol of purity and spiritual awakening")
	} else if solidity < 0.6 && aspect > 0.8 && aspect < 2.5 {
		rep.Shapes.PaisleyForms++
		rep.CulturalElements = append(rep.CulturalElements,
			"Paisley: Life force and fertility symbol")
	}

	if perimeter > 0 && area/perimeter > 3 {
		rep.Strokes.Thick++
	} else {
		rep.Strokes.Thin++
	}

	if area < 500 && vertices > 6 {
		rep.Strokes.Decorative++
	}

	complexity := float64(vertices) + perimeter/100
	switch {
	case vertices == 3:
		complexity += 2
	case circularity > 0.8:
		complexity += 3
	case vertices == 8:
		complexity += 4
	}
	return complexity
}

// strokeRhythm computes arc-length statistics. An empty stroke set
// defaults to full consistency rather than dividing by zero.
func strokeRhythm(lengths []float64) StrokeRhythm {
	if len(lengths) == 0 {
		return StrokeRhythm{Consistency: 100}
	}
	m := geometry.Mean(lengths)
	sd := geometry.StdDev(lengths)

	consistency := 100.0
	if m > 0 {
		consistency = 100 - math.Min(100, sd/m*50)
	}
	return StrokeRhythm{
		AverageLength:  PixelLen(m),
		LengthVariance: sd * sd,
		Consistency:    Percent(consistency),
	}
}

func techniqueAssessment(rep *StrokesReport) Technique {
	if rep.StrokeCount == 0 {
		return Technique{
			PrecisionLevel:       "Unknown",
			ArtisticStyle:        "Unknown",
			CulturalAuthenticity: "Unknown",
			SkillIndication:      "Beginner",
		}
	}

	continuousRatio := float64(rep.Strokes.Continuous) / float64(rep.StrokeCount)
	classical := rep.Shapes.Circles + rep.Shapes.Triangles
	traditional := rep.Shapes.LotusPetals + rep.Shapes.MandalaRings

	t := Technique{ArtisticStyle: "Contemporary", CulturalAuthenticity: "Modern interpretation"}
	switch {
	case continuousRatio > 0.7:
		t.PrecisionLevel = "High"
	case continuousRatio > 0.4:
		t.PrecisionLevel = "Medium"
	default:
		t.PrecisionLevel = "Free-form"
	}
	if float64(classical) > float64(rep.StrokeCount)*0.5 {
		t.ArtisticStyle = "Classical"
	}
	if traditional > 0 {
		t.CulturalAuthenticity = "Traditional"
	}
	if rep.Strokes.Decorative > 5 && float64(rep.Rhythm.Consistency) > 70 {
		t.SkillIndication = "Expert"
	} else {
		t.SkillIndication = "Intermediate"
	}
	return t
}
