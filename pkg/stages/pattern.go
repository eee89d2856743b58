package stages

import (
	"math"
	"time"

	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// minElementArea excludes small contours from the traditional element
// tally.
const minElementArea = 100.0

// PatternAnalyzer runs the pattern/cultural recognition stage.
type PatternAnalyzer struct {
	Config Config
}

// Analyze classifies regional style and computes the cultural
// authenticity score from element counts, the upstream symmetry
// percentage, and contour complexity.
func (a *PatternAnalyzer) Analyze(g *imaging.Gray, contours []geometry.Contour, overallSymmetry float64) *StageReport {
	start := time.Now()

	rep := &PatternReport{
		DominantIntensities: dominantIntensities(g),
	}

	for i := range contours {
		classifyElement(&rep.Elements, &contours[i])
	}

	rep.RegionalStyle, rep.StyleConfidence = regionalStyle(rep.Elements, len(contours))
	rep.Factors, rep.Authenticity = authenticity(rep.Elements, overallSymmetry, len(contours))

	total := rep.Elements.Total()
	switch {
	case total > 20:
		rep.ComplexityLevel = "Expert"
	case total > 10:
		rep.ComplexityLevel = "High"
	case total > 5:
		rep.ComplexityLevel = "Medium"
	default:
		rep.ComplexityLevel = "Simple"
	}

	rep.Spiritual = spiritualSignificance(rep.Elements, overallSymmetry)
	rep.SkillLevel = skillLevel(total, overallSymmetry, len(contours))
	rep.OccasionAnalysis = occasion(rep.Elements, rep.ComplexityLevel)

	rep.Breakdown = ElementBreakdown{
		SacredGeometry:     rep.Elements.GeometricMandalas + rep.Elements.StarPatterns,
		NatureMotifs:       rep.Elements.LotusPatterns + rep.Elements.FloralMotifs,
		CulturalSymbols:    rep.Elements.PeacockPatterns + rep.Elements.PaisleyDesigns,
		StructuralPatterns: rep.Elements.GridPatterns + rep.Elements.SpiralPatterns,
	}

	rep.AnalysisTime = Seconds(time.Since(start).Seconds())
	return &StageReport{Stage: KindPattern, Pattern: rep}
}

// dominantIntensities finds histogram peaks above a tenth of the tallest
// bin.
func dominantIntensities(g *imaging.Gray) []int {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	maxCount := 0
	for _, c := range hist {
		if c > maxCount {
			maxCount = c
		}
	}

	peaks := []int{}
	for i := 1; i < 255; i++ {
		if hist[i] > hist[i-1] && hist[i] > hist[i+1] && float64(hist[i]) > float64(maxCount)*0.1 {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// classifyElement buckets one qualifying contour into the 8-category
// taxonomy. Thresholds are parameterized independently of the stroke
// stage's taxonomy and need not agree with it.
func classifyElement(e *ElementCounts, c *geometry.Contour) {
	area := c.Area()
	if area <= minElementArea {
		return
	}
	solidity := c.Solidity()
	if solidity == 0 {
		return
	}
	circularity := c.Circularity()
	aspect := c.AspectRatio()

	switch {
	case circularity > 0.7 && solidity > 0.8:
		if area > 1000 {
			e.GeometricMandalas++
		} else {
			e.LotusPatterns++
		}
	case solidity > 0.5 && solidity < 0.8:
		if aspect > 2 {
			e.PaisleyDesigns++
		} else {
			e.FloralMotifs++
		}
	case solidity < 0.5:
		if circularity > 0.3 {
			e.SpiralPatterns++
		} else {
			e.PeacockPatterns++
		}
	case solidity > 0.9 && circularity < 0.3:
		approx := geometry.ApproxPolyDP(c.Points, 0.02*c.Perimeter())
		if len(approx) > 6 {
			e.StarPatterns++
		} else {
			e.GridPatterns++
		}
	}
}

// regionalStyle accumulates fixed point values per style and picks the
// maximum, breaking ties by enumeration order.
func regionalStyle(e ElementCounts, contourCount int) (string, Percent) {
	southIndian := 0
	if e.GeometricMandalas > 3 {
		southIndian += 3
	}
	if e.GridPatterns > 2 {
		southIndian += 2
	}
	if contourCount > 20 {
		southIndian += 2
	}

	northIndian := 0
	if e.FloralMotifs > 3 {
		northIndian += 3
	}
	if e.PaisleyDesigns > 2 {
		northIndian += 2
	}
	if e.PeacockPatterns > 1 {
		northIndian += 3
	}

	bengali := 0
	if e.LotusPatterns > 2 {
		bengali += 3
	}
	if e.FloralMotifs > 2 {
		bengali += 2
	}
	if e.SpiralPatterns > 1 {
		bengali += 2
	}

	western := 0
	if e.StarPatterns > 2 {
		western += 3
	}
	if e.GeometricMandalas > 2 {
		western += 2
	}

	styles := []struct {
		name  string
		score int
	}{
		{"South Indian (Kolam)", southIndian},
		{"North Indian (Rangoli)", northIndian},
		{"Bengali (Alpona)", bengali},
		{"Gujarati/Rajasthani", western},
	}

	best := styles[0]
	for _, s := range styles[1:] {
		if s.score > best.score {
			best = s
		}
	}
	if best.score == 0 {
		return "Contemporary/Fusion", 50
	}
	return best.name, Percent(float64(best.score) / 10 * 100)
}

// authenticity is the unweighted mean of four factors, each clamped to
// [0, 100].
func authenticity(e ElementCounts, overallSymmetry float64, contourCount int) (AuthenticityFactors, Percent) {
	density := math.Min(100, float64(e.Total())*10)
	symmetry := math.Min(100, math.Max(0, overallSymmetry))
	complexity := math.Min(100, float64(contourCount)*2)

	sacred := 0.0
	if e.GeometricMandalas > 0 {
		sacred += 30
	}
	if e.LotusPatterns > 0 {
		sacred += 25
	}
	if e.StarPatterns > 0 {
		sacred += 20
	}
	sacred = math.Min(100, sacred)

	factors := AuthenticityFactors{
		PatternDensity:  Percent(density),
		SymmetryQuality: Percent(symmetry),
		Complexity:      Percent(complexity),
		SacredGeometry:  Percent(sacred),
	}
	return factors, Percent((density + symmetry + complexity + sacred) / 4)
}

func spiritualSignificance(e ElementCounts, symmetry float64) string {
	var indicators []string
	if e.LotusPatterns > 0 {
		indicators = append(indicators, "Lotus symbolism represents purity and enlightenment")
	}
	if e.GeometricMandalas > 0 {
		indicators = append(indicators, "Mandala patterns facilitate meditation and cosmic connection")
	}
	if symmetry > 60 {
		indicators = append(indicators, "High symmetry indicates spiritual balance and harmony")
	}
	if e.StarPatterns > 0 {
		indicators = append(indicators, "Star patterns represent divine light and guidance")
	}

	switch {
	case len(indicators) >= 2:
		return "High spiritual content with " + indicators[0] + "; " + indicators[1]
	case len(indicators) == 1:
		return "High spiritual content with " + indicators[0]
	case symmetry > 40:
		return "Moderate spiritual qualities through geometric harmony"
	default:
		return "Primarily decorative with artistic focus"
	}
}

func skillLevel(totalElements int, symmetry float64, contourCount int) string {
	factors := []float64{
		math.Min(100, float64(totalElements)*5),
		symmetry,
		math.Min(100, float64(contourCount)),
	}
	avg := geometry.Mean(factors)
	switch {
	case avg > 75:
		return "Expert"
	case avg > 50:
		return "Intermediate"
	case avg > 25:
		return "Beginner-Intermediate"
	default:
		return "Beginner"
	}
}

func occasion(e ElementCounts, complexity string) string {
	switch {
	case e.LotusPatterns > 3 && e.GeometricMandalas > 2:
		return "Likely for Diwali or major religious festival"
	case e.FloralMotifs > 3:
		return "Possibly for spring festivals or welcoming ceremonies"
	case complexity == "Expert":
		return "Elaborate design suitable for major celebrations or competitions"
	case complexity == "Simple":
		return "Daily practice or casual decoration"
	default:
		return "General decorative or ceremonial use"
	}
}
