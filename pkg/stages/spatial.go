package stages

import (
	"math"
	"time"

	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// goldenRatio is the target for frame proportion analysis.
const goldenRatio = 1.618

// SpatialAnalyzer runs the spatial reasoning stage over artifacts from
// the dot and stroke stages.
type SpatialAnalyzer struct {
	Config Config
}

// Analyze interprets the geometric arrangement of dots and contours
// relative to the image center. Below the minimum point counts every
// output degrades to its documented neutral value.
func (a *SpatialAnalyzer) Analyze(g *imaging.Gray, keypoints []geometry.Keypoint, contours []geometry.Contour) *StageReport {
	start := time.Now()
	w, h := g.W, g.H
	centerX, centerY := float64(w/2), float64(h/2)

	rep := &SpatialReport{
		CulturalSpatial: CulturalSpatial{
			EnergyFlow:          "Unknown",
			SpiritualDirection:  "Unknown",
			CulturalOrientation: "Unknown",
			SymbolicBalance:     "Unknown",
		},
	}

	positions := geometry.KeypointPositions(keypoints)

	var avgCenterDist, centerDistStd float64
	if len(positions) > 3 {
		_, clusters := geometry.DBSCAN(positions, a.Config.ClusterEps, a.Config.ClusterMinPts)
		rep.PatternClusters = clusters

		var xs, ys []float64
		for _, p := range positions {
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
		spreadX := geometry.StdDev(xs)
		spreadY := geometry.StdDev(ys)
		rep.HorizontalSpread = PixelLen(spreadX)
		rep.VerticalSpread = PixelLen(spreadY)

		cen := geometry.Centroid(positions)
		rep.DotCentroidX = int(cen.X)
		rep.DotCentroidY = int(cen.Y)

		centerDists := make([]float64, len(positions))
		for i, p := range positions {
			centerDists[i] = math.Hypot(p.X-centerX, p.Y-centerY)
		}
		avgCenterDist = geometry.Mean(centerDists)
		centerDistStd = geometry.StdDev(centerDists)

		rep.SacredGeometry = sacredGeometry(positions, centerDists, spreadX, spreadY, w, h)
	}

	// Contour placement features.
	type placed struct {
		centroid geometry.Point
		area     float64
		radial   float64
		angleDeg float64
	}
	var placements []placed
	var areaSum float64
	for i := range contours {
		c := &contours[i]
		area := c.Area()
		if area <= 10 {
			continue
		}
		cen := c.Centroid()
		placements = append(placements, placed{
			centroid: cen,
			area:     area,
			radial:   math.Hypot(cen.X-centerX, cen.Y-centerY),
			angleDeg: math.Atan2(cen.Y-centerY, cen.X-centerX) * 180 / math.Pi,
		})
		areaSum += area
	}

	if len(placements) > 0 {
		var cx, cy float64
		for _, p := range placements {
			cx += p.centroid.X
			cy += p.centroid.Y
		}
		rep.ContourCentroidX = int(cx / float64(len(placements)))
		rep.ContourCentroidY = int(cy / float64(len(placements)))

		angles := make([]float64, len(placements))
		radials := make([]float64, len(placements))
		for i, p := range placements {
			angles[i] = p.angleDeg
			radials[i] = p.radial
		}
		a.classifyOrientation(rep, angles)
		classifyEnergyFlow(rep, radials)
	}

	if len(placements) > 4 {
		for _, p := range placements {
			switch {
			case p.centroid.X >= centerX && p.centroid.Y <= centerY:
				rep.Quadrants.Northeast++
			case p.centroid.X < centerX && p.centroid.Y <= centerY:
				rep.Quadrants.Northwest++
			case p.centroid.X < centerX:
				rep.Quadrants.Southwest++
			default:
				rep.Quadrants.Southeast++
			}
		}
		counts := []float64{
			float64(rep.Quadrants.Northeast), float64(rep.Quadrants.Northwest),
			float64(rep.Quadrants.Southwest), float64(rep.Quadrants.Southeast),
		}
		sd := geometry.StdDev(counts)
		switch variance := sd * sd; {
		case variance < 1:
			rep.CulturalSpatial.SymbolicBalance = "Perfect (equal in all directions)"
		case variance < 4:
			rep.CulturalSpatial.SymbolicBalance = "Good (minor asymmetry for dynamism)"
		default:
			rep.CulturalSpatial.SymbolicBalance = "Artistic (emphasis on specific directions)"
		}
	}

	rep.PatternCoverage = Percent(areaSum / float64(h*w) * 100)

	if avgCenterDist > 0 {
		rep.CenterAlignment = Percent(100 - math.Min(100, avgCenterDist/float64(max(w, h))*200))
		rep.RadialHarmony = Percent(100 - math.Min(100, centerDistStd/math.Max(1, avgCenterDist)*100))
	} else {
		// Zero mean center distance means every dot sits on the center.
		rep.CenterAlignment = 100
		rep.RadialHarmony = 100
	}

	sx, sy := float64(rep.HorizontalSpread), float64(rep.VerticalSpread)
	if math.Max(sx, sy) > 0 {
		rep.DistributionUniformity = Percent(100 - math.Abs(sx-sy)/math.Max(math.Max(sx, sy), 1)*100)
	} else {
		rep.DistributionUniformity = 100
	}

	rep.AnalysisTime = Seconds(time.Since(start).Seconds())
	return &StageReport{Stage: KindSpatial, Spatial: rep}
}

// sacredGeometry evaluates the structural heuristics over dot positions.
func sacredGeometry(positions []geometry.Point, centerDists []float64, spreadX, spreadY float64, w, h int) SacredGeometry {
	var sg SacredGeometry

	// Few distinct rounded pairwise distances suggest a deliberately
	// proportioned layout.
	if len(positions) >= 5 {
		dists := geometry.PairwiseDistances(positions)
		distinct := make(map[float64]struct{})
		for _, d := range dists {
			distinct[math.Round(d*10)/10] = struct{}{}
		}
		if len(distinct) <= 3 {
			sg.SacredGeometryPresence = true
		}
	}

	// Concentric rings read as a mandala.
	avg := geometry.Mean(centerDists)
	if geometry.StdDev(centerDists) < avg*0.3 && len(positions) > 8 {
		sg.MandalaStructure = true
	}

	if w > 0 && h > 0 {
		ratio := float64(max(w, h)) / float64(min(w, h))
		if math.Abs(ratio-goldenRatio) < 0.1 {
			sg.GoldenRatioProportions = true
		}
	}

	// Near-equal spreads in both axes indicate four-directional balance.
	if math.Abs(spreadX-spreadY) < math.Min(spreadX, spreadY)*0.2 {
		sg.CardinalAlignment = true
	}
	return sg
}

var cardinalAngles = []float64{0, 90, 180, 270, -90, -180}
var octagonalAngles = []float64{0, 45, 90, 135, 180, 225, 270, 315}

func (a *SpatialAnalyzer) classifyOrientation(rep *SpatialReport, angles []float64) {
	cardinal := 0
	octagonal := 0
	for _, angle := range angles {
		for _, c := range cardinalAngles {
			if math.Abs(angle-c) < a.Config.CardinalToleranceDeg {
				cardinal++
				break
			}
		}
		for _, o := range octagonalAngles {
			if math.Abs(angle-o) < a.Config.OctagonalToleranceDeg {
				octagonal++
				break
			}
		}
	}

	n := float64(len(angles))
	if float64(cardinal) > n*a.Config.CardinalFraction {
		rep.CulturalSpatial.CulturalOrientation = "Cardinal (N-S-E-W aligned, traditional)"
		rep.CulturalSpatial.SpiritualDirection = "Four directions represent cosmic order"
	}
	if float64(octagonal) > n*a.Config.OctagonalFraction {
		rep.CulturalSpatial.CulturalOrientation = "Octagonal (Ashtadik, eight-directional)"
		rep.CulturalSpatial.SpiritualDirection = "Eight directions in Hindu cosmology"
	}
}

func classifyEnergyFlow(rep *SpatialReport, radials []float64) {
	m := geometry.Mean(radials)
	sd := geometry.StdDev(radials)
	variance := sd * sd

	maxR := 0.0
	for _, r := range radials {
		if r > maxR {
			maxR = r
		}
	}

	switch {
	case variance < m*0.1:
		rep.CulturalSpatial.EnergyFlow = "Concentric (inward-focused meditation)"
	case maxR > m*2:
		rep.CulturalSpatial.EnergyFlow = "Radiating (outward expansion of consciousness)"
	default:
		rep.CulturalSpatial.EnergyFlow = "Balanced (harmony between inner and outer)"
	}
}
