package stages

import (
	"fmt"
	"math"
	"time"

	"github.com/kolamlabs/kolamscan/pkg/detect"
	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// DotDetectors are the three independent dot detector collaborators. The
// zero value is not usable; call DefaultDotDetectors.
type DotDetectors struct {
	Blobs     func(*imaging.Gray) []geometry.Keypoint
	Circles   func(*imaging.Gray) []geometry.Keypoint
	Templates func(*imaging.Gray) []geometry.Keypoint
}

// DefaultDotDetectors wires the production detectors.
func DefaultDotDetectors() DotDetectors {
	return DotDetectors{
		Blobs: func(g *imaging.Gray) []geometry.Keypoint {
			return detect.DetectBlobs(g, detect.DefaultBlobParams())
		},
		Circles: func(g *imaging.Gray) []geometry.Keypoint {
			return detect.CirclesToKeypoints(detect.DetectCircles(g))
		},
		Templates: detect.MatchRingTemplates,
	}
}

// DotAnalyzer runs the dot analysis stage.
type DotAnalyzer struct {
	Detectors DotDetectors
	Config    Config
}

// keypoint symmetry rotation angles, degrees.
var keypointRotations = []int{60, 90, 120, 180}

// Analyze detects the dot grid and computes its descriptors. The
// returned keypoints feed the spatial stage.
func (a *DotAnalyzer) Analyze(g *imaging.Gray) (*StageReport, []geometry.Keypoint) {
	start := time.Now()
	w, h := g.W, g.H

	blob := a.Detectors.Blobs(g)
	hough := a.Detectors.Circles(g)
	tmpl := a.Detectors.Templates(g)

	totalBefore := len(blob) + len(hough) + len(tmpl)
	kps := geometry.MergeKeypoints(
		[][]geometry.Keypoint{blob, hough, tmpl},
		a.Config.DedupRadius, a.Config.MergePreCap, a.Config.MergePostCap,
	)

	rep := &DotsReport{
		Dots: make([]Dot, 0, len(kps)),
		DetectionMethods: DetectionMethods{
			BlobDetection:        len(blob),
			HoughCircles:         len(hough),
			TemplateMatching:     len(tmpl),
			TotalBeforeFiltering: totalBefore,
			FinalUniqueDots:      len(kps),
		},
		SizeDistribution:       map[string]int{},
		ConfidenceDistribution: map[string]int{},
	}

	for i, kp := range kps {
		rep.Dots = append(rep.Dots, Dot{
			ID:              i + 1,
			X:               int(kp.X),
			Y:               int(kp.Y),
			Size:            kp.Size,
			Confidence:      kp.Confidence,
			EstimatedRadius: kp.Size / 2,
			XPercent:        kp.X / float64(w) * 100,
			YPercent:        kp.Y / float64(h) * 100,
		})
	}

	positions := geometry.KeypointPositions(kps)

	if len(kps) > 0 {
		sizes := make([]float64, len(kps))
		confs := make([]float64, len(kps))
		for i, kp := range kps {
			sizes[i] = kp.Size
			confs[i] = kp.Confidence
		}

		rep.SizeDistribution = sizeHistogram(sizes)
		rep.ConfidenceDistribution = confidenceHistogram(confs)
		rep.DetectionConfidenceAvg = geometry.Mean(confs)
		rep.SpatialEntropy = geometry.SpatialEntropy(positions, w, h, 8)

		if len(sizes) > 1 {
			m := geometry.Mean(sizes)
			cv := geometry.StdDev(sizes) / math.Max(m, 1e-9)
			rep.UniformityScore = Percent(math.Max(0, 100-cv*100))
			rep.SizeConsistencyIndex = 1 - geometry.StdDev(sizes)/math.Max(m, 1)
		} else {
			rep.UniformityScore = 100
			rep.SizeConsistencyIndex = 1
		}
	}

	if len(positions) > 3 {
		k := min(8, len(positions)/3)
		if k > 1 {
			rep.GeometricPatterns = clusterPatterns(positions, k, w, h)
		}
	}
	if len(positions) > 10 {
		rep.FractalDimension = geometry.BoxCountingDimension(positions, w, h)
	}
	if len(positions) > 2 {
		dists := geometry.PairwiseDistances(positions)
		m := geometry.Mean(dists)
		rep.PatternRegularity = 1 - math.Min(1, geometry.StdDev(dists)/math.Max(m, 1))
	}
	if len(positions) > 4 {
		rep.SymmetryIndices = symmetryIndices(positions, w, h)
	}

	rep.GridSpacing = gridSpacing(positions)

	rep.AnalysisTime = Seconds(time.Since(start).Seconds())
	return &StageReport{Stage: KindDots, Dots: rep}, kps
}

func sizeHistogram(sizes []float64) map[string]int {
	hist := map[string]int{
		"tiny (2-10px)":    0,
		"small (10-20px)":  0,
		"medium (20-40px)": 0,
		"large (40px+)":    0,
	}
	for _, s := range sizes {
		switch {
		case s < 10:
			hist["tiny (2-10px)"]++
		case s < 20:
			hist["small (10-20px)"]++
		case s < 40:
			hist["medium (20-40px)"]++
		default:
			hist["large (40px+)"]++
		}
	}
	return hist
}

func confidenceHistogram(confs []float64) map[string]int {
	hist := map[string]int{
		"high_confidence":   0,
		"medium_confidence": 0,
		"low_confidence":    0,
	}
	for _, c := range confs {
		switch {
		case c > 0.7:
			hist["high_confidence"]++
		case c >= 0.4:
			hist["medium_confidence"]++
		default:
			hist["low_confidence"]++
		}
	}
	return hist
}

func clusterPatterns(positions []geometry.Point, k, w, h int) *ClusterPatterns {
	centroids, labels := geometry.KMeans(positions, k, 100)
	sizes := geometry.ClusterSizes(labels, len(centroids))

	sizesF := make([]float64, len(sizes))
	for i, s := range sizes {
		sizesF[i] = float64(s)
	}

	return &ClusterPatterns{
		ClusterCount:      len(centroids),
		ClusterSizes:      sizes,
		ClusterRegularity: 1 - geometry.StdDev(sizesF)/math.Max(geometry.Mean(sizesF), 1),
		CentroidSymmetry:  centroidSymmetry(centroids, w, h),
	}
}

// centroidSymmetry scores how evenly cluster centers ring the image
// center: 1 when all centers sit at the same center distance.
func centroidSymmetry(centroids []geometry.Point, w, h int) float64 {
	if len(centroids) < 2 {
		return 1
	}
	cx, cy := float64(w/2), float64(h/2)
	dists := make([]float64, len(centroids))
	for i, c := range centroids {
		dists[i] = math.Hypot(c.X-cx, c.Y-cy)
	}
	return 1 - geometry.StdDev(dists)/math.Max(geometry.Mean(dists), 1)
}

// symmetryIndices scores reflective and rotational symmetry directly over
// keypoint coordinates: the fraction of points whose transformed image
// lands within 5% of the min dimension of some original point.
func symmetryIndices(positions []geometry.Point, w, h int) *SymmetryIndices {
	cx, cy := float64(w/2), float64(h/2)

	idx := &SymmetryIndices{Rotational: map[string]float64{}}
	idx.VerticalReflection = matchFraction(positions, func(p geometry.Point) geometry.Point {
		return geometry.Point{X: 2*cx - p.X, Y: p.Y}
	}, w, h)
	idx.HorizontalReflection = matchFraction(positions, func(p geometry.Point) geometry.Point {
		return geometry.Point{X: p.X, Y: 2*cy - p.Y}
	}, w, h)

	for _, deg := range keypointRotations {
		a := float64(deg) * math.Pi / 180
		cs, sn := math.Cos(a), math.Sin(a)
		idx.Rotational[fmt.Sprintf("%d_degree", deg)] = matchFraction(positions,
			func(p geometry.Point) geometry.Point {
				x, y := p.X-cx, p.Y-cy
				return geometry.Point{X: x*cs - y*sn + cx, Y: x*sn + y*cs + cy}
			}, w, h)
	}
	return idx
}

func matchFraction(positions []geometry.Point, transform func(geometry.Point) geometry.Point, w, h int) float64 {
	if len(positions) < 2 {
		return 1
	}
	tol := float64(min(w, h)) * 0.05
	matches := 0
	for _, p := range positions {
		tp := transform(p)
		best := math.Inf(1)
		for _, q := range positions {
			if d := tp.Dist(q); d < best {
				best = d
			}
		}
		if best < tol {
			matches++
		}
	}
	return float64(matches) / float64(len(positions))
}

func gridSpacing(positions []geometry.Point) GridSpacing {
	if len(positions) < 2 {
		return GridSpacing{
			Insufficient: true,
			Message:      "Not enough dots to analyze grid spacing.",
		}
	}
	dists := geometry.NearestNeighborDistances(positions)
	m := geometry.Mean(dists)
	sd := geometry.StdDev(dists)
	return GridSpacing{
		MeanSpacing: PixelLen(m),
		StdDev:      PixelLen(sd),
		Consistency: 1 / (1 + sd/m),
	}
}
