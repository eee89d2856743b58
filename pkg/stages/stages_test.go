package stages

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

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

// gridDetectors fakes the three detectors with a fixed 3x3 grid result.
func gridDetectors(spacing float64, offset float64) DotDetectors {
	var kps []geometry.Keypoint
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			kps = append(kps, geometry.Keypoint{
				X:          offset + float64(col)*spacing,
				Y:          offset + float64(row)*spacing,
				Size:       8,
				Confidence: 0.9,
			})
		}
	}
	empty := func(*imaging.Gray) []geometry.Keypoint { return nil }
	return DotDetectors{
		Blobs:     func(*imaging.Gray) []geometry.Keypoint { return kps },
		Circles:   empty,
		Templates: empty,
	}
}

func TestDotStageGrid(t *testing.T) {
	a := &DotAnalyzer{Detectors: gridDetectors(100, 100), Config: DefaultConfig()}
	sr, kps := a.Analyze(lightField(400, 400))

	require.Equal(t, KindDots, sr.Stage)
	require.NotNil(t, sr.Dots)
	rep := sr.Dots

	assert.Len(t, kps, 9)
	assert.Equal(t, 9, rep.DetectionMethods.FinalUniqueDots)
	assert.Equal(t, 9, rep.DetectionMethods.BlobDetection)

	// Perfect grid: nearest-neighbor spacing 100, consistency 1.
	require.False(t, rep.GridSpacing.Insufficient)
	assert.InDelta(t, 100, float64(rep.GridSpacing.MeanSpacing), 1)
	assert.InDelta(t, 1.0, rep.GridSpacing.Consistency, 0.01)

	// Keypoint reflective symmetry on both axes.
	require.NotNil(t, rep.SymmetryIndices)
	assert.InDelta(t, 1.0, rep.SymmetryIndices.HorizontalReflection, 0.01)
	assert.InDelta(t, 1.0, rep.SymmetryIndices.VerticalReflection, 0.01)
	assert.InDelta(t, 1.0, rep.SymmetryIndices.Rotational["90_degree"], 0.01)

	// Identical sizes and confidences.
	assert.InDelta(t, 100, float64(rep.UniformityScore), 0.01)
	assert.InDelta(t, 0.9, rep.DetectionConfidenceAvg, 1e-9)
}

func TestDotStageNoDots(t *testing.T) {
	empty := func(*imaging.Gray) []geometry.Keypoint { return nil }
	a := &DotAnalyzer{
		Detectors: DotDetectors{Blobs: empty, Circles: empty, Templates: empty},
		Config:    DefaultConfig(),
	}
	sr, kps := a.Analyze(lightField(100, 100))

	assert.Empty(t, kps)
	assert.Empty(t, sr.Dots.Dots)
	assert.True(t, sr.Dots.GridSpacing.Insufficient)
	assert.NotEmpty(t, sr.Dots.GridSpacing.Message)
}

func TestDotStageSingleDot(t *testing.T) {
	one := func(*imaging.Gray) []geometry.Keypoint {
		return []geometry.Keypoint{{X: 50, Y: 50, Size: 6, Confidence: 0.8}}
	}
	empty := func(*imaging.Gray) []geometry.Keypoint { return nil }
	a := &DotAnalyzer{
		Detectors: DotDetectors{Blobs: one, Circles: empty, Templates: empty},
		Config:    DefaultConfig(),
	}
	sr, kps := a.Analyze(lightField(100, 100))

	assert.Len(t, kps, 1)
	assert.True(t, sr.Dots.GridSpacing.Insufficient)
}

// mirrorQuadrants copies the top-left quadrant into the other three so
// the image is pixel-exact symmetric under both flips.
func mirrorQuadrants(g *imaging.Gray) {
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			sx, sy := x, y
			if sx >= g.W/2 {
				sx = g.W - 1 - sx
			}
			if sy >= g.H/2 {
				sy = g.H - 1 - sy
			}
			g.Set(x, y, g.At(sx, sy))
		}
	}
}

func TestSymmetryMirrorImage(t *testing.T) {
	g := lightField(200, 200)
	drawDisk(g, 60, 60, 20, 40)
	drawDisk(g, 30, 80, 8, 40)
	mirrorQuadrants(g)

	a := &SymmetryAnalyzer{Config: DefaultConfig()}
	sr := a.Analyze(g)
	rep := sr.Symmetry

	assert.Greater(t, float64(rep.Horizontal), 95.0)
	assert.Greater(t, float64(rep.Vertical), 95.0)
	assert.Greater(t, float64(rep.Point), 95.0)

	// Overall is the mean of exactly the four named components.
	want := (float64(rep.Horizontal) + float64(rep.Vertical) +
		float64(rep.Radial) + float64(rep.Point)) / 4
	assert.InDelta(t, want, float64(rep.Overall), 1e-9)

	assert.Contains(t, rep.Type, "Bilateral")
}

func TestSymmetryClassifyTiedFoldsDeterministic(t *testing.T) {
	// Equal n-fold scores above the cutoff must always classify as the
	// lowest order, run after run.
	rep := &SymmetryReport{NFold: map[string]Percent{}}
	for _, n := range nFoldOrders {
		rep.NFold[fmt.Sprintf("%d-fold", n)] = 70
	}

	a := &SymmetryAnalyzer{Config: DefaultConfig()}
	for i := 0; i < 20; i++ {
		typ, _ := a.classify(rep)
		assert.Equal(t, "2-fold (Ritualistic pattern)", typ)
	}
}

func TestSymmetryClamped(t *testing.T) {
	// A strongly asymmetric image still yields scores within [0, 100].
	g := lightField(120, 120)
	drawDisk(g, 20, 15, 10, 20)
	drawDisk(g, 95, 80, 6, 90)
	for x := 0; x < 40; x++ {
		g.Set(x, 110, 10)
	}

	a := &SymmetryAnalyzer{Config: DefaultConfig()}
	rep := a.Analyze(g).Symmetry

	for name, v := range map[string]float64{
		"horizontal": float64(rep.Horizontal),
		"vertical":   float64(rep.Vertical),
		"radial":     float64(rep.Radial),
		"point":      float64(rep.Point),
		"overall":    float64(rep.Overall),
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 100.0, name)
	}
	for name, v := range rep.NFold {
		assert.GreaterOrEqual(t, float64(v), 0.0, name)
		assert.LessOrEqual(t, float64(v), 100.0, name)
	}
}

func TestStrokeStageBlankImage(t *testing.T) {
	a := &StrokeAnalyzer{Config: DefaultConfig()}
	sr, contours := a.Analyze(lightField(80, 80))

	assert.Empty(t, contours)
	assert.Equal(t, 0, sr.Strokes.StrokeCount)
	// Rhythm defaults to full consistency on an empty stroke set.
	assert.InDelta(t, 100, float64(sr.Strokes.Rhythm.Consistency), 1e-9)
	assert.Equal(t, "Unknown", sr.Strokes.Technique.PrecisionLevel)
}

func TestStrokeStageShapes(t *testing.T) {
	g := lightField(200, 200)
	drawDisk(g, 60, 60, 25, 30)
	for y := 120; y <= 170; y++ {
		for x := 120; x <= 170; x++ {
			g.Set(x, y, 30)
		}
	}

	a := &StrokeAnalyzer{Config: DefaultConfig()}
	sr, contours := a.Analyze(g)
	rep := sr.Strokes

	assert.NotEmpty(t, contours)
	assert.Greater(t, rep.StrokeCount, 0)
	assert.Greater(t, rep.Shapes.Circles, 0)
	assert.Greater(t, float64(rep.TotalLineLength), 0.0)
	assert.NotEmpty(t, rep.ArtisticFlow)
	assert.LessOrEqual(t, len(rep.CulturalElements), 10)
}

func TestSpatialStageDefaults(t *testing.T) {
	a := &SpatialAnalyzer{Config: DefaultConfig()}
	sr := a.Analyze(lightField(100, 100), nil, nil)
	rep := sr.Spatial

	assert.Equal(t, 0, rep.PatternClusters)
	assert.Equal(t, Percent(0), rep.PatternCoverage)
	assert.Equal(t, Percent(100), rep.DistributionUniformity)
	assert.Equal(t, Percent(100), rep.RadialHarmony)
	assert.Equal(t, Percent(100), rep.CenterAlignment)
	assert.Equal(t, "Unknown", rep.CulturalSpatial.EnergyFlow)
	assert.Equal(t, "Unknown", rep.CulturalSpatial.SymbolicBalance)
}

func TestSpatialCenteredDotsScoreFullAlignment(t *testing.T) {
	// All dots on the exact frame center. The mean center distance is
	// zero, which is perfect alignment, not absent alignment.
	var kps []geometry.Keypoint
	for i := 0; i < 5; i++ {
		kps = append(kps, geometry.Keypoint{X: 200, Y: 200})
	}

	a := &SpatialAnalyzer{Config: DefaultConfig()}
	sr := a.Analyze(lightField(400, 400), kps, nil)

	assert.Equal(t, Percent(100), sr.Spatial.CenterAlignment)
	assert.Equal(t, Percent(100), sr.Spatial.RadialHarmony)
}

func TestSpatialStageClusters(t *testing.T) {
	var kps []geometry.Keypoint
	for i := 0; i < 5; i++ {
		kps = append(kps, geometry.Keypoint{X: 40 + float64(i)*10, Y: 40})
		kps = append(kps, geometry.Keypoint{X: 300 + float64(i)*10, Y: 300})
	}

	a := &SpatialAnalyzer{Config: DefaultConfig()}
	sr := a.Analyze(lightField(400, 400), kps, nil)

	assert.Equal(t, 2, sr.Spatial.PatternClusters)
	assert.Greater(t, float64(sr.Spatial.HorizontalSpread), 0.0)
}

func TestSpatialMandalaDetection(t *testing.T) {
	// Dots on a ring around the center.
	var kps []geometry.Keypoint
	for i := 0; i < 12; i++ {
		angle := 2 * math.Pi * float64(i) / 12
		kps = append(kps, geometry.Keypoint{
			X: 200 + 80*math.Cos(angle),
			Y: 200 + 80*math.Sin(angle),
		})
	}

	a := &SpatialAnalyzer{Config: DefaultConfig()}
	sr := a.Analyze(lightField(400, 400), kps, nil)

	assert.True(t, sr.Spatial.SacredGeometry.MandalaStructure)
	assert.Greater(t, float64(sr.Spatial.RadialHarmony), 90.0)
}

func TestSpatialGoldenRatio(t *testing.T) {
	kps := []geometry.Keypoint{
		{X: 100, Y: 100}, {X: 200, Y: 100}, {X: 300, Y: 200}, {X: 150, Y: 250}, {X: 400, Y: 120},
	}
	a := &SpatialAnalyzer{Config: DefaultConfig()}

	sr := a.Analyze(lightField(647, 400), kps, nil)
	assert.True(t, sr.Spatial.SacredGeometry.GoldenRatioProportions)

	sr = a.Analyze(lightField(400, 400), kps, nil)
	assert.False(t, sr.Spatial.SacredGeometry.GoldenRatioProportions)
}

func TestPatternStageEmpty(t *testing.T) {
	a := &PatternAnalyzer{Config: DefaultConfig()}
	sr := a.Analyze(lightField(100, 100), nil, 0)
	rep := sr.Pattern

	assert.Equal(t, 0, rep.Elements.Total())
	assert.Equal(t, "Contemporary/Fusion", rep.RegionalStyle)
	assert.Equal(t, Percent(50), rep.StyleConfidence)
	assert.Equal(t, "Simple", rep.ComplexityLevel)
	assert.Equal(t, Percent(0), rep.Authenticity)
}

func TestPatternAuthenticityMath(t *testing.T) {
	factors, score := authenticity(ElementCounts{GeometricMandalas: 2, LotusPatterns: 1}, 80, 30)

	// density = min(100, 3*10) = 30; symmetry = 80;
	// complexity = min(100, 60) = 60; sacred = 30+25 = 55.
	assert.Equal(t, Percent(30), factors.PatternDensity)
	assert.Equal(t, Percent(80), factors.SymmetryQuality)
	assert.Equal(t, Percent(60), factors.Complexity)
	assert.Equal(t, Percent(55), factors.SacredGeometry)
	assert.InDelta(t, (30.0+80+60+55)/4, float64(score), 1e-9)
}

func TestPatternComplexityBuckets(t *testing.T) {
	tests := []struct {
		mandalas int
		want     string
	}{
		{21, "Expert"},
		{11, "High"},
		{6, "Medium"},
		{2, "Simple"},
	}
	for _, tc := range tests {
		e := ElementCounts{GeometricMandalas: tc.mandalas}
		var level string
		switch total := e.Total(); {
		case total > 20:
			level = "Expert"
		case total > 10:
			level = "High"
		case total > 5:
			level = "Medium"
		default:
			level = "Simple"
		}
		assert.Equal(t, tc.want, level)
	}
}

func TestFallbackReportsValidJSON(t *testing.T) {
	for _, kind := range Order {
		sr := Fallback(kind, "boom")
		require.Equal(t, kind, sr.Stage)
		require.Equal(t, "boom", sr.Err)

		b, err := json.Marshal(sr)
		require.NoError(t, err)
		assert.Contains(t, string(b), "boom")
	}
}

func TestPercentJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Percent(42.5))
	require.NoError(t, err)
	assert.Equal(t, `"42.50%"`, string(b))

	var p Percent
	require.NoError(t, json.Unmarshal(b, &p))
	assert.InDelta(t, 42.5, float64(p), 1e-9)
}

func TestPixelLenAndSecondsJSON(t *testing.T) {
	b, _ := json.Marshal(PixelLen(12.345))
	assert.Equal(t, `"12.35 pixels"`, string(b))

	b, _ = json.Marshal(Seconds(0.5))
	assert.Equal(t, `"0.50s"`, string(b))
}
