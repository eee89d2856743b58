package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolamlabs/kolamscan/pkg/stages"
)

func sampleReports() []*stages.StageReport {
	dots := &stages.DotsReport{AnalysisTime: 0.5}
	for i := 0; i < 9; i++ {
		dots.Dots = append(dots.Dots, stages.Dot{ID: i + 1})
	}
	return []*stages.StageReport{
		{Stage: stages.KindDots, Dots: dots},
		{Stage: stages.KindSymmetry, Symmetry: &stages.SymmetryReport{Overall: 80, AnalysisTime: 0.3}},
		{Stage: stages.KindStrokes, Strokes: &stages.StrokesReport{StrokeCount: 12, AnalysisTime: 0.2}},
		{Stage: stages.KindSpatial, Spatial: &stages.SpatialReport{AnalysisTime: 0.1}},
		{Stage: stages.KindPattern, Pattern: &stages.PatternReport{
			Authenticity:    70,
			RegionalStyle:   "South Indian (Kolam)",
			ComplexityLevel: "Medium",
			SkillLevel:      "Intermediate",
			AnalysisTime:    0.1,
		}},
	}
}

func TestQualityMeanOfPositive(t *testing.T) {
	// factors: min(100, 2*9)=18, 80, min(100,12)=12, 70 -> mean 45.
	assert.InDelta(t, 45, Quality(9, 80, 12, 70), 1e-9)

	// Zero factors drop out of the mean instead of dragging it down.
	assert.InDelta(t, 80, Quality(0, 80, 0, 0), 1e-9)
	assert.InDelta(t, 0, Quality(0, 0, 0, 0), 1e-9)

	// Dot and stroke factors clamp at 100.
	assert.InDelta(t, 100, Quality(200, 0, 0, 0), 1e-9)
}

func TestPredominantFeature(t *testing.T) {
	assert.Equal(t, "geometric_dots", PredominantFeature(50, 80, 12, 70))
	assert.Equal(t, "artistic_strokes", PredominantFeature(2, 30, 40, 20))
	assert.Equal(t, "symmetrical_lines", PredominantFeature(0, 90, 3, 20))
	assert.Equal(t, "basic_shapes", PredominantFeature(0, 5, 0, 9))

	// Ties resolve toward the earlier candidate.
	assert.Equal(t, "geometric_dots", PredominantFeature(5, 50, 5, 50))
}

func TestSynthesize(t *testing.T) {
	comp := Synthesize("run-1", 640, 480, sampleReports(), 1500*time.Millisecond)

	assert.Equal(t, "run-1", comp.RunID)
	assert.Equal(t, 640, comp.Dimensions.Width)
	assert.Equal(t, 480, comp.Dimensions.Height)
	assert.Equal(t, "1.33:1", comp.Dimensions.AspectRatio)
	assert.Equal(t, 640*480, comp.Dimensions.TotalPixels)

	assert.Equal(t, 9, comp.Summary.TotalDots)
	assert.Equal(t, 12, comp.Summary.TotalStrokes)
	assert.InDelta(t, 45, float64(comp.Summary.OverallQuality), 1e-9)
	assert.Equal(t, "artistic_strokes", comp.Summary.PredominantFeatures)
	assert.Equal(t, "South Indian (Kolam)", comp.Summary.ArtisticStyle)
	assert.Equal(t, "Medium", comp.Summary.ComplexityRating)

	require.Len(t, comp.Recommendations.Improvements, 3)
	assert.Equal(t, "Excellent symmetry maintained", comp.Recommendations.Improvements[0])
	assert.Equal(t, "Strong cultural authenticity", comp.Recommendations.Improvements[1])
	assert.Contains(t, comp.Recommendations.Improvements[2], "Increase dot precision")

	assert.InDelta(t, 0.5, float64(comp.Performance.Dots), 1e-9)
	assert.InDelta(t, 1.5, float64(comp.Performance.Total), 1e-9)
	assert.Equal(t, "100%", comp.Completeness)
	assert.Len(t, comp.Stages, 5)
}

func TestSynthesizeWithFallbacks(t *testing.T) {
	reports := []*stages.StageReport{
		stages.Fallback(stages.KindDots, "boom"),
		stages.Fallback(stages.KindSymmetry, "boom"),
		stages.Fallback(stages.KindStrokes, "boom"),
		stages.Fallback(stages.KindSpatial, "boom"),
		stages.Fallback(stages.KindPattern, "boom"),
	}
	comp := Synthesize("run-2", 100, 100, reports, time.Second)

	assert.Equal(t, 0, comp.Summary.TotalDots)
	assert.InDelta(t, 0, float64(comp.Summary.OverallQuality), 1e-9)
	assert.Equal(t, "basic_shapes", comp.Summary.PredominantFeatures)
	assert.Equal(t, "Unknown", comp.Summary.ArtisticStyle)
}

func TestCompositeJSONBoundary(t *testing.T) {
	comp := Synthesize("run-3", 200, 200, sampleReports(), 2*time.Second)

	b, err := json.Marshal(comp)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))

	summary, ok := raw["analysis_summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "45.00%", summary["overall_quality_score"])
	assert.Equal(t, "80.00%", summary["symmetry_level"])

	perf, ok := raw["modular_analysis_performance"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2.00s", perf["total_analysis_time"])

	assert.Equal(t, "100%", raw["analysis_completeness"])
}

func TestCompositeRoundTrip(t *testing.T) {
	comp := Synthesize("run-4", 300, 300, sampleReports(), time.Second)

	b, err := json.Marshal(comp)
	require.NoError(t, err)

	var back CompositeReport
	require.NoError(t, json.Unmarshal(b, &back))

	assert.Equal(t, comp.RunID, back.RunID)
	assert.InDelta(t, float64(comp.Summary.OverallQuality), float64(back.Summary.OverallQuality), 1e-9)
	assert.InDelta(t, float64(comp.Performance.Total), float64(back.Performance.Total), 1e-9)
	require.Len(t, back.Stages, 5)
	assert.Equal(t, stages.KindDots, back.Stages[0].Stage)
	assert.Len(t, back.Stages[0].Dots.Dots, 9)
}
