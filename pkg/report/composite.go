// Package report assembles the composite analysis report from the five
// stage reports and handles its persistence.
//
// The composite is constructed once at the end of a pipeline run and is
// immutable afterwards. Everything in it is plain JSON-compatible data;
// measurement fields use the stages package boundary types so percentages
// and pixel lengths serialize as formatted strings.
package report

import (
	"fmt"
	"time"

	"github.com/kolamlabs/kolamscan/pkg/stages"
)

// Dimensions describes the analyzed frame.
type Dimensions struct {
	Height      int    `json:"height"`
	Width       int    `json:"width"`
	AspectRatio string `json:"aspect_ratio"`
	TotalPixels int    `json:"total_pixels"`
}

// Summary holds the cross-stage headline metrics.
type Summary struct {
	OverallQuality       stages.Percent `json:"overall_quality_score"`
	TotalDots            int            `json:"total_dots_detected"`
	TotalStrokes         int            `json:"total_strokes_detected"`
	SymmetryLevel        stages.Percent `json:"symmetry_level"`
	CulturalAuthenticity stages.Percent `json:"cultural_authenticity"`
	PredominantFeatures  string         `json:"predominant_features"`
	ArtisticStyle        string         `json:"artistic_style"`
	ComplexityRating     string         `json:"complexity_rating"`
}

// Recommendations carries the ranked improvement suggestions.
type Recommendations struct {
	Improvements     []string `json:"improvement_suggestions"`
	SkillDevelopment string   `json:"skill_development"`
	CulturalContext  string   `json:"cultural_context"`
}

// Timings is the per-stage performance block.
type Timings struct {
	Dots     stages.Seconds `json:"dots_analysis_time"`
	Symmetry stages.Seconds `json:"symmetry_analysis_time"`
	Strokes  stages.Seconds `json:"lines_analysis_time"`
	Spatial  stages.Seconds `json:"spatial_analysis_time"`
	Pattern  stages.Seconds `json:"pattern_analysis_time"`
	Total    stages.Seconds `json:"total_analysis_time"`
}

// CompositeReport is the final artifact of a pipeline run.
type CompositeReport struct {
	RunID           string                `json:"run_id"`
	Dimensions      Dimensions            `json:"image_dimensions"`
	Summary         Summary               `json:"analysis_summary"`
	Recommendations Recommendations       `json:"recommendations"`
	Performance     Timings               `json:"modular_analysis_performance"`
	Completeness    string                `json:"analysis_completeness"`
	Stages          []*stages.StageReport `json:"stage_reports"`
}

// feature is one predominant-feature candidate. Order matters: ties go to
// the earlier entry.
type feature struct {
	name  string
	score int
}

// Synthesize fuses the stage reports into the composite. The reports slice
// is expected in stage order; missing or fallback entries contribute their
// zero defaults.
func Synthesize(runID string, w, h int, reports []*stages.StageReport, total time.Duration) *CompositeReport {
	byKind := make(map[stages.Kind]*stages.StageReport, len(reports))
	for _, r := range reports {
		if r != nil {
			byKind[r.Stage] = r
		}
	}

	var totalDots, totalStrokes int
	var symmetry, authenticity float64
	artisticStyle, complexityRating := "Unknown", "Unknown"
	skillDev := "Intermediate"
	culturalContext := "Traditional rangoli with cultural significance"

	if r := byKind[stages.KindDots]; r != nil && r.Dots != nil {
		totalDots = len(r.Dots.Dots)
	}
	if r := byKind[stages.KindSymmetry]; r != nil && r.Symmetry != nil {
		symmetry = float64(r.Symmetry.Overall)
	}
	if r := byKind[stages.KindStrokes]; r != nil && r.Strokes != nil {
		totalStrokes = r.Strokes.StrokeCount
	}
	if r := byKind[stages.KindPattern]; r != nil && r.Pattern != nil {
		authenticity = float64(r.Pattern.Authenticity)
		artisticStyle = r.Pattern.RegionalStyle
		complexityRating = r.Pattern.ComplexityLevel
		if r.Pattern.SkillLevel != "" {
			skillDev = r.Pattern.SkillLevel
		}
		if r.Pattern.Spiritual != "" {
			culturalContext = r.Pattern.Spiritual
		}
	}

	comp := &CompositeReport{
		RunID: runID,
		Dimensions: Dimensions{
			Height:      h,
			Width:       w,
			AspectRatio: fmt.Sprintf("%.2f:1", float64(w)/float64(h)),
			TotalPixels: w * h,
		},
		Summary: Summary{
			OverallQuality:       stages.Percent(Quality(totalDots, symmetry, totalStrokes, authenticity)),
			TotalDots:            totalDots,
			TotalStrokes:         totalStrokes,
			SymmetryLevel:        stages.Percent(symmetry),
			CulturalAuthenticity: stages.Percent(authenticity),
			PredominantFeatures:  PredominantFeature(totalDots, symmetry, totalStrokes, authenticity),
			ArtisticStyle:        artisticStyle,
			ComplexityRating:     complexityRating,
		},
		Recommendations: Recommendations{
			Improvements:     recommendations(totalDots, symmetry, totalStrokes, authenticity),
			SkillDevelopment: skillDev,
			CulturalContext:  culturalContext,
		},
		Performance: Timings{
			Total: stages.Seconds(total.Seconds()),
		},
		Completeness: "100%",
		Stages:       reports,
	}

	if r := byKind[stages.KindDots]; r != nil {
		comp.Performance.Dots = stages.Seconds(r.AnalysisTime())
	}
	if r := byKind[stages.KindSymmetry]; r != nil {
		comp.Performance.Symmetry = stages.Seconds(r.AnalysisTime())
	}
	if r := byKind[stages.KindStrokes]; r != nil {
		comp.Performance.Strokes = stages.Seconds(r.AnalysisTime())
	}
	if r := byKind[stages.KindSpatial]; r != nil {
		comp.Performance.Spatial = stages.Seconds(r.AnalysisTime())
	}
	if r := byKind[stages.KindPattern]; r != nil {
		comp.Performance.Pattern = stages.Seconds(r.AnalysisTime())
	}

	return comp
}

// Quality is the mean of the strictly positive members of the four quality
// factors. All-zero factors yield 0.
func Quality(dots int, symmetry float64, strokes int, authenticity float64) float64 {
	factors := []float64{
		min(100, float64(dots)*2),
		symmetry,
		min(100, float64(strokes)),
		authenticity,
	}
	var sum float64
	var n int
	for _, f := range factors {
		if f > 0 {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// PredominantFeature picks the strongest cross-stage signal. When every
// score is zero the image is tagged basic_shapes.
func PredominantFeature(dots int, symmetry float64, strokes int, authenticity float64) string {
	candidates := []feature{
		{"geometric_dots", dots},
		{"symmetrical_lines", int(symmetry / 10)},
		{"cultural_patterns", int(authenticity / 10)},
		{"artistic_strokes", strokes},
	}
	best := candidates[0]
	any := false
	for _, c := range candidates {
		if c.score > 0 {
			any = true
		}
		if c.score > best.score {
			best = c
		}
	}
	if !any {
		return "basic_shapes"
	}
	return best.name
}

// recommendations returns the top three improvement suggestions.
func recommendations(dots int, symmetry float64, strokes int, authenticity float64) []string {
	var out []string
	if symmetry < 50 {
		out = append(out, fmt.Sprintf("Enhance symmetry (current: %.2f%%)", symmetry))
	} else {
		out = append(out, "Excellent symmetry maintained")
	}
	if authenticity < 60 {
		out = append(out, fmt.Sprintf("Add more traditional elements (authenticity: %.2f%%)", authenticity))
	} else {
		out = append(out, "Strong cultural authenticity")
	}
	if dots < 10 {
		out = append(out, fmt.Sprintf("Increase dot precision (detected: %d)", dots))
	} else {
		out = append(out, "Good dot detection")
	}
	if strokes < 5 {
		out = append(out, fmt.Sprintf("Enhance stroke definition (detected: %d)", strokes))
	} else {
		out = append(out, "Well-defined strokes")
	}
	return out[:3]
}
