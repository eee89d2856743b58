// Package stages implements the five analysis stages of the kolam
// pipeline. Each stage consumes the grayscale image plus artifacts from
// earlier stages and produces a typed report that stays structurally
// valid even when the stage fails.
package stages

import (
	"encoding/json"
	"fmt"
)

// Kind identifies a stage report variant.
type Kind string

const (
	KindDots     Kind = "dot_analysis"
	KindSymmetry Kind = "symmetry_analysis"
	KindStrokes  Kind = "line_stroke_analysis"
	KindSpatial  Kind = "spatial_reasoning"
	KindPattern  Kind = "pattern_recognition"
)

// Order is the fixed stage execution order.
var Order = []Kind{KindDots, KindSymmetry, KindStrokes, KindSpatial, KindPattern}

// Percent is a percentage held as float64 in memory and serialized as a
// "NN.NN%" string at the JSON boundary.
type Percent float64

func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%.2f%%", float64(p)))
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		var v float64
		if _, err := fmt.Sscanf(s, "%f%%", &v); err != nil {
			return err
		}
		*p = Percent(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = Percent(v)
	return nil
}

// PixelLen is a length in pixels serialized as "NN.NN pixels".
type PixelLen float64

func (l PixelLen) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%.2f pixels", float64(l)))
}

func (l *PixelLen) UnmarshalJSON(b []byte) error {
	v, err := unmarshalSuffixed(b, " pixels")
	*l = PixelLen(v)
	return err
}

// Degrees is an angle serialized with a degree suffix.
type Degrees float64

func (d Degrees) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%.2f°", float64(d)))
}

func (d *Degrees) UnmarshalJSON(b []byte) error {
	v, err := unmarshalSuffixed(b, "°")
	*d = Degrees(v)
	return err
}

// Seconds is a duration serialized as "N.NNs".
type Seconds float64

func (s Seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%.2fs", float64(s)))
}

func (s *Seconds) UnmarshalJSON(b []byte) error {
	v, err := unmarshalSuffixed(b, "s")
	*s = Seconds(v)
	return err
}

// unmarshalSuffixed reads a suffixed measurement string, accepting a bare
// number as well so cached reports from older encodings still decode.
func unmarshalSuffixed(b []byte, suffix string) (float64, error) {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		var v float64
		if _, err := fmt.Sscanf(s, "%f"+suffix, &v); err != nil {
			return 0, err
		}
		return v, nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// StageReport is the tagged union carried on the event stream. Exactly
// one of the stage pointers is set, matching Stage. Err is set when the
// stage failed and the payload holds the documented defaults.
type StageReport struct {
	Stage Kind   `json:"stage"`
	Err   string `json:"error,omitempty"`

	Dots     *DotsReport     `json:"dot_analysis,omitempty"`
	Symmetry *SymmetryReport `json:"symmetry_analysis,omitempty"`
	Strokes  *StrokesReport  `json:"line_stroke_analysis,omitempty"`
	Spatial  *SpatialReport  `json:"spatial_reasoning,omitempty"`
	Pattern  *PatternReport  `json:"pattern_recognition,omitempty"`
}

// AnalysisTime returns the embedded stage timing in seconds.
func (r *StageReport) AnalysisTime() float64 {
	switch r.Stage {
	case KindDots:
		if r.Dots != nil {
			return float64(r.Dots.AnalysisTime)
		}
	case KindSymmetry:
		if r.Symmetry != nil {
			return float64(r.Symmetry.AnalysisTime)
		}
	case KindStrokes:
		if r.Strokes != nil {
			return float64(r.Strokes.AnalysisTime)
		}
	case KindSpatial:
		if r.Spatial != nil {
			return float64(r.Spatial.AnalysisTime)
		}
	case KindPattern:
		if r.Pattern != nil {
			return float64(r.Pattern.AnalysisTime)
		}
	}
	return 0
}

// Dot is one detected grid dot with its relative placement.
type Dot struct {
	ID              int     `json:"id"`
	X               int     `json:"x"`
	Y               int     `json:"y"`
	Size            float64 `json:"size"`
	Confidence      float64 `json:"confidence"`
	EstimatedRadius float64 `json:"estimated_radius"`
	XPercent        float64 `json:"x_percent"`
	YPercent        float64 `json:"y_percent"`
}

// DetectionMethods tallies per-detector candidate counts.
type DetectionMethods struct {
	BlobDetection       int `json:"blob_detection"`
	HoughCircles        int `json:"hough_circles"`
	TemplateMatching    int `json:"template_matching"`
	TotalBeforeFiltering int `json:"total_before_filtering"`
	FinalUniqueDots     int `json:"final_unique_dots"`
}

// GridSpacing reports dot grid spacing statistics. Insufficient is set
// in place of the metrics when fewer than two dots were found.
type GridSpacing struct {
	Insufficient bool     `json:"insufficient_data,omitempty"`
	Message      string   `json:"message,omitempty"`
	MeanSpacing  PixelLen `json:"mean_spacing,omitempty"`
	StdDev       PixelLen `json:"std_dev_spacing,omitempty"`
	Consistency  float64  `json:"consistency_score,omitempty"`
}

// ClusterPatterns describes k-means structure over dot positions.
type ClusterPatterns struct {
	ClusterCount      int     `json:"cluster_count"`
	ClusterSizes      []int   `json:"cluster_sizes"`
	ClusterRegularity float64 `json:"cluster_regularity"`
	CentroidSymmetry  float64 `json:"centroid_symmetry"`
}

// SymmetryIndices are keypoint-coordinate symmetry match fractions in
// [0, 1].
type SymmetryIndices struct {
	HorizontalReflection float64            `json:"horizontal_reflection"`
	VerticalReflection   float64            `json:"vertical_reflection"`
	Rotational           map[string]float64 `json:"rotational_symmetries"`
}

// DotsReport is the dot analysis stage output.
type DotsReport struct {
	Dots             []Dot            `json:"dot_grid_analysis"`
	DetectionMethods DetectionMethods `json:"dot_detection_methods"`

	SizeDistribution       map[string]int `json:"size_distribution"`
	ConfidenceDistribution map[string]int `json:"confidence_distribution"`
	UniformityScore        Percent        `json:"uniformity_score"`
	GeometricPatterns      *ClusterPatterns `json:"geometric_patterns,omitempty"`
	SymmetryIndices        *SymmetryIndices `json:"symmetry_indices,omitempty"`
	FractalDimension       float64        `json:"fractal_dimension"`
	PatternRegularity      float64        `json:"pattern_regularity"`

	GridSpacing GridSpacing `json:"dot_grid_optimization"`

	DetectionConfidenceAvg float64 `json:"detection_confidence_avg"`
	SizeConsistencyIndex   float64 `json:"size_consistency_index"`
	SpatialEntropy         float64 `json:"spatial_entropy"`

	AnalysisTime Seconds `json:"analysis_time"`
}

// SymmetryReport is the symmetry stage output. All scores are percentages
// clamped to [0, 100].
type SymmetryReport struct {
	Horizontal           Percent `json:"horizontal_symmetry"`
	HorizontalStructural Percent `json:"horizontal_structural_similarity"`
	Vertical             Percent `json:"vertical_symmetry"`
	VerticalStructural   Percent `json:"vertical_structural_similarity"`
	DiagonalMain         Percent `json:"diagonal_main_symmetry"`
	DiagonalAnti         Percent `json:"diagonal_anti_symmetry"`
	Radial               Percent `json:"radial_symmetry"`
	Point                Percent `json:"point_symmetry"`

	NFold              map[string]Percent `json:"n_fold_symmetries"`
	BestRotationAngle  Degrees            `json:"best_rotational_angle"`
	GeometricBalance   Percent            `json:"geometric_balance"`
	PrincipalAxisAngle Degrees            `json:"principal_axis_angle"`
	CentroidOffsetX    int                `json:"centroid_offset_x"`
	CentroidOffsetY    int                `json:"centroid_offset_y"`

	Overall     Percent `json:"overall_symmetry"`
	Consistency Percent `json:"symmetry_consistency"`

	Type         string  `json:"symmetry_type"`
	Significance string  `json:"cultural_significance"`
	AnalysisTime Seconds `json:"analysis_time"`
}

// LineStats tallies pixels and detections per edge/line method.
type LineStats struct {
	CannyLowEdges       int `json:"canny_low_edges"`
	CannyMedEdges       int `json:"canny_med_edges"`
	CannyHighEdges      int `json:"canny_high_edges"`
	HoughStandard       int `json:"hough_lines_standard"`
	HoughSensitive      int `json:"hough_lines_sensitive"`
	HoughPLong          int `json:"houghP_long_lines"`
	HoughPShort         int `json:"houghP_short_lines"`
	HoughPGaps          int `json:"houghP_gap_lines"`
	TotalContoursFound  int `json:"total_contours_found"`
	ContoursAfterFilter int `json:"contours_after_filtering"`
}

// StrokeBreakdown counts stroke qualities over the filtered contours.
type StrokeBreakdown struct {
	Continuous   int `json:"continuous_strokes"`
	Broken       int `json:"broken_strokes"`
	Curved       int `json:"curved_lines"`
	Straight     int `json:"straight_lines"`
	Thick        int `json:"thick_strokes"`
	Thin         int `json:"thin_strokes"`
	Decorative   int `json:"decorative_elements"`
}

// ShapeCounts is the cultural shape taxonomy tally.
type ShapeCounts struct {
	Circles       int `json:"circles"`
	Triangles     int `json:"triangles"`
	Rectangles    int `json:"rectangles"`
	Polygons      int `json:"polygons"`
	ComplexShapes int `json:"complex_shapes"`
	LotusPetals   int `json:"lotus_petals"`
	PaisleyForms  int `json:"paisley_forms"`
	MandalaRings  int `json:"mandala_rings"`
}

// StrokeRhythm holds arc-length statistics over the strokes.
type StrokeRhythm struct {
	AverageLength  PixelLen `json:"average_stroke_length"`
	LengthVariance float64  `json:"stroke_length_variance"`
	Consistency    Percent  `json:"rhythm_consistency"`
}

// Technique is the artistic technique assessment block.
type Technique struct {
	PrecisionLevel       string `json:"precision_level"`
	ArtisticStyle        string `json:"artistic_style"`
	CulturalAuthenticity string `json:"cultural_authenticity"`
	SkillIndication      string `json:"skill_indication"`
}

// Topology summarizes the skeleton graph of the stroke work.
type Topology struct {
	Components   int  `json:"components"`
	Junctions    int  `json:"junctions"`
	Endpoints    int  `json:"endpoints"`
	CycleRank    int  `json:"cycle_rank"`
	SingleStroke bool `json:"single_stroke_drawable"`
	ClosedLoop   bool `json:"closed_loop"`
}

// StrokesReport is the line/stroke stage output.
type StrokesReport struct {
	StrokeCount      int             `json:"number_of_strokes"`
	TotalLineLength  PixelLen        `json:"total_length_of_lines"`
	LineStats        LineStats       `json:"line_detection_methods"`
	Strokes          StrokeBreakdown `json:"stroke_analysis"`
	Shapes           ShapeCounts     `json:"shapes_detected"`
	Rhythm           StrokeRhythm    `json:"stroke_rhythm"`
	Technique        Technique       `json:"technique_assessment"`
	CulturalElements []string        `json:"cultural_elements_found"`
	Complexity       float64         `json:"geometric_complexity"`
	PatternUniformity Percent        `json:"pattern_uniformity"`
	DetailDensity    float64         `json:"detail_density"`
	CulturalDensity  Percent         `json:"cultural_pattern_density"`
	ArtisticFlow     string          `json:"artistic_flow"`
	Topology         Topology        `json:"skeleton_topology"`
	AnalysisTime     Seconds         `json:"analysis_time"`
}

// SacredGeometry flags higher-order structural properties.
type SacredGeometry struct {
	SacredGeometryPresence bool `json:"sacred_geometry_presence"`
	MandalaStructure       bool `json:"mandala_structure"`
	CardinalAlignment      bool `json:"cardinal_direction_alignment"`
	GoldenRatioProportions bool `json:"golden_ratio_proportions"`
}

// CulturalSpatial labels the arrangement's cultural reading.
type CulturalSpatial struct {
	EnergyFlow          string `json:"energy_flow"`
	SpiritualDirection  string `json:"spiritual_direction"`
	CulturalOrientation string `json:"cultural_orientation"`
	SymbolicBalance     string `json:"symbolic_balance"`
}

// QuadrantCounts partitions contour centroids around the image center.
type QuadrantCounts struct {
	Northeast int `json:"northeast"`
	Northwest int `json:"northwest"`
	Southwest int `json:"southwest"`
	Southeast int `json:"southeast"`
}

// SpatialReport is the spatial reasoning stage output.
type SpatialReport struct {
	DotCentroidX     int      `json:"dot_centroid_x"`
	DotCentroidY     int      `json:"dot_centroid_y"`
	ContourCentroidX int      `json:"contour_centroid_x"`
	ContourCentroidY int      `json:"contour_centroid_y"`
	PatternClusters  int      `json:"pattern_clusters"`
	HorizontalSpread PixelLen `json:"horizontal_spread"`
	VerticalSpread   PixelLen `json:"vertical_spread"`

	PatternCoverage        Percent `json:"pattern_coverage"`
	CenterAlignment        Percent `json:"center_alignment"`
	DistributionUniformity Percent `json:"distribution_uniformity"`
	RadialHarmony          Percent `json:"radial_harmony"`

	SacredGeometry  SacredGeometry  `json:"sacred_geometry_features"`
	CulturalSpatial CulturalSpatial `json:"cultural_spatial_patterns"`
	Quadrants       QuadrantCounts  `json:"quadrant_distribution"`

	AnalysisTime Seconds `json:"analysis_time"`
}

// ElementCounts is the 8-category traditional element tally.
type ElementCounts struct {
	LotusPatterns     int `json:"lotus_patterns"`
	GeometricMandalas int `json:"geometric_mandalas"`
	FloralMotifs      int `json:"floral_motifs"`
	PeacockPatterns   int `json:"peacock_patterns"`
	PaisleyDesigns    int `json:"paisley_designs"`
	SpiralPatterns    int `json:"spiral_patterns"`
	GridPatterns      int `json:"grid_patterns"`
	StarPatterns      int `json:"star_patterns"`
}

// Total sums all categories.
func (e ElementCounts) Total() int {
	return e.LotusPatterns + e.GeometricMandalas + e.FloralMotifs +
		e.PeacockPatterns + e.PaisleyDesigns + e.SpiralPatterns +
		e.GridPatterns + e.StarPatterns
}

// AuthenticityFactors are the four clamped inputs to the authenticity
// mean.
type AuthenticityFactors struct {
	PatternDensity  Percent `json:"pattern_density"`
	SymmetryQuality Percent `json:"symmetry_quality"`
	Complexity      Percent `json:"complexity_appropriateness"`
	SacredGeometry  Percent `json:"sacred_geometry_presence"`
}

// ElementBreakdown groups the categories by symbolic family.
type ElementBreakdown struct {
	SacredGeometry     int `json:"sacred_geometry"`
	NatureMotifs       int `json:"nature_motifs"`
	CulturalSymbols    int `json:"cultural_symbols"`
	StructuralPatterns int `json:"structural_patterns"`
}

// PatternReport is the pattern/cultural recognition stage output.
type PatternReport struct {
	Elements           ElementCounts `json:"traditional_elements"`
	RegionalStyle      string        `json:"regional_style_suggestion"`
	StyleConfidence    Percent       `json:"regional_style_confidence"`
	Authenticity       Percent       `json:"cultural_authenticity_score"`
	DominantIntensities []int        `json:"dominant_intensity_levels"`
	ComplexityLevel    string        `json:"pattern_complexity_level"`
	Spiritual          string        `json:"spiritual_significance"`
	SkillLevel         string        `json:"skill_level_required"`
	OccasionAnalysis   string        `json:"occasion_analysis"`

	Breakdown ElementBreakdown    `json:"cultural_elements_breakdown"`
	Factors   AuthenticityFactors `json:"authenticity_factors"`

	AnalysisTime Seconds `json:"analysis_time"`
}

// Fallback reports carry the documented zero/neutral defaults for a
// failed stage. Every field keeps its zero value except the ones with a
// non-zero documented default.

func FallbackDots(err string) *StageReport {
	return &StageReport{
		Stage: KindDots,
		Err:   err,
		Dots: &DotsReport{
			Dots:                   []Dot{},
			SizeDistribution:       map[string]int{},
			ConfidenceDistribution: map[string]int{},
			GridSpacing:            GridSpacing{Insufficient: true, Message: "Analysis failed"},
		},
	}
}

func FallbackSymmetry(err string) *StageReport {
	return &StageReport{
		Stage: KindSymmetry,
		Err:   err,
		Symmetry: &SymmetryReport{
			NFold: map[string]Percent{},
			Type:  "Unknown",
		},
	}
}

func FallbackStrokes(err string) *StageReport {
	return &StageReport{
		Stage: KindStrokes,
		Err:   err,
		Strokes: &StrokesReport{
			CulturalElements: []string{},
			Rhythm:           StrokeRhythm{Consistency: 0},
			Technique: Technique{
				PrecisionLevel:       "Unknown",
				ArtisticStyle:        "Unknown",
				CulturalAuthenticity: "Unknown",
				SkillIndication:      "Beginner",
			},
		},
	}
}

func FallbackSpatial(err string) *StageReport {
	return &StageReport{
		Stage: KindSpatial,
		Err:   err,
		Spatial: &SpatialReport{
			CulturalSpatial: CulturalSpatial{
				EnergyFlow:          "Unknown",
				SpiritualDirection:  "Unknown",
				CulturalOrientation: "Unknown",
				SymbolicBalance:     "Unknown",
			},
		},
	}
}

func FallbackPattern(err string) *StageReport {
	return &StageReport{
		Stage: KindPattern,
		Err:   err,
		Pattern: &PatternReport{
			RegionalStyle:       "Unknown",
			ComplexityLevel:     "Unknown",
			Spiritual:           "Analysis failed",
			SkillLevel:          "Unknown",
			DominantIntensities: []int{},
		},
	}
}

// Fallback returns the fallback report for the given stage kind.
func Fallback(kind Kind, err string) *StageReport {
	switch kind {
	case KindDots:
		return FallbackDots(err)
	case KindSymmetry:
		return FallbackSymmetry(err)
	case KindStrokes:
		return FallbackStrokes(err)
	case KindSpatial:
		return FallbackSpatial(err)
	case KindPattern:
		return FallbackPattern(err)
	}
	return &StageReport{Stage: kind, Err: err}
}
