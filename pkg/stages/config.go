package stages

// Config holds the empirically tuned thresholds shared by the stages.
// The values have no documented derivation beyond field calibration, so
// they are kept adjustable rather than baked in.
type Config struct {
	// Dot merge.
	DedupRadius  float64 `toml:"dedup_radius"`
	MergePreCap  int     `toml:"merge_pre_cap"`
	MergePostCap int     `toml:"merge_post_cap"`

	// Stroke dedup.
	ShapeMatchThreshold float64 `toml:"shape_match_threshold"`

	// Spatial clustering.
	ClusterEps    float64 `toml:"cluster_eps"`
	ClusterMinPts int     `toml:"cluster_min_pts"`

	// Symmetry classification cutoffs, percentages.
	BilateralCutoff float64 `toml:"bilateral_cutoff"`
	RadialCutoff    float64 `toml:"radial_cutoff"`
	PointCutoff     float64 `toml:"point_cutoff"`
	NFoldCutoff     float64 `toml:"nfold_cutoff"`

	// Angular alignment classification.
	CardinalToleranceDeg  float64 `toml:"cardinal_tolerance_deg"`
	OctagonalToleranceDeg float64 `toml:"octagonal_tolerance_deg"`
	CardinalFraction      float64 `toml:"cardinal_fraction"`
	OctagonalFraction     float64 `toml:"octagonal_fraction"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		DedupRadius:  8,
		MergePreCap:  500,
		MergePostCap: 300,

		ShapeMatchThreshold: 0.1,

		ClusterEps:    50,
		ClusterMinPts: 2,

		BilateralCutoff: 80,
		RadialCutoff:    70,
		PointCutoff:     60,
		NFoldCutoff:     60,

		CardinalToleranceDeg:  15,
		OctagonalToleranceDeg: 10,
		CardinalFraction:      0.5,
		OctagonalFraction:     0.4,
	}
}
