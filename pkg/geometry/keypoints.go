package geometry

import "sort"

// Keypoint merge parameters. The dedup radius and caps were tuned against
// photographed kolam grids; see the pipeline config for overrides.
const (
	// DedupRadius is the minimum center distance for two keypoints to be
	// considered distinct detections.
	DedupRadius = 8.0

	// MergePreCap bounds the candidate pool before dedup: when the three
	// detectors produce more, only the most confident survive.
	MergePreCap = 500

	// MergePostCap bounds the final deduplicated set.
	MergePostCap = 300
)

// MergeKeypoints combines candidate sets from multiple detectors into one
// deduplicated set:
//
//  1. Concatenate all candidates.
//  2. If more than preCap remain, keep the preCap most confident.
//  3. Greedy dedup: walk candidates in order, keeping one only if no
//     already-kept candidate lies within radius of it.
//  4. Truncate to postCap.
//
// Pass radius/cap values of 0 to use the package defaults.
func MergeKeypoints(sets [][]Keypoint, radius float64, preCap, postCap int) []Keypoint {
	if radius <= 0 {
		radius = DedupRadius
	}
	if preCap <= 0 {
		preCap = MergePreCap
	}
	if postCap <= 0 {
		postCap = MergePostCap
	}

	var all []Keypoint
	for _, s := range sets {
		all = append(all, s...)
	}

	if len(all) > preCap {
		sort.SliceStable(all, func(i, j int) bool {
			return all[i].Confidence > all[j].Confidence
		})
		all = all[:preCap]
	}

	kept := DedupKeypoints(all, radius)
	if len(kept) > postCap {
		kept = kept[:postCap]
	}
	return kept
}

// DedupKeypoints performs the greedy proximity dedup on its own. It is
// idempotent: if no two input points lie within radius of each other, the
// input is returned unchanged in content and order.
func DedupKeypoints(candidates []Keypoint, radius float64) []Keypoint {
	kept := make([]Keypoint, 0, len(candidates))
	for _, kp := range candidates {
		duplicate := false
		for _, existing := range kept {
			if kp.Pos().Dist(existing.Pos()) < radius {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, kp)
		}
	}
	return kept
}

// KeypointPositions projects keypoints to their center points.
func KeypointPositions(kps []Keypoint) []Point {
	out := make([]Point, len(kps))
	for i, kp := range kps {
		out[i] = kp.Pos()
	}
	return out
}
