package geometry

import "math"

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// StdDev returns the population standard deviation, 0 for fewer than two
// values.
func StdDev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	m := Mean(vs)
	var sum float64
	for _, v := range vs {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vs)))
}

// Regularity scores how uniform a set of measurements is on [0, 1]. A
// spread large relative to the mean scores 0; identical values score 1.
func Regularity(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := Mean(vs)
	sd := StdDev(vs)
	denom := math.Max(m, 1)
	return 1 - math.Min(1, sd/denom)
}

// NearestNeighborDistances returns, for each point, the distance to its
// closest other point. Returns nil for fewer than two points.
func NearestNeighborDistances(points []Point) []float64 {
	n := len(points)
	if n < 2 {
		return nil
	}
	out := make([]float64, n)
	for i := range points {
		best := math.Inf(1)
		for j := range points {
			if i == j {
				continue
			}
			if d := points[i].Dist(points[j]); d < best {
				best = d
			}
		}
		out[i] = best
	}
	return out
}

// SpacingConsistency scores nearest-neighbor spacing uniformity on [0, 1]
// as 1 / (1 + std/mean). A perfectly even grid scores 1.
func SpacingConsistency(spacings []float64) float64 {
	if len(spacings) == 0 {
		return 0
	}
	m := Mean(spacings)
	if m <= 0 {
		return 0
	}
	return 1 / (1 + StdDev(spacings)/m)
}

// SpatialEntropy measures how evenly points spread over a w x h frame
// using an occupancy grid of gridN x gridN cells. The result is normalized
// to [0, 1] against the maximum entropy log(gridN^2).
func SpatialEntropy(points []Point, w, h, gridN int) float64 {
	if len(points) == 0 || w <= 0 || h <= 0 || gridN <= 1 {
		return 0
	}
	cellW := float64(w) / float64(gridN)
	cellH := float64(h) / float64(gridN)
	counts := make([]int, gridN*gridN)
	total := 0
	for _, p := range points {
		cx := int(p.X / cellW)
		cy := int(p.Y / cellH)
		if cx < 0 || cy < 0 || cx >= gridN || cy >= gridN {
			continue
		}
		counts[cy*gridN+cx]++
		total++
	}
	if total == 0 {
		return 0
	}
	var ent float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		ent -= p * math.Log(p)
	}
	maxEnt := math.Log(float64(gridN * gridN))
	if maxEnt <= 0 {
		return 0
	}
	return ent / maxEnt
}
