package geometry

import (
	"math"
	"math/rand"
)

// kmeansSeed fixes the centroid initialization so repeated runs over the
// same image produce the same clusters.
const kmeansSeed = 42

// KMeans partitions points into k clusters and returns the cluster
// centroids and the per-point assignment. k is clamped to len(points).
func KMeans(points []Point, k, maxIter int) (centroids []Point, labels []int) {
	n := len(points)
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}
	if maxIter <= 0 {
		maxIter = 100
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	centroids = make([]Point, k)
	for i, idx := range rng.Perm(n)[:k] {
		centroids[i] = points[idx]
	}

	labels = make([]int, n)
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := 0
			bestD := math.Inf(1)
			for c, cen := range centroids {
				d := p.Dist(cen)
				if d < bestD {
					bestD = d
					best = c
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		counts := make([]int, k)
		sums := make([]Point, k)
		for i, p := range points {
			l := labels[i]
			counts[l]++
			sums[l].X += p.X
			sums[l].Y += p.Y
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Reseed empty clusters on a random point.
				centroids[c] = points[rng.Intn(n)]
				changed = true
				continue
			}
			centroids[c] = Point{X: sums[c].X / float64(counts[c]), Y: sums[c].Y / float64(counts[c])}
		}
		if !changed {
			break
		}
	}
	return centroids, labels
}

// DBSCANNoise marks points not assigned to any density cluster.
const DBSCANNoise = -1

// DBSCAN runs density-based clustering over points. eps is the
// neighborhood radius, minPts the core-point threshold. The returned
// labels assign each point a cluster id starting at 0, or DBSCANNoise.
// The second return is the number of clusters found.
func DBSCAN(points []Point, eps float64, minPts int) (labels []int, clusters int) {
	n := len(points)
	labels = make([]int, n)
	for i := range labels {
		labels[i] = DBSCANNoise
	}
	if n == 0 || eps <= 0 || minPts <= 0 {
		return labels, 0
	}

	visited := make([]bool, n)
	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if j != i && points[i].Dist(points[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	cluster := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true
		nb := neighbors(i)
		if len(nb)+1 < minPts {
			continue
		}
		labels[i] = cluster
		// Expand the cluster through density-reachable points.
		for qi := 0; qi < len(nb); qi++ {
			j := nb[qi]
			if !visited[j] {
				visited[j] = true
				jn := neighbors(j)
				if len(jn)+1 >= minPts {
					nb = append(nb, jn...)
				}
			}
			if labels[j] == DBSCANNoise {
				labels[j] = cluster
			}
		}
		cluster++
	}
	return labels, cluster
}

// ClusterSizes tallies members per cluster, ignoring noise points.
func ClusterSizes(labels []int, clusters int) []int {
	sizes := make([]int, clusters)
	for _, l := range labels {
		if l >= 0 && l < clusters {
			sizes[l]++
		}
	}
	return sizes
}
