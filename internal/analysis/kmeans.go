package analysis

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// kmeans partitions points into k clusters by iterative reassignment to the
// nearest centroid, restarted several times, keeping the labeling with the
// lowest within-cluster sum of squared distances. Deterministic for a fixed
// seed. If it does not converge within maxIter it returns the best labeling
// found so far.
func kmeans(points [][]float64, k int, seed int64, restarts, maxIter int) []int {
	n := len(points)
	if k >= n {
		labels := make([]int, n)
		for i := range labels {
			labels[i] = i % k
		}
		return labels
	}

	bestLabels := make([]int, n)
	bestInertia := math.Inf(1)

	for r := 0; r < restarts; r++ {
		rng := rand.New(rand.NewSource(seed + int64(r)))
		centroids := seedCentroids(points, k, rng)
		labels := make([]int, n)

		for iter := 0; iter < maxIter; iter++ {
			changed := assign(points, centroids, labels)
			recenter(points, labels, centroids, rng)
			if !changed && iter > 0 {
				break
			}
		}

		if inertia := totalInertia(points, centroids, labels); inertia < bestInertia {
			bestInertia = inertia
			copy(bestLabels, labels)
		}
	}

	return bestLabels
}

// seedCentroids picks initial centroids with k-means++ weighting: each next
// centroid is drawn proportionally to squared distance from the nearest
// already-chosen one.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	dim := len(points[0])

	centroids := make([][]float64, 0, k)
	first := make([]float64, dim)
	copy(first, points[rng.Intn(n)])
	centroids = append(centroids, first)

	dists := make([]float64, n)
	for len(centroids) < k {
		var sum float64
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				if dd := floats.Distance(p, c, 2); dd < d {
					d = dd
				}
			}
			dists[i] = d * d
			sum += dists[i]
		}

		target := rng.Float64() * sum
		idx := n - 1
		var acc float64
		for i, d := range dists {
			acc += d
			if acc >= target {
				idx = i
				break
			}
		}
		next := make([]float64, dim)
		copy(next, points[idx])
		centroids = append(centroids, next)
	}

	return centroids
}

func assign(points [][]float64, centroids [][]float64, labels []int) (changed bool) {
	for i, p := range points {
		best := 0
		bestDist := math.Inf(1)
		for c, centroid := range centroids {
			if d := floats.Distance(p, centroid, 2); d < bestDist {
				bestDist = d
				best = c
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// recenter moves each centroid to the mean of its members. An emptied cluster
// is re-seeded on a random point so every label in [0,k) stays populated.
func recenter(points [][]float64, labels []int, centroids [][]float64, rng *rand.Rand) {
	dim := len(points[0])
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range points {
		counts[labels[i]]++
		floats.Add(sums[labels[i]], p)
	}
	for c := range centroids {
		if counts[c] == 0 {
			copy(centroids[c], points[rng.Intn(len(points))])
			continue
		}
		for j := range sums[c] {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}

func totalInertia(points [][]float64, centroids [][]float64, labels []int) float64 {
	var total float64
	for i, p := range points {
		d := floats.Distance(p, centroids[labels[i]], 2)
		total += d * d
	}
	return total
}
