package cluster

import (
	"math"
	"math/rand"
)

const (
	minClusters     = 3
	maxClusters     = 20
	kmeansMaxIters  = 100
	kmeansTolerance = 1e-4
)

// chooseK picks the cluster count for a keyword set of size n.
func chooseK(n int) int {
	k := int(math.Floor(math.Sqrt(float64(n) / 2)))
	if k < minClusters {
		k = minClusters
	}
	if k > maxClusters {
		k = maxClusters
	}
	if k > n {
		k = n
	}
	return k
}

// kmeans runs Lloyd's algorithm with k-means++ seeding and returns the
// assignment of each vector to a cluster index in [0,k).
func kmeans(vectors [][]float64, k int, rng *rand.Rand) []int {
	n := len(vectors)
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	if k <= 1 {
		return make([]int, n)
	}

	centroids := seedCentroids(vectors, k, rng)
	assignment := make([]int, n)

	for iter := 0; iter < kmeansMaxIters; iter++ {
		for i, vec := range vectors {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := squaredDistance(vec, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			assignment[i] = best
		}

		next := make([][]float64, k)
		counts := make([]int, k)
		width := len(vectors[0])
		for c := range next {
			next[c] = make([]float64, width)
		}
		for i, vec := range vectors {
			c := assignment[i]
			counts[c]++
			for d, v := range vec {
				next[c][d] += v
			}
		}

		shift := 0.0
		for c := range next {
			if counts[c] == 0 {
				// Keep an emptied centroid in place.
				copy(next[c], centroids[c])
				continue
			}
			inv := 1 / float64(counts[c])
			for d := range next[c] {
				next[c][d] *= inv
			}
			shift += math.Sqrt(squaredDistance(centroids[c], next[c]))
		}
		centroids = next

		if shift < kmeansTolerance {
			break
		}
	}
	return assignment
}

// seedCentroids implements k-means++ initialization.
func seedCentroids(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(vectors)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, vectors[rng.Intn(n)])

	dists := make([]float64, n)
	for len(centroids) < k {
		total := 0.0
		for i, vec := range vectors {
			best := math.Inf(1)
			for _, centroid := range centroids {
				if d := squaredDistance(vec, centroid); d < best {
					best = d
				}
			}
			dists[i] = best
			total += best
		}
		if total == 0 {
			// All remaining points coincide with a centroid.
			centroids = append(centroids, vectors[rng.Intn(n)])
			continue
		}
		target := rng.Float64() * total
		idx := 0
		for i, d := range dists {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centroids = append(centroids, vectors[idx])
	}
	return centroids
}
