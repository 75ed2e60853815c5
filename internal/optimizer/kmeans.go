package optimizer

import (
	"fmt"
	"math"
	"math/rand"
)

const maxKMeansIterations = 100

// KMeans fits k centroids to the data with Lloyd's algorithm. The seed
// fully determines centroid initialization (k-means++ style weighted
// seeding), so a fixed seed and training set always produce the same
// centroids in the same order. Cluster numbering carries no semantic
// meaning; it is whatever the seeded initialization happens to yield.
func KMeans(data [][]float64, k int, seed int64) ([][]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("kmeans: empty training set")
	}
	if k < 1 {
		return nil, fmt.Errorf("kmeans: k must be at least 1, got %d", k)
	}
	if k > len(data) {
		k = len(data)
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(data, k, rng)

	assignments := make([]int, len(data))
	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, v := range data {
			c := Assign(centroids, v)
			if c != assignments[i] {
				assignments[i] = c
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		// Recompute centroids; a cluster that lost all members keeps
		// its previous centroid
		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, len(data[0]))
		}
		for i, v := range data {
			c := assignments[i]
			counts[c]++
			for d := range v {
				sums[c][d] += v[d]
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for d := range sums[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	return centroids, nil
}

// Assign returns the index of the centroid nearest to v
func Assign(centroids [][]float64, v []float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centroids {
		if d := squaredDistance(c, v); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// seedCentroids picks k initial centroids: the first uniformly at
// random, the rest weighted by squared distance to the nearest chosen
// centroid, which spreads seeds across well-separated groups.
func seedCentroids(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := data[rng.Intn(len(data))]
	centroids = append(centroids, clone(first))

	dists := make([]float64, len(data))
	for len(centroids) < k {
		var total float64
		for i, v := range data {
			dists[i] = squaredDistance(centroids[Assign(centroids, v)], v)
			total += dists[i]
		}

		if total == 0 {
			// All remaining points coincide with chosen centroids
			centroids = append(centroids, clone(data[rng.Intn(len(data))]))
			continue
		}

		target := rng.Float64() * total
		var cum float64
		picked := len(data) - 1
		for i, d := range dists {
			cum += d
			if cum >= target {
				picked = i
				break
			}
		}
		centroids = append(centroids, clone(data[picked]))
	}

	return centroids
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
