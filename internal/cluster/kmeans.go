package cluster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// randomSeed fixes K-Means initialization for reproducible runs.
const randomSeed = 42

// defaultNInit is how many random restarts a full fit keeps the best of.
const defaultNInit = 10

// elbowNInit is the cheaper restart count used during the elbow scan.
const elbowNInit = 5

const maxIterations = 100

type kmeansResult struct {
	labels    []int
	centroids [][]float64
	inertia   float64
}

// standardize scales points to zero mean and unit variance per dimension.
// Constant dimensions are left at zero rather than dividing by zero.
func standardize(points [][]float64) [][]float64 {
	if len(points) == 0 {
		return nil
	}
	dims := len(points[0])

	column := make([]float64, len(points))
	means := make([]float64, dims)
	stds := make([]float64, dims)
	for d := 0; d < dims; d++ {
		for i, p := range points {
			column[i] = p[d]
		}
		means[d] = stat.Mean(column, nil)
		stds[d] = stat.StdDev(column, nil)
		if stds[d] == 0 || math.IsNaN(stds[d]) {
			stds[d] = 1
		}
	}

	scaled := make([][]float64, len(points))
	for i, p := range points {
		row := make([]float64, dims)
		for d := 0; d < dims; d++ {
			row[d] = (p[d] - means[d]) / stds[d]
		}
		scaled[i] = row
	}
	return scaled
}

// fitKMeans runs Lloyd's algorithm nInit times from seeded random starts
// and keeps the lowest-inertia result.
func fitKMeans(points [][]float64, k, nInit int) kmeansResult {
	n := len(points)
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(randomSeed))
	best := kmeansResult{inertia: math.Inf(1)}

	for init := 0; init < nInit; init++ {
		result := lloyd(points, k, rng)
		if result.inertia < best.inertia {
			best = result
		}
	}
	return best
}

func lloyd(points [][]float64, k int, rng *rand.Rand) kmeansResult {
	n := len(points)
	dims := len(points[0])

	// Initialize centroids from k distinct points.
	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), points[perm[i]]...)
	}

	labels := make([]int, n)
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			nearest := nearestCentroid(p, centroids)
			if labels[i] != nearest {
				labels[i] = nearest
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		// Recompute centroids as member means; empty clusters keep their
		// previous position.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dims)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}

	inertia := 0.0
	for i, p := range points {
		d := floats.Distance(p, centroids[labels[i]], 2)
		inertia += d * d
	}

	return kmeansResult{labels: labels, centroids: centroids, inertia: inertia}
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := floats.Distance(p, centroid, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// optimalKElbow scans k=2..maxK and picks the k with the largest
// consecutive inertia drop, offset by the scan start. A crude proxy for
// the true elbow, kept for compatibility with prior runs; it can settle on
// k=2 even when inertia is still falling quickly beyond it.
func optimalKElbow(scaled [][]float64, maxK int) int {
	n := len(scaled)
	if n < 10 {
		if n < 3 {
			return n
		}
		return 3
	}

	if maxK > n/2 {
		maxK = n / 2
	}

	var inertias []float64
	for k := 2; k <= maxK; k++ {
		inertias = append(inertias, fitKMeans(scaled, k, elbowNInit).inertia)
	}

	if len(inertias) < 2 {
		return 3
	}

	bestIdx, bestDrop := 0, math.Inf(-1)
	for i := 0; i+1 < len(inertias); i++ {
		if drop := math.Abs(inertias[i+1] - inertias[i]); drop > bestDrop {
			bestIdx, bestDrop = i, drop
		}
	}
	return bestIdx + 2
}
