package cluster

import "gonum.org/v1/gonum/floats"

// Noise is the label for points outside every dense region.
const Noise = -1

// fitDBSCAN runs density-based clustering over raw (unscaled) points.
// Points without minSamples neighbors within eps stay labeled Noise rather
// than being forced into a cluster.
func fitDBSCAN(points [][]float64, eps float64, minSamples int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}

	visited := make([]bool, n)
	clusterID := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minSamples {
			continue
		}

		labels[i] = clusterID
		// Expand the cluster over the density-reachable frontier.
		for q := 0; q < len(neighbors); q++ {
			j := neighbors[q]
			if !visited[j] {
				visited[j] = true
				jNeighbors := regionQuery(points, j, eps)
				if len(jNeighbors) >= minSamples {
					neighbors = append(neighbors, jNeighbors...)
				}
			}
			if labels[j] == Noise {
				labels[j] = clusterID
			}
		}
		clusterID++
	}

	return labels
}

func regionQuery(points [][]float64, idx int, eps float64) []int {
	var neighbors []int
	for j, p := range points {
		if floats.Distance(points[idx], p, 2) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
