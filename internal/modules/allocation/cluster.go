package allocation

import (
	"math"
)

// DistanceMatrix converts a correlation matrix into the correlation distance
// d(i,j) = sqrt(0.5 * (1 - corr(i,j))), bounded in [0, 1]. This distance
// respects the triangle inequality, which agglomerative clustering relies on.
func DistanceMatrix(corr [][]float64) [][]float64 {
	n := len(corr)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			d := math.Sqrt(0.5 * (1 - corr[i][j]))
			if math.IsNaN(d) || d < 0 {
				d = 0
			}
			dist[i][j] = d
		}
	}
	return dist
}

// cluster is a node of the agglomeration; leaves are kept in left-to-right
// dendrogram order so the final merge yields the quasi-diagonal order
// directly.
type cluster struct {
	leaves []int
}

// QuasiDiagonalOrder performs agglomerative clustering with average linkage
// on the correlation distance and returns the dendrogram's leaf order read
// left to right. Instruments that co-move end up adjacent.
//
// Tie-breaking is stable: when two pairs are equally close, the pair with the
// lowest cluster indices (in creation order) merges first, so identical
// inputs always produce identical orderings.
func QuasiDiagonalOrder(corr [][]float64) []int {
	n := len(corr)
	if n == 0 {
		return []int{}
	}
	if n == 1 {
		return []int{0}
	}

	dist := DistanceMatrix(corr)

	clusters := make([]*cluster, n)
	for i := 0; i < n; i++ {
		clusters[i] = &cluster{leaves: []int{i}}
	}

	for len(clusters) > 1 {
		bestI, bestJ := 0, 1
		bestDist := math.Inf(1)
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				d := averageLinkage(dist, clusters[i], clusters[j])
				if d < bestDist {
					bestDist = d
					bestI, bestJ = i, j
				}
			}
		}

		merged := &cluster{
			leaves: append(append([]int{}, clusters[bestI].leaves...), clusters[bestJ].leaves...),
		}

		// Remove the higher index first so the lower stays valid.
		clusters = append(clusters[:bestJ], clusters[bestJ+1:]...)
		clusters[bestI] = merged
	}

	return clusters[0].leaves
}

// averageLinkage computes the mean pairwise distance between the members of
// two clusters.
func averageLinkage(dist [][]float64, a, b *cluster) float64 {
	total := 0.0
	for _, i := range a.leaves {
		for _, j := range b.leaves {
			total += dist[i][j]
		}
	}
	return total / float64(len(a.leaves)*len(b.leaves))
}
