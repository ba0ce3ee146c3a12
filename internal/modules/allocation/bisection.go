package allocation

import "math"

// RecursiveBisection allocates capital across instruments via top-down
// recursive bisection of the quasi-diagonal order.
//
// The full ordered list starts with budget 1.0. Each step splits an ordered
// sublist into two contiguous halves (left = first ⌊n/2⌋), computes each
// half's inverse-variance cluster variance against the covariance submatrix,
// and splits the parent budget in proportion to the inverse of each half's
// variance. Recursion stops at single instruments, so every split conserves
// the total budget and the result sums to 1.0 by construction.
//
// cov is indexed by original column position; order is a permutation of those
// positions. The returned weights are indexed by original column position.
func RecursiveBisection(cov [][]float64, order []int) []float64 {
	n := len(cov)
	weights := make([]float64, n)
	if n == 0 || len(order) == 0 {
		return weights
	}
	for i := range weights {
		weights[i] = 1.0
	}

	groups := [][]int{order}
	for len(groups) > 0 {
		next := make([][]int, 0, len(groups)*2)
		for _, group := range groups {
			if len(group) < 2 {
				continue
			}

			split := len(group) / 2
			left := group[:split]
			right := group[split:]

			alpha := bisectionAllocation(
				clusterVariance(cov, left),
				clusterVariance(cov, right),
			)

			for _, idx := range left {
				weights[idx] *= alpha
			}
			for _, idx := range right {
				weights[idx] *= 1 - alpha
			}

			next = append(next, left, right)
		}
		groups = next
	}

	// Instruments outside the order carry no weight.
	inOrder := make(map[int]bool, len(order))
	for _, idx := range order {
		inOrder[idx] = true
	}
	total := 0.0
	for i := range weights {
		if !inOrder[i] {
			weights[i] = 0
		}
		total += weights[i]
	}

	if total <= 0 {
		for _, idx := range order {
			weights[idx] = 1.0 / float64(len(order))
		}
		return weights
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// bisectionAllocation returns the left half's share of the parent budget:
// 1 - varLeft/(varLeft+varRight). A zero-variance half is allocation
// certainty and takes the whole budget; two zero-variance halves split
// evenly.
func bisectionAllocation(varLeft, varRight float64) float64 {
	switch {
	case varLeft <= 0 && varRight <= 0:
		return 0.5
	case varLeft <= 0:
		return 1.0
	case varRight <= 0:
		return 0.0
	default:
		return 1 - varLeft/(varLeft+varRight)
	}
}

// clusterVariance computes the inverse-variance-weighted portfolio variance
// of a contiguous half: diagonal-only inverse-variance weights within the
// half, normalized to sum to 1, then the quadratic form against the half's
// covariance submatrix.
func clusterVariance(cov [][]float64, members []int) float64 {
	if len(members) == 0 {
		return 0
	}

	ivp := make([]float64, len(members))
	total := 0.0
	for k, idx := range members {
		v := cov[idx][idx]
		if v <= 0 || math.IsNaN(v) {
			// A degenerate diagonal dominates the inverse-variance split.
			v = 1e-12
		}
		ivp[k] = 1 / v
		total += ivp[k]
	}
	for k := range ivp {
		ivp[k] /= total
	}

	variance := 0.0
	for a, i := range members {
		for b, j := range members {
			variance += ivp[a] * cov[i][j] * ivp[b]
		}
	}
	if variance < 0 || math.IsNaN(variance) {
		return 0
	}
	return variance
}
