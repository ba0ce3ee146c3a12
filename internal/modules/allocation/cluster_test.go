package allocation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMatrix(t *testing.T) {
	corr := [][]float64{
		{1.0, 0.0, -1.0},
		{0.0, 1.0, 0.5},
		{-1.0, 0.5, 1.0},
	}

	dist := DistanceMatrix(corr)

	assert.Equal(t, 0.0, dist[0][0], "perfect correlation has zero distance")
	assert.InDelta(t, math.Sqrt(0.5), dist[0][1], 1e-12)
	assert.InDelta(t, 1.0, dist[0][2], 1e-12, "perfect anti-correlation has distance 1")
	assert.InDelta(t, 0.5, dist[1][2], 1e-12)
}

func TestQuasiDiagonalOrder_GroupsCorrelatedPairs(t *testing.T) {
	// Two tight pairs, (0,1) and (2,3), weakly related across pairs.
	corr := [][]float64{
		{1.0, 0.9, 0.1, 0.1},
		{0.9, 1.0, 0.1, 0.1},
		{0.1, 0.1, 1.0, 0.9},
		{0.1, 0.1, 0.9, 1.0},
	}

	order := QuasiDiagonalOrder(corr)

	assert.Len(t, order, 4)
	pos := make(map[int]int, 4)
	for i, leaf := range order {
		pos[leaf] = i
	}
	assert.Equal(t, 1, abs(pos[0]-pos[1]), "pair (0,1) should sit adjacent")
	assert.Equal(t, 1, abs(pos[2]-pos[3]), "pair (2,3) should sit adjacent")
}

func TestQuasiDiagonalOrder_Deterministic(t *testing.T) {
	// Fully symmetric input: every pairwise distance ties, so ordering is
	// decided purely by the tie-break rule.
	corr := [][]float64{
		{1.0, 0.5, 0.5},
		{0.5, 1.0, 0.5},
		{0.5, 0.5, 1.0},
	}

	first := QuasiDiagonalOrder(corr)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, QuasiDiagonalOrder(corr))
	}
}

func TestQuasiDiagonalOrder_Degenerate(t *testing.T) {
	assert.Equal(t, []int{}, QuasiDiagonalOrder(nil))
	assert.Equal(t, []int{0}, QuasiDiagonalOrder([][]float64{{1.0}}))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
